package main

import (
	"log"
	"log/slog"

	"github.com/gearlogapp/gearlog/internal/config"
	"github.com/gearlogapp/gearlog/internal/db"
	"github.com/gearlogapp/gearlog/internal/logging"
	"github.com/gearlogapp/gearlog/internal/photostore/local"
	"github.com/gearlogapp/gearlog/internal/service"
	"github.com/gearlogapp/gearlog/internal/store"
	"github.com/gearlogapp/gearlog/internal/vision"
	claudevision "github.com/gearlogapp/gearlog/internal/vision/claude"
	"github.com/gearlogapp/gearlog/internal/web"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if cfg.AuthSecret == "" {
		logger.Error("AUTH_SECRET is required")
		return
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	studioStore := store.NewStudioStore(database)
	equipmentStore := store.NewEquipmentStore(database)
	unitStore := store.NewUnitStore(database)
	txStore := store.NewTransactionStore(database)

	photoStg, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	scanService := service.NewScanService(unitStore, txStore, photoStg, newAnalyzer(cfg, logger), logger)
	equipmentService := service.NewEquipmentService(equipmentStore, unitStore, logger)

	server := web.NewServer(scanService, equipmentService, studioStore, txStore, photoStg, cfg.AuthSecret, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

// newAnalyzer returns the condition-note analyzer, or nil when no API key is
// configured. Condition notes are optional; the rest of the service runs
// without them.
func newAnalyzer(cfg *config.Config, logger *slog.Logger) vision.Analyzer {
	if cfg.ClaudeAPIKey == "" {
		logger.Info("condition analysis disabled, no API key configured")
		return nil
	}
	logger.Info("condition analysis enabled", "model", cfg.ClaudeModel)
	return claudevision.NewAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel)
}
