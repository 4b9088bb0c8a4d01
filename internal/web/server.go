package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gearlogapp/gearlog/internal/auth"
	"github.com/gearlogapp/gearlog/internal/domain"
	"github.com/gearlogapp/gearlog/internal/photostore"
	"github.com/gearlogapp/gearlog/internal/service"
	"github.com/gearlogapp/gearlog/internal/store"
)

type Server struct {
	scans      *service.ScanService
	equipment  *service.EquipmentService
	studios    *store.StudioStore
	txs        *store.TransactionStore
	photoStore photostore.PhotoStore
	authSecret string
	mux        *http.ServeMux
	logger     *slog.Logger
}

func NewServer(scans *service.ScanService, equipment *service.EquipmentService, studios *store.StudioStore, txs *store.TransactionStore, ps photostore.PhotoStore, authSecret string, logger *slog.Logger) *Server {
	s := &Server{
		scans:      scans,
		equipment:  equipment,
		studios:    studios,
		txs:        txs,
		photoStore: ps,
		authSecret: authSecret,
		mux:        http.NewServeMux(),
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /studios", s.handleCreateStudio)
	s.mux.HandleFunc("GET /studios", s.handleListStudios)

	s.mux.HandleFunc("GET /studios/{studioID}/equipment", s.handleListEquipment)
	s.mux.HandleFunc("POST /studios/{studioID}/equipment", s.handleCreateEquipment)
	s.mux.HandleFunc("GET /studios/{studioID}/equipment/{id}", s.handleGetEquipment)
	s.mux.HandleFunc("DELETE /studios/{studioID}/equipment/{id}", s.handleDeleteEquipment)
	s.mux.HandleFunc("POST /studios/{studioID}/equipment/{id}/units", s.handleAddUnits)
	s.mux.HandleFunc("GET /studios/{studioID}/units/{id}/qr", s.handleUnitQR)

	s.mux.HandleFunc("POST /studios/{studioID}/scans", s.handleStartSession)
	s.mux.HandleFunc("POST /studios/{studioID}/scans/{sessionID}/scan", s.handleScan)
	s.mux.HandleFunc("POST /studios/{studioID}/scans/{sessionID}/commit", s.handleCommit)
	s.mux.HandleFunc("DELETE /studios/{studioID}/scans/{sessionID}", s.handleEndSession)

	s.mux.HandleFunc("GET /studios/{studioID}/transactions", s.handleListTransactions)
	s.mux.HandleFunc("POST /studios/{studioID}/transactions/{id}/approval", s.handleSetApproval)

	s.mux.HandleFunc("GET /photos/{key}", s.handleGetPhoto)
}

type contextKey string

const claimsKey contextKey = "claims"

// authMiddleware validates the bearer token and stores the claims in the
// request context. Tokens are issued by the external identity provider; we
// only verify them.
func authMiddleware(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		claims, err := auth.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// studioContext builds the explicit auth context for a studio-scoped request:
// token claims plus the path studio, gated on membership.
func (s *Server) studioContext(r *http.Request) (auth.Context, error) {
	claims := claimsFrom(r.Context())

	studioID, err := strconv.ParseInt(r.PathValue("studioID"), 10, 64)
	if err != nil {
		return auth.Context{}, domain.ErrStudioNotFound
	}

	ok, err := s.studios.IsMember(r.Context(), studioID, claims.Subject)
	if err != nil {
		return auth.Context{}, err
	}
	if !ok {
		return auth.Context{}, domain.ErrNotMember
	}

	return auth.Context{UserID: claims.Subject, Email: claims.Email, StudioID: studioID}, nil
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(authMiddleware(s.authSecret, s.mux))).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
