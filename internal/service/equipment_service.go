package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/gearlogapp/gearlog/internal/auth"
	"github.com/gearlogapp/gearlog/internal/domain"
	"github.com/gearlogapp/gearlog/internal/scan"
)

// equipmentRepository is the subset of store.EquipmentStore that
// EquipmentService requires.
type equipmentRepository interface {
	CreateWithUnits(ctx context.Context, studioID int64, name, category string, photoURL *string, codes []string) (*domain.Equipment, error)
	AddUnits(ctx context.Context, equipmentID int64, codes []string) error
	GetByID(ctx context.Context, id int64) (*domain.Equipment, error)
	ListByStudio(ctx context.Context, studioID int64) ([]*domain.Equipment, error)
	Delete(ctx context.Context, id int64) error
}

// unitReader is the subset of store.UnitStore that EquipmentService requires.
type unitReader interface {
	GetByID(ctx context.Context, id int64) (*domain.EquipmentUnit, error)
	ListByEquipment(ctx context.Context, equipmentID int64) ([]*domain.EquipmentUnit, error)
}

// EquipmentService manages the catalog: equipment entries and the trackable
// units created with them.
type EquipmentService struct {
	equipment equipmentRepository
	units     unitReader
	logger    *slog.Logger
}

func NewEquipmentService(equipment equipmentRepository, units unitReader, logger *slog.Logger) *EquipmentService {
	return &EquipmentService{equipment: equipment, units: units, logger: logger}
}

const maxUnitsPerCreate = 500

// CreateEquipment adds a catalog entry with quantity units, each issued a
// fresh trackable code.
func (s *EquipmentService) CreateEquipment(ctx context.Context, authCtx auth.Context, name, category string, quantity int, photoURL *string) (*domain.Equipment, []*domain.EquipmentUnit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("equipment name required")
	}
	if quantity < 1 || quantity > maxUnitsPerCreate {
		return nil, nil, fmt.Errorf("quantity must be between 1 and %d", maxUnitsPerCreate)
	}

	eq, err := s.equipment.CreateWithUnits(ctx, authCtx.StudioID, name, category, photoURL, newUnitCodes(quantity))
	if err != nil {
		return nil, nil, err
	}

	units, err := s.units.ListByEquipment(ctx, eq.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("equipment created", "equipment_id", eq.ID, "studio_id", eq.StudioID, "units", len(units))
	return eq, units, nil
}

// AddUnits merges quantity additional units into existing equipment,
// increasing both counters.
func (s *EquipmentService) AddUnits(ctx context.Context, authCtx auth.Context, equipmentID int64, quantity int) (*domain.Equipment, []*domain.EquipmentUnit, error) {
	if quantity < 1 || quantity > maxUnitsPerCreate {
		return nil, nil, fmt.Errorf("quantity must be between 1 and %d", maxUnitsPerCreate)
	}

	eq, err := s.getOwned(ctx, authCtx, equipmentID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.equipment.AddUnits(ctx, eq.ID, newUnitCodes(quantity)); err != nil {
		return nil, nil, err
	}

	eq, err = s.equipment.GetByID(ctx, eq.ID)
	if err != nil {
		return nil, nil, err
	}
	units, err := s.units.ListByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, nil, err
	}

	return eq, units, nil
}

func (s *EquipmentService) GetEquipment(ctx context.Context, authCtx auth.Context, equipmentID int64) (*domain.Equipment, []*domain.EquipmentUnit, error) {
	eq, err := s.getOwned(ctx, authCtx, equipmentID)
	if err != nil {
		return nil, nil, err
	}

	units, err := s.units.ListByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, nil, err
	}

	return eq, units, nil
}

func (s *EquipmentService) ListEquipment(ctx context.Context, authCtx auth.Context) ([]*domain.Equipment, error) {
	return s.equipment.ListByStudio(ctx, authCtx.StudioID)
}

// DeleteEquipment removes the entry and cascades its units. Transaction log
// entries survive with nilled references.
func (s *EquipmentService) DeleteEquipment(ctx context.Context, authCtx auth.Context, equipmentID int64) error {
	eq, err := s.getOwned(ctx, authCtx, equipmentID)
	if err != nil {
		return err
	}
	return s.equipment.Delete(ctx, eq.ID)
}

// UnitQRPayload returns the structured payload encoded into a unit's QR
// label; the mobile client renders the actual image.
func (s *EquipmentService) UnitQRPayload(ctx context.Context, authCtx auth.Context, unitID int64) (string, error) {
	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return "", err
	}
	if unit == nil || unit.StudioID != authCtx.StudioID {
		return "", domain.ErrUnitNotFound
	}

	return scan.Encode(unit.StudioID, unit.ID)
}

// getOwned loads equipment and hides entries from other studios behind
// not-found.
func (s *EquipmentService) getOwned(ctx context.Context, authCtx auth.Context, equipmentID int64) (*domain.Equipment, error) {
	eq, err := s.equipment.GetByID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if eq == nil || eq.StudioID != authCtx.StudioID {
		return nil, domain.ErrEquipmentNotFound
	}
	return eq, nil
}

func newUnitCodes(n int) []string {
	codes := make([]string, n)
	for i := range codes {
		codes[i] = newUnitCode()
	}
	return codes
}

// newUnitCode issues a label-friendly unique code. Eight hex characters of a
// UUID are enough for a studio-sized fleet; the column's unique constraint
// backstops collisions.
func newUnitCode() string {
	return "GL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
