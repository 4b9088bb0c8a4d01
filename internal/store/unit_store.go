package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gearlogapp/gearlog/internal/domain"
)

type UnitStore struct {
	db *sql.DB
}

func NewUnitStore(db *sql.DB) *UnitStore {
	return &UnitStore{db: db}
}

func (s *UnitStore) GetByID(ctx context.Context, id int64) (*domain.EquipmentUnit, error) {
	return s.getOne(ctx, `
		SELECT id, equipment_id, studio_id, code, status, photo_url, created_at
		FROM equipment_units WHERE id = ?
	`, id)
}

func (s *UnitStore) GetByCode(ctx context.Context, code string) (*domain.EquipmentUnit, error) {
	return s.getOne(ctx, `
		SELECT id, equipment_id, studio_id, code, status, photo_url, created_at
		FROM equipment_units WHERE code = ?
	`, code)
}

func (s *UnitStore) getOne(ctx context.Context, query string, arg any) (*domain.EquipmentUnit, error) {
	unit := &domain.EquipmentUnit{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&unit.ID, &unit.EquipmentID, &unit.StudioID, &unit.Code, &unit.Status, &unit.PhotoURL, &unit.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}

	return unit, nil
}

func (s *UnitStore) ListByEquipment(ctx context.Context, equipmentID int64) ([]*domain.EquipmentUnit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, equipment_id, studio_id, code, status, photo_url, created_at
		FROM equipment_units WHERE equipment_id = ? ORDER BY id ASC
	`, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var units []*domain.EquipmentUnit
	for rows.Next() {
		unit := &domain.EquipmentUnit{}
		if err := rows.Scan(&unit.ID, &unit.EquipmentID, &unit.StudioID, &unit.Code,
			&unit.Status, &unit.PhotoURL, &unit.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, unit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating units: %w", err)
	}

	return units, nil
}
