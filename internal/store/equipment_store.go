package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gearlogapp/gearlog/internal/domain"
)

type EquipmentStore struct {
	db *sql.DB
}

func NewEquipmentStore(db *sql.DB) *EquipmentStore {
	return &EquipmentStore{db: db}
}

// CreateWithUnits inserts a catalog entry together with one unit row per
// code, all in a single transaction. The quantity counters start at
// len(codes) so the counters and unit statuses agree from the first write.
func (s *EquipmentStore) CreateWithUnits(ctx context.Context, studioID int64, name, category string, photoURL *string, codes []string) (*domain.Equipment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO equipment (studio_id, name, category, total_quantity, available_quantity, photo_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`, studioID, name, category, len(codes), len(codes), photoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create equipment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, code := range codes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equipment_units (equipment_id, studio_id, code) VALUES (?, ?, ?)
		`, id, studioID, code)
		if err != nil {
			return nil, fmt.Errorf("failed to create unit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit equipment: %w", err)
	}

	return s.GetByID(ctx, id)
}

// AddUnits merges additional units into existing equipment, increasing both
// quantity counters by the number of codes in the same transaction.
func (s *EquipmentStore) AddUnits(ctx context.Context, equipmentID int64, codes []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var studioID int64
	err = tx.QueryRowContext(ctx, `
		SELECT studio_id FROM equipment WHERE id = ?
	`, equipmentID).Scan(&studioID)
	if err == sql.ErrNoRows {
		return domain.ErrEquipmentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get equipment: %w", err)
	}

	for _, code := range codes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equipment_units (equipment_id, studio_id, code) VALUES (?, ?, ?)
		`, equipmentID, studioID, code)
		if err != nil {
			return fmt.Errorf("failed to create unit: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE equipment
		SET total_quantity = total_quantity + ?,
		    available_quantity = available_quantity + ?,
		    updated_at = datetime('now')
		WHERE id = ?
	`, len(codes), len(codes), equipmentID)
	if err != nil {
		return fmt.Errorf("failed to update quantities: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit units: %w", err)
	}

	return nil
}

func (s *EquipmentStore) GetByID(ctx context.Context, id int64) (*domain.Equipment, error) {
	eq := &domain.Equipment{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, studio_id, name, category, total_quantity, available_quantity, photo_url, created_at, updated_at
		FROM equipment WHERE id = ?
	`, id).Scan(&eq.ID, &eq.StudioID, &eq.Name, &eq.Category, &eq.TotalQuantity,
		&eq.AvailableQuantity, &eq.PhotoURL, &eq.CreatedAt, &eq.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}

	return eq, nil
}

func (s *EquipmentStore) ListByStudio(ctx context.Context, studioID int64) ([]*domain.Equipment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, studio_id, name, category, total_quantity, available_quantity, photo_url, created_at, updated_at
		FROM equipment WHERE studio_id = ? ORDER BY name ASC
	`, studioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var list []*domain.Equipment
	for rows.Next() {
		eq := &domain.Equipment{}
		if err := rows.Scan(&eq.ID, &eq.StudioID, &eq.Name, &eq.Category, &eq.TotalQuantity,
			&eq.AvailableQuantity, &eq.PhotoURL, &eq.CreatedAt, &eq.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		list = append(list, eq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equipment: %w", err)
	}

	return list, nil
}

// Delete removes a catalog entry. Units cascade; transaction rows keep their
// history with nilled references.
func (s *EquipmentStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM equipment WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete equipment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrEquipmentNotFound
	}

	return nil
}
