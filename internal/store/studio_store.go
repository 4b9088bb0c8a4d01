package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gearlogapp/gearlog/internal/domain"
)

type StudioStore struct {
	db *sql.DB
}

func NewStudioStore(db *sql.DB) *StudioStore {
	return &StudioStore{db: db}
}

// Create inserts a studio and enrolls the owner as its first member.
func (s *StudioStore) Create(ctx context.Context, name, ownerID string) (*domain.Studio, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO studios (name, owner_id) VALUES (?, ?)
	`, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create studio: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO studio_members (studio_id, user_id, role) VALUES (?, ?, 'owner')
	`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit studio: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *StudioStore) GetByID(ctx context.Context, id int64) (*domain.Studio, error) {
	studio := &domain.Studio{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at FROM studios WHERE id = ?
	`, id).Scan(&studio.ID, &studio.Name, &studio.OwnerID, &studio.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get studio: %w", err)
	}

	return studio, nil
}

// ListForUser returns the studios the user is a member of, alphabetically.
func (s *StudioStore) ListForUser(ctx context.Context, userID string) ([]*domain.Studio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.owner_id, s.created_at
		FROM studios s
		JOIN studio_members m ON m.studio_id = s.id
		WHERE m.user_id = ?
		ORDER BY s.name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list studios: %w", err)
	}
	defer rows.Close()

	var studios []*domain.Studio
	for rows.Next() {
		studio := &domain.Studio{}
		if err := rows.Scan(&studio.ID, &studio.Name, &studio.OwnerID, &studio.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan studio: %w", err)
		}
		studios = append(studios, studio)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating studios: %w", err)
	}

	return studios, nil
}

func (s *StudioStore) AddMember(ctx context.Context, studioID int64, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO studio_members (studio_id, user_id, role) VALUES (?, ?, ?)
	`, studioID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

func (s *StudioStore) IsMember(ctx context.Context, studioID int64, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM studio_members WHERE studio_id = ? AND user_id = ?
	`, studioID, userID).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return true, nil
}
