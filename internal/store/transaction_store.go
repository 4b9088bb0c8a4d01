package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gearlogapp/gearlog/internal/domain"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// CommitParams describes one scan commit: the log entry to append plus the
// unit and equipment rows whose state must flip with it.
type CommitParams struct {
	StudioID       int64
	EquipmentID    int64
	UnitID         int64
	UserID         string
	Type           domain.TransactionType
	PhotoURL       *string
	ConditionNote  *string
	IdempotencyKey string
}

// Commit appends a transaction, flips the unit status, and adjusts the
// equipment availability counter in one database transaction. The unit flip
// and the counter adjustment are guarded conditional updates, so a commit
// racing against a stale read aborts instead of double-counting. A commit
// retried with the same idempotency key returns the recorded transaction
// without writing anything.
func (s *TransactionStore) Commit(ctx context.Context, p CommitParams) (*domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM transactions WHERE idempotency_key = ?
	`, p.IdempotencyKey).Scan(&existingID)
	if err == nil {
		return s.GetByID(ctx, existingID)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	var have, want domain.UnitStatus
	switch p.Type {
	case domain.TransactionCheckout:
		have, want = domain.UnitAvailable, domain.UnitCheckedOut
	case domain.TransactionCheckin:
		have, want = domain.UnitCheckedOut, domain.UnitAvailable
	default:
		return nil, fmt.Errorf("unknown transaction type %q", p.Type)
	}

	var status domain.UnitStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM equipment_units WHERE id = ? AND studio_id = ?
	`, p.UnitID, p.StudioID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUnitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit status: %w", err)
	}
	if status != have {
		if p.Type == domain.TransactionCheckout {
			return nil, domain.ErrNotAvailable
		}
		return nil, domain.ErrNotCheckedOut
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE equipment_units SET status = ? WHERE id = ? AND status = ?
	`, want, p.UnitID, have)
	if err != nil {
		return nil, fmt.Errorf("failed to update unit status: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		if p.Type == domain.TransactionCheckout {
			return nil, domain.ErrNotAvailable
		}
		return nil, domain.ErrNotCheckedOut
	}

	// Guarded counter adjustment keeps 0 <= available <= total even if the
	// unit row and the counter somehow diverged.
	var counter string
	if p.Type == domain.TransactionCheckout {
		counter = `
			UPDATE equipment
			SET available_quantity = available_quantity - 1, updated_at = datetime('now')
			WHERE id = ? AND available_quantity > 0
		`
	} else {
		counter = `
			UPDATE equipment
			SET available_quantity = available_quantity + 1, updated_at = datetime('now')
			WHERE id = ? AND available_quantity < total_quantity
		`
	}
	result, err = tx.ExecContext(ctx, counter, p.EquipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust available quantity: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return nil, domain.ErrQuantityConflict
	}

	var approval *domain.ApprovalStatus
	if p.Type == domain.TransactionCheckout {
		pending := domain.ApprovalPending
		approval = &pending
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO transactions
			(studio_id, equipment_id, equipment_unit_id, user_id, type, quantity,
			 photo_url, condition_note, approval_status, idempotency_key)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
	`, p.StudioID, p.EquipmentID, p.UnitID, p.UserID, p.Type,
		p.PhotoURL, p.ConditionNote, approval, p.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetByID(ctx, id)
}

const transactionColumns = `
	id, studio_id, equipment_id, equipment_unit_id, user_id, type, quantity,
	photo_url, condition_note, approval_status, idempotency_key, created_at
`

func (s *TransactionStore) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = ?
	`, id)

	txn, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// ListByStudio returns a studio's transaction log, newest first.
func (s *TransactionStore) ListByStudio(ctx context.Context, studioID int64, limit int) ([]*domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE studio_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, studioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	return scanTransactions(rows)
}

// ListByUnit returns a unit's transaction history, oldest first.
func (s *TransactionStore) ListByUnit(ctx context.Context, unitID int64) ([]*domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE equipment_unit_id = ?
		ORDER BY created_at ASC, id ASC
	`, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	return scanTransactions(rows)
}

// SetApproval records the downstream review of a checkout. Only rows created
// with an approval status (checkouts) are reviewable; everything else about a
// transaction stays immutable.
func (s *TransactionStore) SetApproval(ctx context.Context, id int64, status domain.ApprovalStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET approval_status = ? WHERE id = ? AND approval_status IS NOT NULL
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set approval: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("transaction not found or not reviewable")
	}

	return nil
}

func scanTransactions(rows *sql.Rows) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

func scanTransaction(scan func(dest ...any) error) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	var approval sql.NullString
	err := scan(&txn.ID, &txn.StudioID, &txn.EquipmentID, &txn.EquipmentUnitID,
		&txn.UserID, &txn.Type, &txn.Quantity, &txn.PhotoURL, &txn.ConditionNote,
		&approval, &txn.IdempotencyKey, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	if approval.Valid {
		status := domain.ApprovalStatus(approval.String)
		txn.ApprovalStatus = &status
	}
	return txn, nil
}
