package domain

import "time"

// UnitStatus is the availability state of a single trackable unit.
type UnitStatus string

const (
	UnitAvailable  UnitStatus = "available"
	UnitCheckedOut UnitStatus = "checked_out"
)

// TransactionType marks a unit as borrowed (checkout) or returned (checkin).
type TransactionType string

const (
	TransactionCheckout TransactionType = "checkout"
	TransactionCheckin  TransactionType = "checkin"
)

// ApprovalStatus is the downstream review state of a checkout transaction.
// Checkin transactions carry no approval status.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// Studio is the tenant that owns equipment and members.
type Studio struct {
	ID        int64
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// Member links an identity-provider user to a studio.
type Member struct {
	StudioID int64
	UserID   string
	Role     string
	JoinedAt time.Time
}

// Equipment is a catalog entry. AvailableQuantity and TotalQuantity satisfy
// 0 <= available <= total; exactly total-available units are checked_out.
type Equipment struct {
	ID                int64
	StudioID          int64
	Name              string
	Category          string
	TotalQuantity     int
	AvailableQuantity int
	PhotoURL          *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EquipmentUnit is one physically trackable instance of an equipment type,
// identified by a unique code printed as a QR label.
type EquipmentUnit struct {
	ID          int64
	EquipmentID int64
	StudioID    int64
	Code        string
	Status      UnitStatus
	PhotoURL    *string
	CreatedAt   time.Time
}

// Transaction is one append-only log entry recorded per scan commit.
// Equipment and unit references are nilled when the catalog rows are deleted;
// the log entry itself is never deleted. The only field mutated after
// creation is ApprovalStatus, by the downstream review flow.
type Transaction struct {
	ID              int64
	StudioID        int64
	EquipmentID     *int64
	EquipmentUnitID *int64
	UserID          string
	Type            TransactionType
	Quantity        int
	PhotoURL        *string
	ConditionNote   *string
	ApprovalStatus  *ApprovalStatus
	IdempotencyKey  string
	CreatedAt       time.Time
}
