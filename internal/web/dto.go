package web

import (
	"time"

	"github.com/gearlogapp/gearlog/internal/domain"
	"github.com/gearlogapp/gearlog/internal/service"
)

type studioResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toStudioResponse(s *domain.Studio) studioResponse {
	return studioResponse{ID: s.ID, Name: s.Name, OwnerID: s.OwnerID, CreatedAt: s.CreatedAt}
}

type equipmentResponse struct {
	ID                int64     `json:"id"`
	StudioID          int64     `json:"studio_id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	PhotoURL          *string   `json:"photo_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toEquipmentResponse(e *domain.Equipment) equipmentResponse {
	return equipmentResponse{
		ID:                e.ID,
		StudioID:          e.StudioID,
		Name:              e.Name,
		Category:          e.Category,
		TotalQuantity:     e.TotalQuantity,
		AvailableQuantity: e.AvailableQuantity,
		PhotoURL:          e.PhotoURL,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

type unitResponse struct {
	ID          int64             `json:"id"`
	EquipmentID int64             `json:"equipment_id"`
	StudioID    int64             `json:"studio_id"`
	Code        string            `json:"code"`
	Status      domain.UnitStatus `json:"status"`
	PhotoURL    *string           `json:"photo_url"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toUnitResponse(u *domain.EquipmentUnit) unitResponse {
	return unitResponse{
		ID:          u.ID,
		EquipmentID: u.EquipmentID,
		StudioID:    u.StudioID,
		Code:        u.Code,
		Status:      u.Status,
		PhotoURL:    u.PhotoURL,
		CreatedAt:   u.CreatedAt,
	}
}

func toUnitResponses(units []*domain.EquipmentUnit) []unitResponse {
	out := make([]unitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, toUnitResponse(u))
	}
	return out
}

type transactionResponse struct {
	ID              int64                  `json:"id"`
	StudioID        int64                  `json:"studio_id"`
	EquipmentID     *int64                 `json:"equipment_id"`
	EquipmentUnitID *int64                 `json:"equipment_unit_id"`
	UserID          string                 `json:"user_id"`
	Type            domain.TransactionType `json:"type"`
	Quantity        int                    `json:"quantity"`
	PhotoURL        *string                `json:"photo_url"`
	ConditionNote   *string                `json:"condition_note"`
	ApprovalStatus  *domain.ApprovalStatus `json:"approval_status"`
	CreatedAt       time.Time              `json:"created_at"`
}

func toTransactionResponse(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		StudioID:        t.StudioID,
		EquipmentID:     t.EquipmentID,
		EquipmentUnitID: t.EquipmentUnitID,
		UserID:          t.UserID,
		Type:            t.Type,
		Quantity:        t.Quantity,
		PhotoURL:        t.PhotoURL,
		ConditionNote:   t.ConditionNote,
		ApprovalStatus:  t.ApprovalStatus,
		CreatedAt:       t.CreatedAt,
	}
}

type sessionResponse struct {
	ID     string                 `json:"id"`
	Mode   domain.TransactionType `json:"mode"`
	State  service.SessionState   `json:"state"`
	Staged *unitResponse          `json:"staged"`
}

func toSessionResponse(sess *service.ScanSession) sessionResponse {
	resp := sessionResponse{ID: sess.ID, Mode: sess.Mode, State: sess.State()}
	if staged := sess.Staged(); staged != nil {
		u := toUnitResponse(staged)
		resp.Staged = &u
	}
	return resp
}
