package domain

import "time"

// Idempotency stores the response of a completed POST so that a retry with
// the same Idempotency-Key replays it instead of allocating new numbers.
// Records are keyed by (user_id, operation, key) where operation is the
// matched route, e.g. "POST /api/documents/reserve".
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_idem_user_op_key,priority:1"`
	Operation string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_idem_user_op_key,priority:2"`
	Key       string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_idem_user_op_key,priority:3"`
	Status    int       `gorm:"not null"`
	Body      []byte    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
