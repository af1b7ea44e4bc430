package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment tracks one processor payment intent for a paid contest entry.
// pending -> completed when the participation is created, pending -> failed
// when the processor reports a dead intent or the intent goes stale.
type Payment struct {
	ID            string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string        `gorm:"type:varchar(36);not null;index" json:"userId"`
	ContestID     string        `gorm:"type:varchar(36);not null;index" json:"contestId"`
	IntentID      string        `gorm:"uniqueIndex;not null" json:"paymentIntentId"`
	Amount        int64         `gorm:"not null" json:"amount"` // minor units
	Currency      string        `gorm:"type:varchar(3);not null" json:"currency"`
	Status        PaymentStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	FailureReason string        `json:"failureReason,omitempty"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
