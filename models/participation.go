package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Participation is a user's entry into one contest. The (user_id, contest_id)
// unique index is what rejects concurrent double joins.
type Participation struct {
	ID              string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string        `gorm:"type:varchar(36);not null;uniqueIndex:idx_participation_user_contest" json:"userId"`
	ContestID       string        `gorm:"type:varchar(36);not null;uniqueIndex:idx_participation_user_contest;index" json:"contestId"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(16);not null;default:'completed'" json:"paymentStatus"`
	PaymentIntentID *string       `gorm:"uniqueIndex" json:"paymentIntentId,omitempty"`
	SubmittedTask   *string       `gorm:"type:text" json:"submittedTask,omitempty"`
	SubmittedAt     *time.Time    `json:"submittedAt,omitempty"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`

	User    *UserRef `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Contest *Contest `gorm:"foreignKey:ContestID" json:"contest,omitempty"`
}

func (p *Participation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
