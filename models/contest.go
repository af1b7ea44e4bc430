package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContestStatus string

const (
	ContestPending   ContestStatus = "pending"
	ContestConfirmed ContestStatus = "confirmed"
	ContestRejected  ContestStatus = "rejected"
	ContestCompleted ContestStatus = "completed"
)

// transitions is the whole contest state machine.
var transitions = map[ContestStatus][]ContestStatus{
	ContestPending:   {ContestConfirmed, ContestRejected},
	ContestConfirmed: {ContestCompleted},
}

// CanTransition reports whether from -> to is a legal contest transition.
func CanTransition(from, to ContestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Public reports whether contests in this status are visible without
// moderation rights.
func (s ContestStatus) Public() bool {
	return s == ContestConfirmed || s == ContestCompleted
}

func (s ContestStatus) Valid() bool {
	switch s {
	case ContestPending, ContestConfirmed, ContestRejected, ContestCompleted:
		return true
	}
	return false
}

type Contest struct {
	ID                    string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Slug                  string        `gorm:"uniqueIndex;not null" json:"slug"`
	Name                  string        `gorm:"not null" json:"name"`
	Image                 string        `gorm:"not null" json:"image"`
	Description           string        `gorm:"type:text;not null" json:"description"`
	Price                 float64       `gorm:"not null;default:0" json:"price"`
	PrizeMoney            float64       `gorm:"not null;default:0" json:"prizeMoney"`
	TaskInstruction       string        `gorm:"type:text;not null" json:"taskInstruction"`
	ContestType           string        `gorm:"not null;index" json:"contestType"`
	Deadline              time.Time     `gorm:"not null;index" json:"deadline"`
	CreatorID             string        `gorm:"type:varchar(36);not null;index" json:"creatorId"`
	Status                ContestStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ParticipantCount      int64         `gorm:"not null;default:0;index" json:"participantCount"`
	WinnerID              *string       `gorm:"type:varchar(36);index" json:"winnerId,omitempty"`
	WinnerParticipationID *string       `gorm:"type:varchar(36)" json:"winnerParticipationId,omitempty"`
	RejectionReason       string        `gorm:"type:text" json:"rejectionReason,omitempty"`
	CreatedAt             time.Time     `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt             time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`

	Creator *UserRef `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Winner  *UserRef `gorm:"foreignKey:WinnerID" json:"winner,omitempty"`
}

func (c *Contest) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = ContestPending
	}
	return nil
}

// Expired reports whether the deadline has passed at now.
func (c *Contest) Expired(now time.Time) bool {
	return now.After(c.Deadline)
}

// Free contests are joined directly; paid ones only through a payment intent.
func (c *Contest) Free() bool {
	return c.Price == 0
}
