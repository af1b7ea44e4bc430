package models

import (
	"time"

	"contestsphere-server/access"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account. WinCount and ParticipationCount are maintained by the
// contest and participation lifecycles only; no request body writes them.
type User struct {
	ID                 string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name               string         `gorm:"not null" json:"name"`
	Email              string         `gorm:"uniqueIndex;not null" json:"email"` // case-folded
	PasswordHash       string         `gorm:"not null" json:"-"`
	Photo              string         `json:"photo,omitempty"`
	Bio                string         `gorm:"type:text" json:"bio,omitempty"`
	Role               access.Role    `gorm:"type:varchar(16);not null;default:'user';index" json:"role"`
	WinCount           int64          `gorm:"not null;default:0;index" json:"winCount"`
	ParticipationCount int64          `gorm:"not null;default:0" json:"participationCount"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = access.RoleUser
	}
	return nil
}

// Identity returns the access identity for this account.
func (u *User) Identity() access.Identity {
	return access.Identity{UserID: u.ID, Role: u.Role}
}

// UserRef is the public projection of a user embedded in contest and
// participation responses.
type UserRef struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Photo     string         `json:"photo,omitempty"`
	DeletedAt gorm.DeletedAt `json:"-"`
}

func (UserRef) TableName() string { return "users" }
