package services

import (
	"context"
	"strings"

	"contestsphere-server/access"
	"contestsphere-server/models"
	appErr "contestsphere-server/pkg/errors"
	"contestsphere-server/pkg/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const LeaderboardSize = 50

type UserService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewUserService(db *gorm.DB, clock clockwork.Clock) *UserService {
	return &UserService{DB: db, Clock: clock}
}

// ProfileInput holds the only user-writable profile fields.
type ProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Photo *string `json:"photo" validate:"omitempty,url"`
	Bio   *string `json:"bio" validate:"omitempty,max=1000"`
}

type LeaderboardEntry struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Photo              string `json:"photo,omitempty"`
	WinCount           int64  `json:"winCount"`
	ParticipationCount int64  `json:"participationCount"`
}

type UserPage struct {
	Users []models.User `json:"users"`
	Page
}

func (s *UserService) load(ctx context.Context, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErr.Validation("userId is required")
	}
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &u, nil
}

func (s *UserService) Me(ctx context.Context, id access.Identity) (*models.User, error) {
	if err := access.Require(id, access.ProfileManage); err != nil {
		return nil, err
	}
	return s.load(ctx, id.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, id access.Identity, in ProfileInput) (*models.User, error) {
	if err := access.Require(id, access.ProfileManage); err != nil {
		return nil, err
	}
	in.Name, in.Photo, in.Bio = trimmed(in.Name), trimmed(in.Photo), trimmed(in.Bio)
	if in.Name != nil && *in.Name == "" {
		return nil, appErr.Validation("name cannot be empty")
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Photo != nil {
		updates["photo"] = *in.Photo
	}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.Clock.Now().UTC()
		res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id.UserID).Updates(updates)
		if res.Error != nil {
			return nil, appErr.Internal(res.Error, "failed to update profile")
		}
		if res.RowsAffected == 0 {
			return nil, appErr.NotFound("User not found")
		}
	}
	return s.load(ctx, id.UserID)
}

// Leaderboard ranks users by wins, then by participations.
func (s *UserService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	out := []LeaderboardEntry{}
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Select("id", "name", "photo", "win_count", "participation_count").
		Order("win_count DESC, participation_count DESC, created_at ASC").
		Limit(LeaderboardSize).
		Scan(&out).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to load leaderboard")
	}
	return out, nil
}

func (s *UserService) List(ctx context.Context, id access.Identity, page, limit int) (*UserPage, error) {
	if err := access.Require(id, access.UsersManage); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, appErr.Internal(err, "failed to count users")
	}
	users := []models.User{}
	err := s.DB.WithContext(ctx).Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to list users")
	}
	return &UserPage{Users: users, Page: newPage(total, page, limit)}, nil
}

// SetRole changes another user's role. Admins cannot change their own role,
// which keeps at least the acting admin in place.
func (s *UserService) SetRole(ctx context.Context, id access.Identity, userID, role string) (*models.User, error) {
	if err := access.Require(id, access.UsersManage); err != nil {
		return nil, err
	}
	r, err := access.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.ID == id.UserID {
		return nil, appErr.Conflict("Cannot change your own role")
	}
	if u.Role == r {
		return u, nil
	}

	err = s.DB.WithContext(ctx).Model(u).Updates(map[string]interface{}{
		"role":       r,
		"updated_at": s.Clock.Now().UTC(),
	}).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to update role")
	}
	logger.FromContext(ctx).Info("user role changed",
		zap.String("userId", u.ID), zap.String("from", string(u.Role)), zap.String("to", string(r)), zap.String("by", id.UserID))
	u.Role = r
	return u, nil
}

// Delete soft-deletes an account. Its participations and any contests it won
// stay in place so contest history is unchanged.
func (s *UserService) Delete(ctx context.Context, id access.Identity, userID string) error {
	if err := access.Require(id, access.UsersManage); err != nil {
		return err
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if u.ID == id.UserID {
		return appErr.Conflict("Cannot delete your own account")
	}
	if err := s.DB.WithContext(ctx).Delete(u).Error; err != nil {
		return appErr.Internal(err, "failed to delete user")
	}
	logger.FromContext(ctx).Info("user deleted", zap.String("userId", u.ID), zap.String("by", id.UserID))
	return nil
}
