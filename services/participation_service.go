package services

import (
	"context"
	"strings"
	"time"

	"contestsphere-server/access"
	"contestsphere-server/models"
	appErr "contestsphere-server/pkg/errors"
	"contestsphere-server/pkg/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ParticipationService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewParticipationService(db *gorm.DB, clock clockwork.Clock) *ParticipationService {
	return &ParticipationService{DB: db, Clock: clock}
}

var errAlreadyJoined = appErr.Conflict("Already joined this contest")

// joinable checks everything both join paths require of the contest and the
// caller, short of payment.
func joinable(ctx context.Context, db *gorm.DB, id access.Identity, contest *models.Contest, now time.Time) error {
	if contest.Status != models.ContestConfirmed {
		return appErr.Conflict("Can only join confirmed contests")
	}
	if contest.Expired(now) {
		return appErr.Conflict("Contest deadline has passed")
	}
	var n int64
	err := db.WithContext(ctx).Model(&models.Participation{}).
		Where("user_id = ? AND contest_id = ?", id.UserID, contest.ID).
		Count(&n).Error
	if err != nil {
		return appErr.Internal(err, "failed to check participation")
	}
	if n > 0 {
		return errAlreadyJoined
	}
	return nil
}

// enroll creates the participation and bumps both counters. Must run inside
// a transaction; a concurrent duplicate surfaces as a conflict through the
// (user, contest) unique index.
func enroll(tx *gorm.DB, p *models.Participation) error {
	if err := tx.Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return errAlreadyJoined
		}
		return err
	}
	return recordParticipation(tx, p.UserID, p.ContestID)
}

func loadContest(ctx context.Context, db *gorm.DB, contestID string) (*models.Contest, error) {
	if strings.TrimSpace(contestID) == "" {
		return nil, appErr.Validation("contestId is required")
	}
	var contest models.Contest
	if err := db.WithContext(ctx).First(&contest, "id = ?", contestID).Error; err != nil {
		return nil, notFoundOr(err, "Contest not found")
	}
	return &contest, nil
}

// Join is the direct entry path, available only for free contests.
func (s *ParticipationService) Join(ctx context.Context, id access.Identity, contestID string) (*models.Participation, error) {
	if err := access.Require(id, access.ContestJoin); err != nil {
		return nil, err
	}
	contest, err := loadContest(ctx, s.DB, contestID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	if err := joinable(ctx, s.DB, id, contest, now); err != nil {
		return nil, err
	}
	if !contest.Free() {
		return nil, appErr.Conflict("This contest requires payment to join")
	}

	p := &models.Participation{
		UserID:        id.UserID,
		ContestID:     contest.ID,
		PaymentStatus: models.PaymentCompleted,
		CreatedAt:     now,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return enroll(tx, p)
	})
	if err != nil {
		if _, ok := appErr.As(err); ok {
			return nil, err
		}
		return nil, appErr.Internal(err, "failed to join contest")
	}

	logger.FromContext(ctx).Info("contest joined", zap.String("contestId", contest.ID), zap.String("userId", id.UserID))
	return p, nil
}

// Submit stores or overwrites the caller's task until the deadline.
func (s *ParticipationService) Submit(ctx context.Context, id access.Identity, contestID, task string) (*models.Participation, error) {
	if err := access.Require(id, access.TaskSubmit); err != nil {
		return nil, err
	}
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, appErr.Validation("Submission cannot be empty")
	}
	contest, err := loadContest(ctx, s.DB, contestID)
	if err != nil {
		return nil, err
	}

	var p models.Participation
	err = s.DB.WithContext(ctx).Where("user_id = ? AND contest_id = ?", id.UserID, contest.ID).First(&p).Error
	if err != nil {
		return nil, notFoundOr(err, "Not participated in this contest")
	}

	now := s.Clock.Now().UTC()
	if contest.Expired(now) {
		return nil, appErr.Conflict("Deadline has passed")
	}

	err = s.DB.WithContext(ctx).Model(&p).Updates(map[string]interface{}{
		"submitted_task": task,
		"submitted_at":   now,
		"updated_at":     now,
	}).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to submit task")
	}
	p.SubmittedTask = &task
	p.SubmittedAt = &now
	p.UpdatedAt = now
	return &p, nil
}

// Mine lists the caller's participations with their contests, newest first.
func (s *ParticipationService) Mine(ctx context.Context, id access.Identity) ([]models.Participation, error) {
	if !id.Authenticated() {
		return nil, appErr.New(appErr.CodeUnauthorized, "Authentication required")
	}
	out := []models.Participation{}
	err := s.DB.WithContext(ctx).
		Preload("Contest").Preload("Contest.Creator").
		Where("user_id = ?", id.UserID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to load participations")
	}
	return out, nil
}

// Wins lists contests the caller has won.
func (s *ParticipationService) Wins(ctx context.Context, id access.Identity) ([]models.Contest, error) {
	if !id.Authenticated() {
		return nil, appErr.New(appErr.CodeUnauthorized, "Authentication required")
	}
	out := []models.Contest{}
	err := s.DB.WithContext(ctx).Preload("Creator").
		Where("winner_id = ? AND status = ?", id.UserID, models.ContestCompleted).
		Order("updated_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to load wins")
	}
	return out, nil
}

// Unsubmitted entries sort last on every driver; Postgres puts NULLs first
// under a bare DESC.
const submissionOrder = "CASE WHEN submitted_at IS NULL THEN 1 ELSE 0 END, submitted_at DESC, created_at ASC"

// Submissions lists every participation in a contest for its owner or an admin.
func (s *ParticipationService) Submissions(ctx context.Context, id access.Identity, contestID string) ([]models.Participation, error) {
	contest, err := loadContest(ctx, s.DB, contestID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwnerOr(id, contest.CreatorID, access.SubmissionsViewOwn, access.SubmissionsViewAny); err != nil {
		return nil, err
	}
	out := []models.Participation{}
	err = s.DB.WithContext(ctx).Preload("User").
		Where("contest_id = ?", contest.ID).
		Order(submissionOrder).
		Find(&out).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to load submissions")
	}
	return out, nil
}
