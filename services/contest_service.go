package services

import (
	"context"
	"strings"
	"time"

	"contestsphere-server/access"
	"contestsphere-server/models"
	appErr "contestsphere-server/pkg/errors"
	"contestsphere-server/pkg/logger"

	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContestService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewContestService(db *gorm.DB, clock clockwork.Clock) *ContestService {
	return &ContestService{DB: db, Clock: clock}
}

// ContestInput is the create/edit body. On edit, nil and empty fields are
// left untouched.
type ContestInput struct {
	Name            string     `json:"name" validate:"required,max=200"`
	Image           string     `json:"image" validate:"required"`
	Description     string     `json:"description" validate:"required"`
	Price           *float64   `json:"price" validate:"required,gte=0"`
	PrizeMoney      *float64   `json:"prizeMoney" validate:"required,gte=0"`
	TaskInstruction string     `json:"taskInstruction" validate:"required"`
	ContestType     string     `json:"contestType" validate:"required,max=64"`
	Deadline        *time.Time `json:"deadline" validate:"required"`
}

func (in *ContestInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Image = strings.TrimSpace(in.Image)
	in.Description = strings.TrimSpace(in.Description)
	in.TaskInstruction = strings.TrimSpace(in.TaskInstruction)
	in.ContestType = strings.TrimSpace(in.ContestType)
}

type ContestQuery struct {
	Search      string
	ContestType string
	Status      string
	Sort        string
	Page        int
	Limit       int
}

type ContestPage struct {
	Contests []models.Contest `json:"contests"`
	Page
}

type CreatorSummary struct {
	TotalCreated int64 `json:"totalCreated"`
	Pending      int64 `json:"pending"`
	Confirmed    int64 `json:"confirmed"`
	Rejected     int64 `json:"rejected"`
	Completed    int64 `json:"completed"`
}

func (s *ContestService) now() time.Time { return s.Clock.Now().UTC() }

func (s *ContestService) load(ctx context.Context, tx *gorm.DB, id string) (*models.Contest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErr.Validation("contestId is required")
	}
	var contest models.Contest
	if err := tx.WithContext(ctx).First(&contest, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Contest not found")
	}
	return &contest, nil
}

func withPeople(db *gorm.DB) *gorm.DB {
	return db.Preload("Creator").Preload("Winner")
}

func (s *ContestService) Create(ctx context.Context, id access.Identity, in ContestInput) (*models.Contest, error) {
	if err := access.Require(id, access.ContestCreate); err != nil {
		return nil, err
	}
	in.trim()
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	deadline := in.Deadline.UTC()
	if !deadline.After(s.now()) {
		return nil, appErr.Validation("Deadline must be a future date")
	}

	contest := &models.Contest{
		Name:            in.Name,
		Slug:            contestSlug(in.Name),
		Image:           in.Image,
		Description:     in.Description,
		Price:           *in.Price,
		PrizeMoney:      *in.PrizeMoney,
		TaskInstruction: in.TaskInstruction,
		ContestType:     in.ContestType,
		Deadline:        deadline,
		CreatorID:       id.UserID,
		Status:          models.ContestPending,
		CreatedAt:       s.now(),
	}
	if err := s.DB.WithContext(ctx).Create(contest).Error; err != nil {
		return nil, appErr.Internal(err, "failed to create contest")
	}

	logger.FromContext(ctx).Info("contest created", zap.String("contestId", contest.ID), zap.String("creatorId", id.UserID))
	return contest, nil
}

// contestSlug appends a short random suffix so equal names never collide.
func contestSlug(name string) string {
	base := slug.Make(name)
	if len(base) > 60 {
		base = strings.Trim(base[:60], "-")
	}
	suffix := strings.ReplaceAll(models.NewID(), "-", "")[:8]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func (s *ContestService) Edit(ctx context.Context, id access.Identity, contestID string, in ContestInput) (*models.Contest, error) {
	contest, err := s.load(ctx, s.DB, contestID)
	if err != nil {
		return nil, err
	}
	// editing is an owner-only right; admins moderate instead of editing
	if err := access.Require(id, access.ContestEditOwn); err != nil {
		return nil, err
	}
	if contest.CreatorID != id.UserID {
		return nil, appErr.Forbidden("You can only edit your own contests")
	}
	if contest.Status != models.ContestPending {
		return nil, appErr.Conflict("Cannot edit contest after approval/rejection")
	}

	in.trim()
	updates := map[string]interface{}{}
	if in.Name != "" {
		updates["name"] = in.Name
	}
	if in.Image != "" {
		updates["image"] = in.Image
	}
	if in.Description != "" {
		updates["description"] = in.Description
	}
	if in.TaskInstruction != "" {
		updates["task_instruction"] = in.TaskInstruction
	}
	if in.ContestType != "" {
		updates["contest_type"] = in.ContestType
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, appErr.Validation("price cannot be negative")
		}
		updates["price"] = *in.Price
	}
	if in.PrizeMoney != nil {
		if *in.PrizeMoney < 0 {
			return nil, appErr.Validation("prizeMoney cannot be negative")
		}
		updates["prize_money"] = *in.PrizeMoney
	}
	if in.Deadline != nil {
		d := in.Deadline.UTC()
		if !d.After(s.now()) {
			return nil, appErr.Validation("Deadline must be a future date")
		}
		updates["deadline"] = d
	}
	if len(updates) == 0 {
		return contest, nil
	}
	updates["updated_at"] = s.now()

	res := s.DB.WithContext(ctx).Model(&models.Contest{}).
		Where("id = ? AND status = ?", contest.ID, models.ContestPending).
		Updates(updates)
	if res.Error != nil {
		return nil, appErr.Internal(res.Error, "failed to update contest")
	}
	if res.RowsAffected == 0 {
		return nil, appErr.Conflict("Cannot edit contest after approval/rejection")
	}
	return s.load(ctx, s.DB, contest.ID)
}

// Delete removes a contest together with its participations and payments.
// Owners may delete only while pending; admins at any time.
func (s *ContestService) Delete(ctx context.Context, id access.Identity, contestID string) error {
	contest, err := s.load(ctx, s.DB, contestID)
	if err != nil {
		return err
	}
	if err := access.RequireOwnerOr(id, contest.CreatorID, access.ContestDeleteOwn, access.ContestDeleteAny); err != nil {
		return err
	}
	asAdmin := access.Can(id.Role, access.ContestDeleteAny)
	if !asAdmin && contest.Status != models.ContestPending {
		return appErr.Conflict("Can only delete pending contests")
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", contest.ID)
		if !asAdmin {
			q = q.Where("status = ?", models.ContestPending)
		}
		res := q.Delete(&models.Contest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return appErr.Conflict("Can only delete pending contests")
		}
		if err := tx.Where("contest_id = ?", contest.ID).Delete(&models.Participation{}).Error; err != nil {
			return err
		}
		return tx.Where("contest_id = ?", contest.ID).Delete(&models.Payment{}).Error
	})
	if err != nil {
		if _, ok := appErr.As(err); ok {
			return err
		}
		return appErr.Internal(err, "failed to delete contest")
	}

	logger.FromContext(ctx).Info("contest deleted", zap.String("contestId", contest.ID), zap.String("by", id.UserID))
	return nil
}

func (s *ContestService) Approve(ctx context.Context, id access.Identity, contestID string) (*models.Contest, error) {
	return s.moderate(ctx, id, contestID, models.ContestConfirmed, "")
}

func (s *ContestService) Reject(ctx context.Context, id access.Identity, contestID, reason string) (*models.Contest, error) {
	return s.moderate(ctx, id, contestID, models.ContestRejected, strings.TrimSpace(reason))
}

func (s *ContestService) moderate(ctx context.Context, id access.Identity, contestID string, to models.ContestStatus, reason string) (*models.Contest, error) {
	if err := access.Require(id, access.ContestModerate); err != nil {
		return nil, err
	}
	contest, err := s.load(ctx, s.DB, contestID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(contest.Status, to) {
		return nil, appErr.Conflict("Contest is not pending")
	}

	updates := map[string]interface{}{"status": to, "updated_at": s.now()}
	if to == models.ContestRejected {
		updates["rejection_reason"] = reason
	}
	res := s.DB.WithContext(ctx).Model(&models.Contest{}).
		Where("id = ? AND status = ?", contest.ID, contest.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, appErr.Internal(res.Error, "failed to update contest status")
	}
	if res.RowsAffected == 0 {
		return nil, appErr.Conflict("Contest is not pending")
	}

	logger.FromContext(ctx).Info("contest moderated",
		zap.String("contestId", contest.ID), zap.String("status", string(to)), zap.String("by", id.UserID))
	return s.get(ctx, contest.ID)
}

func (s *ContestService) get(ctx context.Context, contestID string) (*models.Contest, error) {
	var contest models.Contest
	if err := withPeople(s.DB.WithContext(ctx)).First(&contest, "id = ?", contestID).Error; err != nil {
		return nil, notFoundOr(err, "Contest not found")
	}
	return &contest, nil
}

// Get returns public contest detail. Contests that are not public are only
// visible to their owner and to admins.
func (s *ContestService) Get(ctx context.Context, id access.Identity, contestID string) (*models.Contest, error) {
	if strings.TrimSpace(contestID) == "" {
		return nil, appErr.Validation("contestId is required")
	}
	contest, err := s.get(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !contest.Status.Public() && contest.CreatorID != id.UserID && !access.Can(id.Role, access.ContestViewHidden) {
		return nil, appErr.NotFound("Contest not found")
	}
	return contest, nil
}

// List is the public browse query. Without a status filter only confirmed
// contests are returned.
func (s *ContestService) List(ctx context.Context, id access.Identity, q ContestQuery) (*ContestPage, error) {
	status := models.ContestStatus(strings.ToLower(strings.TrimSpace(q.Status)))
	if status == "" {
		status = models.ContestConfirmed
	}
	if !status.Valid() {
		return nil, appErr.Validation("Invalid status filter")
	}
	if !status.Public() && !access.Can(id.Role, access.ContestViewHidden) {
		return nil, appErr.Forbidden("Access denied")
	}
	return s.page(ctx, s.DB.Where("status = ?", status), q)
}

// ListAll is the admin view across every status; Status narrows it when set.
func (s *ContestService) ListAll(ctx context.Context, id access.Identity, q ContestQuery) (*ContestPage, error) {
	if err := access.Require(id, access.ContestViewHidden); err != nil {
		return nil, err
	}
	db := s.DB
	if st := models.ContestStatus(strings.ToLower(strings.TrimSpace(q.Status))); st != "" {
		if !st.Valid() {
			return nil, appErr.Validation("Invalid status filter")
		}
		db = db.Where("status = ?", st)
	}
	return s.page(ctx, db, q)
}

func (s *ContestService) page(ctx context.Context, db *gorm.DB, q ContestQuery) (*ContestPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	db = db.WithContext(ctx).Model(&models.Contest{})

	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + term + "%"
		db = db.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(contest_type) LIKE ?)", like, like, like)
	}
	if ct := strings.TrimSpace(q.ContestType); ct != "" {
		db = db.Where("contest_type = ?", ct)
	}

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, appErr.Internal(err, "failed to count contests")
	}

	contests := []models.Contest{}
	err := withPeople(db).Order(sortOrder(q.Sort)).
		Offset((page - 1) * limit).Limit(limit).
		Find(&contests).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to list contests")
	}
	return &ContestPage{Contests: contests, Page: newPage(total, page, limit)}, nil
}

func sortOrder(sort string) string {
	switch sort {
	case "popular":
		return "participant_count DESC, created_at DESC"
	case "deadline":
		return "deadline ASC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

// Popular returns the most joined confirmed contests.
func (s *ContestService) Popular(ctx context.Context, limit int) ([]models.Contest, error) {
	if limit < 1 || limit > 50 {
		limit = 5
	}
	contests := []models.Contest{}
	err := withPeople(s.DB.WithContext(ctx)).
		Where("status = ?", models.ContestConfirmed).
		Order("participant_count DESC, created_at DESC").
		Limit(limit).
		Find(&contests).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to load popular contests")
	}
	return contests, nil
}

func (s *ContestService) MyContests(ctx context.Context, id access.Identity) ([]models.Contest, error) {
	if err := access.Require(id, access.ContestCreate); err != nil {
		return nil, err
	}
	contests := []models.Contest{}
	err := s.DB.WithContext(ctx).Preload("Winner").
		Where("creator_id = ?", id.UserID).
		Order("created_at DESC").
		Find(&contests).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to load contests")
	}
	return contests, nil
}

func (s *ContestService) CreatorSummary(ctx context.Context, id access.Identity) (*CreatorSummary, error) {
	if err := access.Require(id, access.ContestCreate); err != nil {
		return nil, err
	}
	var rows []struct {
		Status models.ContestStatus
		N      int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Contest{}).
		Select("status, COUNT(*) AS n").
		Where("creator_id = ?", id.UserID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to summarize contests")
	}

	sum := &CreatorSummary{}
	for _, r := range rows {
		sum.TotalCreated += r.N
		switch r.Status {
		case models.ContestPending:
			sum.Pending = r.N
		case models.ContestConfirmed:
			sum.Confirmed = r.N
		case models.ContestRejected:
			sum.Rejected = r.N
		case models.ContestCompleted:
			sum.Completed = r.N
		}
	}
	return sum, nil
}

// DeclareWinner completes a confirmed contest after its deadline. The status
// change and the winner's win count commit together.
func (s *ContestService) DeclareWinner(ctx context.Context, id access.Identity, contestID, participationID string) (*models.Contest, error) {
	if strings.TrimSpace(participationID) == "" {
		return nil, appErr.Validation("participationId is required")
	}
	contest, err := s.load(ctx, s.DB, contestID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwnerOr(id, contest.CreatorID, access.WinnerDeclareOwn, access.WinnerDeclareAny); err != nil {
		return nil, err
	}
	if contest.Status == models.ContestCompleted || contest.WinnerID != nil {
		return nil, appErr.Conflict("Winner already declared")
	}
	if contest.Status != models.ContestConfirmed {
		return nil, appErr.Conflict("Only confirmed contests can have a winner")
	}
	if s.now().Before(contest.Deadline) {
		return nil, appErr.Conflict("Contest deadline has not been reached")
	}

	var p models.Participation
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", participationID).Error; err != nil {
		return nil, notFoundOr(err, "Participation not found")
	}
	if p.ContestID != contest.ID {
		return nil, appErr.Validation("Participation does not belong to this contest")
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Contest{}).
			Where("id = ? AND status = ? AND winner_id IS NULL", contest.ID, models.ContestConfirmed).
			Updates(map[string]interface{}{
				"status":                  models.ContestCompleted,
				"winner_id":               p.UserID,
				"winner_participation_id": p.ID,
				"updated_at":              s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return appErr.Conflict("Winner already declared")
		}
		return recordWin(tx, p.UserID)
	})
	if err != nil {
		if _, ok := appErr.As(err); ok {
			return nil, err
		}
		return nil, appErr.Internal(err, "failed to declare winner")
	}

	logger.FromContext(ctx).Info("winner declared",
		zap.String("contestId", contest.ID), zap.String("winnerId", p.UserID), zap.String("by", id.UserID))
	return s.get(ctx, contest.ID)
}
