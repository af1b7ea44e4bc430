package services

import (
	"context"

	"contestsphere-server/models"
	appErr "contestsphere-server/pkg/errors"
	"contestsphere-server/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordParticipation bumps both participation counters. Must run inside the
// transaction that created the participation.
func recordParticipation(tx *gorm.DB, userID, contestID string) error {
	res := tx.Model(&models.Contest{}).Where("id = ?", contestID).
		UpdateColumn("participant_count", gorm.Expr("participant_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return appErr.NotFound("Contest not found")
	}
	res = tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("participation_count", gorm.Expr("participation_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return appErr.NotFound("User not found")
	}
	return nil
}

// recordWin bumps the winner's win count inside the declaring transaction.
// Soft-deleted winners are still counted.
func recordWin(tx *gorm.DB, userID string) error {
	return tx.Unscoped().Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("win_count", gorm.Expr("win_count + ?", 1)).Error
}

// CounterService recomputes derived counters from the rows they summarize.
type CounterService struct {
	DB *gorm.DB
}

func NewCounterService(db *gorm.DB) *CounterService {
	return &CounterService{DB: db}
}

type ReconcileReport struct {
	ParticipantCounts   int64 `json:"participantCountsRepaired"`
	ParticipationCounts int64 `json:"participationCountsRepaired"`
	WinCounts           int64 `json:"winCountsRepaired"`
	DownwardDrift       int   `json:"downwardDrift"`
}

type counterCheck struct {
	name   string
	table  string
	column string
	actual string
}

var counterChecks = []counterCheck{
	{
		name:   "participantCount",
		table:  "contests",
		column: "participant_count",
		actual: "(SELECT COUNT(*) FROM participations p WHERE p.contest_id = contests.id)",
	},
	{
		name:   "participationCount",
		table:  "users",
		column: "participation_count",
		actual: "(SELECT COUNT(*) FROM participations p WHERE p.user_id = users.id)",
	},
	{
		name:   "winCount",
		table:  "users",
		column: "win_count",
		actual: "(SELECT COUNT(*) FROM contests c WHERE c.winner_id = users.id AND c.status = 'completed')",
	},
}

type driftRow struct {
	ID     string
	Stored int64
	Actual int64
}

// Reconcile raises any counter that fell behind its source rows. Counters are
// never lowered; rows that are ahead are only logged.
func (s *CounterService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	db := s.DB.WithContext(ctx)

	for _, chk := range counterChecks {
		var drift []driftRow
		q := "SELECT id, " + chk.column + " AS stored, " + chk.actual + " AS actual FROM " + chk.table +
			" WHERE " + chk.column + " <> " + chk.actual
		if err := db.Raw(q).Scan(&drift).Error; err != nil {
			return nil, appErr.Internal(err, "reconcile scan failed")
		}
		for _, d := range drift {
			if d.Stored > d.Actual {
				report.DownwardDrift++
				logger.FromContext(ctx).Warn("counter ahead of source rows",
					zap.String("counter", chk.name), zap.String("id", d.ID),
					zap.Int64("stored", d.Stored), zap.Int64("actual", d.Actual))
				continue
			}
			logger.FromContext(ctx).Warn("repairing counter",
				zap.String("counter", chk.name), zap.String("id", d.ID),
				zap.Int64("stored", d.Stored), zap.Int64("actual", d.Actual))
		}

		res := db.Exec("UPDATE " + chk.table + " SET " + chk.column + " = " + chk.actual +
			" WHERE " + chk.column + " < " + chk.actual)
		if res.Error != nil {
			return nil, appErr.Internal(res.Error, "reconcile update failed")
		}
		switch chk.name {
		case "participantCount":
			report.ParticipantCounts = res.RowsAffected
		case "participationCount":
			report.ParticipationCounts = res.RowsAffected
		case "winCount":
			report.WinCounts = res.RowsAffected
		}
	}

	logger.FromContext(ctx).Info("counter reconciliation finished",
		zap.Int64("participantCounts", report.ParticipantCounts),
		zap.Int64("participationCounts", report.ParticipationCounts),
		zap.Int64("winCounts", report.WinCounts),
		zap.Int("downwardDrift", report.DownwardDrift))
	return report, nil
}
