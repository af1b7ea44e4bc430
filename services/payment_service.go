package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"contestsphere-server/access"
	"contestsphere-server/models"
	"contestsphere-server/payments"
	appErr "contestsphere-server/pkg/errors"
	"contestsphere-server/pkg/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentService struct {
	DB        *gorm.DB
	Clock     clockwork.Clock
	Processor payments.Processor
	Currency  string
	IntentTTL time.Duration
}

func NewPaymentService(db *gorm.DB, clock clockwork.Clock, processor payments.Processor, currency string, intentTTL time.Duration) *PaymentService {
	return &PaymentService{
		DB:        db,
		Clock:     clock,
		Processor: processor,
		Currency:  strings.ToLower(currency),
		IntentTTL: intentTTL,
	}
}

type IntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

var errPaymentsDisabled = appErr.Internal(errors.New("no payment processor configured"), "payments are not configured")

// CreateIntent starts the paid entry path for a contest.
func (s *PaymentService) CreateIntent(ctx context.Context, id access.Identity, contestID string) (*IntentResult, error) {
	if err := access.Require(id, access.PaymentCreate); err != nil {
		return nil, err
	}
	if s.Processor == nil {
		return nil, errPaymentsDisabled
	}
	contest, err := loadContest(ctx, s.DB, contestID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	if err := joinable(ctx, s.DB, id, contest, now); err != nil {
		return nil, err
	}
	if contest.Free() {
		return nil, appErr.Conflict("This contest is free to join")
	}

	amount := payments.ToMinorUnits(contest.Price)
	if open, err := s.openIntent(ctx, id.UserID, contest.ID, amount); err != nil || open != nil {
		return open, err
	}

	intent, err := s.Processor.CreateIntent(ctx, payments.CreateParams{
		Amount:   amount,
		Currency: s.Currency,
		Metadata: map[string]string{
			payments.MetaContestID: contest.ID,
			payments.MetaUserID:    id.UserID,
		},
	})
	if err != nil {
		return nil, appErr.Internal(err, "failed to create payment intent")
	}

	payment := &models.Payment{
		UserID:    id.UserID,
		ContestID: contest.ID,
		IntentID:  intent.ID,
		Amount:    amount,
		Currency:  s.Currency,
		Status:    models.PaymentPending,
		CreatedAt: now,
	}
	if err := s.DB.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, appErr.Internal(err, "failed to record payment")
	}

	logger.FromContext(ctx).Info("payment intent created",
		zap.String("contestId", contest.ID), zap.String("userId", id.UserID),
		zap.String("paymentIntentId", intent.ID), zap.Int64("amount", amount))
	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          amount,
		Currency:        s.Currency,
	}, nil
}

// openIntent returns the caller's still-usable pending intent for the
// contest, so one entry never has two chargeable intents. Pending rows whose
// intent was canceled or changed amount are failed and nil is returned.
func (s *PaymentService) openIntent(ctx context.Context, userID, contestID string, amount int64) (*IntentResult, error) {
	var payment models.Payment
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND contest_id = ? AND status = ?", userID, contestID, models.PaymentPending).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, appErr.Internal(err, "failed to load payments")
	}

	intent, err := s.Processor.GetIntent(ctx, payment.IntentID)
	switch {
	case errors.Is(err, payments.ErrIntentNotFound):
		s.fail(ctx, payment.ID, "intent not found at processor")
		return nil, nil
	case err != nil:
		return nil, appErr.Internal(err, "failed to verify payment")
	case intent.Status == payments.StatusSucceeded:
		return nil, appErr.Conflict("Payment already succeeded, confirm it to join")
	case intent.Status.Dead() || intent.Amount != amount:
		s.fail(ctx, payment.ID, "superseded: processor status "+string(intent.Status))
		return nil, nil
	}
	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
	}, nil
}

// Confirm re-checks the intent with the processor and, once it succeeded,
// creates the participation and completes the payment in one transaction.
// A payment marked failed locally is still completed when the processor
// reports the charge succeeded.
func (s *PaymentService) Confirm(ctx context.Context, id access.Identity, intentID string) (*models.Participation, error) {
	if err := access.Require(id, access.PaymentCreate); err != nil {
		return nil, err
	}
	if s.Processor == nil {
		return nil, errPaymentsDisabled
	}
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, appErr.Validation("paymentIntentId is required")
	}

	var payment models.Payment
	if err := s.DB.WithContext(ctx).Where("intent_id = ?", intentID).First(&payment).Error; err != nil {
		return nil, notFoundOr(err, "Payment not found")
	}
	if payment.UserID != id.UserID {
		return nil, appErr.Validation("Payment does not belong to this user")
	}
	if payment.Status == models.PaymentCompleted {
		return nil, appErr.Conflict("Payment already completed")
	}

	intent, err := s.Processor.GetIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, payments.ErrIntentNotFound) {
			return nil, appErr.NotFound("Payment not found")
		}
		return nil, appErr.Internal(err, "failed to verify payment")
	}
	if intent.Metadata[payments.MetaUserID] != id.UserID ||
		intent.Metadata[payments.MetaContestID] != payment.ContestID ||
		intent.Amount != payment.Amount {
		return nil, appErr.Validation("Payment does not match this contest or user")
	}
	if intent.Status != payments.StatusSucceeded {
		if payment.Status == models.PaymentFailed {
			return nil, appErr.Conflict("Payment has failed")
		}
		if intent.Status.Dead() {
			s.fail(ctx, payment.ID, "processor status "+string(intent.Status))
		}
		return nil, appErr.Conflict("Payment not completed")
	}

	now := s.Clock.Now().UTC()
	p := &models.Participation{
		UserID:          id.UserID,
		ContestID:       payment.ContestID,
		PaymentStatus:   models.PaymentCompleted,
		PaymentIntentID: &intentID,
		CreatedAt:       now,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", payment.ID, []models.PaymentStatus{models.PaymentPending, models.PaymentFailed}).
			Updates(map[string]interface{}{
				"status":         models.PaymentCompleted,
				"failure_reason": "",
				"completed_at":   now,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return appErr.Conflict("Payment already completed")
		}
		return enroll(tx, p)
	})
	if errors.Is(err, errAlreadyJoined) {
		// A second charge for an entry the user already holds.
		s.fail(ctx, payment.ID, "duplicate entry, refund required")
		logger.FromContext(ctx).Warn("succeeded payment for an existing entry",
			zap.String("contestId", payment.ContestID), zap.String("userId", id.UserID),
			zap.String("paymentIntentId", intentID))
		return nil, err
	}
	if err != nil {
		if _, ok := appErr.As(err); ok {
			return nil, err
		}
		return nil, appErr.Internal(err, "failed to confirm payment")
	}

	if payment.Status == models.PaymentFailed {
		logger.FromContext(ctx).Warn("failed payment recovered after processor success",
			zap.String("paymentIntentId", intentID), zap.String("previousReason", payment.FailureReason))
	}
	logger.FromContext(ctx).Info("paid entry confirmed",
		zap.String("contestId", payment.ContestID), zap.String("userId", id.UserID),
		zap.String("paymentIntentId", intentID))
	return p, nil
}

// fail marks a payment failed unless it already completed, reporting whether
// a row changed.
func (s *PaymentService) fail(ctx context.Context, paymentID, reason string) bool {
	res := s.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status <> ?", paymentID, models.PaymentCompleted).
		Updates(map[string]interface{}{
			"status":         models.PaymentFailed,
			"failure_reason": reason,
			"updated_at":     s.Clock.Now().UTC(),
		})
	if res.Error != nil {
		logger.FromContext(ctx).Error("failed to mark payment failed", zap.String("paymentId", paymentID), zap.Error(res.Error))
		return false
	}
	return res.RowsAffected > 0
}

// ExpireStale marks pending payments older than the intent TTL as failed.
// Intents the processor reports as succeeded or processing are left pending
// so the user can still confirm them.
func (s *PaymentService) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := s.Clock.Now().UTC().Add(-s.IntentTTL)
	var stale []models.Payment
	err := s.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentPending, cutoff).
		Find(&stale).Error
	if err != nil {
		return 0, appErr.Internal(err, "failed to expire payments")
	}

	var n int64
	for _, p := range stale {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if s.Processor != nil {
			intent, err := s.Processor.GetIntent(ctx, p.IntentID)
			switch {
			case errors.Is(err, payments.ErrIntentNotFound):
			case err != nil:
				logger.FromContext(ctx).Warn("could not check stale payment", zap.String("paymentIntentId", p.IntentID), zap.Error(err))
				continue
			case intent.Status == payments.StatusSucceeded || intent.Status == payments.StatusProcessing:
				continue
			}
		}
		if s.fail(ctx, p.ID, "expired") {
			n++
		}
	}
	return n, nil
}

// Mine lists the caller's payments, newest first.
func (s *PaymentService) Mine(ctx context.Context, id access.Identity) ([]models.Payment, error) {
	if !id.Authenticated() {
		return nil, appErr.New(appErr.CodeUnauthorized, "Authentication required")
	}
	out := []models.Payment{}
	err := s.DB.WithContext(ctx).Where("user_id = ?", id.UserID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, appErr.Internal(err, "failed to load payments")
	}
	return out, nil
}
