// Package payments talks to the card processor that backs paid contest entry.
package payments

import (
	"context"
	"errors"
	"math"
)

type IntentStatus string

const (
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	StatusRequiresAction        IntentStatus = "requires_action"
	StatusProcessing            IntentStatus = "processing"
	StatusRequiresCapture       IntentStatus = "requires_capture"
	StatusCanceled              IntentStatus = "canceled"
	StatusSucceeded             IntentStatus = "succeeded"
)

// Dead reports whether the intent can never succeed. A declined card leaves
// the intent in requires_payment_method, which the client may still retry.
func (s IntentStatus) Dead() bool {
	return s == StatusCanceled
}

const (
	MetaContestID = "contestId"
	MetaUserID    = "userId"
)

// Intent is the processor-side record of one in-progress charge.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       IntentStatus
	Metadata     map[string]string
}

type CreateParams struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

type Processor interface {
	CreateIntent(ctx context.Context, p CreateParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// ErrIntentNotFound is returned by GetIntent for unknown ids.
var ErrIntentNotFound = errors.New("payment intent not found")

// ToMinorUnits converts a decimal price to cents.
func ToMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
