// Package paymentstest provides an in-memory payments.Processor.
package paymentstest

import (
	"context"
	"fmt"
	"sync"

	"contestsphere-server/payments"
)

type Fake struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*payments.Intent

	// CreateErr, when set, is returned by the next CreateIntent call.
	CreateErr error
}

func New() *Fake {
	return &Fake{intents: map[string]*payments.Intent{}}
}

func (f *Fake) CreateIntent(ctx context.Context, p payments.CreateParams) (*payments.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CreateErr; err != nil {
		f.CreateErr = nil
		return nil, err
	}
	f.seq++
	id := fmt.Sprintf("pi_test_%d", f.seq)
	meta := make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		meta[k] = v
	}
	in := &payments.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       payments.StatusRequiresPaymentMethod,
		Metadata:     meta,
	}
	f.intents[id] = in
	cp := *in
	return &cp, nil
}

func (f *Fake) GetIntent(ctx context.Context, id string) (*payments.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.intents[id]
	if !ok {
		return nil, payments.ErrIntentNotFound
	}
	cp := *in
	return &cp, nil
}

// SetStatus simulates the client finishing (or abandoning) the payment.
func (f *Fake) SetStatus(id string, s payments.IntentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[id]; ok {
		in.Status = s
	}
}

// SetMetadata overwrites one metadata key, for tampering tests.
func (f *Fake) SetMetadata(id, key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[id]; ok {
		in.Metadata[key] = value
	}
}
