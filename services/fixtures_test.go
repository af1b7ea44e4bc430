package services

import (
	"context"
	"testing"
	"time"

	"contestsphere-server/access"
	"contestsphere-server/database/dbtest"
	"contestsphere-server/models"
	"contestsphere-server/payments/paymentstest"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	clock *clockwork.FakeClock

	contests       *ContestService
	participations *ParticipationService
	payments       *PaymentService
	counters       *CounterService
	users          *UserService
	auth           *AuthService
	processor      *paymentstest.Fake

	admin   access.Identity
	creator access.Identity
	player  access.Identity
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.New(t)
	clock := clockwork.NewFakeClockAt(epoch)
	proc := paymentstest.New()

	e := &env{
		t:              t,
		ctx:            context.Background(),
		db:             db,
		clock:          clock,
		contests:       NewContestService(db, clock),
		participations: NewParticipationService(db, clock),
		payments:       NewPaymentService(db, clock, proc, "USD", 24*time.Hour),
		counters:       NewCounterService(db),
		users:          NewUserService(db, clock),
		auth:           NewAuthService(db, clock, "test-secret-at-least-16", time.Hour),
		processor:      proc,
	}
	e.auth.BcryptCost = bcrypt.MinCost

	e.admin = e.user("Ada Admin", access.RoleAdmin)
	e.creator = e.user("Cleo Creator", access.RoleCreator)
	e.player = e.user("Pat Player", access.RoleUser)
	return e
}

func (e *env) user(name string, role access.Role) access.Identity {
	e.t.Helper()
	u := &models.User{
		Name:         name,
		Email:        models.NewID() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    e.clock.Now(),
	}
	require.NoError(e.t, e.db.Create(u).Error)
	return u.Identity()
}

func (e *env) reload(id access.Identity) *models.User {
	e.t.Helper()
	var u models.User
	require.NoError(e.t, e.db.Unscoped().First(&u, "id = ?", id.UserID).Error)
	return &u
}

func (e *env) contest(id string) *models.Contest {
	e.t.Helper()
	var c models.Contest
	require.NoError(e.t, e.db.First(&c, "id = ?", id).Error)
	return &c
}

func ptr[T any](v T) *T { return &v }

func (e *env) input(deadline time.Time, price float64) ContestInput {
	return ContestInput{
		Name:            "Logo Sprint",
		Image:           "https://cdn.example.com/contests/logo.png",
		Description:     "Design a logo for a coffee shop",
		Price:           ptr(price),
		PrizeMoney:      ptr(100.0),
		TaskInstruction: "Submit a link to your design",
		ContestType:     "design",
		Deadline:        ptr(deadline),
	}
}

// pendingContest creates a contest owned by the creator, due in 48 hours.
func (e *env) pendingContest(price float64) *models.Contest {
	e.t.Helper()
	c, err := e.contests.Create(e.ctx, e.creator, e.input(e.clock.Now().Add(48*time.Hour), price))
	require.NoError(e.t, err)
	return c
}

func (e *env) confirmedContest(price float64) *models.Contest {
	e.t.Helper()
	c := e.pendingContest(price)
	c, err := e.contests.Approve(e.ctx, e.admin, c.ID)
	require.NoError(e.t, err)
	return c
}
