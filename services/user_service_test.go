package services

import (
	"testing"
	"time"

	"contestsphere-server/access"
	"contestsphere-server/models"
	appErr "contestsphere-server/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	e := newEnv(t)

	me, err := e.users.Me(e.ctx, e.player)
	require.NoError(t, err)
	assert.Equal(t, "Pat Player", me.Name)

	updated, err := e.users.UpdateProfile(e.ctx, e.player, ProfileInput{
		Bio:   ptr("  I paint  "),
		Photo: ptr("https://cdn.example.com/users/pat.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "I paint", updated.Bio)
	assert.Equal(t, "Pat Player", updated.Name)
	assert.Equal(t, "https://cdn.example.com/users/pat.png", updated.Photo)

	_, err = e.users.UpdateProfile(e.ctx, e.player, ProfileInput{Name: ptr("   ")})
	assert.True(t, appErr.IsCode(err, appErr.CodeValidation))

	_, err = e.users.Me(e.ctx, access.Anonymous)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestLeaderboard(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", e.creator.UserID).
		Updates(map[string]interface{}{"win_count": 2, "participation_count": 3}).Error)
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", e.player.UserID).
		Updates(map[string]interface{}{"win_count": 2, "participation_count": 5}).Error)

	board, err := e.users.Leaderboard(e.ctx)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, e.player.UserID, board[0].ID)
	assert.Equal(t, e.creator.UserID, board[1].ID)
	assert.Equal(t, int64(5), board[0].ParticipationCount)

	require.NoError(t, e.users.Delete(e.ctx, e.admin, e.player.UserID))
	board, err = e.users.Leaderboard(e.ctx)
	require.NoError(t, err)
	assert.Len(t, board, 2)
}

func TestAdminUserManagement(t *testing.T) {
	e := newEnv(t)

	page, err := e.users.List(e.ctx, e.admin, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Users, 2)

	_, err = e.users.List(e.ctx, e.creator, 1, 10)
	assert.True(t, appErr.IsCode(err, appErr.CodeForbidden))

	u, err := e.users.SetRole(e.ctx, e.admin, e.player.UserID, "Creator")
	require.NoError(t, err)
	assert.Equal(t, access.RoleCreator, u.Role)
	assert.Equal(t, access.RoleCreator, e.reload(e.player).Role)

	_, err = e.users.SetRole(e.ctx, e.admin, e.player.UserID, "overlord")
	assert.True(t, appErr.IsCode(err, appErr.CodeValidation))
	_, err = e.users.SetRole(e.ctx, e.admin, e.admin.UserID, "user")
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	_, err = e.users.SetRole(e.ctx, e.admin, "ghost", "user")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = e.users.SetRole(e.ctx, e.creator, e.player.UserID, "admin")
	assert.True(t, appErr.IsCode(err, appErr.CodeForbidden))
}

func TestSoftDeleteKeepsHistory(t *testing.T) {
	e := newEnv(t)
	c := e.confirmedContest(0)
	p, err := e.participations.Join(e.ctx, e.player, c.ID)
	require.NoError(t, err)
	e.clock.Advance(48 * time.Hour)
	_, err = e.contests.DeclareWinner(e.ctx, e.creator, c.ID, p.ID)
	require.NoError(t, err)

	require.NoError(t, e.users.Delete(e.ctx, e.admin, e.player.UserID))
	assert.True(t, appErr.IsCode(e.users.Delete(e.ctx, e.admin, e.player.UserID), appErr.CodeNotFound))
	assert.True(t, appErr.IsCode(e.users.Delete(e.ctx, e.admin, e.admin.UserID), appErr.CodeConflict))

	got := e.contest(c.ID)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, e.player.UserID, *got.WinnerID)

	subs, err := e.participations.Submissions(e.ctx, e.creator, c.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Nil(t, subs[0].User, "deleted user is not exposed")
}
