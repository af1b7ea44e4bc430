package access

import (
	"testing"

	appErr "contestsphere-server/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Creator ")
	require.NoError(t, err)
	assert.Equal(t, RoleCreator, r)

	_, err = ParseRole("superuser")
	assert.True(t, appErr.IsCode(err, appErr.CodeValidation))
}

func TestCapabilityLattice(t *testing.T) {
	// every user capability is held by creator, every creator capability by admin
	for action := range capabilities[RoleUser] {
		assert.True(t, Can(RoleCreator, action), action)
	}
	for action := range capabilities[RoleCreator] {
		assert.True(t, Can(RoleAdmin, action), action)
	}

	assert.False(t, Can(RoleUser, ContestCreate))
	assert.True(t, Can(RoleCreator, ContestCreate))
	assert.False(t, Can(RoleCreator, ContestModerate))
	assert.True(t, Can(RoleAdmin, ContestModerate))
	assert.False(t, Can(Role("ghost"), ContestJoin))
}

func TestRequire(t *testing.T) {
	err := Require(Anonymous, ContestJoin)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	err = Require(Identity{UserID: "u1", Role: RoleUser}, ContestCreate)
	assert.True(t, appErr.IsCode(err, appErr.CodeForbidden))

	assert.NoError(t, Require(Identity{UserID: "c1", Role: RoleCreator}, ContestCreate))
}

func TestRequireOwnerOr(t *testing.T) {
	owner := Identity{UserID: "c1", Role: RoleCreator}
	other := Identity{UserID: "c2", Role: RoleCreator}
	admin := Identity{UserID: "a1", Role: RoleAdmin}
	demoted := Identity{UserID: "c1", Role: RoleUser}

	assert.NoError(t, RequireOwnerOr(owner, "c1", WinnerDeclareOwn, WinnerDeclareAny))
	assert.NoError(t, RequireOwnerOr(admin, "c1", WinnerDeclareOwn, WinnerDeclareAny))

	err := RequireOwnerOr(other, "c1", WinnerDeclareOwn, WinnerDeclareAny)
	assert.True(t, appErr.IsCode(err, appErr.CodeForbidden))

	// owning the contest is not enough once the creator role is gone
	err = RequireOwnerOr(demoted, "c1", WinnerDeclareOwn, WinnerDeclareAny)
	assert.True(t, appErr.IsCode(err, appErr.CodeForbidden))
}
