// Package access holds the role model and the capability table every
// mutating operation is checked against.
package access

import (
	"strings"

	appErr "contestsphere-server/pkg/errors"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// Roles lists every valid role, lowest privilege first.
var Roles = []Role{RoleUser, RoleCreator, RoleAdmin}

// ParseRole validates a role coming from a request body.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", appErr.Validation("Invalid role")
}

type Action string

const (
	ContestCreate      Action = "contest:create"
	ContestEditOwn     Action = "contest:edit-own"
	ContestDeleteOwn   Action = "contest:delete-own"
	ContestDeleteAny   Action = "contest:delete-any"
	ContestModerate    Action = "contest:moderate"
	ContestViewHidden  Action = "contest:view-hidden"
	WinnerDeclareOwn   Action = "winner:declare-own"
	WinnerDeclareAny   Action = "winner:declare-any"
	SubmissionsViewOwn Action = "submissions:view-own"
	SubmissionsViewAny Action = "submissions:view-any"
	ContestJoin        Action = "contest:join"
	TaskSubmit         Action = "task:submit"
	PaymentCreate      Action = "payment:create"
	ProfileManage      Action = "profile:manage"
	MediaUpload        Action = "media:upload"
	UsersManage        Action = "users:manage"
)

var base = []Action{ContestJoin, TaskSubmit, PaymentCreate, ProfileManage, MediaUpload}

var creator = append(append([]Action{}, base...),
	ContestCreate, ContestEditOwn, ContestDeleteOwn, WinnerDeclareOwn, SubmissionsViewOwn)

var admin = append(append([]Action{}, creator...),
	ContestDeleteAny, ContestModerate, ContestViewHidden, WinnerDeclareAny, SubmissionsViewAny, UsersManage)

var capabilities = map[Role]map[Action]bool{
	RoleUser:    set(base),
	RoleCreator: set(creator),
	RoleAdmin:   set(admin),
}

func set(actions []Action) map[Action]bool {
	m := make(map[Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

// Identity is the authenticated caller as resolved from the bearer token.
type Identity struct {
	UserID string
	Role   Role
}

// Anonymous is used for public routes without a token.
var Anonymous = Identity{}

func (id Identity) Authenticated() bool { return id.UserID != "" }

// Can reports whether role holds the capability.
func Can(role Role, action Action) bool {
	return capabilities[role][action]
}

// Require fails with a forbidden error unless the caller holds the capability.
func Require(id Identity, action Action) error {
	if !id.Authenticated() {
		return appErr.New(appErr.CodeUnauthorized, "Authentication required")
	}
	if !Can(id.Role, action) {
		return appErr.Forbidden("Access denied")
	}
	return nil
}

// RequireOwnerOr passes when the caller owns the resource and holds ownAction,
// or holds anyAction regardless of ownership.
func RequireOwnerOr(id Identity, ownerID string, ownAction, anyAction Action) error {
	if !id.Authenticated() {
		return appErr.New(appErr.CodeUnauthorized, "Authentication required")
	}
	if Can(id.Role, anyAction) {
		return nil
	}
	if id.UserID == ownerID && Can(id.Role, ownAction) {
		return nil
	}
	return appErr.Forbidden("Not authorized")
}
