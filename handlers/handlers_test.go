package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"contestsphere-server/access"
	"contestsphere-server/database/dbtest"
	"contestsphere-server/models"
	"contestsphere-server/payments"
	"contestsphere-server/payments/paymentstest"
	"contestsphere-server/services"
	"contestsphere-server/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type harness struct {
	t         *testing.T
	app       *fiber.App
	db        *gorm.DB
	clock     *clockwork.FakeClock
	auth      *services.AuthService
	processor *paymentstest.Fake
	store     *storage.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.New(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	proc := paymentstest.New()
	store := storage.NewMemoryStore("https://cdn.test")

	auth := services.NewAuthService(db, clock, "handler-test-secret", 30*24*time.Hour)
	auth.BcryptCost = 4

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	Setup(app, Deps{
		DB:             db,
		Auth:           auth,
		Users:          services.NewUserService(db, clock),
		Contests:       services.NewContestService(db, clock),
		Participations: services.NewParticipationService(db, clock),
		Payments:       services.NewPaymentService(db, clock, proc, "usd", time.Hour),
		Counters:       services.NewCounterService(db),
		Store:          store,
		AuthRateLimit:  100,
	})

	return &harness{t: t, app: app, db: db, clock: clock, auth: auth, processor: proc, store: store}
}

// token creates a user with the role and returns a bearer token for it.
func (h *harness) token(name string, role access.Role) (string, string) {
	h.t.Helper()
	u := &models.User{Name: name, Email: strings.ToLower(name) + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(h.t, h.db.Create(u).Error)
	tok, err := h.auth.IssueToken(u)
	require.NoError(h.t, err)
	return tok, u.ID
}

func (h *harness) do(method, path, token string, body any) (int, map[string]any) {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(h.t, json.Unmarshal(raw, &out), string(raw))
	} else if len(raw) > 0 {
		out["items"] = json.RawMessage(raw)
	}
	return resp.StatusCode, out
}

func (h *harness) createContest(token string, price float64) string {
	h.t.Helper()
	status, body := h.do("POST", "/api/contests", token, map[string]any{
		"name":            "Poster Jam",
		"image":           "https://cdn.test/contests/p.png",
		"description":     "Make a poster",
		"price":           price,
		"prizeMoney":      50,
		"taskInstruction": "Link your poster",
		"contestType":     "design",
		"deadline":        h.clock.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(h.t, http.StatusCreated, status, body)
	return body["contest"].(map[string]any)["id"].(string)
}

func TestContestLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.token("Admin", access.RoleAdmin)
	creator, _ := h.token("Creator", access.RoleCreator)
	player, playerID := h.token("Player", access.RoleUser)

	status, _ := h.do("POST", "/api/contests", player, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, status)

	id := h.createContest(creator, 0)

	status, body := h.do("GET", "/api/contests/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Contest not found", body["message"])

	status, _ = h.do("PUT", "/api/contests/"+id+"/approve", creator, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = h.do("PUT", "/api/contests/"+id+"/approve", admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, body = h.do("PUT", "/api/contests/"+id+"/approve", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Contest is not pending", body["message"])

	status, body = h.do("GET", "/api/contests?sort=popular", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["pages"])

	status, _ = h.do("POST", "/api/participations/join", "", map[string]any{"contestId": id})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = h.do("POST", "/api/participations/join", player, map[string]any{"contestId": id})
	require.Equal(t, http.StatusCreated, status, body)
	participationID := body["participation"].(map[string]any)["id"].(string)

	status, body = h.do("POST", "/api/participations/join", player, map[string]any{"contestId": id})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Already joined this contest", body["message"])

	status, body = h.do("POST", "/api/participations/submit", player, map[string]any{"contestId": id, "submittedTask": "https://example.com/poster"})
	require.Equal(t, http.StatusOK, status, body)

	status, _ = h.do("GET", "/api/participations/contest/"+id+"/submissions", player, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = h.do("GET", "/api/participations/contest/"+id+"/submissions", creator, nil)
	assert.Equal(t, http.StatusOK, status)

	winner := map[string]any{"contestId": id, "participationId": participationID}
	status, body = h.do("POST", "/api/participations/declare-winner", creator, winner)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Contest deadline has not been reached", body["message"])

	h.clock.Advance(25 * time.Hour)
	status, body = h.do("POST", "/api/participations/declare-winner", creator, winner)
	require.Equal(t, http.StatusOK, status, body)
	contest := body["contest"].(map[string]any)
	assert.Equal(t, "completed", contest["status"])
	assert.Equal(t, playerID, contest["winnerId"])

	status, body = h.do("GET", "/api/users/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, status)
	var board []map[string]any
	require.NoError(t, json.Unmarshal(body["items"].(json.RawMessage), &board))
	require.NotEmpty(t, board)
	assert.Equal(t, playerID, board[0]["id"])
	assert.EqualValues(t, 1, board[0]["winCount"])
	assert.NotContains(t, board[0], "email")
}

func TestContestDeleteAndEditOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.token("Admin", access.RoleAdmin)
	creator, _ := h.token("Creator", access.RoleCreator)
	other, _ := h.token("Other", access.RoleCreator)

	id := h.createContest(creator, 0)

	status, _ := h.do("PUT", "/api/contests/"+id, other, map[string]any{"name": "hijack"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := h.do("PUT", "/api/contests/"+id, creator, map[string]any{"name": "Poster Jam II"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Poster Jam II", body["contest"].(map[string]any)["name"])

	status, _ = h.do("PUT", "/api/admin/contests/"+id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = h.do("PUT", "/api/contests/"+id, creator, map[string]any{"name": "late"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.do("DELETE", "/api/contests/"+id, creator, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.do("DELETE", "/api/contests/"+id, admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = h.do("GET", "/api/contests/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPaidJoinOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.token("Admin", access.RoleAdmin)
	creator, _ := h.token("Creator", access.RoleCreator)
	player, _ := h.token("Player", access.RoleUser)

	id := h.createContest(creator, 9.99)
	status, _ := h.do("PUT", "/api/contests/"+id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := h.do("POST", "/api/participations/join", player, map[string]any{"contestId": id})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "requires payment")

	status, body = h.do("POST", "/api/payments/create-payment-intent", player, map[string]any{"contestId": id})
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 999, body["amount"])
	intentID := body["paymentIntentId"].(string)
	assert.NotEmpty(t, body["clientSecret"])

	h.processor.SetStatus(intentID, payments.StatusSucceeded)
	status, body = h.do("POST", "/api/payments/confirm-payment", player, map[string]any{"paymentIntentId": intentID})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "completed", body["participation"].(map[string]any)["paymentStatus"])

	status, body = h.do("GET", "/api/contests/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["participantCount"])
}

func TestAuthOverHTTP(t *testing.T) {
	h := newHarness(t)

	status, body := h.do("POST", "/api/auth/register", "", map[string]any{
		"name": "Reg", "email": "Reg@Example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	assert.Equal(t, "reg@example.com", user["email"])
	assert.NotContains(t, user, "passwordHash")

	status, body = h.do("GET", "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Reg", body["name"])

	status, body = h.do("PUT", "/api/users/me", token, map[string]any{"name": "Reggie", "winCount": 99, "role": "admin"})
	require.Equal(t, http.StatusOK, status)
	updated := body["user"].(map[string]any)
	assert.Equal(t, "Reggie", updated["name"])
	assert.EqualValues(t, 0, updated["winCount"])
	assert.Equal(t, "user", updated["role"])

	status, _ = h.do("POST", "/api/auth/login", "", map[string]any{"email": "reg@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, body = h.do("POST", "/api/auth/login", "", map[string]any{"email": "REG@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, body = h.do("GET", "/api/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body["message"])
	status, _ = h.do("GET", "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.token("Admin", access.RoleAdmin)
	creator, _ := h.token("Creator", access.RoleCreator)
	_, playerID := h.token("Player", access.RoleUser)

	status, _ := h.do("GET", "/api/admin/users", creator, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := h.do("GET", "/api/admin/users?limit=2", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["pages"])

	status, body = h.do("PUT", "/api/admin/users/role", admin, map[string]any{"userId": playerID, "newRole": "creator"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "creator", body["user"].(map[string]any)["role"])

	status, _ = h.do("PUT", "/api/admin/users/role", admin, map[string]any{"userId": playerID, "role": "king"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do("DELETE", "/api/admin/users/"+playerID, admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = h.do("DELETE", "/api/admin/users/"+playerID, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = h.do("POST", "/api/admin/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "winCountsRepaired")
}

func TestImageUpload(t *testing.T) {
	h := newHarness(t)
	user, _ := h.token("Uploader", access.RoleUser)

	send := func(contentType string, size int, folder string) (int, map[string]any) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if folder != "" {
			require.NoError(t, w.WriteField("folder", folder))
		}
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="pic.PNG"`)
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte{1}, size))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/api/uploads/images", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+user)
		resp, err := h.app.Test(req, -1)
		require.NoError(t, err)
		out := map[string]any{}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, body := send("image/png", 1024, "users")
	require.Equal(t, http.StatusCreated, status, body)
	key := body["key"].(string)
	assert.True(t, strings.HasPrefix(key, "users/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "https://cdn.test/"+key, body["url"])
	obj, ok := h.store.Get(key)
	require.True(t, ok)
	assert.Len(t, obj.Data, 1024)

	status, _ = send("text/plain", 10, "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = send("image/png", 10, "secrets")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUploadNotConfigured(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h := &UploadHandler{}
	app.Post("/", h.Image)

	resp, err := app.Test(httptest.NewRequest("POST", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "uploads are not configured", body["message"])
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	status, body := h.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	sqlDB, err := h.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status, body = h.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, map[string]any{"status": "degraded"}, body)
}

func TestErrorHandlerHidesInternalDetail(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error { return context.DeadlineExceeded })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Server error", body["message"])
}
