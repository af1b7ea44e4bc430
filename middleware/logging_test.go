package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"contestsphere-server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerScopesRequestID(t *testing.T) {
	var buf bytes.Buffer
	_, err := logger.Init(logger.Options{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = logger.Init(logger.Options{Level: "info", Output: &bytes.Buffer{}}) })

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(RequestLogger())
	app.Get("/work", func(c *fiber.Ctx) error {
		logger.FromContext(c.UserContext()).Info("handling")
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/work", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "req-42", entry["requestId"], line)
	}
}
