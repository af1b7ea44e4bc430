package handlers

import (
	"strings"

	"contestsphere-server/access"
	"contestsphere-server/middleware"
	"contestsphere-server/pkg/logger"
	"contestsphere-server/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const MaxImageBytes = 5 * 1024 * 1024

type UploadHandler struct {
	// Store is nil when object storage is not configured.
	Store storage.ObjectStore
}

func SetupUploadRoutes(api fiber.Router, h *UploadHandler) {
	api.Post("/uploads/images", middleware.Require(access.MediaUpload), h.Image)
}

var uploadFolders = map[string]bool{"contests": true, "users": true}

// Image stores a contest banner or profile photo and returns its public URL.
func (h *UploadHandler) Image(c *fiber.Ctx) error {
	if h.Store == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "uploads are not configured")
	}

	folder := c.FormValue("folder", "contests")
	if !uploadFolders[folder] {
		return fiber.NewError(fiber.StatusBadRequest, "folder must be contests or users")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}
	if fh.Size > MaxImageBytes {
		return fiber.NewError(fiber.StatusBadRequest, "image must be 5MB or smaller")
	}
	if !strings.HasPrefix(fh.Header.Get(fiber.HeaderContentType), "image/") {
		return fiber.NewError(fiber.StatusBadRequest, "only image uploads are allowed")
	}

	key := storage.ImageKey(folder, fh.Filename)
	url, err := storage.UploadFileHeader(c.UserContext(), h.Store, fh, key)
	if err != nil {
		logger.FromContext(c.UserContext()).Error("image upload failed", zap.String("key", key), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to upload image")
	}

	logger.FromContext(c.UserContext()).Info("image uploaded", zap.String("key", key), zap.String("userId", middleware.Identity(c).UserID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url, "key": key})
}
