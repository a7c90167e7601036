package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/store"
)

type createAPIKeyRequest struct {
	Label              string `json:"label"`
	RateLimitPerMinute *int   `json:"rateLimitPerMinute,omitempty"`
}

type createAPIKeyResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
}

// registerAdminRoutes registers admin-only endpoints under /admin.
func registerAdminRoutes(group fiber.Router) {
	group.Post("/api-keys", adminCreateAPIKeyHandler)
}

// adminCreateAPIKeyHandler mints a new operator API key and returns the
// raw key once; only the hash is stored.
func adminCreateAPIKeyHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var req createAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	if req.Label == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "label is required",
		})
	}

	// Keys minted here are always non-admin; the bootstrap key from
	// config stays the only admin credential.
	rawKey, _, err := st.CreateRandomAPIKey(c.Context(), req.Label, false, req.RateLimitPerMinute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "API_KEY_CREATE_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(createAPIKeyResponse{
		Success: true,
		Key:     rawKey,
	})
}
