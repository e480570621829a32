package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/affirmly/affirmly-backend/app/models"
	"github.com/affirmly/affirmly-backend/app/repository"
	"github.com/affirmly/affirmly-backend/internal/pkg/usercontext"
)

const maxAffirmationLength = 2000

type affirmationRequest struct {
	Text       string `json:"text"`
	Category   string `json:"category"`
	IsFavorite *bool  `json:"is_favorite"`
}

// HandleListAffirmations returns the caller's affirmations, newest first.
func HandleListAffirmations(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	repo := repository.GetGlobalFactory().GetAffirmationRepository()
	affirmations, err := repo.ListByUser(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load affirmations")
	}
	return c.JSON(fiber.Map{"affirmations": affirmations, "count": len(affirmations)})
}

// HandleCreateAffirmation stores a new affirmation for the caller.
func HandleCreateAffirmation(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req affirmationRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Affirmation text is required")
	}
	if len(text) > maxAffirmationLength {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Affirmation text too long")
	}

	aff := &models.Affirmation{
		UUID:     uuid.NewString(),
		UserID:   userCtx.UserID,
		Text:     text,
		Category: strings.TrimSpace(req.Category),
	}
	if req.IsFavorite != nil {
		aff.IsFavorite = *req.IsFavorite
	}

	repo := repository.GetGlobalFactory().GetAffirmationRepository()
	if err := repo.Create(aff); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save affirmation")
	}
	return c.Status(fiber.StatusCreated).JSON(aff)
}

// HandleUpdateAffirmation applies a partial update to one affirmation.
func HandleUpdateAffirmation(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	id := strings.TrimSpace(c.Params("uuid"))
	if id == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Affirmation id missing")
	}

	var req affirmationRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}

	repo := repository.GetGlobalFactory().GetAffirmationRepository()
	aff, err := repo.GetByUUID(userCtx.UserID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Affirmation not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load affirmation")
	}

	if text := strings.TrimSpace(req.Text); text != "" {
		if len(text) > maxAffirmationLength {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "Affirmation text too long")
		}
		aff.Text = text
	}
	if req.Category != "" {
		aff.Category = strings.TrimSpace(req.Category)
	}
	if req.IsFavorite != nil {
		aff.IsFavorite = *req.IsFavorite
	}

	if err := repo.Update(aff); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save affirmation")
	}
	return c.JSON(aff)
}

// HandleDeleteAffirmation removes one affirmation owned by the caller.
func HandleDeleteAffirmation(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	id := strings.TrimSpace(c.Params("uuid"))
	if id == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Affirmation id missing")
	}

	repo := repository.GetGlobalFactory().GetAffirmationRepository()
	if _, err := repo.GetByUUID(userCtx.UserID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Affirmation not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load affirmation")
	}

	if err := repo.Delete(userCtx.UserID, id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete affirmation")
	}
	return c.JSON(fiber.Map{"ok": true})
}
