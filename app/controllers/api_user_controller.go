package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/affirmly/affirmly-backend/app/repository"
	"github.com/affirmly/affirmly-backend/internal/pkg/billing"
	"github.com/affirmly/affirmly-backend/internal/pkg/cache"
	"github.com/affirmly/affirmly-backend/internal/pkg/database"
	"github.com/affirmly/affirmly-backend/internal/pkg/entitlements"
	"github.com/affirmly/affirmly-backend/internal/pkg/storage"
	"github.com/affirmly/affirmly-backend/internal/pkg/usercontext"
)

const maxAvatarBytes = 5 << 20

// HandleGetUserProfile returns account information for the authenticated user.
func HandleGetUserProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	sub, err := svc.CurrentSubscription(c.Context(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}
	projection := entitlements.Project(sub)
	plan := entitlements.Plan(projection.Plan)

	return c.JSON(fiber.Map{
		"id":           account.ID,
		"app_user_id":  account.AppUserID,
		"name":         account.Name,
		"email":        account.Email,
		"bio":          account.Bio,
		"avatar_url":   account.AvatarURL,
		"status":       account.Status,
		"created_at":   account.CreatedAt.UTC().Format(time.RFC3339),
		"last_seen_at": formatTimePtr(account.LastSeenAt),
		"subscription": projection,
		"preferences": fiber.Map{
			"reminder_time": account.ReminderTime,
			"push_enabled":  account.PushEnabled,
		},
		"limits": fiber.Map{
			"daily_affirmations":    entitlements.DailyAffirmationLimit(plan),
			"device_sync":           entitlements.DeviceSyncLimit(plan),
			"can_custom_categories": entitlements.CanUseCustomCategories(plan),
		},
	})
}

type updateProfileRequest struct {
	Name         *string `json:"name"`
	Bio          *string `json:"bio"`
	ReminderTime *string `json:"reminder_time"`
	PushEnabled  *bool   `json:"push_enabled"`
}

// HandleUpdateUserProfile applies a partial profile update.
func HandleUpdateUserProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if req.Name != nil {
		account.Name = strings.TrimSpace(*req.Name)
	}
	if req.Bio != nil {
		account.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.ReminderTime != nil {
		account.ReminderTime = strings.TrimSpace(*req.ReminderTime)
	}
	if req.PushEnabled != nil {
		account.PushEnabled = *req.PushEnabled
	}

	if err := account.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	if err := repo.Update(account); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save profile")
	}

	return c.JSON(account)
}

// HandleUploadAvatar stores a new avatar image in object storage.
func HandleUploadAvatar(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	store := storage.GetAvatarStore()
	if store == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Avatar storage is not configured")
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing avatar file")
	}
	if fileHeader.Size > maxAvatarBytes {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Avatar exceeds 5 MiB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Unsupported avatar format")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to read upload")
	}
	defer file.Close()

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	key := fmt.Sprintf("avatars/%s%s", account.AppUserID, ext)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url, err := store.Upload(ctx, key, file, contentType)
	if err != nil {
		log.Printf("avatar upload failed for user %d: %v", account.ID, err)
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Avatar upload failed")
	}

	account.AvatarURL = url
	if err := repo.Update(account); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save avatar")
	}
	return c.JSON(fiber.Map{"avatar_url": url})
}

// HandleDeleteAvatar removes the current avatar.
func HandleDeleteAvatar(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if store := storage.GetAvatarStore(); store != nil && account.AvatarURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.Delete(ctx, store.KeyFromURL(account.AvatarURL)); err != nil {
			log.Printf("avatar object delete failed for user %d: %v", account.ID, err)
		}
	}

	account.AvatarURL = ""
	if err := repo.Update(account); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save profile")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleDeleteAccount removes the user's content, subscription state and
// account. Payment ledger rows are kept for audit.
func HandleDeleteAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	factory := repository.GetGlobalFactory()
	userRepo := factory.GetUserRepository()
	account, err := userRepo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if err := factory.GetAffirmationRepository().DeleteAllByUser(account.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete content")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	if err := svc.DropSubscription(c.Context(), account.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete subscription")
	}
	_ = cache.Delete(cache.SubscriptionKey(account.ID))

	if store := storage.GetAvatarStore(); store != nil && account.AvatarURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.Delete(ctx, store.KeyFromURL(account.AvatarURL)); err != nil {
			log.Printf("avatar object delete failed for user %d: %v", account.ID, err)
		}
	}

	if err := userRepo.Delete(account.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete account")
	}

	return c.JSON(fiber.Map{"ok": true, "deleted": true})
}
