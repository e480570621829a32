package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/affirmly/affirmly-backend/app/models"
	"github.com/affirmly/affirmly-backend/app/repository"
	"github.com/affirmly/affirmly-backend/internal/pkg/env"
	"github.com/affirmly/affirmly-backend/internal/pkg/usercontext"
)

type identityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the identity provider's bearer token and attaches
// the resolved user to the request context. Accounts are created lazily on
// the first verified request for a new subject.
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		claims, err := verifyIdentityToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid bearer token"})
		}

		repo := repository.GetGlobalFactory().GetUserRepository()
		user, err := repo.GetBySubject(claims.Subject)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("identity lookup failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Identity lookup failed"})
			}
			user = models.NewUser(claims.Subject, claims.Email, claims.Name)
			if err := repo.Create(user); err != nil {
				log.Printf("lazy account creation failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Account creation failed"})
			}
		}

		if user.Status != models.STATUS_ACTIVE {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User disabled"})
		}

		usercontext.Set(c, usercontext.UserContext{
			UserID:     user.ID,
			AppUserID:  user.AppUserID,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

func verifyIdentityToken(raw string) (*identityClaims, error) {
	secret := strings.TrimSpace(env.GetEnv("AUTH_JWT_SECRET", ""))
	if secret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is not configured")
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}

func extractBearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
