package main

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/MagnunAVF/shortlinks/internal"
)

const userLocalsKey = "currentUser"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid or expired token")
	errUnknownUser  = errors.New("unknown or inactive user")
)

// requireAuth validates the bearer token and loads the account it names.
// Requests without a valid token for an active user are rejected.
func (a *api) requireAuth(c *fiber.Ctx) error {
	user, err := a.authenticate(c)
	if err != nil {
		if errors.Is(err, internal.ErrStoreUnavailable) {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	c.Locals(userLocalsKey, user)
	return c.Next()
}

// optionalAuth loads the user when a token is present but lets anonymous
// requests through. A token that is present and invalid is still rejected.
func (a *api) optionalAuth(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return c.Next()
	}
	return a.requireAuth(c)
}

// requireAdmin runs after requireAuth and gates the operator endpoints.
func (a *api) requireAdmin(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil || !user.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}
	return c.Next()
}

// authenticate parses the HS256 bearer token and resolves its subject to
// an account. Token subjects are usernames; issuing tokens is someone
// else's job, this service only verifies them.
func (a *api) authenticate(c *fiber.Ctx) (*internal.User, error) {
	header := c.Get(fiber.HeaderAuthorization)
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == "" || tokenString == header {
		return nil, errMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	user, err := a.store.FindUserByUsername(c.UserContext(), claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, errUnknownUser
	}
	return user, nil
}

func currentUser(c *fiber.Ctx) *internal.User {
	if user, ok := c.Locals(userLocalsKey).(*internal.User); ok {
		return user
	}
	return nil
}
