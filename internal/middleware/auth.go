// Package middleware contains the Fiber middleware for the ratings API: bearer-token
// authentication and the capability gate.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/chess-ratings/internal/access"
	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/models"
)

// Locals keys written by Auth.
const (
	localCaller   = "caller"
	localUserID   = "userID"
	localUserRole = "userRole"
)

// Identity is what the identity provider vouches for: who the token belongs to.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Claims is the access-token payload issued by the managed auth service.
// Subject is the user's UUID; Role is the provider's own role ("authenticated"),
// not our staff role, which lives in the profiles table.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JWTVerifier checks HS256 tokens signed with the provider's JWT secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier returns a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates the signature and expiry of token and returns its subject.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, errors.New("token subject is not a valid user id")
	}
	return Identity{UserID: id, Email: claims.Email}, nil
}

// Auth returns a handler that:
//  1. reads the "Authorization: Bearer <token>" header
//  2. verifies the token with verifier
//  3. loads the caller's profile (role and status) from the profiles table
//  4. stores the resulting access.Caller in c.Locals for the handlers
//
// Any failure is reported as Unauthenticated.
func Auth(verifier Verifier, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return apperr.Unauthenticated("authentication required")
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			return apperr.Unauthenticated("authentication required")
		}

		identity, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return apperr.Unauthenticated("invalid or expired token")
		}

		var profile models.Profile
		if err := db.WithContext(c.UserContext()).First(&profile, "id = ?", identity.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthenticated("no profile exists for this account")
			}
			return apperr.Internal("failed to load profile", err)
		}

		caller := access.Caller{UserID: profile.ID, Role: profile.Role, Status: profile.Status}
		c.Locals(localCaller, caller)
		c.Locals(localUserID, profile.ID.String())
		c.Locals(localUserRole, string(profile.Role))
		return c.Next()
	}
}

// CallerFrom returns the caller stored by Auth, or the anonymous caller on public routes.
func CallerFrom(c *fiber.Ctx) access.Caller {
	caller, _ := c.Locals(localCaller).(access.Caller)
	return caller
}
