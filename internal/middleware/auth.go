// Package middleware provides authentication, logging, metrics and rate limiting middleware.
package middleware

import (
	"context"
	"errors"
	"strings"

	"socialhub/internal/models"

	"firebase.google.com/go/v4/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Fiber locals populated by the identity middleware.
const (
	LocalSubject = "authSubject"
	LocalActorID = "actorID"
)

// ErrInvalidToken is returned by verifiers for any token they refuse.
var ErrInvalidToken = errors.New("invalid or expired identity token")

// TokenVerifier resolves a bearer token issued by the identity provider to
// the provider's stable subject. Credentials are never checked here.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier accepts HMAC-signed tokens minted by a trusted auth service.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTVerifier returns a verifier for HS256 tokens with the given issuer and audience.
func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// firebaseTokenClient is the subset of *auth.Client used for ID token checks.
type firebaseTokenClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier accepts Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	client firebaseTokenClient
}

// NewFirebaseVerifier wraps a Firebase auth client.
func NewFirebaseVerifier(client firebaseTokenClient) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil || token == nil || token.UID == "" {
		return "", ErrInvalidToken
	}
	return token.UID, nil
}

// ActorResolver maps a verified subject to the local identity ID.
type ActorResolver func(ctx context.Context, subject string) (uint, error)

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// RequireToken verifies the bearer token and stores its subject, without
// requiring a registered identity. Used by registration.
func RequireToken(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		subject, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		c.Locals(LocalSubject, subject)
		return c.Next()
	}
}

// ResolveActor runs after RequireToken and turns the subject into an actor ID.
func ResolveActor(resolve ActorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject, ok := c.Locals(LocalSubject).(string)
		if !ok || subject == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		actorID, err := resolve(c.UserContext(), subject)
		if err != nil {
			if models.IsNotFound(err) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewPermissionDeniedError("Identity is not registered"))
			}
			return models.RespondWithError(c, models.StatusFor(err), err)
		}

		c.Locals(LocalActorID, actorID)
		c.SetUserContext(WithActor(c.UserContext(), actorID))
		return c.Next()
	}
}

// ActorID returns the authenticated actor stored by ResolveActor.
func ActorID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalActorID).(uint)
	return id, ok && id != 0
}
