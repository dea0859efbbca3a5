package middlewares

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"verwaltung-backend/apperr"
	"verwaltung-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	authHeader       = "Authorization"
	apiKeyHeader     = "X-Api-Key"
	tenantIDHeader   = "X-Tenant-Id"
	bearerPrefix     = "Bearer "
	actorTypeUser    = "user"
	actorTypeService = "service"
)

// Claims is the signed-token payload: subject (user or key id), tenant and
// actor type, plus an optional role for user tokens.
type Claims struct {
	TenantID string `json:"tenantId"`
	Type     string `json:"type"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var (
	publicKeyOnce sync.Once
	publicKey     *rsa.PublicKey
	publicKeyErr  error

	privateKeyOnce sync.Once
	privateKey     *rsa.PrivateKey
	privateKeyErr  error
)

// normalizePEM restores literal "\n" escapes that survive env files.
func normalizePEM(v string) string {
	if strings.Contains(v, `\n`) {
		return strings.ReplaceAll(v, `\n`, "\n")
	}
	return v
}

func loadPublicKey() (*rsa.PublicKey, error) {
	publicKeyOnce.Do(func() {
		pem := normalizePEM(os.Getenv("JWT_PUBLIC_KEY"))
		if strings.TrimSpace(pem) == "" {
			publicKeyErr = errors.New("JWT_PUBLIC_KEY not configured")
			return
		}
		publicKey, publicKeyErr = jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	})
	return publicKey, publicKeyErr
}

func loadPrivateKey() (*rsa.PrivateKey, error) {
	privateKeyOnce.Do(func() {
		pem := normalizePEM(os.Getenv("JWT_PRIVATE_KEY"))
		if strings.TrimSpace(pem) == "" {
			privateKeyErr = errors.New("JWT_PRIVATE_KEY not configured")
			return
		}
		privateKey, privateKeyErr = jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	})
	return privateKey, privateKeyErr
}

// IsTokenShaped reports whether a credential looks like a signed token:
// three non-empty dot-delimited segments. Anything else is treated as an
// opaque API key value.
func IsTokenShaped(credential string) bool {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// HashAPIKey returns the sha256 hex digest under which API key secrets are
// stored and looked up.
func HashAPIKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// CredentialStore is the persistence surface the auth middleware needs.
// Lookups return nil (not an error) when no row matches.
type CredentialStore interface {
	APIKeyByHash(hash string) (*models.APIKey, []string, error)
	TouchAPIKeyUsage(id string) error
	TenantByID(id string) (*models.Tenant, error)
	UserByID(tenantID, id string) (*models.User, error)
}

// RequireAuth authenticates the bearer credential, cross-checks tenant and
// user status, and attaches an immutable AuthContext to the request.
func RequireAuth(store CredentialStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credential := bearerToken(c)
		if credential == "" {
			credential = strings.TrimSpace(c.Get(apiKeyHeader))
		}
		if credential == "" {
			return apperr.Unauthorized()
		}

		var actor Actor
		var err error
		if IsTokenShaped(credential) {
			actor, err = verifySignedToken(credential)
		} else {
			actor, err = authenticateAPIKey(store, credential)
		}
		if err != nil {
			return err
		}

		// Explicit tenant selection is a service-only convenience and may
		// never cross tenant boundaries.
		if headerTenant := strings.TrimSpace(c.Get(tenantIDHeader)); headerTenant != "" {
			if _, ok := actor.(ServiceActor); !ok {
				return apperr.Validation(tenantIDHeader + " is only allowed for service accounts")
			}
			if headerTenant != actor.Tenant() {
				return apperr.TenantMismatch()
			}
		}

		tenant, err := store.TenantByID(actor.Tenant())
		if err != nil {
			return err
		}
		if tenant == nil {
			return apperr.TenantNotFound()
		}
		if tenant.Status != models.StatusActive {
			return apperr.TenantSuspended()
		}

		auth := &AuthContext{Actor: actor, TenantID: actor.Tenant()}
		switch a := actor.(type) {
		case UserActor:
			user, err := store.UserByID(a.TenantID, a.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				return apperr.Unauthorized()
			}
			if user.Status != models.StatusActive {
				return apperr.Forbidden()
			}
			auth.UserID = a.UserID
		case ServiceActor:
			auth.APIKeyID = a.APIKeyID
		}

		c.Locals(authLocalKey, auth)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(authHeader)
	if h == "" || !strings.HasPrefix(h, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}

func verifySignedToken(raw string) (Actor, error) {
	key, err := loadPublicKey()
	if err != nil {
		return nil, apperr.Internal()
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.TokenExpired()
		}
		return nil, apperr.InvalidToken()
	}
	if !token.Valid {
		return nil, apperr.InvalidToken()
	}
	if claims.Subject == "" || claims.TenantID == "" ||
		(claims.Type != actorTypeUser && claims.Type != actorTypeService) {
		return nil, apperr.InvalidToken()
	}

	if claims.Type == actorTypeService {
		// Internal service tokens bypass per-action whitelisting.
		return ServiceActor{
			TenantID:   claims.TenantID,
			APIKeyID:   claims.Subject,
			Profile:    models.ProfileAdmin,
			ActionKeys: []string{"*"},
		}, nil
	}
	return UserActor{TenantID: claims.TenantID, UserID: claims.Subject, Role: claims.Role}, nil
}

func authenticateAPIKey(store CredentialStore, value string) (Actor, error) {
	key, actionKeys, err := store.APIKeyByHash(HashAPIKey(value))
	if err != nil {
		return nil, err
	}
	if key == nil || key.Status != models.StatusActive {
		return nil, apperr.InvalidToken()
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, apperr.TokenExpired()
	}

	if err := store.TouchAPIKeyUsage(key.ID); err != nil {
		return nil, err
	}

	profile := ""
	if key.Profile != nil {
		profile = *key.Profile
	}
	return ServiceActor{
		TenantID:   key.TenantID,
		APIKeyID:   key.ID,
		Profile:    profile,
		ActionKeys: actionKeys,
	}, nil
}

// GenerateUserToken signs an RS256 user token. Used by the login endpoint.
func GenerateUserToken(userID, tenantID, role string, ttl time.Duration) (string, error) {
	return generateToken(userID, tenantID, actorTypeUser, role, ttl)
}

// GenerateServiceToken signs an RS256 service token carrying the wildcard
// capability set.
func GenerateServiceToken(subject, tenantID string, ttl time.Duration) (string, error) {
	return generateToken(subject, tenantID, actorTypeService, "", ttl)
}

func generateToken(subject, tenantID, actorType, role string, ttl time.Duration) (string, error) {
	key, err := loadPrivateKey()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := &Claims{
		TenantID: tenantID,
		Type:     actorType,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}
