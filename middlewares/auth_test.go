package middlewares

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"verwaltung-backend/apperr"
	"verwaltung-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

func TestMain(m *testing.M) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		panic(err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	os.Setenv("JWT_PRIVATE_KEY", string(privPEM))
	os.Setenv("JWT_PUBLIC_KEY", string(pubPEM))
	os.Exit(m.Run())
}

func strPtr(s string) *string { return &s }

// fakeCredentials backs RequireAuth in tests. Missing map entries translate
// to nil results, matching the store contract.
type fakeCredentials struct {
	apiKeys map[string]*models.APIKey // keyed by stored hash
	actions map[string][]string       // keyed by api key id
	tenants map[string]*models.Tenant
	users   map[string]*models.User // keyed by tenantID+"/"+userID
	touched []string
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{
		apiKeys: map[string]*models.APIKey{},
		actions: map[string][]string{},
		tenants: map[string]*models.Tenant{
			"t1": {ID: "t1", Name: "Acme", Status: models.StatusActive},
		},
		users: map[string]*models.User{
			"t1/u1": {ID: "u1", TenantID: "t1", Status: models.StatusActive},
		},
	}
}

func (f *fakeCredentials) APIKeyByHash(hash string) (*models.APIKey, []string, error) {
	key, ok := f.apiKeys[hash]
	if !ok {
		return nil, nil, nil
	}
	return key, f.actions[key.ID], nil
}

func (f *fakeCredentials) TouchAPIKeyUsage(id string) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeCredentials) TenantByID(id string) (*models.Tenant, error) {
	return f.tenants[id], nil
}

func (f *fakeCredentials) UserByID(tenantID, id string) (*models.User, error) {
	return f.users[tenantID+"/"+id], nil
}

func newAuthApp(store CredentialStore) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/probe", RequireAuth(store), func(c *fiber.Ctx) error {
		auth := AuthFromCtx(c)
		return c.JSON(fiber.Map{
			"tenantId": auth.TenantID,
			"userId":   auth.UserID,
			"apiKeyId": auth.APIKeyID,
		})
	})
	return app
}

func probe(t *testing.T, app *fiber.App, mutate func(*http.Request)) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if mutate != nil {
		mutate(req)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func errorCode(t *testing.T, resp *http.Response) apperr.Code {
	t.Helper()
	var envelope struct {
		Error struct {
			Code apperr.Code `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func decodeProbe(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode probe body: %v", err)
	}
	return body
}

func TestRequireAuthMissingCredential(t *testing.T) {
	resp := probe(t, newAuthApp(newFakeCredentials()), nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != apperr.CodeUnauthorized {
		t.Fatalf("code = %s, want UNAUTHORIZED", code)
	}
}

func TestRequireAuthUserToken(t *testing.T) {
	token, err := GenerateUserToken("u1", "t1", "", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp := probe(t, newAuthApp(newFakeCredentials()), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeProbe(t, resp)
	if body["tenantId"] != "t1" || body["userId"] != "u1" {
		t.Fatalf("probe body = %v", body)
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	token, err := GenerateUserToken("u1", "t1", "", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp := probe(t, newAuthApp(newFakeCredentials()), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if code := errorCode(t, resp); code != apperr.CodeTokenExpired {
		t.Fatalf("code = %s, want TOKEN_EXPIRED", code)
	}
}

func TestRequireAuthForeignSignature(t *testing.T) {
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	claims := &Claims{
		TenantID: "t1",
		Type:     actorTypeUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(otherKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp := probe(t, newAuthApp(newFakeCredentials()), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if code := errorCode(t, resp); code != apperr.CodeInvalidToken {
		t.Fatalf("code = %s, want INVALID_TOKEN", code)
	}
}

func TestRequireAuthServiceToken(t *testing.T) {
	token, err := GenerateServiceToken("svc1", "t1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp := probe(t, newAuthApp(newFakeCredentials()), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeProbe(t, resp)
	if body["apiKeyId"] != "svc1" || body["userId"] != "" {
		t.Fatalf("probe body = %v", body)
	}
}

func TestRequireAuthAPIKey(t *testing.T) {
	store := newFakeCredentials()
	value := "vw_sk_test_value"
	store.apiKeys[HashAPIKey(value)] = &models.APIKey{
		ID:       "k1",
		TenantID: "t1",
		Status:   models.StatusActive,
		Profile:  strPtr(models.ProfileReadOnly),
	}

	resp := probe(t, newAuthApp(store), func(r *http.Request) {
		r.Header.Set("X-Api-Key", value)
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body := decodeProbe(t, resp); body["apiKeyId"] != "k1" {
		t.Fatalf("probe body = %v", body)
	}
	if len(store.touched) != 1 || store.touched[0] != "k1" {
		t.Fatalf("usage not touched: %v", store.touched)
	}
}

func TestRequireAuthAPIKeyRejections(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name string
		key  *models.APIKey
		want apperr.Code
	}{
		{"unknown", nil, apperr.CodeInvalidToken},
		{"suspended", &models.APIKey{ID: "k1", TenantID: "t1", Status: models.StatusSuspended}, apperr.CodeInvalidToken},
		{"expired", &models.APIKey{ID: "k1", TenantID: "t1", Status: models.StatusActive, ExpiresAt: &past}, apperr.CodeTokenExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeCredentials()
			value := "vw_sk_" + tc.name
			if tc.key != nil {
				store.apiKeys[HashAPIKey(value)] = tc.key
			}
			resp := probe(t, newAuthApp(store), func(r *http.Request) {
				r.Header.Set("X-Api-Key", value)
			})
			if code := errorCode(t, resp); code != tc.want {
				t.Fatalf("code = %s, want %s", code, tc.want)
			}
		})
	}
}

func TestRequireAuthTenantChecks(t *testing.T) {
	token, err := GenerateUserToken("u1", "t1", "", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	t.Run("missing tenant", func(t *testing.T) {
		store := newFakeCredentials()
		delete(store.tenants, "t1")
		resp := probe(t, newAuthApp(store), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
		if code := errorCode(t, resp); code != apperr.CodeTenantNotFound {
			t.Fatalf("code = %s, want TENANT_NOT_FOUND", code)
		}
	})

	t.Run("suspended tenant", func(t *testing.T) {
		store := newFakeCredentials()
		store.tenants["t1"].Status = models.StatusSuspended
		resp := probe(t, newAuthApp(store), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", resp.StatusCode)
		}
		if code := errorCode(t, resp); code != apperr.CodeTenantSuspended {
			t.Fatalf("code = %s, want TENANT_SUSPENDED", code)
		}
	})
}

func TestRequireAuthUserChecks(t *testing.T) {
	token, err := GenerateUserToken("u1", "t1", "", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	t.Run("missing user", func(t *testing.T) {
		store := newFakeCredentials()
		delete(store.users, "t1/u1")
		resp := probe(t, newAuthApp(store), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		if code := errorCode(t, resp); code != apperr.CodeUnauthorized {
			t.Fatalf("code = %s, want UNAUTHORIZED", code)
		}
	})

	t.Run("suspended user", func(t *testing.T) {
		store := newFakeCredentials()
		store.users["t1/u1"].Status = models.StatusSuspended
		resp := probe(t, newAuthApp(store), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		if code := errorCode(t, resp); code != apperr.CodeForbidden {
			t.Fatalf("code = %s, want FORBIDDEN_ACTION", code)
		}
	})
}

func TestTenantHeaderRules(t *testing.T) {
	userToken, err := GenerateUserToken("u1", "t1", "", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	serviceToken, err := GenerateServiceToken("svc1", "t1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	t.Run("user actor rejected", func(t *testing.T) {
		resp := probe(t, newAuthApp(newFakeCredentials()), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+userToken)
			r.Header.Set("X-Tenant-Id", "t1")
		})
		if code := errorCode(t, resp); code != apperr.CodeValidation {
			t.Fatalf("code = %s, want VALIDATION_ERROR", code)
		}
	})

	t.Run("service mismatch rejected", func(t *testing.T) {
		resp := probe(t, newAuthApp(newFakeCredentials()), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+serviceToken)
			r.Header.Set("X-Tenant-Id", "t2")
		})
		if code := errorCode(t, resp); code != apperr.CodeTenantMismatch {
			t.Fatalf("code = %s, want TENANT_MISMATCH", code)
		}
	})

	t.Run("service match passes", func(t *testing.T) {
		resp := probe(t, newAuthApp(newFakeCredentials()), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+serviceToken)
			r.Header.Set("X-Tenant-Id", "t1")
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})
}

func TestIsTokenShaped(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a.b.c", true},
		{"vw_sk_abc", false},
		{"a.b", false},
		{"a.b.c.d", false},
		{"..", false},
		{"a..c", false},
	}
	for _, tc := range cases {
		if got := IsTokenShaped(tc.in); got != tc.want {
			t.Errorf("IsTokenShaped(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
