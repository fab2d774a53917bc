package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/dbtest"
	"github.com/assetdesk/assetdesk/internal/db/models"
)

const (
	testRealm    = "assetdesk"
	testClientID = "assetdesk-web"
	testKeyID    = "test-key"

	goodRefreshToken = "good-refresh"
)

func newTestStore(t *testing.T) *identity.Controller {
	t.Helper()

	store, err := identity.New(dbtest.Open(t))
	require.NoError(t, err)

	return store
}

func mustCreateUser(t *testing.T, store identity.Store, username string, role models.GlobalRole) *models.User {
	t.Helper()

	u := &models.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   models.HashPassword(username + "-password"),
		GlobalRole: role,
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, store.CreateUser(context.Background(), u))

	return u
}

// headerProvider authenticates the user id given in the X-Test-User header.
type headerProvider struct {
	store identity.Store
}

func (p headerProvider) Name() config.AuthProvider { return config.AuthProviderLocal }

func (p headerProvider) Descriptor() Descriptor {
	return Descriptor{AuthProvider: config.AuthProviderLocal}
}

func (p headerProvider) Authenticate(c *fiber.Ctx) (*Principal, error) {
	id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	u, err := p.store.UserByID(c.UserContext(), id)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return NewPrincipal(u, config.AuthProviderLocal), nil
}

func doRequest(t *testing.T, app *fiber.App, method, path string, headers map[string]string) (*http.Response, ErrorResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var body ErrorResponse
	if resp.StatusCode >= http.StatusBadRequest {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}

	return resp, body
}

// fakeIdP serves discovery, the signing keys and the token endpoint of one realm.
type fakeIdP struct {
	*httptest.Server

	key       *rsa.PrivateKey
	refreshes int
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048) //nolint:mnd
	require.NoError(t, err)

	idp := &fakeIdP{key: key}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /realms/"+testRealm+"/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		issuer := idp.issuer()
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                                issuer,
			"authorization_endpoint":                issuer + "/protocol/openid-connect/auth",
			"token_endpoint":                        issuer + "/protocol/openid-connect/token",
			"jwks_uri":                              issuer + "/protocol/openid-connect/certs",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})

	mux.HandleFunc("GET /realms/"+testRealm+"/protocol/openid-connect/certs", func(w http.ResponseWriter, _ *http.Request) {
		pub := idp.key.PublicKey
		writeJSON(w, http.StatusOK, map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKeyID,
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})

	mux.HandleFunc("POST /realms/"+testRealm+"/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" ||
			r.PostForm.Get("refresh_token") != goodRefreshToken {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

			return
		}

		idp.refreshes++

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  idp.token(t, tokenOpts{subject: "sub-refreshed", roles: []string{"super-admin"}}),
			"refresh_token": "rotated-refresh",
			"token_type":    "Bearer",
			"expires_in":    300,
		})
	})

	idp.Server = httptest.NewServer(mux)
	t.Cleanup(idp.Close)

	return idp
}

func (f *fakeIdP) issuer() string {
	return f.URL + "/realms/" + testRealm
}

func (f *fakeIdP) config() config.External {
	return config.External{
		URL:          f.URL,
		Realm:        testRealm,
		ClientID:     testClientID,
		ClientSecret: "web-secret",
		AdminRole:    "super-admin",
		RefreshGrace: 5 * time.Minute,
		Timeout:      5 * time.Second,
	}
}

type tokenOpts struct {
	subject   string
	email     string
	verified  bool
	roles     []string
	expiresIn time.Duration // negative for an expired token
	issuer    string
	azp       string
	key       *rsa.PrivateKey
}

func (f *fakeIdP) token(t *testing.T, opts tokenOpts) string {
	t.Helper()

	if opts.expiresIn == 0 {
		opts.expiresIn = 5 * time.Minute
	}

	if opts.issuer == "" {
		opts.issuer = f.issuer()
	}

	if opts.azp == "" {
		opts.azp = testClientID
	}

	if opts.email == "" {
		opts.email = opts.subject + "@example.com"
	}

	if opts.key == nil {
		opts.key = f.key
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":                opts.issuer,
		"sub":                opts.subject,
		"aud":                "account",
		"azp":                opts.azp,
		"iat":                now.Add(-time.Hour).Unix(),
		"exp":                now.Add(opts.expiresIn).Unix(),
		"email":              opts.email,
		"email_verified":     opts.verified,
		"preferred_username": opts.subject,
		"given_name":         "Given",
		"family_name":        "Family",
		"realm_access":       map[string]any{"roles": opts.roles},
	})
	token.Header["kid"] = testKeyID

	signed, err := token.SignedString(opts.key)
	require.NoError(t, err)

	return signed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
