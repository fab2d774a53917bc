package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/assetdesk/assetdesk/internal/config"
)

const (
	opCreate        = "create"
	opDelete        = "delete"
	opResetPassword = "reset_password"

	maxErrorBody = 512
)

var callsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "directory_calls_total",
		Help: "Number of remote directory calls, differentiated by operation and result.",
	},
	[]string{"operation", "status"},
)

// Keycloak implements Synchronizer against the Keycloak admin REST API.
type Keycloak struct {
	grant      clientcredentials.Config
	adminURL   string
	httpClient *http.Client
}

var _ Synchronizer = (*Keycloak)(nil)

// NewKeycloak builds the synchronizer from the external provider settings.
// It uses the admin client credentials and talks to {url}/admin/realms/{realm}.
func NewKeycloak(cfg config.External) *Keycloak {
	return &Keycloak{
		grant: clientcredentials.Config{
			ClientID:     cfg.AdminClientID,
			ClientSecret: cfg.AdminClientSecret,
			TokenURL:     cfg.IssuerURL() + "/protocol/openid-connect/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		adminURL:   cfg.AdminURL(),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName,omitempty"`
	LastName    string       `json:"lastName,omitempty"`
	Enabled     bool         `json:"enabled"`
	Credentials []credential `json:"credentials,omitempty"`
}

// CreateUser creates the account remotely. The remote id is read from the Location header.
func (k *Keycloak) CreateUser(ctx context.Context, user RemoteUser) Result {
	body := userRepresentation{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Enabled:   true,
	}

	if user.Password != "" {
		body.Credentials = []credential{{Type: "password", Value: user.Password}}
	}

	resp, err := k.do(ctx, http.MethodPost, "/users", body)
	if err != nil {
		return k.finish(opCreate, Result{Status: StatusUnavailable, Err: err})
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusConflict:
		return k.finish(opCreate, Result{
			Status: StatusConflict,
			Err:    fmt.Errorf("%w: %s", ErrConflict, user.Username),
		})
	case resp.StatusCode != http.StatusCreated:
		return k.finish(opCreate, Result{Status: StatusUnavailable, Err: statusError(resp)})
	}

	remoteID := path.Base(resp.Header.Get("Location"))
	if remoteID == "." || remoteID == "/" {
		return k.finish(opCreate, Result{
			Status: StatusUnavailable,
			Err:    fmt.Errorf("%w: create response without location", ErrUnavailable),
		})
	}

	return k.finish(opCreate, Result{Status: StatusSynced, RemoteID: remoteID})
}

// DeleteUser removes the account remotely. An account that is already gone counts as synced.
func (k *Keycloak) DeleteUser(ctx context.Context, remoteID string) Result {
	if remoteID == "" {
		return Result{Status: StatusSkipped}
	}

	resp, err := k.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(remoteID), nil)
	if err != nil {
		return k.finish(opDelete, Result{Status: StatusUnavailable, Err: err})
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return k.finish(opDelete, Result{Status: StatusUnavailable, Err: statusError(resp)})
	}

	return k.finish(opDelete, Result{Status: StatusSynced, RemoteID: remoteID})
}

// ResetPassword sets a new permanent password on the remote account.
func (k *Keycloak) ResetPassword(ctx context.Context, remoteID, password string) Result {
	if remoteID == "" {
		return Result{Status: StatusSkipped}
	}

	resp, err := k.do(ctx, http.MethodPut, "/users/"+url.PathEscape(remoteID)+"/reset-password",
		credential{Type: "password", Value: password})
	if err != nil {
		return k.finish(opResetPassword, Result{Status: StatusUnavailable, Err: err})
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusNoContent {
		return k.finish(opResetPassword, Result{Status: StatusUnavailable, Err: statusError(resp)})
	}

	return k.finish(opResetPassword, Result{Status: StatusSynced, RemoteID: remoteID})
}

// do acquires a new service account token and performs one admin call with it.
func (k *Keycloak) do(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, k.httpClient)

	token, err := k.grant.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: service account grant: %w", ErrUnavailable, err)
	}

	var reader io.Reader

	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			return nil, fmt.Errorf("failed to encode request: %w", errMarshal)
		}

		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, k.adminURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return resp, nil
}

func (k *Keycloak) finish(op string, r Result) Result {
	callsTotal.WithLabelValues(op, r.Status.String()).Inc()

	switch r.Status {
	case StatusUnavailable:
		log.Warn().Err(r.Err).Str("operation", op).Msg("remote directory unavailable, continuing locally")
	case StatusConflict:
		log.Info().Err(r.Err).Str("operation", op).Msg("remote directory conflict")
	default:
		log.Debug().Str("operation", op).Str("remote_id", r.RemoteID).Msg("remote directory synced")
	}

	return r
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return fmt.Errorf("%w: %s %s: %d %s", ErrUnavailable,
		resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
