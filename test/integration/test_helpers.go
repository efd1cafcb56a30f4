//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/mat-tom-creator/fileledger/internal/config"
	"github.com/mat-tom-creator/fileledger/internal/event"
	"github.com/mat-tom-creator/fileledger/internal/handler"
	"github.com/mat-tom-creator/fileledger/internal/middleware"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/repository"
	"github.com/mat-tom-creator/fileledger/internal/router"
	"github.com/mat-tom-creator/fileledger/internal/service"
	"github.com/mat-tom-creator/fileledger/internal/store"
)

const testSecret = "test-secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		ServerPort:        "8080",
		RequestTimeout:    30 * time.Second,
		StoreBackend:      "memory",
		JWTSecret:         testSecret,
		CORSOrigins:       []string{"*"},
		RateLimitRPM:      10_000,
		MaxFileSize:       10 * 1024 * 1024,
		TransferExpiry:    168 * time.Hour,
		MaxTransferExpiry: 720 * time.Hour,
		DisputeTimeout:    336 * time.Hour,
		MinAdminThreshold: 1,
	}

	kv := store.NewMemory()
	bus := event.NewBus()
	clock := service.SystemClock

	settings, err := service.NewSettings(service.SettingsView{
		MaxFileSize:       cfg.MaxFileSize,
		TransferExpiry:    cfg.TransferExpiry,
		MaxTransferExpiry: cfg.MaxTransferExpiry,
		DisputeTimeout:    cfg.DisputeTimeout,
		MinAdminThreshold: cfg.MinAdminThreshold,
	})
	require.NoError(t, err)

	ctx := context.Background()
	policy := service.NewPolicyService(repository.NewRoleRepository(kv), settings, kv, clock, bus)
	require.NoError(t, policy.BootstrapAdmins(ctx, []string{"root"}))
	require.NoError(t, policy.Trust(ctx, "svc:registry"))
	require.NoError(t, policy.Trust(ctx, "svc:transfers"))

	ledger, err := service.NewLedgerService(repository.NewAuditRepository(kv), policy, store.NewKeyLock(8), clock, bus)
	require.NoError(t, err)

	registry := service.NewRegistryService(repository.NewFileRepository(kv), ledger, policy, settings, store.NewKeyLock(8), clock, bus,
		model.Principal{ID: "svc:registry"})
	policy.BindAccessChecker(registry)

	transfers := service.NewTransferService(repository.NewTransferRepository(kv), registry, ledger, settings, store.NewKeyLock(8), clock, bus,
		model.Principal{ID: "svc:transfers"})

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, policy)
	server := httptest.NewServer(router.New(cfg, authMiddleware,
		handler.NewFileHandler(registry),
		handler.NewTransferHandler(transfers),
		handler.NewAuditHandler(ledger),
		handler.NewAdminHandler(policy),
	))
	t.Cleanup(server.Close)
	return server
}

func tokenFor(t *testing.T, identity string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   identity,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, method string, url string, body any, token string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var parsed struct {
		Success bool            `json:"success"`
		Data    T               `json:"data"`
		Error   *model.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success, "expected success, got error: %+v", parsed.Error)
	return parsed.Data
}

func decodeErrorKind(t *testing.T, resp *http.Response) string {
	t.Helper()

	var parsed struct {
		Success bool            `json:"success"`
		Error   *model.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.False(t, parsed.Success)
	require.NotNil(t, parsed.Error)
	return parsed.Error.Kind
}
