//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mat-tom-creator/fileledger/internal/model"
)

func TestTransferLifecycleOverHTTP(t *testing.T) {
	server := newServer(t)
	aliceToken := tokenFor(t, "alice")
	bobToken := tokenFor(t, "bob")

	file := registerFile(t, server.URL, aliceToken)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers", map[string]any{
		"file_id":   file.ID,
		"recipient": "bob",
		"level":     "read",
		"message":   "here you go",
	}, aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	transfer := decodeData[model.TransferView](t, resp)
	require.Equal(t, model.TransferInitiated, transfer.Status)

	// Only the recipient may accept.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers/"+transfer.ID+"/accept", nil, aliceToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers/"+transfer.ID+"/accept", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers/"+transfer.ID+"/complete", map[string]any{
		"proof": "sha256:received",
	}, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decodeData[model.TransferView](t, resp)
	require.Equal(t, model.TransferCompleted, completed.Status)
	require.NotNil(t, completed.GrantOutcome)
	require.True(t, completed.GrantOutcome.Granted)

	// The completed transfer conveyed read access.
	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/files/%s/access?identity=bob&level=read", server.URL, file.ID), nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	allowed := decodeData[map[string]bool](t, resp)
	require.True(t, allowed["allowed"])
}

func TestDisputeResolutionRequiresAdmin(t *testing.T) {
	server := newServer(t)
	aliceToken := tokenFor(t, "alice")
	bobToken := tokenFor(t, "bob")
	rootToken := tokenFor(t, "root")

	file := registerFile(t, server.URL, aliceToken)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers", map[string]any{
		"file_id":   file.ID,
		"recipient": "bob",
	}, aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	transfer := decodeData[model.TransferView](t, resp)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers/"+transfer.ID+"/accept", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers/"+transfer.ID+"/dispute", map[string]any{
		"reason": "content mismatch",
	}, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The resolve route itself is role-gated.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers/"+transfer.ID+"/resolve", map[string]any{
		"resolution": "cancelled",
	}, aliceToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers/"+transfer.ID+"/resolve", map[string]any{
		"resolution": "cancelled",
	}, rootToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resolved := decodeData[model.TransferView](t, resp)
	require.Equal(t, model.TransferCancelled, resolved.Status)

	// Nothing was conveyed.
	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/files/%s/access?identity=bob&level=read", server.URL, file.ID), nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	allowed := decodeData[map[string]bool](t, resp)
	require.False(t, allowed["allowed"])
}

func TestUserTransferListings(t *testing.T) {
	server := newServer(t)
	aliceToken := tokenFor(t, "alice")
	bobToken := tokenFor(t, "bob")

	file := registerFile(t, server.URL, aliceToken)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/transfers", map[string]any{
		"file_id":   file.ID,
		"recipient": "bob",
	}, aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/users/alice/transfers?direction=sent", nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sent := decodeData[[]model.TransferView](t, resp)
	require.Len(t, sent, 1)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/users/bob/transfers?direction=received", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	received := decodeData[[]model.TransferView](t, resp)
	require.Len(t, received, 1)

	// One identity cannot read another's listings.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/users/alice/transfers?direction=sent", nil, bobToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
