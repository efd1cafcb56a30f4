//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mat-tom-creator/fileledger/internal/model"
)

func registerFile(t *testing.T, serverURL string, token string) model.FileView {
	t.Helper()

	resp := doJSON(t, http.MethodPost, serverURL+"/api/v1/files", map[string]any{
		"name":         "report.pdf",
		"content_hash": "c0ffee",
		"size":         2048,
		"content_type": "application/pdf",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeData[model.FileView](t, resp)
}

func TestFileRegistrationAndSharing(t *testing.T) {
	server := newServer(t)
	aliceToken := tokenFor(t, "alice")
	bobToken := tokenFor(t, "bob")

	file := registerFile(t, server.URL, aliceToken)
	require.Equal(t, "alice", file.Owner)

	// Bob has no access yet.
	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/files/"+file.ID, nil, bobToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "ACCESS_DENIED", decodeErrorKind(t, resp))

	// Alice grants read, Bob can see the metadata.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/files/"+file.ID+"/grants", map[string]any{
		"grantee": "bob",
		"level":   "read",
	}, aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/files/"+file.ID, nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeData[model.FileView](t, resp)
	require.Empty(t, view.EncryptedKey)

	// The access predicate agrees.
	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/files/%s/access?identity=bob&level=read", server.URL, file.ID), nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	allowed := decodeData[map[string]bool](t, resp)
	require.True(t, allowed["allowed"])

	// Revoke and the access disappears.
	resp = doJSON(t, http.MethodDelete, server.URL+"/api/v1/files/"+file.ID+"/grants/bob", nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/files/"+file.ID, nil, bobToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFileDeleteKeepsOwnerAccess(t *testing.T) {
	server := newServer(t)
	aliceToken := tokenFor(t, "alice")

	file := registerFile(t, server.URL, aliceToken)

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/v1/files/"+file.ID, nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/files/"+file.ID, nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeData[model.FileView](t, resp)
	require.True(t, view.Deleted)

	// Deleting twice conflicts.
	resp = doJSON(t, http.MethodDelete, server.URL+"/api/v1/files/"+file.ID, nil, aliceToken)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	server := newServer(t)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/files/whatever", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
