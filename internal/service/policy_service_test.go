package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mat-tom-creator/fileledger/internal/event"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/repository"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

func TestRoles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("grant is admin-only and idempotent", func(t *testing.T) {
		e := newEngine(t)

		err := e.policy.GrantRole(ctx, alice, "bob", model.RoleOperator)
		require.True(t, apierror.IsKind(err, apierror.KindForbidden))

		require.NoError(t, e.policy.GrantRole(ctx, admin, "bob", model.RoleOperator))
		require.NoError(t, e.policy.GrantRole(ctx, admin, "bob", model.RoleOperator))

		roles, err := e.policy.RolesOf(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, []string{model.RoleOperator}, roles)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		e := newEngine(t)

		err := e.policy.GrantRole(ctx, admin, "bob", "superuser")
		require.True(t, apierror.IsKind(err, apierror.KindInvalidArgument))
	})

	t.Run("revoking a role the identity does not hold is not found", func(t *testing.T) {
		e := newEngine(t)

		err := e.policy.RevokeRole(ctx, admin, "bob", model.RoleOperator)
		require.True(t, apierror.IsKind(err, apierror.KindNotFound))
	})

	t.Run("the last admin cannot be revoked", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.policy.BootstrapAdmins(ctx, []string{"root"}))

		err := e.policy.RevokeRole(ctx, admin, "root", model.RoleAdmin)
		require.True(t, apierror.IsKind(err, apierror.KindThresholdViolation))

		require.NoError(t, e.policy.GrantRole(ctx, admin, "backup", model.RoleAdmin))
		require.NoError(t, e.policy.RevokeRole(ctx, admin, "root", model.RoleAdmin))

		roles, err := e.policy.RolesOf(ctx, "root")
		require.NoError(t, err)
		require.Empty(t, roles)
	})

	t.Run("bootstrap seeds admins without a caller", func(t *testing.T) {
		e := newEngine(t)

		require.NoError(t, e.policy.BootstrapAdmins(ctx, []string{"root", "", "root"}))

		roles, err := e.policy.RolesOf(ctx, "root")
		require.NoError(t, err)
		require.Equal(t, []string{model.RoleAdmin}, roles)
	})
}

func TestTrustedCallers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := newEngine(t)

	trusted, err := e.policy.IsTrusted(ctx, "svc:registry")
	require.NoError(t, err)
	require.True(t, trusted)

	err = e.policy.AddTrustedCaller(ctx, alice, "svc:indexer")
	require.True(t, apierror.IsKind(err, apierror.KindForbidden))

	require.NoError(t, e.policy.AddTrustedCaller(ctx, admin, "svc:indexer"))
	trusted, err = e.policy.IsTrusted(ctx, "svc:indexer")
	require.NoError(t, err)
	require.True(t, trusted)

	require.NoError(t, e.policy.RemoveTrustedCaller(ctx, admin, "svc:indexer"))
	trusted, err = e.policy.IsTrusted(ctx, "svc:indexer")
	require.NoError(t, err)
	require.False(t, trusted)

	err = e.policy.RemoveTrustedCaller(ctx, admin, "svc:indexer")
	require.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestHasPermission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := newEngine(t)
	file := e.registerFile(t, alice)

	ok, err := e.policy.HasPermission(ctx, admin, file.ID, model.AccessAdmin)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.policy.HasPermission(ctx, bob, file.ID, model.AccessRead)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = e.policy.HasPermission(ctx, model.Principal{}, file.ID, model.AccessRead)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reads are limited to admins and operators", func(t *testing.T) {
		e := newEngine(t)

		_, err := e.policy.CurrentSettings(alice)
		require.True(t, apierror.IsKind(err, apierror.KindForbidden))

		_, err = e.policy.CurrentSettings(operator)
		require.NoError(t, err)
	})

	t.Run("updates are admin-only and validated", func(t *testing.T) {
		e := newEngine(t)
		view := DefaultSettings()
		view.MaxFileSize = 1024

		err := e.policy.UpdateSettings(ctx, operator, view)
		require.True(t, apierror.IsKind(err, apierror.KindForbidden))

		require.NoError(t, e.policy.UpdateSettings(ctx, admin, view))

		current, err := e.policy.CurrentSettings(admin)
		require.NoError(t, err)
		require.Equal(t, int64(1024), current.MaxFileSize)

		view.TransferExpiry = -time.Hour
		err = e.policy.UpdateSettings(ctx, admin, view)
		require.True(t, apierror.IsKind(err, apierror.KindInvalidArgument))
	})

	t.Run("an update survives a restart", func(t *testing.T) {
		e := newEngine(t)
		view := DefaultSettings()
		view.MinAdminThreshold = 2
		require.NoError(t, e.policy.UpdateSettings(ctx, admin, view))

		// A fresh service over the same store starts from defaults and
		// restores the persisted view.
		settings, err := NewSettings(DefaultSettings())
		require.NoError(t, err)
		restored := NewPolicyService(repository.NewRoleRepository(e.kv), settings, e.kv, e.clock.Now, event.NewBus())
		require.NoError(t, restored.LoadSettings(ctx))

		current, err := restored.CurrentSettings(admin)
		require.NoError(t, err)
		require.Equal(t, 2, current.MinAdminThreshold)
	})

	t.Run("a tightened max file size takes effect immediately", func(t *testing.T) {
		e := newEngine(t)
		view := DefaultSettings()
		view.MaxFileSize = 100
		require.NoError(t, e.policy.UpdateSettings(ctx, admin, view))

		_, err := e.registry.Register(ctx, alice, RegisterFileInput{Name: "big", ContentHash: "h", Size: 101})
		require.True(t, apierror.IsKind(err, apierror.KindInvalidArgument))
	})
}
