package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mat-tom-creator/fileledger/internal/event"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/repository"
	"github.com/mat-tom-creator/fileledger/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// engine wires the full component graph over an in-memory store with a
// controllable clock.
type engine struct {
	kv        *store.Memory
	clock     *fakeClock
	policy    *PolicyService
	ledger    *LedgerService
	registry  *RegistryService
	transfers *TransferService
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	kv := store.NewMemory()
	clock := newFakeClock()
	bus := event.NewBus()

	settings, err := NewSettings(DefaultSettings())
	require.NoError(t, err)

	policy := NewPolicyService(repository.NewRoleRepository(kv), settings, kv, clock.Now, bus)

	ledger, err := NewLedgerService(repository.NewAuditRepository(kv), policy, store.NewKeyLock(8), clock.Now, bus)
	require.NoError(t, err)

	registry := NewRegistryService(repository.NewFileRepository(kv), ledger, policy, settings, store.NewKeyLock(8), clock.Now, bus,
		model.Principal{ID: "svc:registry"})
	policy.BindAccessChecker(registry)

	transfers := NewTransferService(repository.NewTransferRepository(kv), registry, ledger, settings, store.NewKeyLock(8), clock.Now, bus,
		model.Principal{ID: "svc:transfers"})

	ctx := context.Background()
	require.NoError(t, policy.Trust(ctx, "svc:registry"))
	require.NoError(t, policy.Trust(ctx, "svc:transfers"))

	return &engine{
		kv:        kv,
		clock:     clock,
		policy:    policy,
		ledger:    ledger,
		registry:  registry,
		transfers: transfers,
	}
}

func (e *engine) registerFile(t *testing.T, owner model.Principal) model.FileView {
	t.Helper()

	view, err := e.registry.Register(context.Background(), owner, RegisterFileInput{
		Name:         "report.pdf",
		ContentHash:  "c0ffee",
		EncryptedKey: []byte("key-material"),
		Size:         2048,
		ContentType:  "application/pdf",
	})
	require.NoError(t, err)
	return view
}

var (
	alice    = model.Principal{ID: "alice"}
	bob      = model.Principal{ID: "bob"}
	carol    = model.Principal{ID: "carol"}
	admin    = model.Principal{ID: "root", Roles: []string{model.RoleAdmin}}
	operator = model.Principal{ID: "ops", Roles: []string{model.RoleOperator}}
	recorder = model.Principal{ID: "scanner", Roles: []string{model.RoleRecorder}}
)
