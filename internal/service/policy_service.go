package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mat-tom-creator/fileledger/internal/event"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/repository"
	"github.com/mat-tom-creator/fileledger/internal/store"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

// accessChecker is the slice of the registry the policy guard delegates
// non-admin permission checks to.
type accessChecker interface {
	CheckAccess(ctx context.Context, fileID string, identity string, level model.AccessLevel) (bool, error)
}

var knownRoles = []string{model.RoleAdmin, model.RoleOperator, model.RoleRecorder}

// PolicyService is the cross-cutting governance component: role
// membership, the minimum-admin threshold, and the trusted-caller
// allowlist for privileged cross-component calls.
type PolicyService struct {
	roles    *repository.RoleRepository
	settings *Settings
	kv       store.KV
	clock    Clock
	bus      event.Bus
	access   accessChecker
}

func NewPolicyService(roles *repository.RoleRepository, settings *Settings, kv store.KV, clock Clock, bus event.Bus) *PolicyService {
	return &PolicyService{
		roles:    roles,
		settings: settings,
		kv:       kv,
		clock:    clock,
		bus:      bus,
	}
}

// BindAccessChecker wires the registry in after construction; the two
// components reference each other (registry trusts the guard's
// allowlist, the guard delegates file checks to the registry).
func (s *PolicyService) BindAccessChecker(access accessChecker) {
	s.access = access
}

// GrantRole adds an identity to a role. Admin-only; idempotent.
func (s *PolicyService) GrantRole(ctx context.Context, caller model.Principal, identity string, role string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	identity = strings.TrimSpace(identity)
	if identity == "" {
		return apierror.InvalidArgument("identity is required", "")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !slices.Contains(knownRoles, role) {
		return apierror.InvalidArgument("unknown role", role)
	}

	held, err := s.roles.RolesOf(ctx, identity)
	if err != nil {
		return err
	}
	if slices.Contains(held, role) {
		return nil
	}

	held = append(held, role)
	if err := s.roles.PutRoles(ctx, identity, held); err != nil {
		return err
	}

	s.publish(event.TypeRoleChanged, caller.ID, map[string]string{"identity": identity, "role": role, "change": "granted"})
	return nil
}

// RevokeRole removes an identity from a role. Revoking the admin role
// is blocked when it would drop the admin count below the threshold.
func (s *PolicyService) RevokeRole(ctx context.Context, caller model.Principal, identity string, role string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	role = strings.ToLower(strings.TrimSpace(role))
	held, err := s.roles.RolesOf(ctx, identity)
	if err != nil {
		return err
	}
	if !slices.Contains(held, role) {
		return apierror.NotFound("identity does not hold the role", fmt.Sprintf("%s/%s", identity, role))
	}

	if role == model.RoleAdmin {
		count, err := s.roles.CountMembers(ctx, model.RoleAdmin)
		if err != nil {
			return err
		}
		if count-1 < s.settings.MinAdminThreshold() {
			return apierror.ThresholdViolation("revocation would drop admins below the minimum threshold",
				fmt.Sprintf("admins %d, threshold %d", count, s.settings.MinAdminThreshold()))
		}
	}

	held = slices.DeleteFunc(held, func(r string) bool { return r == role })
	if err := s.roles.PutRoles(ctx, identity, held); err != nil {
		return err
	}

	s.publish(event.TypeRoleChanged, caller.ID, map[string]string{"identity": identity, "role": role, "change": "revoked"})
	return nil
}

func (s *PolicyService) RolesOf(ctx context.Context, identity string) ([]string, error) {
	return s.roles.RolesOf(ctx, identity)
}

// AddTrustedCaller allowlists an identity for privileged
// cross-component calls. Admin-only.
func (s *PolicyService) AddTrustedCaller(ctx context.Context, caller model.Principal, identity string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return s.Trust(ctx, identity)
}

// Trust allowlists an identity without an authorization check. Used
// during wiring to register the engine's own components.
func (s *PolicyService) Trust(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return apierror.InvalidArgument("identity is required", "")
	}

	callers, err := s.roles.TrustedCallers(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(callers, identity) {
		return nil
	}
	return s.roles.PutTrustedCallers(ctx, append(callers, identity))
}

// BootstrapAdmins seeds the admin role without an authorization check.
// Used once at startup so a fresh deployment has at least one admin.
func (s *PolicyService) BootstrapAdmins(ctx context.Context, identities []string) error {
	for _, identity := range identities {
		identity = strings.TrimSpace(identity)
		if identity == "" {
			continue
		}

		held, err := s.roles.RolesOf(ctx, identity)
		if err != nil {
			return err
		}
		if slices.Contains(held, model.RoleAdmin) {
			continue
		}
		if err := s.roles.PutRoles(ctx, identity, append(held, model.RoleAdmin)); err != nil {
			return err
		}
	}
	return nil
}

func (s *PolicyService) RemoveTrustedCaller(ctx context.Context, caller model.Principal, identity string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	callers, err := s.roles.TrustedCallers(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(callers, identity) {
		return apierror.NotFound("identity is not a trusted caller", identity)
	}

	callers = slices.DeleteFunc(callers, func(c string) bool { return c == identity })
	return s.roles.PutTrustedCallers(ctx, callers)
}

func (s *PolicyService) IsTrusted(ctx context.Context, identity string) (bool, error) {
	callers, err := s.roles.TrustedCallers(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(callers, identity), nil
}

// HasPermission treats admin-role holders as globally authorized and
// otherwise delegates to the registry's access check.
func (s *PolicyService) HasPermission(ctx context.Context, caller model.Principal, fileID string, level model.AccessLevel) (bool, error) {
	if caller.Zero() {
		return false, nil
	}
	if caller.IsAdmin() {
		return true, nil
	}
	if s.access == nil {
		return false, nil
	}
	return s.access.CheckAccess(ctx, fileID, caller.ID, level)
}

// CurrentSettings returns the runtime parameters. Admin or operator.
func (s *PolicyService) CurrentSettings(caller model.Principal) (SettingsView, error) {
	if !caller.IsAdmin() && !caller.HasRole(model.RoleOperator) {
		return SettingsView{}, apierror.Forbidden("admin or operator role required", "")
	}
	return s.settings.Snapshot(), nil
}

// UpdateSettings swaps the runtime parameters. Admin-only; the new
// view is persisted so a restart keeps the adjusted values.
func (s *PolicyService) UpdateSettings(ctx context.Context, caller model.Principal, view SettingsView) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.settings.Update(view); err != nil {
		return err
	}

	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Put(ctx, store.SettingsKey, data); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}

	s.publish(event.TypeSettingsChanged, caller.ID, view)
	return nil
}

// LoadSettings restores persisted runtime parameters at startup, if a
// previous admin update saved any.
func (s *PolicyService) LoadSettings(ctx context.Context) error {
	data, err := s.kv.Get(ctx, store.SettingsKey)
	if errors.Is(err, model.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	var view SettingsView
	if err := json.Unmarshal(data, &view); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return s.settings.Update(view)
}

func requireAdmin(caller model.Principal) error {
	if !caller.IsAdmin() {
		return apierror.Forbidden("admin role required", caller.ID)
	}
	return nil
}

func (s *PolicyService) publish(eventType event.Type, actor string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: s.clock().Format(time.RFC3339Nano),
		ActorID:   actor,
	})
}
