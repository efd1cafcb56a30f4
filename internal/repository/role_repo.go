package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/store"
)

// RoleRepository persists role memberships and the trusted-caller
// allowlist consumed by the policy guard.
type RoleRepository struct {
	kv store.KV
}

func NewRoleRepository(kv store.KV) *RoleRepository {
	return &RoleRepository{kv: kv}
}

func (r *RoleRepository) RolesOf(ctx context.Context, identity string) ([]string, error) {
	data, err := r.kv.Get(ctx, store.RoleKey(identity))
	if errors.Is(err, model.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	var roles []string
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	return roles, nil
}

func (r *RoleRepository) PutRoles(ctx context.Context, identity string, roles []string) error {
	if len(roles) == 0 {
		if err := r.kv.Delete(ctx, store.RoleKey(identity)); err != nil {
			return fmt.Errorf("delete roles: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	if err := r.kv.Put(ctx, store.RoleKey(identity), data); err != nil {
		return fmt.Errorf("store roles: %w", err)
	}
	return nil
}

// CountMembers returns how many identities currently hold the role.
func (r *RoleRepository) CountMembers(ctx context.Context, role string) (int, error) {
	entries, err := r.kv.List(ctx, store.RolePrefix)
	if err != nil {
		return 0, fmt.Errorf("list roles: %w", err)
	}

	count := 0
	for _, entry := range entries {
		var roles []string
		if err := json.Unmarshal(entry.Value, &roles); err != nil {
			return 0, fmt.Errorf("decode roles %s: %w", entry.Key, err)
		}
		for _, held := range roles {
			if strings.EqualFold(held, role) {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *RoleRepository) TrustedCallers(ctx context.Context) ([]string, error) {
	data, err := r.kv.Get(ctx, store.TrustedKey)
	if errors.Is(err, model.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load trusted callers: %w", err)
	}

	var callers []string
	if err := json.Unmarshal(data, &callers); err != nil {
		return nil, fmt.Errorf("decode trusted callers: %w", err)
	}
	return callers, nil
}

func (r *RoleRepository) PutTrustedCallers(ctx context.Context, callers []string) error {
	data, err := json.Marshal(callers)
	if err != nil {
		return fmt.Errorf("encode trusted callers: %w", err)
	}
	if err := r.kv.Put(ctx, store.TrustedKey, data); err != nil {
		return fmt.Errorf("store trusted callers: %w", err)
	}
	return nil
}
