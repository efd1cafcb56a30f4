package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/store"
)

// FileRepository persists file records, per-owner file indexes, and
// access grants. It does no authorization; that lives in the services.
type FileRepository struct {
	kv store.KV
}

func NewFileRepository(kv store.KV) *FileRepository {
	return &FileRepository{kv: kv}
}

func (r *FileRepository) Get(ctx context.Context, fileID string) (model.FileRecord, error) {
	data, err := r.kv.Get(ctx, store.FileKey(fileID))
	if errors.Is(err, model.ErrKeyNotFound) {
		return model.FileRecord{}, model.ErrFileNotFound
	}
	if err != nil {
		return model.FileRecord{}, fmt.Errorf("load file: %w", err)
	}

	var record model.FileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.FileRecord{}, fmt.Errorf("decode file %s: %w", fileID, err)
	}
	return record, nil
}

func (r *FileRepository) Put(ctx context.Context, record model.FileRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode file %s: %w", record.ID, err)
	}
	if err := r.kv.Put(ctx, store.FileKey(record.ID), data); err != nil {
		return fmt.Errorf("store file: %w", err)
	}
	return nil
}

// AppendOwned adds fileID to the identity's insertion-ordered list of
// registered files.
func (r *FileRepository) AppendOwned(ctx context.Context, identity string, fileID string) error {
	ids, err := r.ListOwned(ctx, identity)
	if err != nil {
		return err
	}

	ids = append(ids, fileID)
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode owner index: %w", err)
	}
	if err := r.kv.Put(ctx, store.OwnerKey(identity), data); err != nil {
		return fmt.Errorf("store owner index: %w", err)
	}
	return nil
}

func (r *FileRepository) ListOwned(ctx context.Context, identity string) ([]string, error) {
	data, err := r.kv.Get(ctx, store.OwnerKey(identity))
	if errors.Is(err, model.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load owner index: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode owner index: %w", err)
	}
	return ids, nil
}

func (r *FileRepository) GetGrant(ctx context.Context, fileID string, grantee string) (model.AccessGrant, error) {
	data, err := r.kv.Get(ctx, store.GrantKey(fileID, grantee))
	if errors.Is(err, model.ErrKeyNotFound) {
		return model.AccessGrant{}, model.ErrGrantNotFound
	}
	if err != nil {
		return model.AccessGrant{}, fmt.Errorf("load grant: %w", err)
	}

	var grant model.AccessGrant
	if err := json.Unmarshal(data, &grant); err != nil {
		return model.AccessGrant{}, fmt.Errorf("decode grant: %w", err)
	}
	return grant, nil
}

func (r *FileRepository) PutGrant(ctx context.Context, grant model.AccessGrant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("encode grant: %w", err)
	}
	if err := r.kv.Put(ctx, store.GrantKey(grant.FileID, grant.Grantee), data); err != nil {
		return fmt.Errorf("store grant: %w", err)
	}
	return nil
}

func (r *FileRepository) DeleteGrant(ctx context.Context, fileID string, grantee string) error {
	if err := r.kv.Delete(ctx, store.GrantKey(fileID, grantee)); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

// ListGrants returns all grants on a file, ordered by grantee.
func (r *FileRepository) ListGrants(ctx context.Context, fileID string) ([]model.AccessGrant, error) {
	entries, err := r.kv.List(ctx, store.GrantPrefix(fileID))
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}

	grants := make([]model.AccessGrant, 0, len(entries))
	for _, entry := range entries {
		var grant model.AccessGrant
		if err := json.Unmarshal(entry.Value, &grant); err != nil {
			return nil, fmt.Errorf("decode grant %s: %w", entry.Key, err)
		}
		grants = append(grants, grant)
	}
	return grants, nil
}
