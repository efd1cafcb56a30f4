package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/store"
)

// AuditRepository persists the per-file append-only record log and its
// chain metadata. Records are keyed by fixed-width sequence so a
// prefix listing returns them in append order.
type AuditRepository struct {
	kv store.KV
}

func NewAuditRepository(kv store.KV) *AuditRepository {
	return &AuditRepository{kv: kv}
}

func (r *AuditRepository) Meta(ctx context.Context, fileID string) (model.AuditMeta, error) {
	data, err := r.kv.Get(ctx, store.AuditMetaKey(fileID))
	if errors.Is(err, model.ErrKeyNotFound) {
		return model.AuditMeta{FileID: fileID, LastHash: model.ZeroHash}, nil
	}
	if err != nil {
		return model.AuditMeta{}, fmt.Errorf("load audit meta: %w", err)
	}

	var meta model.AuditMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.AuditMeta{}, fmt.Errorf("decode audit meta: %w", err)
	}
	return meta, nil
}

// Append stores the record at the next sequence and advances the
// chain metadata in the same call.
func (r *AuditRepository) Append(ctx context.Context, record model.AuditRecord, meta model.AuditMeta) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	if err := r.kv.Put(ctx, store.AuditKey(record.FileID, meta.Count), data); err != nil {
		return fmt.Errorf("store audit record: %w", err)
	}

	meta.Count++
	meta.LastHash = record.ID
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode audit meta: %w", err)
	}
	if err := r.kv.Put(ctx, store.AuditMetaKey(record.FileID), metaData); err != nil {
		return fmt.Errorf("store audit meta: %w", err)
	}
	return nil
}

// List returns the file's full record log in append order.
func (r *AuditRepository) List(ctx context.Context, fileID string) ([]model.AuditRecord, error) {
	entries, err := r.kv.List(ctx, store.AuditPrefix(fileID))
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}

	records := make([]model.AuditRecord, 0, len(entries))
	for _, entry := range entries {
		var record model.AuditRecord
		if err := json.Unmarshal(entry.Value, &record); err != nil {
			return nil, fmt.Errorf("decode audit record %s: %w", entry.Key, err)
		}
		records = append(records, record)
	}
	return records, nil
}
