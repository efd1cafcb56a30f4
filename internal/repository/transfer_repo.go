package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/store"
)

// TransferRepository persists transfers plus the per-identity sent and
// received indexes.
type TransferRepository struct {
	kv store.KV
}

func NewTransferRepository(kv store.KV) *TransferRepository {
	return &TransferRepository{kv: kv}
}

func (r *TransferRepository) Get(ctx context.Context, transferID string) (model.Transfer, error) {
	data, err := r.kv.Get(ctx, store.TransferKey(transferID))
	if errors.Is(err, model.ErrKeyNotFound) {
		return model.Transfer{}, model.ErrTransferNotFound
	}
	if err != nil {
		return model.Transfer{}, fmt.Errorf("load transfer: %w", err)
	}

	var transfer model.Transfer
	if err := json.Unmarshal(data, &transfer); err != nil {
		return model.Transfer{}, fmt.Errorf("decode transfer %s: %w", transferID, err)
	}
	return transfer, nil
}

func (r *TransferRepository) Put(ctx context.Context, transfer model.Transfer) error {
	data, err := json.Marshal(transfer)
	if err != nil {
		return fmt.Errorf("encode transfer %s: %w", transfer.ID, err)
	}
	if err := r.kv.Put(ctx, store.TransferKey(transfer.ID), data); err != nil {
		return fmt.Errorf("store transfer: %w", err)
	}
	return nil
}

// Index records the transfer under both the sender's sent list and the
// recipient's received list.
func (r *TransferRepository) Index(ctx context.Context, transfer model.Transfer) error {
	if err := r.appendIndex(ctx, store.SentKey(transfer.Sender), transfer.ID); err != nil {
		return err
	}
	return r.appendIndex(ctx, store.ReceivedKey(transfer.Recipient), transfer.ID)
}

func (r *TransferRepository) ListSent(ctx context.Context, identity string) ([]string, error) {
	return r.readIndex(ctx, store.SentKey(identity))
}

func (r *TransferRepository) ListReceived(ctx context.Context, identity string) ([]string, error) {
	return r.readIndex(ctx, store.ReceivedKey(identity))
}

func (r *TransferRepository) appendIndex(ctx context.Context, key string, transferID string) error {
	ids, err := r.readIndex(ctx, key)
	if err != nil {
		return err
	}

	ids = append(ids, transferID)
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode transfer index: %w", err)
	}
	if err := r.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store transfer index: %w", err)
	}
	return nil
}

func (r *TransferRepository) readIndex(ctx context.Context, key string) ([]string, error) {
	data, err := r.kv.Get(ctx, key)
	if errors.Is(err, model.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transfer index: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode transfer index: %w", err)
	}
	return ids, nil
}
