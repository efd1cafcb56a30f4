package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mat-tom-creator/fileledger/internal/event"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/repository"
	"github.com/mat-tom-creator/fileledger/internal/store"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

const recordCacheSize = 4096

// trustChecker is the slice of the policy guard the ledger needs: the
// trusted-caller allowlist for cross-component recording.
type trustChecker interface {
	IsTrusted(ctx context.Context, identity string) (bool, error)
}

// LedgerService maintains the per-file hash-chained audit log. Records
// are append-only; every append binds the previous record's id so the
// chain can be re-verified end to end.
type LedgerService struct {
	records *repository.AuditRepository
	trust   trustChecker
	locks   *store.KeyLock
	clock   Clock
	bus     event.Bus
	// Records are immutable once appended, so an LRU by record id is
	// safe to consult before the linear scan.
	cache *lru.Cache[string, model.AuditRecord]
}

func NewLedgerService(records *repository.AuditRepository, trust trustChecker, locks *store.KeyLock, clock Clock, bus event.Bus) (*LedgerService, error) {
	cache, err := lru.New[string, model.AuditRecord](recordCacheSize)
	if err != nil {
		return nil, err
	}

	return &LedgerService{
		records: records,
		trust:   trust,
		locks:   locks,
		clock:   clock,
		bus:     bus,
		cache:   cache,
	}, nil
}

// RecordAction appends a record attributed to the caller. The caller
// must hold the recorder role or sit on the trusted-caller allowlist.
func (s *LedgerService) RecordAction(ctx context.Context, caller model.Principal, fileID string, action string) (model.AuditRecord, error) {
	if err := s.requireRecorder(ctx, caller); err != nil {
		return model.AuditRecord{}, err
	}
	return s.append(ctx, fileID, caller.ID, action)
}

// RecordFor appends a record on behalf of another actor. Reserved for
// trusted components (the registry and transfer engine) so the audit
// trail names the identity that caused the action, not the component.
func (s *LedgerService) RecordFor(ctx context.Context, caller model.Principal, fileID string, actor string, action string) (model.AuditRecord, error) {
	trusted, err := s.trust.IsTrusted(ctx, caller.ID)
	if err != nil {
		return model.AuditRecord{}, err
	}
	if !trusted {
		return model.AuditRecord{}, apierror.Forbidden("caller is not a trusted recorder", caller.ID)
	}
	return s.append(ctx, fileID, actor, action)
}

func (s *LedgerService) append(ctx context.Context, fileID string, actor string, action string) (model.AuditRecord, error) {
	if strings.TrimSpace(fileID) == "" {
		return model.AuditRecord{}, apierror.InvalidArgument("file id is required", "")
	}
	if strings.TrimSpace(action) == "" {
		return model.AuditRecord{}, apierror.InvalidArgument("action text is required", "")
	}

	lockKey := store.AuditMetaKey(fileID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	meta, err := s.records.Meta(ctx, fileID)
	if err != nil {
		return model.AuditRecord{}, err
	}

	record := model.AuditRecord{
		FileID:    fileID,
		Actor:     actor,
		Action:    action,
		Timestamp: s.clock(),
		PrevHash:  meta.LastHash,
	}
	record.ID = record.ComputeID()

	if err := s.records.Append(ctx, record, meta); err != nil {
		return model.AuditRecord{}, err
	}

	s.cache.Add(record.ID, record)
	s.publish(record)
	return record, nil
}

// Trail returns a window of the file's records in append order along
// with the total count. An offset at or past the total yields an empty
// slice; a zero or overrunning limit is clamped to what is available.
func (s *LedgerService) Trail(ctx context.Context, fileID string, offset int, limit int) ([]model.AuditRecord, int, error) {
	records, err := s.records.List(ctx, fileID)
	if err != nil {
		return nil, 0, err
	}

	total := len(records)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []model.AuditRecord{}, total, nil
	}

	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return records[offset:end], total, nil
}

// Record looks up a single record by id within a file's trail.
func (s *LedgerService) Record(ctx context.Context, fileID string, recordID string) (model.AuditRecord, error) {
	if cached, ok := s.cache.Get(recordID); ok && cached.FileID == fileID {
		return cached, nil
	}

	records, err := s.records.List(ctx, fileID)
	if err != nil {
		return model.AuditRecord{}, err
	}

	for _, record := range records {
		if record.ID == recordID {
			s.cache.Add(record.ID, record)
			return record, nil
		}
	}
	return model.AuditRecord{}, apierror.NotFound("audit record not found", recordID)
}

// Verify walks the file's chain from the first record, confirming each
// stored previous-hash matches the prior record's id and that the
// ledger's last-hash matches the tail. An empty trail verifies.
func (s *LedgerService) Verify(ctx context.Context, fileID string) (bool, error) {
	records, err := s.records.List(ctx, fileID)
	if err != nil {
		return false, err
	}

	meta, err := s.records.Meta(ctx, fileID)
	if err != nil {
		return false, err
	}

	if len(records) == 0 {
		return meta.Count == 0, nil
	}

	prev := model.ZeroHash
	for _, record := range records {
		if record.PrevHash != prev {
			return false, nil
		}
		if record.ComputeID() != record.ID {
			return false, nil
		}
		prev = record.ID
	}

	return meta.LastHash == records[len(records)-1].ID, nil
}

func (s *LedgerService) LastHash(ctx context.Context, fileID string) (string, error) {
	meta, err := s.records.Meta(ctx, fileID)
	if err != nil {
		return "", err
	}
	return meta.LastHash, nil
}

func (s *LedgerService) Count(ctx context.Context, fileID string) (int, error) {
	meta, err := s.records.Meta(ctx, fileID)
	if err != nil {
		return 0, err
	}
	return meta.Count, nil
}

func (s *LedgerService) requireRecorder(ctx context.Context, caller model.Principal) error {
	if caller.Zero() {
		return apierror.Forbidden("caller identity is required", "")
	}
	if caller.HasRole(model.RoleRecorder) {
		return nil
	}

	trusted, err := s.trust.IsTrusted(ctx, caller.ID)
	if err != nil {
		return err
	}
	if !trusted {
		return apierror.Forbidden("recorder capability required", caller.ID)
	}
	return nil
}

func (s *LedgerService) publish(record model.AuditRecord) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeAuditRecorded,
		Payload:   record,
		Timestamp: s.clock().Format(time.RFC3339Nano),
		ActorID:   record.Actor,
	})
}
