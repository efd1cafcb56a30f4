package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mat-tom-creator/fileledger/internal/event"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/repository"
	"github.com/mat-tom-creator/fileledger/internal/store"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

type RegisterFileInput struct {
	Name         string `json:"name"`
	ContentHash  string `json:"content_hash"`
	EncryptedKey []byte `json:"encrypted_key,omitempty"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
	Public       bool   `json:"public"`
}

type UpdateFileInput struct {
	ContentHash  string `json:"content_hash"`
	EncryptedKey []byte `json:"encrypted_key,omitempty"`
	Size         int64  `json:"size"`
}

// RegistryService owns file metadata, ownership, and access grants.
// It is the authorization source of truth for every other component.
type RegistryService struct {
	files    *repository.FileRepository
	ledger   *LedgerService
	trust    trustChecker
	settings *Settings
	locks    *store.KeyLock
	clock    Clock
	bus      event.Bus
	// self identifies the registry when it records to the ledger.
	self model.Principal
}

func NewRegistryService(
	files *repository.FileRepository,
	ledger *LedgerService,
	trust trustChecker,
	settings *Settings,
	locks *store.KeyLock,
	clock Clock,
	bus event.Bus,
	self model.Principal,
) *RegistryService {
	return &RegistryService{
		files:    files,
		ledger:   ledger,
		trust:    trust,
		settings: settings,
		locks:    locks,
		clock:    clock,
		bus:      bus,
		self:     self,
	}
}

// Register creates a new file record owned by the caller.
func (s *RegistryService) Register(ctx context.Context, caller model.Principal, input RegisterFileInput) (model.FileView, error) {
	if caller.Zero() {
		return model.FileView{}, apierror.Forbidden("caller identity is required", "")
	}
	if strings.TrimSpace(input.Name) == "" {
		return model.FileView{}, apierror.InvalidArgument("file name is required", "")
	}
	if strings.TrimSpace(input.ContentHash) == "" {
		return model.FileView{}, apierror.InvalidArgument("content hash is required", "")
	}
	if err := s.validateSize(input.Size); err != nil {
		return model.FileView{}, err
	}

	now := s.clock()
	record := model.FileRecord{
		ID:           newFileID(caller.ID, input.ContentHash, now),
		Name:         input.Name,
		Owner:        caller.ID,
		ContentHash:  input.ContentHash,
		EncryptedKey: input.EncryptedKey,
		Size:         input.Size,
		ContentType:  input.ContentType,
		CreatedAt:    now,
		UpdatedAt:    now,
		Public:       input.Public,
	}

	if err := s.files.Put(ctx, record); err != nil {
		return model.FileView{}, err
	}
	if err := s.files.AppendOwned(ctx, caller.ID, record.ID); err != nil {
		return model.FileView{}, err
	}
	if err := s.audit(ctx, record.ID, caller.ID, fmt.Sprintf("registered file %q", record.Name)); err != nil {
		return model.FileView{}, err
	}

	s.publish(event.TypeFileRegistered, caller.ID, record.View(caller.ID))
	return record.View(caller.ID), nil
}

// Update replaces a file's content hash, size, and optionally its
// encrypted key. Requires write access; only the owner may rotate the
// encrypted key.
func (s *RegistryService) Update(ctx context.Context, caller model.Principal, fileID string, input UpdateFileInput) (model.FileView, error) {
	lockKey := store.FileKey(fileID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		return model.FileView{}, notFoundFile(fileID, err)
	}

	now := s.clock()
	if !s.effectiveAccess(ctx, record, caller.ID, model.AccessWrite, now) {
		return model.FileView{}, apierror.AccessDenied("write access required", fileID)
	}
	if strings.TrimSpace(input.ContentHash) == "" {
		return model.FileView{}, apierror.InvalidArgument("content hash is required", "")
	}
	if err := s.validateSize(input.Size); err != nil {
		return model.FileView{}, err
	}
	if len(input.EncryptedKey) > 0 && caller.ID != record.Owner {
		return model.FileView{}, apierror.Forbidden("only the owner may change the encrypted key", fileID)
	}

	record.ContentHash = input.ContentHash
	record.Size = input.Size
	record.UpdatedAt = now
	if len(input.EncryptedKey) > 0 {
		record.EncryptedKey = input.EncryptedKey
	}

	if err := s.files.Put(ctx, record); err != nil {
		return model.FileView{}, err
	}
	if err := s.audit(ctx, record.ID, caller.ID, "updated file content"); err != nil {
		return model.FileView{}, err
	}

	s.publish(event.TypeFileUpdated, caller.ID, record.View(caller.ID))
	return record.View(caller.ID), nil
}

// Grant gives an identity a level of access on a file. Owner-only; a
// repeated grant overwrites the previous one.
func (s *RegistryService) Grant(ctx context.Context, caller model.Principal, fileID string, grantee string, level model.AccessLevel, expiresAt time.Time) (model.AccessGrant, error) {
	lockKey := store.FileKey(fileID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		return model.AccessGrant{}, notFoundFile(fileID, err)
	}
	if caller.ID != record.Owner {
		return model.AccessGrant{}, apierror.Forbidden("only the owner may grant access", fileID)
	}

	grantee = strings.TrimSpace(grantee)
	if grantee == "" {
		return model.AccessGrant{}, apierror.InvalidArgument("grantee identity is required", "")
	}
	if grantee == record.Owner {
		return model.AccessGrant{}, apierror.InvalidArgument("owner already has full access", grantee)
	}
	if !level.Valid() || level == model.AccessNone {
		return model.AccessGrant{}, apierror.InvalidArgument("grant level must be read, write, or admin", level.String())
	}

	now := s.clock()
	if !expiresAt.IsZero() && !expiresAt.After(now) {
		return model.AccessGrant{}, apierror.InvalidArgument("grant expiry must be in the future", "")
	}

	grant := model.AccessGrant{
		FileID:    fileID,
		Grantee:   grantee,
		Level:     level,
		GrantedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.files.PutGrant(ctx, grant); err != nil {
		return model.AccessGrant{}, err
	}
	if err := s.audit(ctx, fileID, caller.ID, fmt.Sprintf("granted %s access to %s", level, grantee)); err != nil {
		return model.AccessGrant{}, err
	}

	s.publish(event.TypeAccessGranted, caller.ID, grant)
	return grant, nil
}

// GrantConveyed is the trusted-component path the transfer engine uses
// to hand a completed transfer's access level to the recipient.
func (s *RegistryService) GrantConveyed(ctx context.Context, caller model.Principal, fileID string, grantee string, level model.AccessLevel) error {
	trusted, err := s.trust.IsTrusted(ctx, caller.ID)
	if err != nil {
		return err
	}
	if !trusted {
		return apierror.Forbidden("caller is not a trusted component", caller.ID)
	}

	lockKey := store.FileKey(fileID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		return notFoundFile(fileID, err)
	}
	if record.Deleted {
		return apierror.InvalidState("file is deleted", fileID)
	}
	if grantee == record.Owner {
		return apierror.InvalidArgument("owner already has full access", grantee)
	}
	if !level.Valid() || level == model.AccessNone {
		return apierror.InvalidArgument("conveyed level must be read, write, or admin", level.String())
	}

	grant := model.AccessGrant{
		FileID:    fileID,
		Grantee:   grantee,
		Level:     level,
		GrantedAt: s.clock(),
	}
	if err := s.files.PutGrant(ctx, grant); err != nil {
		return err
	}
	if err := s.audit(ctx, fileID, caller.ID, fmt.Sprintf("conveyed %s access to %s", level, grantee)); err != nil {
		return err
	}

	s.publish(event.TypeAccessGranted, caller.ID, grant)
	return nil
}

// Revoke removes an active grant. Owner-only.
func (s *RegistryService) Revoke(ctx context.Context, caller model.Principal, fileID string, grantee string) error {
	lockKey := store.FileKey(fileID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		return notFoundFile(fileID, err)
	}
	if caller.ID != record.Owner {
		return apierror.Forbidden("only the owner may revoke access", fileID)
	}

	if _, err := s.files.GetGrant(ctx, fileID, grantee); err != nil {
		return apierror.NotFound("no active grant for grantee", grantee)
	}
	if err := s.files.DeleteGrant(ctx, fileID, grantee); err != nil {
		return err
	}
	if err := s.audit(ctx, fileID, caller.ID, fmt.Sprintf("revoked access from %s", grantee)); err != nil {
		return err
	}

	s.publish(event.TypeAccessRevoked, caller.ID, map[string]string{"file_id": fileID, "grantee": grantee})
	return nil
}

// Delete soft-deletes a file. Owner or admin-role callers only; the
// record and its history remain.
func (s *RegistryService) Delete(ctx context.Context, caller model.Principal, fileID string) error {
	lockKey := store.FileKey(fileID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		return notFoundFile(fileID, err)
	}
	if caller.ID != record.Owner && !caller.IsAdmin() {
		return apierror.Forbidden("only the owner or an admin may delete", fileID)
	}
	if record.Deleted {
		return apierror.InvalidState("file is already deleted", fileID)
	}

	record.Deleted = true
	record.UpdatedAt = s.clock()
	if err := s.files.Put(ctx, record); err != nil {
		return err
	}
	if err := s.audit(ctx, fileID, caller.ID, "soft-deleted file"); err != nil {
		return err
	}

	s.publish(event.TypeFileDeleted, caller.ID, map[string]string{"file_id": fileID})
	return nil
}

// Metadata returns the caller's view of a file. Non-public files
// require ownership, the admin role, or a currently valid grant. The
// encrypted key is stripped for everyone but the owner.
func (s *RegistryService) Metadata(ctx context.Context, caller model.Principal, fileID string) (model.FileView, error) {
	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		return model.FileView{}, notFoundFile(fileID, err)
	}

	// The owner sees the record even after soft delete.
	if caller.ID == record.Owner {
		return record.View(caller.ID), nil
	}
	if caller.IsAdmin() {
		return record.View(caller.ID), nil
	}

	now := s.clock()
	if record.Public && !record.Deleted {
		return record.View(caller.ID), nil
	}
	if !s.effectiveAccess(ctx, record, caller.ID, model.AccessRead, now) {
		return model.FileView{}, apierror.AccessDenied("no access to file metadata", fileID)
	}
	return record.View(caller.ID), nil
}

// CheckAccess is the pure authorization predicate. Ownership wins
// before the soft-delete check, so an owner keeps access to a deleted
// file; everyone else loses it.
func (s *RegistryService) CheckAccess(ctx context.Context, fileID string, identity string, level model.AccessLevel) (bool, error) {
	if strings.TrimSpace(identity) == "" {
		return false, nil
	}

	record, err := s.files.Get(ctx, fileID)
	if errors.Is(err, model.ErrFileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return s.effectiveAccess(ctx, record, identity, level, s.clock()), nil
}

// UserFiles returns the insertion-ordered ids of every file the
// identity has registered, soft-deleted ones included.
func (s *RegistryService) UserFiles(ctx context.Context, identity string) ([]string, error) {
	return s.files.ListOwned(ctx, identity)
}

// Grants lists a file's explicit grants. Owner or admin only.
func (s *RegistryService) Grants(ctx context.Context, caller model.Principal, fileID string) ([]model.AccessGrant, error) {
	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, notFoundFile(fileID, err)
	}
	if caller.ID != record.Owner && !caller.IsAdmin() {
		return nil, apierror.Forbidden("only the owner or an admin may list grants", fileID)
	}
	return s.files.ListGrants(ctx, fileID)
}

func (s *RegistryService) effectiveAccess(ctx context.Context, record model.FileRecord, identity string, level model.AccessLevel, now time.Time) bool {
	if identity == record.Owner {
		return true
	}
	if record.Deleted {
		return false
	}
	if record.Public && level <= model.AccessRead {
		return true
	}

	grant, err := s.files.GetGrant(ctx, record.ID, identity)
	if err != nil {
		return false
	}
	return grant.ActiveAt(now, level)
}

func (s *RegistryService) validateSize(size int64) error {
	if size <= 0 {
		return apierror.InvalidArgument("file size must be positive", "")
	}
	if max := s.settings.MaxFileSize(); size > max {
		return apierror.InvalidArgument("file size exceeds the configured maximum", fmt.Sprintf("max %d bytes", max))
	}
	return nil
}

func (s *RegistryService) audit(ctx context.Context, fileID string, actor string, action string) error {
	_, err := s.ledger.RecordFor(ctx, s.self, fileID, actor, action)
	return err
}

func (s *RegistryService) publish(eventType event.Type, actor string, payload any) {
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

func notFoundFile(fileID string, err error) error {
	if errors.Is(err, model.ErrFileNotFound) {
		return apierror.NotFound("file not found", fileID)
	}
	return err
}
