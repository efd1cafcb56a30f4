package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mat-tom-creator/fileledger/internal/event"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/repository"
	"github.com/mat-tom-creator/fileledger/internal/store"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

type InitiateTransferInput struct {
	FileID    string            `json:"file_id"`
	Recipient string            `json:"recipient"`
	Message   string            `json:"message,omitempty"`
	Level     model.AccessLevel `json:"level"`
	Deadline  time.Time         `json:"deadline,omitzero"`
}

// TransferService drives the transfer lifecycle state machine and
// orchestrates the registry and ledger around it.
type TransferService struct {
	transfers *repository.TransferRepository
	registry  *RegistryService
	ledger    *LedgerService
	settings  *Settings
	locks     *store.KeyLock
	clock     Clock
	bus       event.Bus
	// self identifies the engine on trusted cross-component calls.
	self model.Principal
}

func NewTransferService(
	transfers *repository.TransferRepository,
	registry *RegistryService,
	ledger *LedgerService,
	settings *Settings,
	locks *store.KeyLock,
	clock Clock,
	bus event.Bus,
	self model.Principal,
) *TransferService {
	return &TransferService{
		transfers: transfers,
		registry:  registry,
		ledger:    ledger,
		settings:  settings,
		locks:     locks,
		clock:     clock,
		bus:       bus,
		self:      self,
	}
}

// Initiate opens a transfer from the caller to a recipient. The caller
// needs at least read access to the file; a zero deadline defaults to
// the configured expiration window.
func (s *TransferService) Initiate(ctx context.Context, caller model.Principal, input InitiateTransferInput) (model.TransferView, error) {
	if caller.Zero() {
		return model.TransferView{}, apierror.Forbidden("caller identity is required", "")
	}

	recipient := strings.TrimSpace(input.Recipient)
	if recipient == "" {
		return model.TransferView{}, apierror.InvalidArgument("recipient identity is required", "")
	}
	if recipient == caller.ID {
		return model.TransferView{}, apierror.InvalidArgument("cannot transfer to yourself", "")
	}

	level := input.Level
	if level == model.AccessNone {
		level = model.AccessRead
	}
	if !level.Valid() {
		return model.TransferView{}, apierror.InvalidArgument("invalid access level", level.String())
	}

	ok, err := s.registry.CheckAccess(ctx, input.FileID, caller.ID, model.AccessRead)
	if err != nil {
		return model.TransferView{}, err
	}
	if !ok {
		return model.TransferView{}, apierror.AccessDenied("sender has no access to the file", input.FileID)
	}

	now := s.clock()
	deadline := input.Deadline
	if deadline.IsZero() {
		deadline = now.Add(s.settings.TransferExpiry())
	} else {
		if !deadline.After(now) {
			return model.TransferView{}, apierror.InvalidArgument("deadline must be in the future", "")
		}
		if deadline.After(now.Add(s.settings.MaxTransferExpiry())) {
			return model.TransferView{}, apierror.InvalidArgument("deadline exceeds the maximum expiration window", "")
		}
	}

	transfer := model.Transfer{
		ID:          newTransferID(input.FileID, caller.ID, recipient, now),
		FileID:      input.FileID,
		Sender:      caller.ID,
		Recipient:   recipient,
		Message:     input.Message,
		Level:       level,
		Status:      model.TransferInitiated,
		InitiatedAt: now,
		Deadline:    deadline,
	}

	if err := s.transfers.Put(ctx, transfer); err != nil {
		return model.TransferView{}, err
	}
	if err := s.transfers.Index(ctx, transfer); err != nil {
		return model.TransferView{}, err
	}
	if err := s.audit(ctx, transfer, caller.ID, fmt.Sprintf("initiated transfer to %s", recipient)); err != nil {
		return model.TransferView{}, err
	}

	s.publish(event.TypeTransferInitiate, caller.ID, transfer)
	return transfer.ViewAt(now), nil
}

// Cancel withdraws a pending transfer. Sender-only, Initiated-only.
func (s *TransferService) Cancel(ctx context.Context, caller model.Principal, transferID string) (model.TransferView, error) {
	return s.transition(ctx, caller, transferID, func(t *model.Transfer, now time.Time) error {
		if caller.ID != t.Sender {
			return apierror.Forbidden("only the sender may cancel", transferID)
		}
		if t.Status != model.TransferInitiated {
			return apierror.InvalidState("transfer is not awaiting acceptance", string(t.Status))
		}
		t.Status = model.TransferCancelled
		return nil
	}, event.TypeTransferCancel, "cancelled transfer")
}

// Accept moves a pending transfer into progress. Recipient-only; a
// transfer past its deadline fails as expired.
func (s *TransferService) Accept(ctx context.Context, caller model.Principal, transferID string) (model.TransferView, error) {
	return s.transition(ctx, caller, transferID, func(t *model.Transfer, now time.Time) error {
		if caller.ID != t.Recipient {
			return apierror.Forbidden("only the recipient may accept", transferID)
		}
		if t.Status != model.TransferInitiated {
			return apierror.InvalidState("transfer is not awaiting acceptance", string(t.Status))
		}
		if now.After(t.Deadline) {
			return apierror.Expired("transfer deadline has passed", t.Deadline.Format(time.RFC3339))
		}
		t.Status = model.TransferInProgress
		return nil
	}, event.TypeTransferAccepted, "accepted transfer")
}

// Reject declines a pending transfer. Recipient-only.
func (s *TransferService) Reject(ctx context.Context, caller model.Principal, transferID string, reason string) (model.TransferView, error) {
	return s.transition(ctx, caller, transferID, func(t *model.Transfer, now time.Time) error {
		if caller.ID != t.Recipient {
			return apierror.Forbidden("only the recipient may reject", transferID)
		}
		if t.Status != model.TransferInitiated {
			return apierror.InvalidState("transfer is not awaiting acceptance", string(t.Status))
		}
		t.Status = model.TransferRejected
		t.RejectReason = reason
		return nil
	}, event.TypeTransferRejected, "rejected transfer")
}

// Complete finishes an in-progress transfer with the recipient's proof
// of delivery and attempts to convey the access grant. The grant is
// best-effort: its outcome is captured on the transfer and never fails
// the completion.
func (s *TransferService) Complete(ctx context.Context, caller model.Principal, transferID string, proof string) (model.TransferView, error) {
	return s.transition(ctx, caller, transferID, func(t *model.Transfer, now time.Time) error {
		if caller.ID != t.Recipient {
			return apierror.Forbidden("only the recipient may complete", transferID)
		}
		if t.Status != model.TransferInProgress {
			return apierror.InvalidState("transfer is not in progress", string(t.Status))
		}
		if strings.TrimSpace(proof) == "" {
			return apierror.InvalidArgument("proof of delivery is required", "")
		}
		t.Status = model.TransferCompleted
		t.CompletedAt = now
		t.Proof = proof
		outcome := s.conveyGrant(ctx, *t)
		t.GrantOutcome = &outcome
		return nil
	}, event.TypeTransferComplete, "completed transfer")
}

// Dispute flags an in-progress or completed transfer. Either party.
func (s *TransferService) Dispute(ctx context.Context, caller model.Principal, transferID string, reason string) (model.TransferView, error) {
	return s.transition(ctx, caller, transferID, func(t *model.Transfer, now time.Time) error {
		if caller.ID != t.Sender && caller.ID != t.Recipient {
			return apierror.Forbidden("only the sender or recipient may dispute", transferID)
		}
		if t.Status != model.TransferInProgress && t.Status != model.TransferCompleted {
			return apierror.InvalidState("transfer cannot be disputed from its current state", string(t.Status))
		}
		if strings.TrimSpace(reason) == "" {
			return apierror.InvalidArgument("dispute reason is required", "")
		}
		t.Status = model.TransferDisputed
		t.DisputeReason = reason
		return nil
	}, event.TypeTransferDisputed, "disputed transfer")
}

// Resolve settles a disputed transfer as completed or cancelled.
// Admin-role callers only. Resolving as completed re-attempts the
// access grant, still best-effort.
func (s *TransferService) Resolve(ctx context.Context, caller model.Principal, transferID string, resolution model.TransferStatus) (model.TransferView, error) {
	return s.transition(ctx, caller, transferID, func(t *model.Transfer, now time.Time) error {
		if !caller.IsAdmin() {
			return apierror.Forbidden("admin role required to resolve disputes", transferID)
		}
		if t.Status != model.TransferDisputed {
			return apierror.InvalidState("transfer is not disputed", string(t.Status))
		}
		if resolution != model.TransferCompleted && resolution != model.TransferCancelled {
			return apierror.InvalidArgument("resolution must be completed or cancelled", string(resolution))
		}

		t.Status = resolution
		t.Resolution = resolution
		if resolution == model.TransferCompleted {
			if t.CompletedAt.IsZero() {
				t.CompletedAt = now
			}
			outcome := s.conveyGrant(ctx, *t)
			t.GrantOutcome = &outcome
		}
		return nil
	}, event.TypeTransferResolved, "resolved disputed transfer")
}

// Get returns a transfer view. Restricted to the parties and
// admin/operator callers.
func (s *TransferService) Get(ctx context.Context, caller model.Principal, transferID string) (model.TransferView, error) {
	transfer, err := s.transfers.Get(ctx, transferID)
	if err != nil {
		return model.TransferView{}, notFoundTransfer(transferID, err)
	}
	if err := s.requireParty(caller, transfer); err != nil {
		return model.TransferView{}, err
	}
	return transfer.ViewAt(s.clock()), nil
}

// SentBy lists transfers initiated by an identity, oldest first.
func (s *TransferService) SentBy(ctx context.Context, caller model.Principal, identity string) ([]model.TransferView, error) {
	if err := s.requireSelfOrOperator(caller, identity); err != nil {
		return nil, err
	}
	ids, err := s.transfers.ListSent(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

// ReceivedBy lists transfers addressed to an identity, oldest first.
func (s *TransferService) ReceivedBy(ctx context.Context, caller model.Principal, identity string) ([]model.TransferView, error) {
	if err := s.requireSelfOrOperator(caller, identity); err != nil {
		return nil, err
	}
	ids, err := s.transfers.ListReceived(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

// transition runs a guarded state change under the transfer's entity
// lock: load, validate, mutate, persist, audit. Audit failures abort
// the operation; the guard sees the record before any mutation.
func (s *TransferService) transition(
	ctx context.Context,
	caller model.Principal,
	transferID string,
	mutate func(t *model.Transfer, now time.Time) error,
	eventType event.Type,
	auditAction string,
) (model.TransferView, error) {
	if caller.Zero() {
		return model.TransferView{}, apierror.Forbidden("caller identity is required", "")
	}

	lockKey := store.TransferKey(transferID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	transfer, err := s.transfers.Get(ctx, transferID)
	if err != nil {
		return model.TransferView{}, notFoundTransfer(transferID, err)
	}

	now := s.clock()
	if err := mutate(&transfer, now); err != nil {
		return model.TransferView{}, err
	}

	if err := s.transfers.Put(ctx, transfer); err != nil {
		return model.TransferView{}, err
	}
	if err := s.audit(ctx, transfer, caller.ID, auditAction); err != nil {
		return model.TransferView{}, err
	}

	s.publish(eventType, caller.ID, transfer)
	return transfer.ViewAt(now), nil
}

// conveyGrant attempts the access grant a completed transfer promises.
// The outcome is captured and never propagated.
func (s *TransferService) conveyGrant(ctx context.Context, transfer model.Transfer) model.GrantOutcome {
	outcome := model.GrantOutcome{Attempted: true}

	err := s.registry.GrantConveyed(ctx, s.self, transfer.FileID, transfer.Recipient, transfer.Level)
	if err != nil {
		outcome.Reason = err.Error()
		slog.Warn("access grant on transfer completion failed",
			"transfer_id", transfer.ID,
			"file_id", transfer.FileID,
			"recipient", transfer.Recipient,
			"error", err)
		return outcome
	}

	outcome.Granted = true
	return outcome
}

func (s *TransferService) requireParty(caller model.Principal, transfer model.Transfer) error {
	if caller.ID == transfer.Sender || caller.ID == transfer.Recipient {
		return nil
	}
	if caller.IsAdmin() || caller.HasRole(model.RoleOperator) {
		return nil
	}
	return apierror.Forbidden("not a party to this transfer", transfer.ID)
}

func (s *TransferService) requireSelfOrOperator(caller model.Principal, identity string) error {
	if caller.ID == identity {
		return nil
	}
	if caller.IsAdmin() || caller.HasRole(model.RoleOperator) {
		return nil
	}
	return apierror.Forbidden("cannot list another identity's transfers", identity)
}

func (s *TransferService) resolve(ctx context.Context, ids []string) ([]model.TransferView, error) {
	now := s.clock()
	views := make([]model.TransferView, 0, len(ids))
	for _, id := range ids {
		transfer, err := s.transfers.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		views = append(views, transfer.ViewAt(now))
	}
	return views, nil
}

func (s *TransferService) audit(ctx context.Context, transfer model.Transfer, actor string, action string) error {
	_, err := s.ledger.RecordFor(ctx, s.self, transfer.FileID, actor,
		fmt.Sprintf("%s %s", action, transfer.ID))
	return err
}

func (s *TransferService) publish(eventType event.Type, actor string, payload any) {
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

func notFoundTransfer(transferID string, err error) error {
	if errors.Is(err, model.ErrTransferNotFound) {
		return apierror.NotFound("transfer not found", transferID)
	}
	return err
}
