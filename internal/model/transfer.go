package model

import "time"

// TransferStatus is the stored state of a transfer. Expiration is not
// a stored state: an Initiated transfer whose deadline has passed is
// reported as expired at read time and rejected on accept.
type TransferStatus string

const (
	TransferInitiated  TransferStatus = "initiated"
	TransferInProgress TransferStatus = "in_progress"
	TransferCompleted  TransferStatus = "completed"
	TransferRejected   TransferStatus = "rejected"
	TransferCancelled  TransferStatus = "cancelled"
	TransferDisputed   TransferStatus = "disputed"
)

// Terminal reports whether no further transition can leave the status.
// Disputed is not terminal: it resolves to Completed or Cancelled.
func (s TransferStatus) Terminal() bool {
	switch s {
	case TransferRejected, TransferCancelled:
		return true
	case TransferCompleted:
		// A completed transfer can still be disputed.
		return false
	default:
		return false
	}
}

// GrantOutcome captures the best-effort access grant attempted when a
// transfer completes. The outcome is recorded and never propagated as
// a failure of the completing operation.
type GrantOutcome struct {
	Attempted bool   `json:"attempted"`
	Granted   bool   `json:"granted"`
	Reason    string `json:"reason,omitempty"`
}

// Transfer is a single peer-to-peer conveyance of file access rights.
type Transfer struct {
	ID            string         `json:"id"`
	FileID        string         `json:"file_id"`
	Sender        string         `json:"sender"`
	Recipient     string         `json:"recipient"`
	Message       string         `json:"message,omitempty"`
	Level         AccessLevel    `json:"level"`
	Status        TransferStatus `json:"status"`
	InitiatedAt   time.Time      `json:"initiated_at"`
	Deadline      time.Time      `json:"deadline"`
	CompletedAt   time.Time      `json:"completed_at,omitzero"`
	Proof         string         `json:"proof,omitempty"`
	RejectReason  string         `json:"reject_reason,omitempty"`
	DisputeReason string         `json:"dispute_reason,omitempty"`
	Resolution    TransferStatus `json:"resolution,omitempty"`
	GrantOutcome  *GrantOutcome  `json:"grant_outcome,omitempty"`
}

// ExpiredAt reports whether the transfer sits past its acceptance
// deadline while still waiting in Initiated.
func (t Transfer) ExpiredAt(now time.Time) bool {
	return t.Status == TransferInitiated && now.After(t.Deadline)
}

// TransferView decorates a transfer with the query-time derived
// expired flag.
type TransferView struct {
	Transfer
	Expired bool `json:"expired"`
}

func (t Transfer) ViewAt(now time.Time) TransferView {
	return TransferView{Transfer: t, Expired: t.ExpiredAt(now)}
}
