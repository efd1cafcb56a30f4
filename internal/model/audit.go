package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ZeroHash is the previous-hash value of the first record in a
// per-file audit chain.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// AuditRecord is one link in a file's hash chain. Records are strictly
// append-only; the ID binds the payload to the previous record so any
// rewrite of history breaks verification downstream.
type AuditRecord struct {
	ID        string    `json:"id"`
	FileID    string    `json:"file_id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	PrevHash  string    `json:"prev_hash"`
}

// ComputeID derives the record hash from the fields that make the
// chain tamper-evident.
func (r AuditRecord) ComputeID() string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d|%s",
		r.FileID, r.Actor, r.Action, r.Timestamp.UnixNano(), r.PrevHash))
	return hex.EncodeToString(sum[:])
}

// AuditMeta is the ledger's per-file bookkeeping: the hash of the most
// recently appended record and the total record count.
type AuditMeta struct {
	FileID   string `json:"file_id"`
	LastHash string `json:"last_hash"`
	Count    int    `json:"count"`
}
