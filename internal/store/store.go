// Package store provides the key-value persistence layer shared by all
// repositories. Records are keyed by opaque identifiers:
//
//	file:{fileID}
//	grant:{fileID}:{granteeID}
//	transfer:{transferID}
//	audit:{fileID}:{sequence}
//	auditmeta:{fileID}
//	owner:{identity}
//	sent:{identity}
//	recv:{identity}
//	role:{identity}
//	policy:trusted
package store

import (
	"context"
	"fmt"
)

// Entry is one key-value pair returned by a prefix listing.
type Entry struct {
	Key   string
	Value []byte
}

// KV is the backing store contract. Get returns model.ErrKeyNotFound
// (wrapped) when the key is absent. List returns entries ordered by
// key so fixed-width sequence suffixes come back in append order.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Entry, error)
}

func FileKey(fileID string) string {
	return "file:" + fileID
}

func GrantKey(fileID string, grantee string) string {
	return fmt.Sprintf("grant:%s:%s", fileID, grantee)
}

func GrantPrefix(fileID string) string {
	return "grant:" + fileID + ":"
}

func TransferKey(transferID string) string {
	return "transfer:" + transferID
}

// AuditKey formats the sequence fixed-width so lexical key order is
// append order.
func AuditKey(fileID string, seq int) string {
	return fmt.Sprintf("audit:%s:%012d", fileID, seq)
}

func AuditPrefix(fileID string) string {
	return "audit:" + fileID + ":"
}

func AuditMetaKey(fileID string) string {
	return "auditmeta:" + fileID
}

func OwnerKey(identity string) string {
	return "owner:" + identity
}

func SentKey(identity string) string {
	return "sent:" + identity
}

func ReceivedKey(identity string) string {
	return "recv:" + identity
}

func RoleKey(identity string) string {
	return "role:" + identity
}

const (
	RolePrefix  = "role:"
	TrustedKey  = "policy:trusted"
	SettingsKey = "policy:settings"
)
