package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newFileID derives a content-bound file identifier. The nonce keeps
// ids unique when the same owner registers identical content twice.
func newFileID(owner string, contentHash string, now time.Time) string {
	return hashID("file", owner, contentHash, uuid.NewString(), timestamp(now))
}

// newTransferID binds the transfer identity to its parties and file.
func newTransferID(fileID string, sender string, recipient string, now time.Time) string {
	return hashID("transfer", fileID, sender, recipient, uuid.NewString(), timestamp(now))
}

func hashID(parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func timestamp(t time.Time) string {
	return fmt.Sprintf("%d", t.UnixNano())
}
