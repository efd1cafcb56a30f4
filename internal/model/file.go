package model

import "time"

// FileRecord is the registry's canonical record of a file. Content
// itself lives elsewhere; the record tracks the hash and an opaque
// encrypted-key blob. Records are never physically removed, deletion
// only flips the Deleted flag.
type FileRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Owner        string    `json:"owner"`
	ContentHash  string    `json:"content_hash"`
	EncryptedKey []byte    `json:"encrypted_key,omitempty"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Public       bool      `json:"public"`
	Deleted      bool      `json:"deleted"`
}

// FileView is the metadata shape returned to callers. The encrypted
// key is present only when the caller owns the file.
type FileView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Owner        string    `json:"owner"`
	ContentHash  string    `json:"content_hash"`
	EncryptedKey []byte    `json:"encrypted_key,omitempty"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Public       bool      `json:"public"`
	Deleted      bool      `json:"deleted"`
}

// View projects the record for a caller, stripping the encrypted key
// unless the caller is the owner.
func (f FileRecord) View(caller string) FileView {
	view := FileView{
		ID:          f.ID,
		Name:        f.Name,
		Owner:       f.Owner,
		ContentHash: f.ContentHash,
		Size:        f.Size,
		ContentType: f.ContentType,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		Public:      f.Public,
		Deleted:     f.Deleted,
	}
	if caller == f.Owner {
		view.EncryptedKey = f.EncryptedKey
	}
	return view
}
