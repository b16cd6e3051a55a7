package model

import (
	"time"
)

// File is the metadata record of one stored blob.
// A record exists only while a blob of SizeBytes bytes exists at StoragePath.
type File struct {
	ID           string    `db:"id" json:"id"`
	OwnerID      string    `db:"owner_id" json:"ownerId"`                 // Resolved user UUID, never a username
	OriginalName string    `db:"original_filename" json:"originalName"`  // Untrusted, display only
	StoredName   string    `db:"stored_filename" json:"storedName"`       // Random token + extension, globally unique
	SizeBytes    int64     `db:"file_size" json:"sizeBytes"`
	UploadedAt   time.Time `db:"upload_time" json:"uploadedAt"`
	StoragePath  string    `db:"file_path" json:"storagePath"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// OwnedBy reports whether ownerID owns the record.
func (f *File) OwnedBy(ownerID string) bool {
	return f != nil && ownerID != "" && f.OwnerID == ownerID
}
