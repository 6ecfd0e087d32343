package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// BlobType defines the kind of MIDI asset stored for a completed
// generation job.
type BlobType string

const (
	BlobTypeDrumMIDI BlobType = "drum_midi"
	BlobTypeBassMIDI BlobType = "bass_midi"
	BlobTypeLeadMIDI BlobType = "lead_midi"
)

// Blob represents a content-addressed MIDI asset produced by a job.
// Level distinguishes variants of the same track (0 = main, 1+ = the
// numbered entries under bass/variants or leads/variants).
type Blob struct {
	Hash      string
	Type      BlobType
	Level     int
	JobID     int64
	Data      []byte
	Size      int
	CreatedAt time.Time
}

// PutBlob stores a blob with content-addressed hashing.
// Returns the hash of the stored blob.
func (d *DB) PutBlob(blobType BlobType, level int, jobID int64, data []byte) (string, error) {
	hash := hashData(data)

	_, err := d.db.Exec(`
		INSERT OR IGNORE INTO blobs (hash, type, level, job_id, data, size)
		VALUES (?, ?, ?, ?, ?, ?)
	`, hash, string(blobType), level, jobID, data, len(data))
	if err != nil {
		return "", err
	}

	return hash, nil
}

// GetBlob retrieves a blob by hash.
func (d *DB) GetBlob(hash string) (*Blob, error) {
	b := &Blob{}
	var blobType string
	var createdAt string

	row := d.db.QueryRow(`
		SELECT hash, type, level, job_id, data, size, created_at
		FROM blobs WHERE hash = ?
	`, hash)

	if err := row.Scan(&b.Hash, &blobType, &b.Level, &b.JobID, &b.Data, &b.Size, &createdAt); err != nil {
		return nil, err
	}

	b.Type = BlobType(blobType)
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return b, nil
}

// GetBlobsForJob retrieves all blobs produced by a job, optionally
// filtered by type.
func (d *DB) GetBlobsForJob(jobID int64, blobType BlobType) ([]*Blob, error) {
	query := "SELECT hash, type, level, job_id, data, size, created_at FROM blobs WHERE job_id = ?"
	args := []any{jobID}

	if blobType != "" {
		query += " AND type = ?"
		args = append(args, string(blobType))
	}

	query += " ORDER BY level ASC"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blobs []*Blob
	for rows.Next() {
		b := &Blob{}
		var bt string
		var createdAt string

		if err := rows.Scan(&b.Hash, &bt, &b.Level, &b.JobID, &b.Data, &b.Size, &createdAt); err != nil {
			return nil, err
		}

		b.Type = BlobType(bt)
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		blobs = append(blobs, b)
	}

	return blobs, rows.Err()
}

// DeleteBlobsForJob deletes all blobs produced by a job.
func (d *DB) DeleteBlobsForJob(jobID int64) error {
	_, err := d.db.Exec("DELETE FROM blobs WHERE job_id = ?", jobID)
	return err
}

func hashData(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
