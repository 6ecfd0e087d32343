package storage

import (
	"log/slog"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir, slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestJobLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateJob(JobTypeGenerate, 0, map[string]any{"config": "{}"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	job, err := db.ClaimJob(JobTypeGenerate)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if job == nil || job.ID != id {
		t.Fatalf("expected to claim job %d, got %+v", id, job)
	}
	if job.Status != JobStatusRunning {
		t.Fatalf("expected running status, got %s", job.Status)
	}

	if again, err := db.ClaimJob(JobTypeGenerate); err != nil || again != nil {
		t.Fatalf("expected no further pending jobs, got %+v err=%v", again, err)
	}

	if err := db.CompleteJob(job.ID, map[string]any{"seed_dir": "/out/seeds/abc"}); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
}

func TestJobFailAndRetry(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateJob(JobTypeGenerate, 0, nil)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := db.ClaimJob(JobTypeGenerate); err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if err := db.FailJob(id, "constraint unsatisfiable"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	if err := db.RetryJob(id); err != nil {
		t.Fatalf("RetryJob: %v", err)
	}

	job, err := db.ClaimJob(JobTypeGenerate)
	if err != nil {
		t.Fatalf("ClaimJob after retry: %v", err)
	}
	if job == nil || job.ID != id {
		t.Fatalf("expected retried job to be claimable again")
	}
}

func TestPendingJobCount(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 3; i++ {
		if _, err := db.CreateJob(JobTypeGenerate, i, nil); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}
	count, err := db.GetPendingJobCount(JobTypeGenerate)
	if err != nil {
		t.Fatalf("GetPendingJobCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 pending jobs, got %d", count)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateJob(JobTypeGenerate, 0, nil)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	data := []byte("MThd fake midi bytes")
	hash, err := db.PutBlob(BlobTypeDrumMIDI, 0, id, data)
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	got, err := db.GetBlob(hash)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(got.Data) != string(data) || got.Type != BlobTypeDrumMIDI {
		t.Fatalf("unexpected blob: %+v", got)
	}

	blobs, err := db.GetBlobsForJob(id, "")
	if err != nil {
		t.Fatalf("GetBlobsForJob: %v", err)
	}
	if len(blobs) != 1 {
		t.Fatalf("expected 1 blob for job, got %d", len(blobs))
	}

	if err := db.DeleteBlobsForJob(id); err != nil {
		t.Fatalf("DeleteBlobsForJob: %v", err)
	}
	blobs, err = db.GetBlobsForJob(id, "")
	if err != nil {
		t.Fatalf("GetBlobsForJob after delete: %v", err)
	}
	if len(blobs) != 0 {
		t.Fatalf("expected 0 blobs after delete, got %d", len(blobs))
	}
}
