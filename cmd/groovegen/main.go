// Command groovegen runs the deterministic drum/bass/lead pipeline
// against a JSON configuration file and writes the result to a seed
// project directory (SPEC_FULL.md §6). In enqueue/worker mode it drives
// the generation through the internal/storage job queue instead of
// running inline, so a batch of requests can be queued by one process
// and rendered by another (SPEC_FULL.md §4.13).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groovegen/groovegen/internal/config"
	"github.com/groovegen/groovegen/internal/midi"
	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/pipeline"
	"github.com/groovegen/groovegen/internal/seeddir"
	"github.com/groovegen/groovegen/internal/storage"
)

func main() {
	mode := flag.String("mode", "run", "operation mode: run (inline, default), enqueue, worker")
	configPath := flag.String("config", "", "path to JSON configuration file (run/enqueue modes)")
	outDir := flag.String("out", "./out", "seed output root directory")
	seedID := flag.String("seed-id", "", "seed id for the output directory (auto-generated if empty)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	dataDir := flag.String("data-dir", "./data", "directory holding the job queue database (enqueue/worker modes)")
	priority := flag.Int("priority", 0, "job priority (enqueue mode)")
	once := flag.Bool("once", false, "claim and run a single job then exit (worker mode)")
	pollInterval := flag.Duration("poll-interval", 2*time.Second, "delay between empty-queue polls (worker mode)")
	flag.Parse()

	level := slog.LevelInfo
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "enqueue":
		runEnqueue(logger, *configPath, *dataDir, *seedID, *priority)
	case "worker":
		runWorker(ctx, logger, *dataDir, *outDir, *once, *pollInterval)
	case "run":
		runInline(ctx, logger, *configPath, *outDir, *seedID)
	default:
		logger.Error("unknown -mode", "mode", *mode)
		os.Exit(2)
	}
}

// runInline is the original single-shot path: load config, run the
// pipeline, write the seed directory, exit.
func runInline(ctx context.Context, logger *slog.Logger, configPath, outDir, seedID string) {
	if configPath == "" {
		logger.Error("-config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		exitForError(logger, "failed to load configuration", err)
	}

	select {
	case <-ctx.Done():
		logger.Warn("cancelled before generation began")
		os.Exit(2)
	default:
	}

	result, err := pipeline.Run(cfg, logger)
	if err != nil {
		exitForError(logger, "generation failed", err)
	}

	dir, err := seeddir.Write(outDir, seedID, cfg, result, time.Now())
	if err != nil {
		logger.Error("failed to write seed directory", "error", err)
		os.Exit(2)
	}

	logger.Info("generation complete",
		"seed_dir", dir,
		"drum_events", len(result.DrumEvents),
		"bass_notes", len(result.BassNotes),
		"lead_notes", len(result.LeadNotes),
		"warnings", len(result.Diagnostics.Warnings),
	)
}

// runEnqueue reads and validates a configuration file, then queues it as
// a pending JobTypeGenerate job for a worker to pick up.
func runEnqueue(logger *slog.Logger, configPath, dataDir, seedID string, priority int) {
	if configPath == "" {
		logger.Error("-config is required")
		os.Exit(2)
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		logger.Error("failed to read configuration", "error", err)
		os.Exit(2)
	}
	if _, err := config.Parse(raw); err != nil {
		exitForError(logger, "invalid configuration", err)
	}

	db, err := storage.Open(dataDir, logger)
	if err != nil {
		logger.Error("failed to open job queue", "error", err)
		os.Exit(2)
	}
	defer db.Close()

	payload := map[string]any{"config": json.RawMessage(raw)}
	if seedID != "" {
		payload["seed_id"] = seedID
	}
	id, err := db.CreateJob(storage.JobTypeGenerate, priority, payload)
	if err != nil {
		logger.Error("failed to enqueue job", "error", err)
		os.Exit(2)
	}
	logger.Info("job enqueued", "job_id", id)
}

// runWorker claims pending JobTypeGenerate jobs one at a time, runs the
// pipeline, writes the seed directory, caches the rendered MIDI as blobs,
// and marks the job complete or failed.
func runWorker(ctx context.Context, logger *slog.Logger, dataDir, outDir string, once bool, pollInterval time.Duration) {
	db, err := storage.Open(dataDir, logger)
	if err != nil {
		logger.Error("failed to open job queue", "error", err)
		os.Exit(2)
	}
	defer db.Close()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			return
		default:
		}

		job, err := db.ClaimJob(storage.JobTypeGenerate)
		if err != nil {
			logger.Error("failed to claim job", "error", err)
			os.Exit(2)
		}

		if job == nil {
			if once {
				logger.Info("no pending jobs")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}

		if err := runJob(db, logger, outDir, job); err != nil {
			logger.Error("job failed", "job_id", job.ID, "error", err)
			if ferr := db.FailJob(job.ID, err.Error()); ferr != nil {
				logger.Error("failed to mark job failed", "job_id", job.ID, "error", ferr)
			}
		}

		if once {
			return
		}
	}
}

// runJob renders one claimed job end to end: parse its payload config,
// run the pipeline, persist the seed directory, cache per-track MIDI
// blobs, and mark the job complete.
func runJob(db *storage.DB, logger *slog.Logger, outDir string, job *storage.Job) error {
	rawConfig, ok := job.Payload["config"]
	if !ok {
		return fmt.Errorf("job %d: payload missing config", job.ID)
	}
	configBytes, err := json.Marshal(rawConfig)
	if err != nil {
		return fmt.Errorf("job %d: re-marshal config payload: %w", job.ID, err)
	}
	cfg, err := config.Parse(configBytes)
	if err != nil {
		return fmt.Errorf("job %d: %w", job.ID, err)
	}

	result, err := pipeline.Run(cfg, logger)
	if err != nil {
		return fmt.Errorf("job %d: generation: %w", job.ID, err)
	}

	seedID, _ := job.Payload["seed_id"].(string)
	dir, err := seeddir.Write(outDir, seedID, cfg, result, time.Now())
	if err != nil {
		return fmt.Errorf("job %d: write seed dir: %w", job.ID, err)
	}

	if err := storeTrackBlobs(db, job.ID, cfg, result); err != nil {
		return fmt.Errorf("job %d: store blobs: %w", job.ID, err)
	}

	if err := db.CompleteJob(job.ID, map[string]any{"seed_dir": dir}); err != nil {
		return fmt.Errorf("job %d: mark complete: %w", job.ID, err)
	}

	logger.Info("job complete", "job_id", job.ID, "seed_dir", dir)
	return nil
}

// storeTrackBlobs renders each non-empty track to standalone MIDI bytes
// and caches them as content-addressed blobs keyed by job.
func storeTrackBlobs(db *storage.DB, jobID int64, cfg *model.Config, result *model.Result) error {
	tracks := []struct {
		id   model.TrackID
		kind storage.BlobType
	}{
		{model.TrackDrums, storage.BlobTypeDrumMIDI},
		{model.TrackBass, storage.BlobTypeBassMIDI},
		{model.TrackLead, storage.BlobTypeLeadMIDI},
	}
	for _, t := range tracks {
		events, ok := result.Events[t.id]
		if !ok || len(events) == 0 {
			continue
		}
		var buf bytes.Buffer
		single := map[model.TrackID][]model.OutputEvent{t.id: events}
		if _, err := midi.Write(&buf, cfg.Timebase, single); err != nil {
			return fmt.Errorf("render %s midi: %w", t.kind, err)
		}
		if _, err := db.PutBlob(t.kind, 0, jobID, buf.Bytes()); err != nil {
			return fmt.Errorf("store %s blob: %w", t.kind, err)
		}
	}
	return nil
}

// exitForError maps the pipeline's sentinel error taxonomy to the exit
// codes of SPEC_FULL.md §6: 1 for configuration/reference errors the
// caller can fix, 2 for everything else (I/O, unexpected failure).
func exitForError(logger *slog.Logger, msg string, err error) {
	if errors.Is(err, model.ErrInvalidConfiguration) || errors.Is(err, model.ErrReferenceMissing) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}
	logger.Error(msg, "error", err)
	os.Exit(2)
}
