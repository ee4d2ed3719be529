package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"renderq/internal/adapter/repo/memory"
	"renderq/internal/domain"
	"renderq/internal/providers"
	"renderq/internal/providers/local"
	"renderq/internal/reconcile"
	"renderq/internal/uploadcache"
	"renderq/internal/webhook"
)

type stubEncoder struct {
	dir  string
	fail error
}

func (e *stubEncoder) Encode(ctx context.Context, job *domain.Job, progress func(int)) (*EncodeOutput, error) {
	progress(10)
	if e.fail != nil {
		return nil, e.fail
	}
	out := filepath.Join(e.dir, job.ID+".mp4")
	if err := os.WriteFile(out, []byte("encoded media"), 0o644); err != nil {
		return nil, err
	}
	progress(95)
	return &EncodeOutput{FilePath: out, ContentType: "video/mp4", DurationMs: 1500}, nil
}

type entryStore struct {
	mu      sync.Mutex
	entries map[string]*uploadcache.Entry
}

func (s *entryStore) GetEntry(ctx context.Context, hash string) (*uploadcache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[hash]; ok {
		return entry, nil
	}
	return nil, uploadcache.ErrCacheMiss
}

func (s *entryStore) PutEntry(ctx context.Context, entry *uploadcache.Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Hash] = entry
	return nil
}

type memObjects struct{}

func (memObjects) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "http://localhost:8080/static/" + key, nil
}

func newTestWorker(t *testing.T, encoder Encoder) (*Worker, *memory.JobStore) {
	t.Helper()
	jobs := memory.NewJobStore()
	policy := providers.NewPolicy([]providers.Client{local.NewClient(jobs)}, nil)
	hooks := webhook.NewDispatcher(webhook.Options{Secret: "s", Logger: zerolog.Nop()})
	reconciler := reconcile.NewService(reconcile.Options{
		Jobs:    jobs,
		Policy:  policy,
		Objects: memObjects{},
		Hooks:   hooks,
		Logger:  zerolog.Nop(),
	})
	uploads := uploadcache.New(uploadcache.Options{
		Store:   &entryStore{entries: make(map[string]*uploadcache.Entry)},
		Objects: memObjects{},
		TTL:     time.Minute,
		Logger:  zerolog.Nop(),
	})
	worker := NewWorker(WorkerOptions{
		Jobs:         jobs,
		Encoder:      encoder,
		Uploads:      uploads,
		Reconciler:   reconciler,
		Logger:       zerolog.Nop(),
		MaxAttempts:  2,
		BackoffBase:  time.Millisecond,
		PollInterval: time.Millisecond,
	})
	return worker, jobs
}

func seedConvertJob(t *testing.T, jobs *memory.JobStore, id string) {
	t.Helper()
	job := &domain.Job{
		ID:       id,
		Kind:     domain.JobKindConvert,
		Provider: domain.ProviderLocal,
		Status:   domain.JobStatusQueued,
		Payload:  domain.JobPayload{InputURL: "https://example.com/in.webm", Format: "mp4"},
	}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestHandleCompletesJob(t *testing.T) {
	encoder := &stubEncoder{dir: t.TempDir()}
	worker, jobs := newTestWorker(t, encoder)
	seedConvertJob(t, jobs, "c1")

	claimed, err := jobs.ClaimLocal(context.Background())
	if err != nil {
		t.Fatalf("ClaimLocal: %v", err)
	}
	worker.Handle(context.Background(), claimed)

	stored, err := jobs.GetByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	result, err := stored.UnifiedResult()
	if err != nil || result == nil {
		t.Fatalf("result missing: %v %v", result, err)
	}
	if result.ContentType != "video/mp4" || result.URL == "" {
		t.Fatalf("result = %+v", result)
	}
	if result.FileSizeBytes == 0 {
		t.Fatalf("file size not recorded")
	}
	// The encoded artifact is removed after upload.
	if _, err := os.Stat(filepath.Join(encoder.dir, "c1.mp4")); !os.IsNotExist(err) {
		t.Fatalf("output file still present: %v", err)
	}
}

func TestHandleFailureReleasesForRetry(t *testing.T) {
	encoder := &stubEncoder{dir: t.TempDir(), fail: errors.New("codec blew up")}
	worker, jobs := newTestWorker(t, encoder)
	seedConvertJob(t, jobs, "c2")

	claimed, err := jobs.ClaimLocal(context.Background())
	if err != nil {
		t.Fatalf("ClaimLocal: %v", err)
	}
	worker.Handle(context.Background(), claimed)

	stored, _ := jobs.GetByID(context.Background(), "c2")
	if stored.Terminal() {
		t.Fatalf("first failure must release, not finalize")
	}
	if stored.Status != domain.JobStatusQueued {
		t.Fatalf("status = %s, want queued", stored.Status)
	}
	if !stored.NextRetryAt.After(time.Now().Add(-time.Second)) {
		t.Fatalf("nextRetryAt not set: %v", stored.NextRetryAt)
	}
}

func TestHandleFailureExhaustsAttempts(t *testing.T) {
	encoder := &stubEncoder{dir: t.TempDir(), fail: errors.New("codec blew up")}
	worker, jobs := newTestWorker(t, encoder)
	seedConvertJob(t, jobs, "c3")

	for i := 0; i < 2; i++ {
		// Let the backoff window from the previous release elapse.
		time.Sleep(5 * time.Millisecond)
		claimed, err := jobs.ClaimLocal(context.Background())
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		worker.Handle(context.Background(), claimed)
	}

	stored, _ := jobs.GetByID(context.Background(), "c3")
	if stored.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed after attempt cap", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Fatalf("missing error message")
	}
}

func TestRunProcessesQueueUntilCancelled(t *testing.T) {
	encoder := &stubEncoder{dir: t.TempDir()}
	worker, jobs := newTestWorker(t, encoder)
	seedConvertJob(t, jobs, "c4")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		stored, err := jobs.GetByID(context.Background(), "c4")
		if err == nil && stored.Terminal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job never finished")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
