package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nordgren/eventscout/internal/dedup"
	"github.com/nordgren/eventscout/internal/event"
	"github.com/nordgren/eventscout/internal/store"
)

// futureDate keeps test events inside the retention window no matter when
// the tests run.
func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func candidate(title, date, location, link string) *event.Candidate {
	return &event.Candidate{
		Title:    title,
		Date:     date,
		Location: location,
		Link:     link,
		Source:   "testsource",
	}
}

func newTestManager(t *testing.T, st store.Store) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.json")
	tracker, err := dedup.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return New(event.NewValidator(), tracker, st), path
}

func TestSyncLinkOnlyDuplicatesAndIdempotence(t *testing.T) {
	st := store.NewMemory()
	m, path := newTestManager(t, st)

	// #1 and #3 differ only by link and therefore share a content hash.
	candidates := []*event.Candidate{
		candidate("Jazz Night", futureDate(14), "Blue Room", "https://a.example.com/1"),
		candidate("Open Mic", futureDate(15), "Blue Room", "https://a.example.com/2"),
		candidate("Jazz Night", futureDate(14), "Blue Room", "https://mirror.example.com/1"),
	}

	res, err := m.Sync(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.SyncedCount != 2 {
		t.Errorf("first run synced = %d, want 2", res.SyncedCount)
	}
	if res.DuplicatesSkipped != 0 {
		t.Errorf("first run duplicates = %d, want 0", res.DuplicatesSkipped)
	}
	if st.Len() != 2 {
		t.Errorf("store rows = %d, want 2", st.Len())
	}

	// Same input again, reloading the ledger like a fresh process would.
	tracker, err := dedup.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	m2 := New(event.NewValidator(), tracker, st)

	res2, err := m2.Sync(context.Background(), candidates)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if res2.SyncedCount != 0 {
		t.Errorf("second run synced = %d, want 0", res2.SyncedCount)
	}
	if res2.DuplicatesSkipped != res.SyncedCount {
		t.Errorf("second run duplicates = %d, want %d", res2.DuplicatesSkipped, res.SyncedCount)
	}
}

func TestSyncInvalidCandidateNeverReachesTracker(t *testing.T) {
	st := store.NewMemory()
	m, path := newTestManager(t, st)

	candidates := []*event.Candidate{
		candidate("Gallery Walk", futureDate(7), "", "https://a.example.com/g"),
		candidate("Gallery Talk", futureDate(8), "Art House", "https://a.example.com/t"),
	}

	res, err := m.Sync(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.SyncedCount != 1 {
		t.Errorf("synced = %d, want 1", res.SyncedCount)
	}

	found := false
	for _, e := range res.Errors {
		if e == "Missing required field: location" {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want exact missing-location message", res.Errors)
	}

	tracker, err := dedup.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tracker.Len() != 1 {
		t.Errorf("tracker entries = %d, want 1", tracker.Len())
	}
}

func TestSyncRetriesFailedRows(t *testing.T) {
	st := store.NewMemory()
	m, path := newTestManager(t, st)

	brokenDate := futureDate(21)
	failing := event.ContentHash("broken show", brokenDate, "side stage", "testsource")
	st.FailWith(failing, errors.New("connection reset"))

	candidates := []*event.Candidate{
		candidate("Broken Show", brokenDate, "Side Stage", "https://a.example.com/b"),
		candidate("Fine Show", futureDate(22), "Main Stage", "https://a.example.com/f"),
	}

	res, err := m.Sync(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.SyncedCount != 1 {
		t.Errorf("synced = %d, want 1", res.SyncedCount)
	}
	if len(res.Errors) != 1 {
		t.Errorf("errors = %v, want one row failure", res.Errors)
	}

	// Next run against a healthy store: the failed row is retried, the
	// synced one is skipped.
	tracker, err := dedup.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	m2 := New(event.NewValidator(), tracker, store.NewMemory())

	res2, err := m2.Sync(context.Background(), candidates)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if res2.SyncedCount != 1 {
		t.Errorf("retry synced = %d, want 1", res2.SyncedCount)
	}
	if res2.DuplicatesSkipped != 1 {
		t.Errorf("retry duplicates = %d, want 1", res2.DuplicatesSkipped)
	}
}

func TestSyncEvictsExpiredEntries(t *testing.T) {
	st := store.NewMemory()
	m, _ := newTestManager(t, st)

	res, err := m.Sync(context.Background(), []*event.Candidate{
		candidate("Ancient Fair", "2020-01-01", "Old Town", "https://a.example.com/o"),
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.SyncedCount != 1 {
		t.Fatalf("synced = %d, want 1", res.SyncedCount)
	}
	if res.EvictedCount != 1 {
		t.Errorf("evicted = %d, want 1 (event far past retention)", res.EvictedCount)
	}
}

// countingStore counts InsertBatch calls on top of a Memory store.
type countingStore struct {
	*store.Memory
	calls int
}

func (c *countingStore) InsertBatch(ctx context.Context, events []*event.Validated) ([]store.RowResult, error) {
	c.calls++
	return c.Memory.InsertBatch(ctx, events)
}

func TestSyncChunksBatches(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	m, _ := newTestManager(t, st)
	m.SetChunkSize(2)

	candidates := []*event.Candidate{
		candidate("A", futureDate(1), "Hall", "https://x.example.com/a"),
		candidate("B", futureDate(2), "Hall", "https://x.example.com/b"),
		candidate("C", futureDate(3), "Hall", "https://x.example.com/c"),
		candidate("D", futureDate(4), "Hall", "https://x.example.com/d"),
		candidate("E", futureDate(5), "Hall", "https://x.example.com/e"),
	}

	res, err := m.Sync(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.SyncedCount != 5 {
		t.Errorf("synced = %d, want 5", res.SyncedCount)
	}
	if st.calls != 3 {
		t.Errorf("InsertBatch calls = %d, want 3", st.calls)
	}
}

// failingStore fails the whole batch.
type failingStore struct{}

func (failingStore) InsertBatch(context.Context, []*event.Validated) ([]store.RowResult, error) {
	return nil, errors.New("store unreachable")
}
func (failingStore) Close() {}

func TestSyncBatchFailureLeavesRetryableEntries(t *testing.T) {
	m, path := newTestManager(t, failingStore{})

	candidates := []*event.Candidate{
		candidate("Show", futureDate(10), "Hall", "https://x.example.com/s"),
	}

	res, err := m.Sync(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.SyncedCount != 0 {
		t.Errorf("synced = %d, want 0", res.SyncedCount)
	}
	if len(res.Errors) == 0 {
		t.Error("expected a batch-level error")
	}

	tracker, err := dedup.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tracker.Len() != 1 {
		t.Errorf("tracker entries = %d, want 1 unsynced entry", tracker.Len())
	}
	if tracker.SyncedCount() != 0 {
		t.Errorf("synced entries = %d, want 0", tracker.SyncedCount())
	}
}
