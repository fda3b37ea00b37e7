package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func recv(t *testing.T, sub Subscription) Change {
	t.Helper()
	select {
	case c, ok := <-sub.Changes:
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func expectNone(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case c := <-sub.Changes:
		t.Fatalf("unexpected change for %q (rev %d)", c.Key, c.Rev)
	default:
	}
}

func TestLoadMissingKey(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))

	var v []string
	ok, err := db.Load("productsByDay", &v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("Load reported a value for a missing key")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))

	want := [][]string{{"1", "2"}, {}, {"7"}}
	wrote, err := db.Save("productsByDay", want)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !wrote {
		t.Fatal("Save reported no write for a new key")
	}

	var got [][]string
	ok, err := db.Load("productsByDay", &got)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if len(got) != 3 || len(got[0]) != 2 || got[0][1] != "2" || len(got[1]) != 0 || got[2][0] != "7" {
		t.Errorf("Load = %v, want %v", got, want)
	}
}

func TestSaveIdenticalIsNoop(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))
	sub := db.Subscribe("dayLimit")
	defer sub.Close()

	if _, err := db.Save("dayLimit", 370); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first := recv(t, sub)
	if string(first.New) != "370" {
		t.Errorf("New = %s, want 370", first.New)
	}
	if first.Old != nil {
		t.Errorf("Old = %s, want empty for a new key", first.Old)
	}

	wrote, err := db.Save("dayLimit", 370)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if wrote {
		t.Error("second identical Save reported a write")
	}
	expectNone(t, sub)

	if _, err := db.Save("dayLimit", 400); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := recv(t, sub)
	if string(second.Old) != "370" || string(second.New) != "400" {
		t.Errorf("change = %s -> %s, want 370 -> 400", second.Old, second.New)
	}
	if second.Rev <= first.Rev {
		t.Errorf("rev = %d, want > %d", second.Rev, first.Rev)
	}
}

func TestLoadMalformed(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))

	if _, err := db.Save("dayLimit", "not a number"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var limit float64
	ok, err := db.Load("dayLimit", &limit)
	if ok {
		t.Error("Load reported success for a malformed value")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestSubscribeFiltersKeys(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))
	limitSub := db.Subscribe("dayLimit")
	defer limitSub.Close()
	allSub := db.Subscribe()
	defer allSub.Close()

	if _, err := db.Save("productsByDay", [][]string{{"1"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	expectNone(t, limitSub)
	if c := recv(t, allSub); c.Key != "productsByDay" {
		t.Errorf("Key = %q, want productsByDay", c.Key)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))
	sub := db.Subscribe("dayLimit")

	if got := db.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}
	sub.Close()
	sub.Close()
	if got := db.SubscriberCount(); got != 0 {
		t.Fatalf("SubscriberCount after Close = %d, want 0", got)
	}
	if _, ok := <-sub.Changes; ok {
		t.Error("channel still open after Close")
	}

	// Writes after close must not panic.
	if _, err := db.Save("dayLimit", 1); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestSlowSubscriberKeepsNewest(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))
	sub := db.Subscribe("dayLimit")
	defer sub.Close()

	last := subscriberBuffer + 5
	for i := 1; i <= last; i++ {
		if _, err := db.Save("dayLimit", i); err != nil {
			t.Fatalf("Save(%d): %v", i, err)
		}
	}

	var final Change
	for i := 0; i < subscriberBuffer; i++ {
		final = recv(t, sub)
	}
	expectNone(t, sub)

	var v int
	if err := json.Unmarshal(final.New, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != last {
		t.Errorf("last delivered = %d, want %d", v, last)
	}
}

func TestPollSeesOtherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")
	a := openTestDB(t, path)
	b := openTestDB(t, path)

	subA := a.Subscribe("productsByDay")
	defer subA.Close()

	if _, err := b.Save("productsByDay", [][]string{{"3"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	n, err := a.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 1 {
		t.Fatalf("Poll published %d, want 1", n)
	}
	c := recv(t, subA)
	if c.Origin != b.Origin() {
		t.Errorf("Origin = %q, want %q", c.Origin, b.Origin())
	}
	if string(c.New) != `[["3"]]` {
		t.Errorf("New = %s", c.New)
	}

	// A second pass has nothing new.
	if n, _ := a.Poll(context.Background()); n != 0 {
		t.Errorf("second Poll published %d, want 0", n)
	}
}

func TestPollSkipsOwnWrites(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))
	sub := db.Subscribe()
	defer sub.Close()

	if _, err := db.Save("dayLimit", 200); err != nil {
		t.Fatalf("Save: %v", err)
	}
	recv(t, sub)

	n, err := db.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 0 {
		t.Errorf("Poll published %d own writes, want 0", n)
	}
	expectNone(t, sub)
}

func TestWatchDeliversUntilCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")
	a := openTestDB(t, path)
	b := openTestDB(t, path)

	sub := a.Subscribe("dayLimit")
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, 10*time.Millisecond) }()

	if _, err := b.Save("dayLimit", 250); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c := recv(t, sub); string(c.New) != "250" {
		t.Errorf("New = %s, want 250", c.New)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchRetriesAfterFailedPoll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")
	a := openTestDB(t, path)
	b := openTestDB(t, path)

	failed := make(chan struct{})
	var calls atomic.Int32
	a.poll = func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			close(failed)
			return 0, errors.New("database is locked")
		}
		return a.Poll(ctx)
	}

	sub := a.Subscribe("dayLimit")
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, 10*time.Millisecond) }()

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("first poll never ran")
	}

	if _, err := b.Save("dayLimit", 300); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c := recv(t, sub); string(c.New) != "300" {
		t.Errorf("New = %s, want 300", c.New)
	}
	deadline := time.Now().Add(2 * time.Second)
	for a.WatchErr() != nil {
		if time.Now().After(deadline) {
			t.Fatalf("WatchErr = %v, want nil after a successful pass", a.WatchErr())
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case err := <-done:
		t.Fatalf("Watch returned early: %v", err)
	default:
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch = %v, want context.Canceled", err)
	}
}

func TestSaveIdenticalKeepsRevision(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))

	revision := func() int64 {
		t.Helper()
		var rev int64
		if err := db.db.QueryRow("SELECT rev FROM kv_rev WHERE id = 1").Scan(&rev); err != nil {
			t.Fatalf("reading kv_rev: %v", err)
		}
		return rev
	}

	if _, err := db.Save("productsByDay", [][]string{{"a"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before := revision()

	for i := 0; i < 2; i++ {
		if wrote, err := db.Save("productsByDay", [][]string{{"a"}}); err != nil || wrote {
			t.Fatalf("identical Save = %v, %v, want false, nil", wrote, err)
		}
	}
	if after := revision(); after != before {
		t.Errorf("kv_rev = %d after identical saves, want %d", after, before)
	}
}

func TestKeysAndDelete(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))
	for _, k := range []string{"productsByDay", "dayLimit"} {
		if _, err := db.Save(k, 1); err != nil {
			t.Fatalf("Save(%s): %v", k, err)
		}
	}

	entries, err := db.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "dayLimit" || entries[1].Key != "productsByDay" {
		t.Fatalf("Keys = %+v", entries)
	}

	sub := db.Subscribe("dayLimit")
	defer sub.Close()
	if err := db.Delete("dayLimit"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if c := recv(t, sub); c.New != nil || string(c.Old) != "1" {
		t.Errorf("delete change = %s -> %s", c.Old, c.New)
	}

	var v int
	if ok, _ := db.Load("dayLimit", &v); ok {
		t.Error("key still present after Delete")
	}
}

func TestCatalogCache(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "plan.db"))

	if _, _, ok, err := db.LoadCatalog(); err != nil || ok {
		t.Fatalf("LoadCatalog on empty = %v, %v", ok, err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.SaveCatalog([]byte(`{"products":[]}`), at); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}
	payload, fetched, ok, err := db.LoadCatalog()
	if err != nil || !ok {
		t.Fatalf("LoadCatalog = %v, %v", ok, err)
	}
	if string(payload) != `{"products":[]}` {
		t.Errorf("payload = %s", payload)
	}
	if !fetched.Equal(at) {
		t.Errorf("fetched = %v, want %v", fetched, at)
	}

	if err := db.ClearCatalog(); err != nil {
		t.Fatalf("ClearCatalog: %v", err)
	}
	if _, _, ok, _ := db.LoadCatalog(); ok {
		t.Error("catalog still cached after ClearCatalog")
	}
}
