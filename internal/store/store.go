// Package store provides a SQLite-backed JSON key/value store with change
// notifications shared by every process that opens the same database file.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register sqlite driver
)

const (
	defaultWatchInterval = 500 * time.Millisecond
	subscriberBuffer     = 16
)

var (
	// ErrMalformed indicates a stored value could not be decoded into the
	// requested type. Callers treat it the same as a missing value.
	ErrMalformed = errors.New("store: malformed value")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Change describes one committed write to a key.
type Change struct {
	Key    string          `json:"key"`
	Old    json.RawMessage `json:"old,omitempty"`
	New    json.RawMessage `json:"new,omitempty"`
	Origin string          `json:"origin"`
	Rev    int64           `json:"rev"`
	At     time.Time       `json:"at"`
}

// Subscription delivers changes for the keys it was registered with.
type Subscription struct {
	Changes <-chan Change
	cancel  func()
}

// Close unregisters the subscription and closes its channel. It is safe to
// call more than once.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriber struct {
	keys map[string]struct{} // empty means every key
	ch   chan Change
}

func (s *subscriber) wants(key string) bool {
	if len(s.keys) == 0 {
		return true
	}
	_, ok := s.keys[key]
	return ok
}

// DB is a key/value store backed by a single SQLite file.
type DB struct {
	db     *sql.DB
	path   string
	origin string

	mu        sync.Mutex
	closed    bool
	nextSubID int
	subs      map[int]*subscriber
	lastRev   int64
	seen      map[string]string

	// poll runs one watch pass; Watch calls it on every tick.
	poll     pollFunc
	watchErr error
}

// DataDir returns the platform-appropriate data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mealplan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mealplan")
}

// DefaultPath returns the default store database path.
func DefaultPath() string {
	return filepath.Join(DataDir(), "plan.db")
}

// Open opens or creates the store database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	var rev int64
	if err := db.QueryRow("SELECT rev FROM kv_rev WHERE id = 1").Scan(&rev); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reading revision: %w", err)
	}

	d := &DB{
		db:      db,
		path:    dbPath,
		origin:  uuid.NewString(),
		subs:    make(map[int]*subscriber),
		lastRev: rev,
		seen:    make(map[string]string),
	}
	d.poll = d.Poll
	return d, nil
}

// Close closes every subscription and the underlying database.
func (d *DB) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for id, sub := range d.subs {
		close(sub.ch)
		delete(d.subs, id)
	}
	d.mu.Unlock()

	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Origin returns the identifier stamped on writes made through this handle.
func (d *DB) Origin() string {
	return d.origin
}

// Load decodes the value stored under key into dst. It reports false when the
// key is absent. A value that does not decode returns an error wrapping
// ErrMalformed and leaves dst in an unspecified state.
func (d *DB) Load(key string, dst any) (bool, error) {
	var raw string
	err := d.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", key, err)
	}

	d.mu.Lock()
	d.seen[key] = raw
	d.mu.Unlock()

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return true, nil
}

// Save serializes v and stores it under key. Nothing is written, and no
// change is published, when the serialization equals the stored value. It
// reports whether a write happened.
func (d *DB) Save(key string, v any) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", key, err)
	}

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return false, ErrClosed
	}

	tx, err := d.db.Begin()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	// Bump the revision first so the transaction takes the write lock up front.
	var rev int64
	if err := tx.QueryRow("UPDATE kv_rev SET rev = rev + 1 WHERE id = 1 RETURNING rev").Scan(&rev); err != nil {
		return false, fmt.Errorf("bumping revision: %w", err)
	}

	var old sql.NullString
	err = tx.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&old)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if old.Valid && old.String == string(data) {
		return false, nil
	}

	now := time.Now().UTC()
	_, err = tx.Exec(`INSERT INTO kv (key, value, rev, origin, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			rev = excluded.rev,
			origin = excluded.origin,
			updated_at = excluded.updated_at`,
		key, string(data), rev, d.origin, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("writing %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	c := Change{
		Key:    key,
		New:    json.RawMessage(data),
		Origin: d.origin,
		Rev:    rev,
		At:     now,
	}
	if old.Valid {
		c.Old = json.RawMessage(old.String)
	}

	d.mu.Lock()
	d.seen[key] = string(data)
	d.publishLocked(c)
	d.mu.Unlock()

	return true, nil
}

// Delete removes key. Local subscribers receive a change with an empty New
// value. Deletions are not propagated to other processes.
func (d *DB) Delete(key string) error {
	var old sql.NullString
	err := d.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := d.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}

	d.mu.Lock()
	delete(d.seen, key)
	d.publishLocked(Change{
		Key:    key,
		Old:    json.RawMessage(old.String),
		Origin: d.origin,
		At:     time.Now().UTC(),
	})
	d.mu.Unlock()
	return nil
}

// Entry is one stored key with its metadata.
type Entry struct {
	Key       string
	Size      int
	Rev       int64
	UpdatedAt time.Time
}

// Keys lists every stored key ordered by name.
func (d *DB) Keys() ([]Entry, error) {
	rows, err := d.db.Query("SELECT key, length(value), rev, updated_at FROM kv ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updated string
		if err := rows.Scan(&e.Key, &e.Size, &e.Rev, &updated); err != nil {
			return nil, err
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Subscribe registers interest in the given keys, or in every key when none
// are given. The caller must Close the subscription when done.
func (d *DB) Subscribe(keys ...string) Subscription {
	sub := &subscriber{
		keys: make(map[string]struct{}, len(keys)),
		ch:   make(chan Change, subscriberBuffer),
	}
	for _, k := range keys {
		sub.keys[k] = struct{}{}
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		close(sub.ch)
		return Subscription{Changes: sub.ch}
	}
	d.nextSubID++
	id := d.nextSubID
	d.subs[id] = sub
	d.mu.Unlock()

	var once sync.Once
	return Subscription{
		Changes: sub.ch,
		cancel: func() {
			once.Do(func() { d.removeSubscriber(id) })
		},
	}
}

// SubscriberCount returns the number of active subscriptions.
func (d *DB) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

func (d *DB) removeSubscriber(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sub, ok := d.subs[id]; ok {
		close(sub.ch)
		delete(d.subs, id)
	}
}

// publishLocked fans c out to matching subscribers without blocking. A full
// subscriber loses its oldest pending change so the newest state always lands.
// d.mu must be held.
func (d *DB) publishLocked(c Change) {
	for _, sub := range d.subs {
		if !sub.wants(c.Key) {
			continue
		}
		select {
		case sub.ch <- c:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- c:
		default:
		}
	}
}
