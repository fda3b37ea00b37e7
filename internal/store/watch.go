package store

import (
	"context"
	"encoding/json"
	"time"
)

type pollFunc func(context.Context) (int, error)

// Watch polls the database for writes made by other handles, in this process
// or another, and publishes them to local subscribers. A failed pass is
// recorded in WatchErr and retried on the next tick. Watch blocks until ctx
// is cancelled and returns its error.
func (d *DB) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultWatchInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := d.poll(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.mu.Lock()
			d.watchErr = err
			d.mu.Unlock()
		}
	}
}

// WatchErr returns the error of the latest watch pass, or nil when it
// succeeded.
func (d *DB) WatchErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watchErr
}

// Poll runs a single watch pass and returns the number of external changes
// published.
func (d *DB) Poll(ctx context.Context) (int, error) {
	d.mu.Lock()
	since := d.lastRev
	d.mu.Unlock()

	rows, err := d.db.QueryContext(ctx,
		"SELECT key, value, rev, origin, updated_at FROM kv WHERE rev > ? ORDER BY rev", since)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	type row struct {
		key, value, origin, updated string
		rev                         int64
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.value, &r.rev, &r.origin, &r.updated); err != nil {
			return 0, err
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	published := 0
	for _, r := range pending {
		if r.rev > d.lastRev {
			d.lastRev = r.rev
		}
		if r.origin == d.origin {
			continue
		}
		prev, known := d.seen[r.key]
		if known && prev == r.value {
			continue
		}
		at, _ := time.Parse(time.RFC3339Nano, r.updated)
		c := Change{
			Key:    r.key,
			New:    json.RawMessage(r.value),
			Origin: r.origin,
			Rev:    r.rev,
			At:     at,
		}
		if known {
			c.Old = json.RawMessage(prev)
		}
		d.seen[r.key] = r.value
		d.publishLocked(c)
		published++
	}
	return published, nil
}
