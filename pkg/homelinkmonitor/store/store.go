// Package store persists monitoring rows and events in a single bbolt file.
//
// Every row kind lives in its own bucket. Keys are the row timestamp as
// 8-byte big-endian UnixNano followed by the bucket sequence, so a cursor
// walk in key order is a walk in time order and range queries are seeks.
// Values are JSON.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vpbank/homelink_monitor/models"
)

// Bucket names.
const (
	bucketWifi       = "wifi"
	bucketNetwork    = "network"
	bucketPing       = "ping"
	bucketDNS        = "dns"
	bucketHTTP       = "http"
	bucketAlerts     = "alerts"
	bucketRoaming    = "roaming"
	bucketAlertIndex = "alert_index"
)

var (
	rawBuckets   = []string{bucketWifi, bucketNetwork, bucketPing, bucketDNS, bucketHTTP}
	eventBuckets = []string{bucketAlerts, bucketRoaming}
)

// ErrNotFound is returned when a keyed lookup has no match.
var ErrNotFound = errors.New("store: not found")

// Config holds the database settings.
type Config struct {
	Path        string
	OpenTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = "homelink.db"
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 2 * time.Second
	}
	return c
}

// Bolt is the bbolt-backed repository. It is safe for concurrent use.
type Bolt struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at cfg.Path and makes sure
// every bucket exists.
func Open(cfg Config, logger *slog.Logger) (*Bolt, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	cfg = cfg.withDefaults()

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: cfg.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range slices.Concat(rawBuckets, eventBuckets, []string{bucketAlertIndex}) {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init: %w", err)
	}
	logger.Info("store: database opened", "path", cfg.Path)
	return &Bolt{db: db, logger: logger}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// SaveSnapshot writes every constituent row of snap in one transaction.
// Rows without their own timestamp inherit the snapshot's.
func (b *Bolt) SaveSnapshot(ctx context.Context, snap models.MonitoringSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		if snap.Wifi != nil {
			if err := put(tx, bucketWifi, stamp(snap.Wifi.Timestamp, snap.Timestamp), snap.Wifi); err != nil {
				return err
			}
		}
		if snap.Network != nil {
			if err := put(tx, bucketNetwork, stamp(snap.Network.Timestamp, snap.Timestamp), snap.Network); err != nil {
				return err
			}
		}
		for _, p := range snap.PingResults {
			if err := put(tx, bucketPing, stamp(p.Timestamp, snap.Timestamp), p); err != nil {
				return err
			}
		}
		for _, d := range snap.DnsResults {
			if err := put(tx, bucketDNS, stamp(d.Timestamp, snap.Timestamp), d); err != nil {
				return err
			}
		}
		if snap.HttpProbe != nil {
			if err := put(tx, bucketHTTP, stamp(snap.HttpProbe.Timestamp, snap.Timestamp), snap.HttpProbe); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

// SaveAlert stores a new alert and indexes it by ID.
func (b *Bolt) SaveAlert(ctx context.Context, alert models.AlertEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucketAlerts))
		key, err := nextKey(bkt, alert.Timestamp)
		if err != nil {
			return err
		}
		if err := putJSON(bkt, key, alert); err != nil {
			return err
		}
		if alert.ID == "" {
			return nil
		}
		return tx.Bucket([]byte(bucketAlertIndex)).Put([]byte(alert.ID), key)
	})
	if err != nil {
		return fmt.Errorf("store: save alert: %w", err)
	}
	return nil
}

// SaveRoamingEvent stores a roaming event.
func (b *Bolt) SaveRoamingEvent(ctx context.Context, ev models.RoamingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketRoaming, ev.Timestamp, ev)
	})
	if err != nil {
		return fmt.Errorf("store: save roaming event: %w", err)
	}
	return nil
}

// AcknowledgeAlert marks the alert with the given ID as acknowledged. It
// returns ErrNotFound for an unknown ID.
func (b *Bolt) AcknowledgeAlert(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		key := tx.Bucket([]byte(bucketAlertIndex)).Get([]byte(id))
		if key == nil {
			return ErrNotFound
		}
		bkt := tx.Bucket([]byte(bucketAlerts))
		raw := bkt.Get(key)
		if raw == nil {
			return ErrNotFound
		}
		var a models.AlertEvent
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("store: decode alert %s: %w", id, err)
		}
		if a.IsAcknowledged {
			return nil
		}
		a.IsAcknowledged = true
		return putJSON(bkt, append([]byte(nil), key...), a)
	})
}

// Purge deletes raw rows older than rawBefore and alerts and roaming events
// older than alertBefore. It returns the number of rows removed.
func (b *Bolt) Purge(ctx context.Context, rawBefore, alertBefore time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range rawBuckets {
			n, err := deleteBefore(tx.Bucket([]byte(name)), rawBefore, nil)
			if err != nil {
				return fmt.Errorf("purge %s: %w", name, err)
			}
			removed += n
		}
		index := tx.Bucket([]byte(bucketAlertIndex))
		n, err := deleteBefore(tx.Bucket([]byte(bucketAlerts)), alertBefore, func(v []byte) error {
			var a models.AlertEvent
			if json.Unmarshal(v, &a) == nil && a.ID != "" {
				return index.Delete([]byte(a.ID))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("purge %s: %w", bucketAlerts, err)
		}
		removed += n
		n, err = deleteBefore(tx.Bucket([]byte(bucketRoaming)), alertBefore, nil)
		if err != nil {
			return fmt.Errorf("purge %s: %w", bucketRoaming, err)
		}
		removed += n
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("store: %w", err)
	}
	if removed > 0 {
		b.logger.Info("store: purged old rows", "removed", removed)
	}
	return removed, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// PingResults returns ping rows in [from, to], oldest first.
func (b *Bolt) PingResults(ctx context.Context, from, to time.Time) ([]models.PingResult, error) {
	return scan[models.PingResult](ctx, b.db, bucketPing, from, to, false)
}

// WifiSnapshots returns Wi-Fi rows in [from, to], oldest first.
func (b *Bolt) WifiSnapshots(ctx context.Context, from, to time.Time) ([]models.WifiSnapshot, error) {
	return scan[models.WifiSnapshot](ctx, b.db, bucketWifi, from, to, false)
}

// NetworkSnapshots returns adapter rows in [from, to], oldest first.
func (b *Bolt) NetworkSnapshots(ctx context.Context, from, to time.Time) ([]models.NetworkSnapshot, error) {
	return scan[models.NetworkSnapshot](ctx, b.db, bucketNetwork, from, to, false)
}

// DnsResults returns DNS rows in [from, to], oldest first.
func (b *Bolt) DnsResults(ctx context.Context, from, to time.Time) ([]models.DnsResult, error) {
	return scan[models.DnsResult](ctx, b.db, bucketDNS, from, to, false)
}

// HttpResults returns HTTP probe rows in [from, to], oldest first.
func (b *Bolt) HttpResults(ctx context.Context, from, to time.Time) ([]models.HttpProbeResult, error) {
	return scan[models.HttpProbeResult](ctx, b.db, bucketHTTP, from, to, false)
}

// Alerts returns alerts in [from, to], newest first.
func (b *Bolt) Alerts(ctx context.Context, from, to time.Time) ([]models.AlertEvent, error) {
	return scan[models.AlertEvent](ctx, b.db, bucketAlerts, from, to, true)
}

// RoamingEvents returns roaming events in [from, to], newest first.
func (b *Bolt) RoamingEvents(ctx context.Context, from, to time.Time) ([]models.RoamingEvent, error) {
	return scan[models.RoamingEvent](ctx, b.db, bucketRoaming, from, to, true)
}

// ─────────────────────────────────────────────────────────────────────────────
// Key and bucket helpers
// ─────────────────────────────────────────────────────────────────────────────

const keyLen = 16

var epoch = time.Unix(0, 0)

// timeKey encodes t as 8 big-endian bytes followed by seq. Times before the
// epoch, including the zero time, clamp to zero.
func timeKey(t time.Time, seq uint64) []byte {
	var ns uint64
	if t.After(epoch) {
		ns = uint64(t.UnixNano())
	}
	k := make([]byte, keyLen)
	binary.BigEndian.PutUint64(k[:8], ns)
	binary.BigEndian.PutUint64(k[8:], seq)
	return k
}

func keyTime(k []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(k[:8])))
}

func nextKey(bkt *bolt.Bucket, t time.Time) ([]byte, error) {
	seq, err := bkt.NextSequence()
	if err != nil {
		return nil, err
	}
	return timeKey(t, seq), nil
}

func put(tx *bolt.Tx, bucket string, t time.Time, v any) error {
	bkt := tx.Bucket([]byte(bucket))
	key, err := nextKey(bkt, t)
	if err != nil {
		return err
	}
	return putJSON(bkt, key, v)
}

func putJSON(bkt *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return bkt.Put(key, data)
}

func stamp(own, fallback time.Time) time.Time {
	if own.IsZero() {
		return fallback
	}
	return own
}

// deleteBefore removes every key older than cutoff. onDelete, when set, sees
// each value before removal.
func deleteBefore(bkt *bolt.Bucket, cutoff time.Time, onDelete func(v []byte) error) (int, error) {
	limit := timeKey(cutoff, 0)
	c := bkt.Cursor()
	n := 0
	for k, v := c.First(); k != nil && string(k) < string(limit); k, v = c.First() {
		if onDelete != nil {
			if err := onDelete(v); err != nil {
				return n, err
			}
		}
		if err := c.Delete(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func scan[T any](ctx context.Context, db *bolt.DB, bucket string, from, to time.Time, desc bool) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, nil
	}
	lo := timeKey(from, 0)
	hi := timeKey(to, ^uint64(0))

	var out []T
	err := db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		decode := func(k, v []byte) error {
			var row T
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("decode %s row at %s: %w", bucket, keyTime(k).Format(time.RFC3339Nano), err)
			}
			out = append(out, row)
			return nil
		}
		if !desc {
			for k, v := c.Seek(lo); k != nil && string(k) <= string(hi); k, v = c.Next() {
				if err := decode(k, v); err != nil {
					return err
				}
			}
			return nil
		}
		k, v := c.Seek(hi)
		switch {
		case k == nil:
			k, v = c.Last()
		case string(k) > string(hi):
			k, v = c.Prev()
		}
		for ; k != nil && string(k) >= string(lo); k, v = c.Prev() {
			if err := decode(k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", bucket, err)
	}
	return out, nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
