// Package ledger is the append-only record of settled payments. Storage is
// one bbolt file per replica ("shard") on a shared volume: each replica
// writes only its own shard, and answers summary queries by reading both.
package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
)

const (
	paymentsBucket = "payments"
	byTimeBucket   = "payments_by_time"
)

// peerLockTimeout bounds how long a summary query waits for the peer file's
// lock before treating that shard as empty.
const peerLockTimeout = 250 * time.Millisecond

// Shard is one bbolt-backed ledger partition.
//
// Layout: the payments bucket maps correlationId to a presence marker and
// enforces the per-shard primary key; payments_by_time maps
// big-endian(requestedAtMs) ++ correlationId to the gob-encoded record and
// serves range scans.
type Shard struct {
	db   *bolt.DB
	path string
}

// OpenShard opens (creating if needed) the shard file at path.
func OpenShard(path string) (*Shard, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open shard %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(paymentsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(byTimeBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Shard{db: db, path: path}, nil
}

// Close releases the shard file.
func (s *Shard) Close() error {
	return s.db.Close()
}

// Path returns the shard's file path.
func (s *Shard) Path() string {
	return s.path
}

// Insert commits a record in a single transaction. An existing correlationId
// is treated as success so that a retried commit stays idempotent.
func (s *Shard) Insert(rec model.PaymentRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		pk := tx.Bucket([]byte(paymentsBucket))
		key := []byte(rec.CorrelationID)
		if pk.Get(key) != nil {
			return nil
		}
		if err := pk.Put(key, []byte{1}); err != nil {
			return err
		}
		return tx.Bucket([]byte(byTimeBucket)).Put(timeKey(rec.RequestedAtMS, rec.CorrelationID), buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.CorrelationID, err)
	}
	return nil
}

// SummarizeRange aggregates records with requestedAtMs in [fromMS, toMS],
// inclusive on both ends, grouped by processor.
func (s *Shard) SummarizeRange(fromMS, toMS int64) (model.SummaryResponse, error) {
	out := model.ZeroSummary()
	if fromMS < 0 {
		fromMS = 0
	}
	if toMS < fromMS {
		return out, nil
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(byTimeBucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()

		seek := make([]byte, 8)
		binary.BigEndian.PutUint64(seek, uint64(fromMS))

		for k, v := c.Seek(seek); k != nil; k, v = c.Next() {
			if int64(binary.BigEndian.Uint64(k[:8])) > toMS {
				break
			}
			var rec model.PaymentRecord
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			switch rec.Processor {
			case model.ProcessorFallback:
				out.Fallback.TotalRequests++
				out.Fallback.TotalAmount = out.Fallback.TotalAmount.Add(rec.Amount)
			default:
				out.Default.TotalRequests++
				out.Default.TotalAmount = out.Default.TotalAmount.Add(rec.Amount)
			}
		}
		return nil
	})
	if err != nil {
		return model.ZeroSummary(), err
	}
	return out, nil
}

// Count returns the number of records in the shard.
func (s *Shard) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(paymentsBucket)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Purge drops every record. Used by the contest harness between runs.
func (s *Shard) Purge() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{[]byte(paymentsBucket), []byte(byTimeBucket)} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func timeKey(ms int64, correlationID string) []byte {
	k := make([]byte, 8+len(correlationID))
	binary.BigEndian.PutUint64(k, uint64(ms))
	copy(k[8:], correlationID)
	return k
}

// summarizePath opens the shard file at path read-only, scans the range, and
// closes it again. Opening per query keeps this replica from holding a lock
// on the peer's file between queries.
func summarizePath(path string, fromMS, toMS int64) (model.SummaryResponse, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: peerLockTimeout})
	if err != nil {
		return model.ZeroSummary(), fmt.Errorf("open %s read-only: %w", path, err)
	}
	defer db.Close()

	s := &Shard{db: db, path: path}
	return s.SummarizeRange(fromMS, toMS)
}

// Probe reports whether the shard file at path can be opened for reading.
func Probe(path string) bool {
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: peerLockTimeout})
	if err != nil {
		return false
	}
	db.Close()
	return true
}
