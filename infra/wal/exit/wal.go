package exit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// The exit WAL is the delivery-state store between the engine's event
// stream and the Kafka broadcaster. Every emitted event is appended here
// first; the broadcaster walks pending records, publishes them, and marks
// them SENT then ACKED. Acked records are garbage-collected by the
// snapshot job.

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type Record struct {
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][len:4][payload]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 1+4+8+4+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint32(buf[13:17], uint32(len(r.Payload)))
	copy(buf[17:], r.Payload)
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) < 17 {
		return Record{}, errors.New("invalid exit record length")
	}
	l := binary.BigEndian.Uint32(b[13:17])
	if uint32(len(b)-17) != l {
		return Record{}, errors.New("invalid exit record payload length")
	}
	payload := make([]byte, l)
	copy(payload, b[17:])
	return Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

// -------------------- WAL --------------------

type ExitWAL struct {
	db *pebble.DB
}

func Open(dir string) (*ExitWAL, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &ExitWAL{db: db}, nil
}

func (w *ExitWAL) Close() error {
	return w.db.Close()
}

// Append inserts a new outbox entry for an emitted event.
func (w *ExitWAL) Append(seq uint64, payload []byte) error {
	rec := Record{State: StateNew, Payload: payload}
	return w.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// MarkSent transitions a record to SENT before the publish attempt, so a
// crash between publish and ack can at worst duplicate, never lose.
func (w *ExitWAL) MarkSent(seq uint64) error {
	return w.updateState(seq, StateSent)
}

// MarkAcked transitions a record to ACKED after the broker accepted it.
func (w *ExitWAL) MarkAcked(seq uint64) error {
	return w.updateState(seq, StateAcked)
}

func (w *ExitWAL) updateState(seq uint64, state State) error {
	rec, err := w.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries++
	rec.LastAttempt = time.Now().UnixNano()
	return w.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Get returns the current record for an event seq.
func (w *ExitWAL) Get(seq uint64) (Record, error) {
	val, closer, err := w.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(val)
}

// ScanPending iterates records not yet ACKED, in seq order.
func (w *ExitWAL) ScanPending(fn func(seq uint64, rec Record) error) error {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State == StateAcked {
			continue
		}

		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}

		if err := fn(seq, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// MaxSeq returns the highest event seq present, 0 when empty. Used at
// startup so the outbox sink continues the sequence space.
func (w *ExitWAL) MaxSeq() (uint64, error) {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// TruncateAckedUpTo deletes ACKED records with seq <= upTo.
func (w *ExitWAL) TruncateAckedUpTo(upTo uint64) error {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != StateAcked {
			continue
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if seq <= upTo {
			if err := w.db.Delete(keyFor(seq), pebble.Sync); err != nil {
				return err
			}
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

const keyPrefix = "event/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}
