package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hermes/domain/orderbook"
	"hermes/infra/memory"
	exitwal "hermes/infra/wal/exit"
	"hermes/snapshot"
)

// SnapshotDeps wires the stores the job maintains alongside the snapshot.
type SnapshotDeps struct {
	Writer    *snapshot.Writer
	ExitWAL   *exitwal.ExitWAL
	OutboxSeq func() uint64
}

// StartSnapshotJob periodically captures a consistent snapshot, truncates
// the entry WAL behind it, GCs acked outbox records and reclaims retired
// orders.
func (s *OrderService) StartSnapshotJob(ctx context.Context, deps SnapshotDeps, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := s.WriteSnapshot(deps); err != nil {
					s.log.Error("snapshot failed", zap.Error(err))
				}
			}
		}
	}()
}

// WriteSnapshot captures all books under a global pause so the snapshot is
// exactly the state after the last logged command: every shard lock and the
// WAL mutex are held while walking, which briefly stops admission.
func (s *OrderService) WriteSnapshot(deps SnapshotDeps) error {
	names := s.Symbols()
	shards := make([]*shard, 0, len(names))
	for _, n := range names {
		shards = append(shards, s.shards[n])
	}

	// Lock in sorted symbol order; consistent order keeps this
	// deadlock-free against any future multi-shard path.
	for _, sh := range shards {
		sh.mu.Lock()
	}
	s.walMu.Lock()

	snap := &snapshot.Snapshot{
		WALSeq:     s.seqs.WAL.Current(),
		ArrivalSeq: s.seqs.Arrival.Current(),
		OrderSeq:   s.seqs.Order.Current(),
		TradeSeq:   s.seqs.Trade.Current(),
		Created:    time.Now(),
	}
	if deps.OutboxSeq != nil {
		snap.OutboxSeq = deps.OutboxSeq()
	}
	for i, sh := range shards {
		snap.Books = append(snap.Books, captureBook(names[i], sh.book))
	}

	s.walMu.Unlock()
	for i := len(shards) - 1; i >= 0; i-- {
		shards[i].mu.Unlock()
	}

	if err := deps.Writer.Write(snap); err != nil {
		return err
	}

	if s.wal != nil {
		s.walMu.Lock()
		_ = s.wal.Sync()
		_ = s.wal.TruncateBefore(snap.WALSeq)
		s.walMu.Unlock()
	}
	if deps.ExitWAL != nil && snap.OutboxSeq > 0 {
		_ = deps.ExitWAL.TruncateAckedUpTo(snap.OutboxSeq)
	}

	// Reclaim retired orders; nothing is recycled while a depth reader is
	// inside its read section.
	for _, sh := range shards {
		memory.AdvanceEpochAndReclaim(sh.ring, sh.pool, s.reader.Epoch())
	}

	s.log.Debug("snapshot written", zap.Uint64("wal_seq", snap.WALSeq))
	return nil
}

func captureBook(symbol string, book *orderbook.OrderBook) snapshot.BookSnapshot {
	bs := snapshot.BookSnapshot{Symbol: symbol}

	capture := func(tree *orderbook.RBTree, desc bool) []snapshot.LevelEntry {
		var out []snapshot.LevelEntry
		visit := func(lvl *orderbook.PriceLevel) bool {
			entry := snapshot.LevelEntry{Price: lvl.Price}
			for o := lvl.Head(); o != nil; o = o.Next() {
				entry.Orders = append(entry.Orders, snapshot.OrderEntry{
					ID:        o.ID,
					ClientID:  o.ClientID,
					Remaining: o.Remaining(),
					Seq:       o.Seq,
				})
			}
			out = append(out, entry)
			return true
		}
		if desc {
			tree.ForEachDescending(visit)
		} else {
			tree.ForEachAscending(visit)
		}
		return out
	}

	bs.Bids = capture(book.Bids, true)
	bs.Asks = capture(book.Asks, false)
	return bs
}
