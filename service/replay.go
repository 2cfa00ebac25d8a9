package service

import (
	"go.uber.org/zap"

	"hermes/domain/orderbook"
	entrywal "hermes/infra/wal/entry"
	"hermes/snapshot"
)

/*
Restore rebuilds in-memory state before any traffic is accepted:

 1. load the latest snapshot, if one exists, and place its resting orders
    directly into the books with their original ids and arrival sequences;
 2. replay entry-WAL records with seq beyond the snapshot, re-running the
    matching deterministically.

Engines still carry the no-op sink here: the events of replayed commands
were delivered in the previous run. The caller attaches the live sink once
Restore returns.
*/
func (s *OrderService) Restore(snapDir, walDir string) error {
	var snapSeq uint64

	snap, err := snapshot.Load(snapDir)
	if err != nil {
		return err
	}
	if snap != nil {
		snapSeq = snap.WALSeq
		s.restoreSnapshot(snap)
		s.log.Info("snapshot restored",
			zap.Uint64("wal_seq", snap.WALSeq),
			zap.Time("created", snap.Created))
	}

	lastSeq, err := entrywal.Replay(walDir, func(rec *entrywal.Record) error {
		if rec.Seq <= snapSeq {
			return nil
		}
		return s.applyRecord(rec)
	})
	if err != nil {
		return err
	}

	if lastSeq < snapSeq {
		lastSeq = snapSeq
	}
	s.seqs.WAL.Reset(lastSeq)

	s.log.Info("wal replay complete", zap.Uint64("last_seq", lastSeq))
	return nil
}

func (s *OrderService) restoreSnapshot(snap *snapshot.Snapshot) {
	for _, bs := range snap.Books {
		sh, ok := s.shards[bs.Symbol]
		if !ok {
			s.log.Warn("snapshot contains unknown symbol", zap.String("symbol", bs.Symbol))
			continue
		}
		restoreSide := func(levels []snapshot.LevelEntry, side orderbook.Side) {
			for _, lvl := range levels {
				for _, o := range lvl.Orders {
					sh.eng.RestoreResting(o.ID, o.ClientID, side, lvl.Price, o.Remaining, o.Seq)
					s.route.Store(o.ID, bs.Symbol)
				}
			}
		}
		restoreSide(bs.Bids, orderbook.Buy)
		restoreSide(bs.Asks, orderbook.Sell)
	}

	s.seqs.Arrival.Bump(snap.ArrivalSeq)
	s.seqs.Order.Bump(snap.OrderSeq)
	s.seqs.Trade.Bump(snap.TradeSeq)
}

func (s *OrderService) applyRecord(rec *entrywal.Record) error {
	switch rec.Type {
	case entrywal.RecordSubmit:
		cmd, err := decodeSubmit(rec.Data)
		if err != nil {
			return err
		}
		sh, ok := s.shards[cmd.Symbol]
		if !ok {
			s.log.Warn("replay: unknown symbol", zap.String("symbol", cmd.Symbol))
			return nil
		}
		sh.eng.ReplaySubmit(cmd.ID, cmd.Seq, cmd.Client, cmd.Side, cmd.Price, cmd.Qty)
		s.route.Store(cmd.ID, cmd.Symbol)

	case entrywal.RecordCancel:
		id := string(rec.Data)
		if sh, ok := s.shardFor(id); ok {
			sh.eng.ReplayCancel(id)
		}

	case entrywal.RecordModify:
		cmd, err := decodeModify(rec.Data)
		if err != nil {
			return err
		}
		if sh, ok := s.shardFor(cmd.ID); ok {
			sh.eng.ReplayModify(cmd.ID, cmd.Seq, cmd.Price, cmd.Qty)
		}
	}
	return nil
}
