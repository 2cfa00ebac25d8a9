package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	exitwal "hermes/infra/wal/exit"
)

// Broadcaster drains the exit WAL to Kafka with at-least-once semantics.
// Records move NEW -> SENT -> ACKED; anything not ACKED is retried on the
// next tick, so a crash anywhere in the loop can duplicate but never lose.
type Broadcaster struct {
	exitWAL  *exitwal.ExitWAL
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(exitWAL *exitwal.ExitWAL, brokers []string, topic string, interval time.Duration, log *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	return &Broadcaster{
		exitWAL:  exitWAL,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

// Start runs the drain loop until ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

func (b *Broadcaster) drainOnce() {
	err := b.exitWAL.ScanPending(func(seq uint64, rec exitwal.Record) error {
		if err := b.exitWAL.MarkSent(seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("broadcast publish failed, will retry",
				zap.Uint64("seq", seq), zap.Error(err))
			return nil // retry on next tick
		}

		return b.exitWAL.MarkAcked(seq)
	})
	if err != nil {
		b.log.Error("broadcast scan failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
