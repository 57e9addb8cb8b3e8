package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

// reader is the part of *kafka.Reader the consumer drives.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r        reader
	workers  int
	log      *zap.Logger
	retryMin time.Duration
	retryMax time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		r:        r,
		workers:  workers,
		log:      log.With(zap.String("topic", topic), zap.String("group", group)),
		retryMin: 200 * time.Millisecond,
		retryMax: 10 * time.Second,
	}
}

// Start blocks until ctx is cancelled or the reader fails.
//
// Every partition is pinned to one worker, so its messages are handled and
// committed strictly in offset order. A failing message is retried with backoff
// until it succeeds or ctx ends; it is never skipped, because committing a later
// offset of the same partition would drop it for good. Uncommitted messages are
// delivered again after a restart.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 256)
		wg.Add(1)
		go func(id int, lane <-chan kafka.Message) {
			defer wg.Done()
			for m := range lane {
				if !c.process(ctx, h, id, m) {
					return
				}
			}
		}(i, lanes[i])
	}
	stop := func() {
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
	}

	// dispatcher loop
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			// kecilkan noise saat shutdown
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// process runs h until it succeeds, then commits m. It reports false when ctx
// ended first; m then stays uncommitted.
func (c *Consumer) process(ctx context.Context, h Handler, worker int, m kafka.Message) bool {
	delay := c.retryMin
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
				// commit offset berikutnya di partisi ini ikut menutup yang ini
				c.log.Error("commit failed", zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
			}
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.log.Warn("handler failed, retrying", zap.Int("worker", worker),
			zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt), zap.Duration("backoff", delay), zap.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		delay = min(delay*2, c.retryMax)
	}
}
