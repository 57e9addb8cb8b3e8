package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	commits   []kafka.Message
	committed chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{pending: msgs, committed: make(chan struct{}, len(msgs))}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.commits = append(r.commits, msgs...)
	r.mu.Unlock()
	for range msgs {
		r.committed <- struct{}{}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committedOffsets(partition int) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, m := range r.commits {
		if m.Partition == partition {
			out = append(out, m.Offset)
		}
	}
	return out
}

func testConsumer(r reader, workers int) *Consumer {
	return &Consumer{r: r, workers: workers, log: zap.NewNop(), retryMin: time.Millisecond, retryMax: 4 * time.Millisecond}
}

func TestConsumerRetriesFailedMessageBeforeLaterOffsets(t *testing.T) {
	r := newFakeReader(
		kafka.Message{Partition: 0, Offset: 10},
		kafka.Message{Partition: 1, Offset: 5},
		kafka.Message{Partition: 0, Offset: 11},
	)

	var (
		mu       sync.Mutex
		attempts = map[int64]int{}
		handled  []int64 // partition 0, successful only
	)
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[m.Offset]++
		if m.Offset == 10 && attempts[10] < 3 {
			return errors.New("cache down")
		}
		if m.Partition == 0 {
			handled = append(handled, m.Offset)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- testConsumer(r, 4).Start(ctx, h) }()

	for i := 0; i < 3; i++ {
		select {
		case <-r.committed:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d commits", i)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := r.committedOffsets(0); len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("partition 0 commits = %v, want [10 11]", got)
	}
	if len(handled) != 2 || handled[0] != 10 || handled[1] != 11 {
		t.Fatalf("partition 0 handled = %v, want [10 11]", handled)
	}
	if attempts[10] != 3 || attempts[11] != 1 {
		t.Fatalf("attempts = %v", attempts)
	}
}

func TestConsumerStopsWithoutCommittingFailingMessage(t *testing.T) {
	r := newFakeReader(
		kafka.Message{Partition: 0, Offset: 1},
		kafka.Message{Partition: 0, Offset: 2},
	)

	calls := make(chan int64, 16)
	h := func(_ context.Context, m kafka.Message) error {
		select {
		case calls <- m.Offset:
		default:
		}
		return errors.New("always fails")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- testConsumer(r, 2).Start(ctx, h) }()

	// let it retry a few times
	for i := 0; i < 3; i++ {
		select {
		case off := <-calls:
			if off != 1 {
				t.Fatalf("offset %d handled while offset 1 still failing", off)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("handler not retried")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := r.committedOffsets(0); len(got) != 0 {
		t.Fatalf("commits = %v, want none", got)
	}
}
