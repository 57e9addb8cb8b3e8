package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-core/internal/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer buffers messages for one topic and writes them from a single goroutine.
type Producer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
	inbox chan kafka.Message
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("topic", topic))
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true, // fire-and-forget untuk throughput; error dilog di Completion
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					metrics.EventsPublished.WithLabelValues(topic, "error").Add(float64(len(msgs)))
					log.Error("kafka write failed", zap.Int("messages", len(msgs)), zap.Error(err))
				}
			},
		},
		topic: topic,
		log:   log,
		inbox: make(chan kafka.Message, buf),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				p.flush()
				return
			case <-p.stop:
				p.flush()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// flush writes whatever is still buffered, then closes the writer.
func (p *Producer) flush() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				p.log.Warn("kafka writer close", zap.Error(err))
			}
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		metrics.EventsPublished.WithLabelValues(p.topic, "error").Inc()
		p.log.Error("kafka enqueue failed", zap.ByteString("key", m.Key), zap.Error(err))
	}
}

// Publish never blocks the caller: a full buffer or a stopped producer drops the
// message and reports false.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) bool {
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case <-p.stop:
	default:
		select {
		case p.inbox <- m:
			metrics.EventsPublished.WithLabelValues(p.topic, "queued").Inc()
			return true
		default:
		}
	}
	metrics.EventsPublished.WithLabelValues(p.topic, "dropped").Inc()
	p.log.Warn("kafka message dropped", zap.ByteString("key", key))
	return false
}

// Close asks the goroutine to flush and exit. Safe to call more than once.
func (p *Producer) Close() { p.once.Do(func() { close(p.stop) }) }

// Tunggu sampai goroutine selesai.
func (p *Producer) WaitClosed() { <-p.done }
