package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-shop-core/internal/metrics"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Webhook is a provider's report about a payment attempt for an order.
type Webhook struct {
	Provider      string
	TransactionID string // optional; empty disables replay detection
	OrderID       int64
	Status        string
	Amount        decimal.Decimal
}

// Ledger records payment attempts and moves orders out of PENDING_PAYMENT.
type Ledger struct {
	store  Store
	pub    Publisher
	log    *zap.Logger
	tracer trace.Tracer
}

func NewLedger(store Store, pub Publisher, log *zap.Logger) *Ledger {
	if pub == nil {
		pub = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, pub: pub, log: log, tracer: otel.Tracer("orders.ledger")}
}

// ApplyWebhook records the payment and applies its outcome to the order. A
// transaction id that was already recorded returns the stored payment with
// replayed set and changes nothing.
func (l *Ledger) ApplyWebhook(ctx context.Context, wh Webhook) (Payment, bool, error) {
	ctx, span := l.tracer.Start(ctx, "Ledger.ApplyWebhook", trace.WithAttributes(
		attribute.Int64("order.id", wh.OrderID),
		attribute.String("payment.provider", wh.Provider),
		attribute.String("payment.transaction_id", wh.TransactionID),
	))
	defer span.End()

	status, err := ParsePaymentStatus(wh.Status)
	if err != nil {
		return Payment{}, false, l.fail(span, wh, err)
	}
	if err := checkAmount("amount", wh.Amount.Round(2)); err != nil {
		return Payment{}, false, l.fail(span, wh, err)
	}
	provider := strings.TrimSpace(wh.Provider)
	if provider == "" {
		return Payment{}, false, l.fail(span, wh, fmt.Errorf("%w: provider is required", ErrInvalid))
	}
	txID := strings.TrimSpace(wh.TransactionID)

	var (
		pay      Payment
		order    Order
		replayed bool
		terminal bool
	)
	err = l.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if txID != "" {
			existing, err := tx.PaymentByTransaction(ctx, txID)
			if err == nil {
				pay, replayed = existing, true
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("lookup transaction %q: %w", txID, err)
			}
		}

		o, err := tx.LockOrder(ctx, wh.OrderID)
		if err != nil {
			return notFound("order", wh.OrderID, err)
		}

		// a duplicate delivery that won the order lock first is visible now
		if txID != "" {
			existing, err := tx.PaymentByTransaction(ctx, txID)
			if err == nil {
				pay, replayed = existing, true
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("lookup transaction %q: %w", txID, err)
			}
		}

		if !wh.Amount.Equal(o.TotalAmount) {
			l.log.Warn("payment amount differs from order total",
				zap.Int64("order_id", o.ID),
				zap.String("amount", wh.Amount.StringFixed(2)),
				zap.String("order_total", o.TotalAmount.StringFixed(2)))
		}

		p := Payment{OrderID: o.ID, Amount: wh.Amount.Round(2), Provider: provider, Status: status}
		if txID != "" {
			p.TransactionID = &txID
		}
		pay, err = tx.InsertPayment(ctx, p)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		next := OrderStatusFor(status)
		if CanTransition(o.Status, next) {
			if err := tx.SetOrderStatus(ctx, o.ID, next); err != nil {
				return fmt.Errorf("set order %d status: %w", o.ID, err)
			}
		} else {
			terminal = true
		}
		// reload with items; the event carries the order as committed
		order, err = tx.GetOrder(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("reload order %d: %w", o.ID, err)
		}
		return nil
	})

	if errors.Is(err, ErrConflict) && txID != "" {
		// lost a race on the transaction id unique key
		existing, rerr := l.paymentByTransaction(ctx, txID)
		if rerr == nil {
			pay, replayed, err = existing, true, nil
		}
	}
	if err != nil {
		return Payment{}, false, l.fail(span, wh, err)
	}

	switch {
	case replayed:
		metrics.PaymentsApplied.WithLabelValues(string(status), "replayed").Inc()
		span.SetAttributes(attribute.Bool("payment.replayed", true))
		l.log.Info("payment webhook replayed",
			zap.Int64("payment_id", pay.ID), zap.Int64("order_id", pay.OrderID), zap.String("transaction_id", txID))
		return pay, true, nil
	case terminal:
		metrics.PaymentsApplied.WithLabelValues(string(status), "terminal").Inc()
		l.log.Warn("payment recorded for order in terminal status",
			zap.Int64("payment_id", pay.ID), zap.Int64("order_id", order.ID),
			zap.String("order_status", string(order.Status)), zap.String("payment_status", string(status)))
	default:
		metrics.PaymentsApplied.WithLabelValues(string(status), "recorded").Inc()
		l.log.Info("payment recorded",
			zap.Int64("payment_id", pay.ID), zap.Int64("order_id", order.ID),
			zap.String("order_status", string(order.Status)))
	}

	l.pub.PaymentRecorded(ctx, pay, order)
	return pay, false, nil
}

// PaymentsFor lists an order's payments oldest first. An existing order without
// payments yields an empty list.
func (l *Ledger) PaymentsFor(ctx context.Context, orderID int64) ([]Payment, error) {
	out := []Payment{}
	err := l.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetOrder(ctx, orderID); err != nil {
			return notFound("order", orderID, err)
		}
		ps, err := tx.PaymentsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		out = append(out, ps...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) paymentByTransaction(ctx context.Context, txID string) (Payment, error) {
	var p Payment
	err := l.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		p, err = tx.PaymentByTransaction(ctx, txID)
		return err
	})
	return p, err
}

func (l *Ledger) fail(span trace.Span, wh Webhook, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	fields := []zap.Field{zap.Int64("order_id", wh.OrderID), zap.String("transaction_id", wh.TransactionID), zap.Error(err)}
	if isDomainError(err) {
		l.log.Warn("payment webhook rejected", fields...)
	} else {
		l.log.Error("payment webhook failed", fields...)
	}
	return err
}
