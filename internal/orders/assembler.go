package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ariefcatur/go-shop-core/internal/metrics"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Assembler turns a cart or a single product into a committed order.
type Assembler struct {
	store  Store
	pub    Publisher
	log    *zap.Logger
	tracer trace.Tracer
}

func NewAssembler(store Store, pub Publisher, log *zap.Logger) *Assembler {
	if pub == nil {
		pub = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{store: store, pub: pub, log: log, tracer: otel.Tracer("orders.assembler")}
}

type lineItem struct {
	productID int64
	quantity  int
}

// FromCart reserves stock for every line of the user's cart in insertion order,
// creates a PENDING_PAYMENT order priced at current catalog prices and empties
// the cart. The first failing line aborts the whole operation.
func (a *Assembler) FromCart(ctx context.Context, userID int64) (Order, error) {
	ctx, span := a.tracer.Start(ctx, "Assembler.FromCart", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	var order Order
	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		lines, err := tx.CartLines(ctx, userID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(lines) == 0 {
			return &NotFoundError{Entity: "cart", ID: userID}
		}
		items := make([]lineItem, 0, len(lines))
		for _, l := range lines {
			items = append(items, lineItem{productID: l.ProductID, quantity: l.Quantity})
		}
		order, err = a.assemble(ctx, tx, userID, items)
		if err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		a.fail(span, "order from cart failed", err, zap.Int64("user_id", userID))
		return Order{}, err
	}

	a.log.Info("order created from cart",
		zap.Int64("order_id", order.ID), zap.Int64("user_id", userID), zap.String("total", order.TotalAmount.StringFixed(2)))
	metrics.OrdersCreated.WithLabelValues(SourceCart).Inc()
	a.pub.OrderCreated(ctx, order, SourceCart)
	return order, nil
}

// Direct buys quantity units of a single product.
func (a *Assembler) Direct(ctx context.Context, userID, productID int64, quantity int) (Order, error) {
	ctx, span := a.tracer.Start(ctx, "Assembler.Direct", trace.WithAttributes(
		attribute.Int64("user.id", userID), attribute.Int64("product.id", productID), attribute.Int("quantity", quantity)))
	defer span.End()

	var order Order
	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		order, err = a.assemble(ctx, tx, userID, []lineItem{{productID: productID, quantity: quantity}})
		return err
	})
	if err != nil {
		a.fail(span, "direct order failed", err,
			zap.Int64("user_id", userID), zap.Int64("product_id", productID), zap.Int("quantity", quantity))
		return Order{}, err
	}

	a.log.Info("order created direct",
		zap.Int64("order_id", order.ID), zap.Int64("user_id", userID), zap.Int64("product_id", productID))
	metrics.OrdersCreated.WithLabelValues(SourceDirect).Inc()
	a.pub.OrderCreated(ctx, order, SourceDirect)
	return order, nil
}

// assemble reserves and prices each item, then inserts the order. Locks on every
// touched product are held by tx until it ends.
func (a *Assembler) assemble(ctx context.Context, tx Tx, userID int64, items []lineItem) (Order, error) {
	if err := lockInIDOrder(ctx, tx, items); err != nil {
		return Order{}, err
	}

	total := decimal.Zero
	orderItems := make([]OrderItem, 0, len(items))
	for _, it := range items {
		p, err := Reserve(ctx, tx, it.productID, it.quantity)
		if err != nil {
			return Order{}, err
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.quantity))))
		orderItems = append(orderItems, OrderItem{ProductID: p.ID, Quantity: it.quantity, UnitPrice: p.Price})
	}

	total = total.Round(2)
	if err := checkAmount("order total", total); err != nil {
		return Order{}, err
	}

	o, err := tx.InsertOrder(ctx, Order{
		UserID:      userID,
		TotalAmount: total,
		Status:      StatusPendingPayment,
		Items:       orderItems,
	})
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// lockInIDOrder takes the product row locks in ascending id before any line is
// reserved, so two carts holding the same products in different order queue on
// the first shared row instead of deadlocking. Missing products are left for
// Reserve to report in line order.
func lockInIDOrder(ctx context.Context, tx Tx, items []lineItem) error {
	if len(items) < 2 {
		return nil
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.productID)
	}
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if _, err := tx.LockProduct(ctx, id); err != nil && !isNotFound(err) {
			return fmt.Errorf("lock product %d: %w", id, err)
		}
	}
	return nil
}

// ListForUser returns the user's orders, newest first.
func (a *Assembler) ListForUser(ctx context.Context, userID int64) ([]Order, error) {
	var out []Order
	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.OrdersByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no orders for user %d: %w", userID, ErrNotFound)
	}
	return out, nil
}

func (a *Assembler) Get(ctx context.Context, orderID int64) (Order, error) {
	var o Order
	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, orderID)
		return notFound("order", orderID, err)
	})
	return o, err
}

func (a *Assembler) fail(span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, ErrInsufficientStock) {
		metrics.StockRejections.Inc()
	}
	if isDomainError(err) {
		a.log.Warn(msg, append(fields, zap.Error(err))...)
		return
	}
	a.log.Error(msg, append(fields, zap.Error(err))...)
}
