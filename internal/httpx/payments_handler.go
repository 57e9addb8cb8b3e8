package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-shop-core/internal/logging"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const HeaderIdempotentReplay = "Idempotent-Replay"

type WebhookReq struct {
	OrderID       int64            `json:"order_id" validate:"required,gt=0"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
	Provider      string           `json:"provider" validate:"required,max=50"`
	Status        string           `json:"status" validate:"required"`
	TransactionID string           `json:"transaction_id" validate:"omitempty,max=255"`
}

// OrderReader loads an order as committed.
type OrderReader interface {
	Get(ctx context.Context, orderID int64) (orders.Order, error)
}

type PaymentsHandler struct {
	Ledger *orders.Ledger
	Orders OrderReader // refreshes the cache after a payment; nil only invalidates
	Cache  OrderCache  // nil disables caching
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/payments/webhook", h.webhook)
	r.Get("/payments/{order_id}", h.list)
}

// webhook answers 201 for first delivery and replays alike; replays carry the
// Idempotent-Replay header and the stored payment.
func (h *PaymentsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pay, replayed, err := h.Ledger.ApplyWebhook(r.Context(), orders.Webhook{
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
		OrderID:       req.OrderID,
		Status:        req.Status,
		Amount:        *req.Amount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if replayed {
		w.Header().Set(HeaderIdempotentReplay, "true")
	} else {
		h.refreshCache(r.Context(), pay.OrderID)
	}
	writeJSON(w, http.StatusCreated, pay)
}

// refreshCache writes the post-payment order so that a details read racing the
// webhook cannot leave PENDING_PAYMENT behind; OrderCache.Put refuses to
// replace a terminal status. Falls back to dropping the key.
func (h *PaymentsHandler) refreshCache(ctx context.Context, orderID int64) {
	if h.Cache == nil {
		return
	}
	log := logging.FromContext(ctx)
	if h.Orders != nil {
		o, err := h.Orders.Get(ctx, orderID)
		if err == nil {
			if err = h.Cache.Put(ctx, o); err == nil {
				return
			}
		}
		log.Warn("order cache refresh", zap.Int64("order_id", orderID), zap.Error(err))
	}
	if err := h.Cache.Invalidate(ctx, orderID); err != nil {
		log.Warn("order cache invalidate", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (h *PaymentsHandler) list(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "order_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := h.Ledger.PaymentsFor(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
