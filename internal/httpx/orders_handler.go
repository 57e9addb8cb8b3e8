package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-core/internal/logging"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderCache is the optional read-through cache for order details. Put must
// not replace a cached terminal status with a non-terminal one.
type OrderCache interface {
	Get(ctx context.Context, orderID int64) (orders.Order, bool, error)
	Put(ctx context.Context, o orders.Order) error
	Invalidate(ctx context.Context, orderID int64) error
}

type CartPurchase struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type DirectPurchase struct {
	UserID    int64 `json:"user_id" validate:"required,gt=0"`
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// BuyReq needs exactly one of CartPurchase and DirectPurchase.
type BuyReq struct {
	CartPurchase   *CartPurchase   `json:"cart_purchase" validate:"required_without=DirectPurchase,excluded_with=DirectPurchase"`
	DirectPurchase *DirectPurchase `json:"direct_purchase" validate:"required_without=CartPurchase"`
	Provider       string          `json:"provider" validate:"omitempty,max=50"`
}

type BuyResp struct {
	Order       orders.Order         `json:"order"`
	PaymentMeta orders.PaymentIntent `json:"payment_meta"`
}

type OrdersHandler struct {
	Assembler *orders.Assembler
	Gateway   *orders.Gateway
	Cache     OrderCache // nil disables caching
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders/buy", h.buy)
	r.Get("/orders/details/{order_id}", h.details)
	r.Get("/orders/{user_id}", h.listForUser)
}

func (h *OrdersHandler) buy(w http.ResponseWriter, r *http.Request) {
	var req BuyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	log := logging.FromContext(ctx)
	var (
		o   orders.Order
		err error
	)
	if req.CartPurchase != nil {
		log.Info("buying from cart", zap.Int64("user_id", req.CartPurchase.UserID))
		o, err = h.Assembler.FromCart(ctx, req.CartPurchase.UserID)
	} else {
		d := req.DirectPurchase
		log.Info("buying direct", zap.Int64("user_id", d.UserID), zap.Int64("product_id", d.ProductID), zap.Int("quantity", d.Quantity))
		o, err = h.Assembler.Direct(ctx, d.UserID, d.ProductID, d.Quantity)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, BuyResp{Order: o, PaymentMeta: h.Gateway.Prepare(o, req.Provider)})
}

func (h *OrdersHandler) listForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	os, err := h.Assembler.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) details(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "order_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	log := logging.FromContext(ctx)

	// 1) coba cache
	if h.Cache != nil {
		o, ok, err := h.Cache.Get(ctx, orderID)
		if err != nil {
			log.Warn("order cache get", zap.Int64("order_id", orderID), zap.Error(err))
		}
		if ok {
			w.Header().Set("X-Cache", "hit")
			writeJSON(w, http.StatusOK, o)
			return
		}
	}

	// 2) fallback DB
	o, err := h.Assembler.Get(ctx, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Put(ctx, o); err != nil {
			log.Warn("order cache put", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, o)
}
