package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/go-chi/chi/v5"
)

type CartAddReq struct {
	UserID    int64 `json:"user_id" validate:"required,gt=0"`
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

type CartUpdateReq struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type CartHandler struct {
	Cart *orders.Cart
}

func (h *CartHandler) Register(r chi.Router) {
	r.Route("/shop/cart", func(r chi.Router) {
		r.Post("/", h.add)
		r.Get("/{user_id}", h.lines)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req CartAddReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	line, err := h.Cart.Add(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *CartHandler) lines(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := h.Cart.Lines(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CartUpdateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	line, err := h.Cart.UpdateQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Cart.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
