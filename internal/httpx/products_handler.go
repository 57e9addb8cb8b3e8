package httpx

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductCreateReq struct {
	Name     string           `json:"name" validate:"required,min=1,max=100"`
	Price    *decimal.Decimal `json:"price" validate:"required"`
	Stock    *int             `json:"stock" validate:"required,gte=0"`
	Category string           `json:"category" validate:"required,min=1,max=50"`
}

type ProductUpdateReq struct {
	Name     *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int             `json:"stock" validate:"omitempty,gte=0"`
	Category *string          `json:"category" validate:"omitempty,min=1,max=50"`
}

type ProductsHandler struct {
	Catalog *orders.Catalog
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Route("/shop/products", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/export", h.export)
		r.Get("/by-category/{category}", h.byCategory)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req ProductCreateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Price.IsNegative() {
		writeError(w, r, invalidf("price must not be negative"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.Create(ctx, orders.Product{
		Name: req.Name, Price: *req.Price, Stock: *req.Stock, Category: req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", orders.DefaultPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.List(ctx, skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) byCategory(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.ByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ProductUpdateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		writeError(w, r, invalidf("price must not be negative"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.Update(ctx, id, orders.ProductPatch{
		Name: req.Name, Price: req.Price, Stock: req.Stock, Category: req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductsHandler) export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// buffer dulu supaya error tidak muncul di tengah file
	var buf bytes.Buffer
	if err := h.Catalog.Export(ctx, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=products.xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
