package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/hieund/stock-allocator/internal/core/domain"
	"github.com/hieund/stock-allocator/internal/core/service"
	"github.com/hieund/stock-allocator/internal/port"
)

type HTTPHandler struct {
	allocator    *service.Allocator
	reconciler   *service.Reconciler
	stock        port.StockStore
	ledger       port.TransactionLedger
	cache        port.CacheRepository
	historyLimit int
}

func NewHTTPHandler(allocator *service.Allocator, reconciler *service.Reconciler, stock port.StockStore, ledger port.TransactionLedger, cache port.CacheRepository, historyLimit int) *HTTPHandler {
	return &HTTPHandler{
		allocator:    allocator,
		reconciler:   reconciler,
		stock:        stock,
		ledger:       ledger,
		cache:        cache,
		historyLimit: historyLimit,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.HealthCheck)

	v1 := r.Group("/api/v1")
	v1.POST("/allocations", h.Allocate)
	v1.GET("/products", h.ListProducts)
	v1.GET("/products/:code/stock", h.FreeCount)
	v1.GET("/products/:code/history", h.SoldHistory)
	v1.GET("/ledger", h.EntriesSince)
	v1.GET("/ledger/buyers/:growid", h.BuyerHistory)
	v1.GET("/reconciliation", h.Reconcile)
}

type allocateRequest struct {
	RequestID   string `json:"request_id"`
	ProductCode string `json:"product_code"`
	GrowID      string `json:"growid"`
}

func (r allocateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductCode, validation.Required, validation.Length(1, 32)),
		validation.Field(&r.GrowID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.RequestID, validation.Length(0, 64)),
	)
}

type receiptResponse struct {
	RequestID   string    `json:"request_id"`
	UnitID      int64     `json:"unit_id"`
	ProductCode string    `json:"product_code"`
	Content     string    `json:"content"`
	BuyerHandle string    `json:"growid"`
	AllocatedAt time.Time `json:"allocated_at"`
}

func (h *HTTPHandler) Allocate(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.allocator.Allocate(c.Request.Context(), req.RequestID, req.ProductCode, req.GrowID)
	if err != nil {
		h.writeAllocationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, receiptResponse{
		RequestID:   receipt.RequestID,
		UnitID:      receipt.UnitID,
		ProductCode: receipt.ProductCode,
		Content:     receipt.Content,
		BuyerHandle: receipt.BuyerHandle,
		AllocatedAt: receipt.AllocatedAt,
	})
}

func (h *HTTPHandler) writeAllocationError(c *gin.Context, err error) {
	var pf *service.PartialFailureError

	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate request"})
	case errors.Is(err, service.ErrOutOfStock):
		c.JSON(http.StatusGone, gin.H{"error": "sold out"})
	case errors.Is(err, service.ErrUnknownBuyer):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown growid"})
	case errors.As(err, &pf):
		// The unit is claimed but unlogged; do not invite a retry.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "allocation incomplete, operator intervention required",
			"unit_id": pf.UnitID,
		})
	default:
		zap.L().Error("allocation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type productResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	FreeUnits   int    `json:"free_units"`
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	products, err := h.stock.ListProducts(c.Request.Context())
	if err != nil {
		zap.L().Error("list products failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse{
			Code:        p.Code,
			Name:        p.Name,
			Price:       p.Price,
			Description: p.Description,
			FreeUnits:   p.FreeUnits,
		})
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

// FreeCount serves from the mirror when it has the product, falling back
// to the authoritative store.
func (h *HTTPHandler) FreeCount(c *gin.Context) {
	code := c.Param("code")

	count, ok, err := h.cache.GetFreeCount(c.Request.Context(), code)
	if err != nil {
		zap.L().Warn("free-count mirror read failed", zap.String("product_code", code), zap.Error(err))
	} else if ok {
		c.JSON(http.StatusOK, gin.H{"product_code": code, "free_units": count, "source": "cache"})
		return
	}

	count, err = h.stock.CountFree(c.Request.Context(), code)
	if err != nil {
		zap.L().Error("count free failed", zap.String("product_code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_code": code, "free_units": count, "source": "store"})
}

type soldUnitResponse struct {
	UnitID      int64      `json:"unit_id"`
	ProductCode string     `json:"product_code"`
	UsedAt      *time.Time `json:"used_at"`
	BuyerID     *int64     `json:"buyer_id"`
}

// SoldHistory deliberately omits unit content: payloads are delivered once,
// to the buyer, at allocation time.
func (h *HTTPHandler) SoldHistory(c *gin.Context) {
	code := c.Param("code")

	units, err := h.stock.RecentSold(c.Request.Context(), code, h.historyLimit)
	if err != nil {
		zap.L().Error("sold history failed", zap.String("product_code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]soldUnitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, soldUnitResponse{
			UnitID:      u.ID,
			ProductCode: u.ProductCode,
			UsedAt:      u.UsedAt,
			BuyerID:     u.BuyerID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"units": out})
}

type ledgerEntryResponse struct {
	ID          int64          `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	ProductCode string         `json:"product_code"`
	BuyerHandle string         `json:"growid"`
	Outcome     domain.Outcome `json:"outcome"`
	UnitID      *int64         `json:"unit_id,omitempty"`
	Details     string         `json:"details,omitempty"`
}

func (h *HTTPHandler) EntriesSince(c *gin.Context) {
	since, err := time.Parse(time.RFC3339, c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
		return
	}

	entries, err := h.ledger.EntriesSince(c.Request.Context(), since)
	if err != nil {
		zap.L().Error("ledger query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": toEntryResponses(entries)})
}

func (h *HTTPHandler) BuyerHistory(c *gin.Context) {
	entries, err := h.ledger.EntriesForBuyer(c.Request.Context(), c.Param("growid"), h.historyLimit)
	if err != nil {
		zap.L().Error("buyer history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": toEntryResponses(entries)})
}

func (h *HTTPHandler) Reconcile(c *gin.Context) {
	drifts, err := h.reconciler.Sweep(c.Request.Context())
	if err != nil {
		zap.L().Error("reconciliation sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clean": len(drifts) == 0, "drifts": drifts})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func toEntryResponses(entries []domain.LedgerEntry) []ledgerEntryResponse {
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryResponse{
			ID:          e.ID,
			CreatedAt:   e.CreatedAt,
			ProductCode: e.ProductCode,
			BuyerHandle: e.BuyerHandle,
			Outcome:     e.Outcome,
			UnitID:      e.UnitID,
			Details:     e.Details,
		})
	}
	return out
}
