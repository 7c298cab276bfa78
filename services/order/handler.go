package order

import (
	"net/http"

	"creditshop/pkg/errutil"
	"creditshop/pkg/httpapi"
	"creditshop/pkg/middleware"
	"creditshop/services/ledger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type Handler struct {
	svc    *Service
	ledger *ledger.Service
}

func NewHandler(svc *Service, ledgerSvc *ledger.Service) *Handler {
	return &Handler{svc: svc, ledger: ledgerSvc}
}

func (h *Handler) Register(r httpapi.Routers) {
	orders := r.Protected.Group("/orders")
	orders.POST("", h.create)
	orders.GET("", h.list)
	orders.GET("/my-orders", h.myOrders)
	orders.GET("/statistics", h.statistics)
	orders.GET("/:id", h.get)
	orders.PUT("/:id/status", h.updateStatus)

	r.Protected.GET("/dashboard", h.dashboard)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	id, _ := middleware.CurrentIdentity(c)
	o, err := h.svc.CreateOrder(c.Request.Context(), id.UserID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Order placed successfully", "data": o})
}

func (h *Handler) list(c *gin.Context) {
	var f OrderFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid query", err))
		return
	}

	res, err := h.svc.GetOrdersWithFilters(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handler) myOrders(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	orders, err := h.svc.GetCustomerOrders(c.Request.Context(), id.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders})
}

// get hides other customers' orders behind the same NotFound as a missing id.
func (h *Handler) get(c *gin.Context) {
	o, err := h.svc.GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, _ := middleware.CurrentIdentity(c)
	if !id.IsAdmin() && o.CustomerID != id.UserID {
		_ = c.Error(errutil.NotFound("Order not found", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": o})
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	o, err := h.svc.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status, req.TrackingNumber)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order status updated successfully", "data": o})
}

func (h *Handler) statistics(c *gin.Context) {
	stats, err := h.svc.GetOrderStatistics(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func (h *Handler) dashboard(c *gin.Context) {
	var (
		orderStats  *Statistics
		creditStats *ledger.CreditStatistics
	)

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		orderStats, err = h.svc.GetOrderStatistics(ctx)
		return err
	})
	g.Go(func() (err error) {
		creditStats, err = h.ledger.GetCreditStatistics(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"totalOrders":        orderStats.TotalOrders,
		"recentOrders":       orderStats.RecentOrders,
		"totalCreditsIssued": creditStats.TotalCreditsIssued,
		"totalCreditsSpent":  creditStats.TotalCreditsSpent,
		"totalCustomers":     creditStats.TotalCustomers,
	}})
}
