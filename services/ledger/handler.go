package ledger

import (
	"net/http"

	"creditshop/pkg/errutil"
	"creditshop/pkg/httpapi"
	"creditshop/pkg/logger"
	"creditshop/pkg/middleware"
	"creditshop/pkg/task"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Handler struct {
	svc        *Service
	reconciler *Reconciler
	enqueuer   task.Enqueuer
}

type HandlerParams struct {
	fx.In
	Service    *Service
	Reconciler *Reconciler
	Enqueuer   task.Enqueuer `optional:"true"`
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service, reconciler: p.Reconciler, enqueuer: p.Enqueuer}
}

func (h *Handler) Register(r httpapi.Routers) {
	credits := r.Protected.Group("/credits")
	credits.GET("/my-history", h.myHistory)
	credits.POST("/adjust", h.adjust)
	credits.GET("/transactions", h.listTransactions)
	credits.GET("/statistics", h.statistics)
	credits.GET("/customer/:customerId/history", h.customerHistory)
	credits.GET("/customer/:customerId/validate", h.validate)
	credits.GET("/customer/:customerId/verify", h.verifyChain)
	credits.POST("/reconcile", h.reconcile)
	credits.GET("/reconcile/:runId", h.reconcileReport)
}

func (h *Handler) myHistory(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	history, err := h.svc.GetCustomerCreditHistory(c.Request.Context(), id.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": history})
}

func (h *Handler) adjust(c *gin.Context) {
	var req AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	id, _ := middleware.CurrentIdentity(c)
	res, err := h.svc.AdjustCredits(c.Request.Context(), req, id.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handler) listTransactions(c *gin.Context) {
	var f TransactionFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid query", err))
		return
	}

	page, err := h.svc.ListTransactions(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": page.Transactions, "pageInfo": page.PageInfo})
}

func (h *Handler) statistics(c *gin.Context) {
	stats, err := h.svc.GetCreditStatistics(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func (h *Handler) customerHistory(c *gin.Context) {
	history, err := h.svc.GetCustomerCreditHistory(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": history})
}

func (h *Handler) validate(c *gin.Context) {
	res, err := h.svc.ValidateCreditBalance(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handler) verifyChain(c *gin.Context) {
	res, err := h.svc.VerifyChain(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// reconcile queues a run for the worker. Without a queue the run happens
// inline and the report is returned directly.
func (h *Handler) reconcile(c *gin.Context) {
	ctx := c.Request.Context()
	runID := h.svc.node.Generate().String()

	if h.enqueuer == nil {
		report, err := h.reconciler.Reconcile(ctx, runID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
		return
	}

	t, err := NewReconcileTask(runID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	info, err := h.enqueuer.Enqueue(ctx, t)
	if err != nil {
		logger.FromContext(ctx).Error("failed to enqueue reconcile", zap.Error(err))
		_ = c.Error(errutil.New(errutil.StatusServiceUnavailable, "Reconcile queue unavailable", errutil.WithErr(err)))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": gin.H{"runId": runID, "taskId": info.ID}})
}

func (h *Handler) reconcileReport(c *gin.Context) {
	report, err := h.reconciler.GetReport(c.Request.Context(), c.Param("runId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}
