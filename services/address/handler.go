package address

import (
	"net/http"

	"creditshop/pkg/errutil"
	"creditshop/pkg/httpapi"
	"creditshop/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r httpapi.Routers) {
	g := r.Protected.Group("/addresses")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/set-default", h.setDefault)
}

func userID(c *gin.Context) string {
	id, _ := middleware.CurrentIdentity(c)
	return id.UserID
}

func (h *Handler) create(c *gin.Context) {
	var req CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	addr, err := h.svc.CreateAddress(c.Request.Context(), userID(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": addr})
}

func (h *Handler) list(c *gin.Context) {
	addrs, err := h.svc.ListAddresses(c.Request.Context(), userID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": addrs})
}

func (h *Handler) get(c *gin.Context) {
	addr, err := h.svc.GetAddress(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": addr})
}

func (h *Handler) update(c *gin.Context) {
	var req UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	addr, err := h.svc.UpdateAddress(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": addr})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.DeleteAddress(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) setDefault(c *gin.Context) {
	addr, err := h.svc.SetDefaultAddress(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": addr})
}
