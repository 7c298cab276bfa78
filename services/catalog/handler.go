package catalog

import (
	"net/http"

	"creditshop/pkg/errutil"
	"creditshop/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r httpapi.Routers) {
	r.Public.GET("/products", h.list)
	r.Public.GET("/products/:id", h.get)

	r.Protected.POST("/products", h.create)
	r.Protected.PUT("/products/:id", h.update)
	r.Protected.DELETE("/products/:id", h.delete)
	r.Protected.PATCH("/products/:id/toggle-active", h.toggleActive)
}

func (h *Handler) list(c *gin.Context) {
	products, err := h.svc.ListProducts(c.Request.Context(), c.Query("activeOnly") == "true")
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": products})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

func (h *Handler) create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	p, err := h.svc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": p})
}

func (h *Handler) update(c *gin.Context) {
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	p, err := h.svc.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

func (h *Handler) delete(c *gin.Context) {
	p, err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

func (h *Handler) toggleActive(c *gin.Context) {
	p, err := h.svc.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}
