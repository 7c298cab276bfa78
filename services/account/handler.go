package account

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
	auth := r.Public.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	r.Protected.GET("/auth/me", h.me)

	users := r.Protected.Group("/users")
	users.GET("/customers", h.listCustomers)
	users.GET("/customers/:id", h.getCustomer)
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	// Self-registration always creates customers.
	req.Role = RoleCustomer

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": resp})
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("Invalid request body", err))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}

func (h *Handler) me(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	acc, err := h.svc.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": acc})
}

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.svc.ListCustomers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": customers})
}

func (h *Handler) getCustomer(c *gin.Context) {
	acc, err := h.svc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": acc})
}
