package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/policyanalytics/dashboard/internal/components"
	"github.com/policyanalytics/dashboard/internal/models"
	"github.com/policyanalytics/dashboard/internal/pages"
)

const createPolicyErrorMessage = "Failed to create policy"

// Handler handles HTTP requests for the policy dashboard
type Handler struct {
	deps    pages.Deps
	logger  *zap.Logger
	version string
}

// NewHandler creates a new HTTP handler. Every page request mounts a fresh
// controller and unmounts it once the response is written.
func NewHandler(deps pages.Deps, logger *zap.Logger, version string) *Handler {
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &Handler{
		deps:    deps,
		logger:  logger,
		version: version,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	// Page routes
	router.GET("/", h.DashboardPage)
	router.GET("/policies", h.PoliciesPage)
	router.GET("/policies/new", h.NewPolicyPage)
	router.POST("/policies", h.CreatePolicyForm)
	router.GET("/policies/:id", h.PolicyDetailPage)

	api := router.Group("/api/v1")
	{
		// View routes
		views := api.Group("/views")
		{
			views.GET("/dashboard", h.DashboardView)
			views.GET("/policies", h.PoliciesView)
			views.GET("/policies/:id", h.PolicyDetailView)
		}

		api.POST("/policies", h.CreatePolicy)
	}

	// System routes
	router.GET("/healthz", h.HealthCheck)

	router.NoRoute(h.NotFound)
}

// Page Handlers

// DashboardPage handles the dashboard page
func (h *Handler) DashboardPage(c *gin.Context) {
	state := h.loadDashboard(c)
	renderState(c, "dashboard.html", "/", "Dashboard", state)
}

// PoliciesPage handles the policy list page
func (h *Handler) PoliciesPage(c *gin.Context) {
	filter, err := pages.ParseFilter(c.Query("filter"))
	if err != nil {
		h.errorPage(c, http.StatusBadRequest, err.Error())
		return
	}
	state := h.loadPolicies(c, filter)
	renderState(c, "policies.html", "/policies", "Policies", state)
}

// PolicyDetailPage handles the policy detail page
func (h *Handler) PolicyDetailPage(c *gin.Context) {
	tab, err := pages.ParseTab(c.Query("tab"))
	if err != nil {
		h.errorPage(c, http.StatusBadRequest, err.Error())
		return
	}
	state := h.loadPolicyDetail(c, c.Param("id"), tab)
	title := "Policy"
	if state.Data != nil {
		title = state.Data.Overview.Name
	}
	renderState(c, "policy_detail.html", "/policies", title, state)
}

// View Handlers

// DashboardView handles the dashboard state as JSON
func (h *Handler) DashboardView(c *gin.Context) {
	state := h.loadDashboard(c)
	c.JSON(statusCode(state.Status), state)
}

// PoliciesView handles the policy list state as JSON
func (h *Handler) PoliciesView(c *gin.Context) {
	filter, err := pages.ParseFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state := h.loadPolicies(c, filter)
	c.JSON(statusCode(state.Status), state)
}

// PolicyDetailView handles the policy detail state as JSON
func (h *Handler) PolicyDetailView(c *gin.Context) {
	tab, err := pages.ParseTab(c.Query("tab"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state := h.loadPolicyDetail(c, c.Param("id"), tab)
	c.JSON(statusCode(state.Status), state)
}

func (h *Handler) loadDashboard(c *gin.Context) pages.State[pages.DashboardView] {
	d := pages.NewDashboard(c.Request.Context(), h.deps)
	defer d.Unmount()
	return d.Mount()
}

func (h *Handler) loadPolicies(c *gin.Context, filter pages.Filter) pages.State[pages.PoliciesView] {
	p := pages.NewPolicies(c.Request.Context(), h.deps)
	defer p.Unmount()
	p.SelectFilter(filter)
	return p.Mount()
}

func (h *Handler) loadPolicyDetail(c *gin.Context, id string, tab pages.Tab) pages.State[pages.PolicyDetailView] {
	p := pages.NewPolicyDetail(c.Request.Context(), h.deps)
	defer p.Unmount()
	p.SelectTab(tab)
	return p.Load(id)
}

// Policy creation

type policyForm struct {
	Name        string  `form:"name" binding:"required,max=200"`
	Description string  `form:"description" binding:"required"`
	Category    string  `form:"category" binding:"required,max=100"`
	StartDate   string  `form:"start_date" binding:"required"`
	EndDate     string  `form:"end_date"`
	Budget      float64 `form:"budget" binding:"gte=0"`
}

func (f policyForm) toNewPolicy() (models.NewPolicy, error) {
	start, err := models.ParseTimestamp(f.StartDate)
	if err != nil {
		return models.NewPolicy{}, errors.New("start_date must be a date")
	}

	p := models.NewPolicy{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
		StartDate:   start,
		Budget:      f.Budget,
	}
	if f.EndDate != "" {
		end, err := models.ParseTimestamp(f.EndDate)
		if err != nil {
			return models.NewPolicy{}, errors.New("end_date must be a date")
		}
		p.EndDate = &end
	}
	return p, p.Validate()
}

// NewPolicyPage handles the create-policy form
func (h *Handler) NewPolicyPage(c *gin.Context) {
	c.HTML(http.StatusOK, "policy_new.html", gin.H{
		"nav":   components.NewNavbar("/policies"),
		"title": "New Policy",
		"form":  policyForm{},
	})
}

// CreatePolicyForm submits the create form and redirects to the new policy.
// The created policy is never merged into any loaded view.
func (h *Handler) CreatePolicyForm(c *gin.Context) {
	var form policyForm
	if err := c.ShouldBind(&form); err != nil {
		h.formError(c, http.StatusBadRequest, form, "Please fill in name, description, category and start date")
		return
	}

	newPolicy, err := form.toNewPolicy()
	if err != nil {
		h.formError(c, http.StatusBadRequest, form, err.Error())
		return
	}

	policy, err := h.deps.API.CreatePolicy(c.Request.Context(), newPolicy)
	if err != nil {
		h.logger.Error("Failed to create policy", zap.Error(err))
		h.formError(c, http.StatusBadGateway, form, createPolicyErrorMessage)
		return
	}

	c.Redirect(http.StatusSeeOther, components.PolicyHref(policy.ID))
}

// CreatePolicy handles JSON policy creation
func (h *Handler) CreatePolicy(c *gin.Context) {
	var newPolicy models.NewPolicy
	if err := c.ShouldBindJSON(&newPolicy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := newPolicy.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.deps.API.CreatePolicy(c.Request.Context(), newPolicy)
	if err != nil {
		h.logger.Error("Failed to create policy", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": createPolicyErrorMessage})
		return
	}

	c.JSON(http.StatusCreated, policy)
}

// System Handlers

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
	})
}

// NotFound handles unknown routes
func (h *Handler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	h.errorPage(c, http.StatusNotFound, "Page not found")
}

func (h *Handler) errorPage(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"nav":     components.NewNavbar(""),
		"title":   http.StatusText(status),
		"status":  status,
		"message": message,
	})
}

func (h *Handler) formError(c *gin.Context, status int, form policyForm, message string) {
	c.HTML(status, "policy_new.html", gin.H{
		"nav":        components.NewNavbar("/policies"),
		"title":      "New Policy",
		"form":       form,
		"form_error": message,
	})
}

// renderState writes a page in any of its three states. A page that
// failed to load answers 502 with the error rendered.
func renderState[T any](c *gin.Context, name, section, title string, state pages.State[T]) {
	c.HTML(statusCode(state.Status), name, gin.H{
		"nav":     components.NewNavbar(section),
		"title":   title,
		"loading": state.Status == pages.StatusLoading,
		"failed":  state.Status == pages.StatusError,
		"ready":   state.Status == pages.StatusReady,
		"message": state.Message,
		"view":    state.Data,
	})
}

func statusCode(status pages.Status) int {
	if status == pages.StatusError {
		return http.StatusBadGateway
	}
	return http.StatusOK
}
