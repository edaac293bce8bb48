package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"telinsights/internal/alertconfig"
	"telinsights/internal/logger"
	"telinsights/pkg/errors"
)

const defaultAuditLimit = 50

type Handler struct {
	Service Service
	Logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	{
		alerts := v1.Group("/alerts")
		{
			alerts.POST("", h.CreateAlert)
			alerts.GET("/:id", h.GetAlert)
			alerts.PUT("/:id", h.UpdateAlert)
			alerts.DELETE("/:id", h.DeleteAlert)
			alerts.POST("/:id/activate", h.ActivateAlert)
			alerts.GET("/:id/audit", h.GetAuditLog)
		}

		v1.GET("/users/:user_id/alerts", h.ListUserAlerts)
	}
}

// CreateAlert godoc
// @Summary      Create an alert configuration
// @Description  Create a frequency alert for a user. Criteria are validated and unknown keys are rejected.
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        alert  body      alertconfig.CreateAlertRequest  true  "Alert configuration"
// @Success      201    {object}  alertconfig.AlertConfiguration
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      409    {object}  errors.ErrorResponse
// @Failure      503    {object}  errors.ErrorResponse
// @Router       /alerts [post]
func (h *Handler) CreateAlert(c *gin.Context) {
	var req alertconfig.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	cfg, err := h.Service.CreateAlert(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cfg)
}

// GetAlert godoc
// @Summary      Get an alert configuration
// @Tags         alerts
// @Produce      json
// @Param        id   path      string  true  "Alert ID"
// @Success      200  {object}  alertconfig.AlertConfiguration
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /alerts/{id} [get]
func (h *Handler) GetAlert(c *gin.Context) {
	cfg, err := h.Service.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// ListUserAlerts godoc
// @Summary      List a user's alert configurations
// @Description  Newest first. Deactivated alerts are included with include_inactive=true.
// @Tags         alerts
// @Produce      json
// @Param        user_id           path      string  true   "User ID"
// @Param        include_inactive  query     bool    false  "Include deactivated alerts"
// @Success      200  {array}   alertconfig.AlertConfiguration
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /users/{user_id}/alerts [get]
func (h *Handler) ListUserAlerts(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))

	configs, err := h.Service.ListUserAlerts(c.Request.Context(), c.Param("user_id"), includeInactive)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, configs)
}

// UpdateAlert godoc
// @Summary      Update an alert configuration
// @Description  Name and criteria may be changed independently. Criteria are replaced as a whole.
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        id     path      string                          true  "Alert ID"
// @Param        alert  body      alertconfig.UpdateAlertRequest  true  "Changes"
// @Success      200    {object}  alertconfig.AlertConfiguration
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      409    {object}  errors.ErrorResponse
// @Router       /alerts/{id} [put]
func (h *Handler) UpdateAlert(c *gin.Context) {
	var req alertconfig.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	cfg, err := h.Service.UpdateAlert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// DeleteAlert godoc
// @Summary      Deactivate an alert configuration
// @Description  Soft delete: the alert stops being evaluated but stays readable.
// @Tags         alerts
// @Param        id   path  string  true  "Alert ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /alerts/{id} [delete]
func (h *Handler) DeleteAlert(c *gin.Context) {
	if err := h.Service.DeactivateAlert(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ActivateAlert godoc
// @Summary      Reactivate an alert configuration
// @Tags         alerts
// @Produce      json
// @Param        id   path      string  true  "Alert ID"
// @Success      200  {object}  alertconfig.AlertConfiguration
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /alerts/{id}/activate [post]
func (h *Handler) ActivateAlert(c *gin.Context) {
	cfg, err := h.Service.ActivateAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// GetAuditLog godoc
// @Summary      Change history of an alert configuration
// @Tags         audit
// @Produce      json
// @Param        id     path      string  true   "Alert ID"
// @Param        limit  query     int     false  "Maximum entries"  default(50)
// @Success      200    {array}   AuditEntry
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      503    {object}  errors.ErrorResponse
// @Router       /alerts/{id}/audit [get]
func (h *Handler) GetAuditLog(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.WithMessage("limit must be a positive integer").WithDetail("field", "limit")))
			return
		}
		limit = parsed
	}

	entries, err := h.Service.GetAuditLog(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
