package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/application/service"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	identity service.IdentityService
	vouchers service.VoucherService
	health   HealthFunc
	cookie   CookieConfig
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	identity service.IdentityService,
	vouchers service.VoucherService,
	health HealthFunc,
	cookie CookieConfig,
	logger Logger,
) *Handlers {
	return &Handlers{
		identity: identity,
		vouchers: vouchers,
		health:   health,
		cookie:   cookie,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// NextNumberResponse is returned by GET /api/next-number
type NextNumberResponse struct {
	Category string `json:"category"`
	Number   int    `json:"number"`
}

// ListVouchersRequest represents query parameters for listing and export
type ListVouchersRequest struct {
	Category string `form:"category"`
	Date     string `form:"date"`
	Sort     string `form:"sort"`
}

func (r ListVouchersRequest) filter() port.ListFilter {
	return port.ListFilter{Category: r.Category, Date: r.Date, Sort: r.Sort}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Data:    response,
				Error:   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CheckSession handles GET /api/session
func (h *Handlers) CheckSession(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)

	identity, err := h.identity.CheckSession(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    identity,
	})
}

// Logout handles POST /api/logout
func (h *Handlers) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	h.identity.Logout(c.Request.Context(), token)
	clearSessionCookie(c, h.cookie)

	c.JSON(http.StatusOK, Response{Success: true})
}

// NextNumber handles GET /api/next-number
func (h *Handlers) NextNumber(c *gin.Context) {
	identity := currentIdentity(c)
	category := c.Query("category")

	n, err := h.vouchers.NextNumber(c.Request.Context(), identity.Email, category)
	if err != nil {
		h.logger.Error("Failed to peek voucher number", "owner", identity.Email, "category", category, "error", err)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    NextNumberResponse{Category: category, Number: n},
	})
}

// ListVouchers handles GET /api/vouchers
func (h *Handlers) ListVouchers(c *gin.Context) {
	identity := currentIdentity(c)

	var req ListVouchersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		respondError(c, http.StatusBadRequest, service.CodeInvalidVoucher, "invalid query parameters")
		return
	}

	vouchers, err := h.vouchers.List(c.Request.Context(), identity.Email, req.filter())
	if err != nil {
		h.logger.Error("Failed to list vouchers", "owner", identity.Email, "error", err)
		abortWithError(c, err)
		return
	}
	if vouchers == nil {
		vouchers = []*entity.Voucher{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    vouchers,
	})
}

// SubmitVoucher handles POST /api/vouchers
func (h *Handlers) SubmitVoucher(c *gin.Context) {
	identity := currentIdentity(c)

	var fields entity.VoucherFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.logger.Error("Invalid voucher body", "error", err)
		respondError(c, http.StatusBadRequest, service.CodeInvalidVoucher, "invalid request body")
		return
	}

	result, err := h.vouchers.Submit(c.Request.Context(), identity.Email, fields)
	if err != nil {
		h.logger.Error("Voucher submission failed", "owner", identity.Email, "category", fields.Category, "error", err)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    result,
	})
}

// UpdateVoucher handles PUT /api/vouchers/:id
func (h *Handlers) UpdateVoucher(c *gin.Context) {
	identity := currentIdentity(c)
	id := c.Param("id")

	var fields entity.VoucherFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.logger.Error("Invalid voucher body", "id", id, "error", err)
		respondError(c, http.StatusBadRequest, service.CodeInvalidVoucher, "invalid request body")
		return
	}

	result, err := h.vouchers.Update(c.Request.Context(), identity.Email, id, fields)
	if err != nil {
		h.logger.Error("Voucher update failed", "owner", identity.Email, "id", id, "error", err)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// DeleteVoucher handles DELETE /api/vouchers/:number
func (h *Handlers) DeleteVoucher(c *gin.Context) {
	identity := currentIdentity(c)

	numberStr := c.Param("number")
	number, err := strconv.Atoi(numberStr)
	if err != nil || number <= 0 {
		h.logger.Error("Invalid voucher number", "number", numberStr)
		respondError(c, http.StatusBadRequest, service.CodeInvalidVoucher, "invalid voucher number")
		return
	}

	result, err := h.vouchers.Delete(c.Request.Context(), identity.Email, number, c.Query("category"))
	if err != nil {
		h.logger.Error("Voucher deletion failed", "owner", identity.Email, "number", number, "error", err)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// PreviewVoucher handles GET /api/vouchers/:id/preview
func (h *Handlers) PreviewVoucher(c *gin.Context) {
	identity := currentIdentity(c)
	id := c.Param("id")

	var buf bytes.Buffer
	if err := h.vouchers.Preview(c.Request.Context(), identity.Email, id, &buf); err != nil {
		h.logger.Error("Voucher preview failed", "owner", identity.Email, "id", id, "error", err)
		abortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// ExportVouchers handles GET /api/exports/vouchers.xlsx
func (h *Handlers) ExportVouchers(c *gin.Context) {
	identity := currentIdentity(c)

	var req ListVouchersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, service.CodeInvalidVoucher, "invalid query parameters")
		return
	}

	var buf bytes.Buffer
	if err := h.vouchers.Export(c.Request.Context(), identity.Email, req.filter(), &buf); err != nil {
		h.logger.Error("Voucher export failed", "owner", identity.Email, "error", err)
		abortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="vouchers.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// statusFor maps a service error code to an HTTP status
func statusFor(code string) int {
	switch code {
	case service.CodeUnauthenticated:
		return http.StatusUnauthorized
	case service.CodeInvalidCategory, service.CodeInvalidVoucher:
		return http.StatusBadRequest
	case service.CodeVoucherNotFound:
		return http.StatusNotFound
	case service.CodeRowNotFound:
		return http.StatusConflict
	case service.CodeProvisioningFailed, service.CodeRenderIOFailure, service.CodeUpstreamWriteFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	code := service.ErrorCode(err)
	msg := err.Error()
	if code == service.CodeInternal {
		msg = "internal error"
	}
	respondError(c, statusFor(code), code, msg)
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   msg,
		Code:    code,
	})
}
