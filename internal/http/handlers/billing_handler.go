package handlers

import (
	"net/http"

	"github.com/heterodox-labs/funding-service/internal/service"
	"github.com/heterodox-labs/funding-service/pkg/logger"
	"github.com/heterodox-labs/funding-service/pkg/req"
	"github.com/heterodox-labs/funding-service/pkg/res"

	"github.com/gin-gonic/gin"
)

// FinalizeSetupRequest тело запроса на завершение привязки метода оплаты.
type FinalizeSetupRequest struct {
	SetupIntentID string `json:"setup_intent_id" validate:"required"`
}

// SetDefaultRequest тело запроса на явное назначение метода по умолчанию.
type SetDefaultRequest struct {
	CustomerID      string `json:"customer_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

// BillingHandler обрабатывает запросы платежного профиля плательщика.
type BillingHandler struct {
	billingService *service.BillingService
	log            *logger.Logger
}

// NewBillingHandler конструктор обработчика платежного профиля.
func NewBillingHandler(billingService *service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{billingService: billingService, log: log}
}

// SetupPaymentMethod начинает привязку метода оплаты и возвращает client
// secret нового SetupIntent.
// POST /api/v1/billing/setup
func (h *BillingHandler) SetupPaymentMethod(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	clientSecret, err := h.billingService.SetupPaymentMethod(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"client_secret": clientSecret}, http.StatusOK)
}

// FinalizeSetupIntent завершает привязку после подтверждения на клиенте.
// POST /api/v1/billing/setup/finalize
func (h *BillingHandler) FinalizeSetupIntent(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	body, err := req.HandleBody[FinalizeSetupRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	if err := h.billingService.FinalizeSetupIntent(c.Request.Context(), body.SetupIntentID); err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"success": true}, http.StatusOK)
}

// SetDefaultPaymentMethod явно назначает метод оплаты по умолчанию.
// POST /api/v1/billing/default
func (h *BillingHandler) SetDefaultPaymentMethod(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	body, err := req.HandleBody[SetDefaultRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	if err := h.billingService.SetDefaultPaymentMethod(c.Request.Context(), body.CustomerID, body.PaymentMethodID); err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"success": true}, http.StatusOK)
}

// GetPaymentInfo возвращает сводку метода оплаты по умолчанию.
// POST /api/v1/billing/info
func (h *BillingHandler) GetPaymentInfo(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	summary, err := h.billingService.GetPaymentInfo(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, summary, http.StatusOK)
}

// RemovePaymentMethod отвязывает метод оплаты по умолчанию.
// POST /api/v1/billing/remove
func (h *BillingHandler) RemovePaymentMethod(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.billingService.RemovePaymentMethod(c.Request.Context(), userID); err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"success": true}, http.StatusOK)
}
