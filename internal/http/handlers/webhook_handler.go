package handlers

import (
	"io"
	"net/http"

	"github.com/heterodox-labs/funding-service/internal/service"
	"github.com/heterodox-labs/funding-service/pkg/logger"
	"github.com/heterodox-labs/funding-service/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78/webhook"
)

// Лимит на размер тела вебхука, рекомендованный Stripe
const maxWebhookBodyBytes = int64(65536)

// WebhookHandler принимает события Stripe. Эндпоинт публичный,
// аутентификация - подпись в заголовке Stripe-Signature.
type WebhookHandler struct {
	webhookService *service.WebhookService
	signingSecret  string
	log            *logger.Logger
}

// NewWebhookHandler конструктор обработчика вебхуков.
func NewWebhookHandler(webhookService *service.WebhookService, signingSecret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		signingSecret:  signingSecret,
		log:            log,
	}
}

// HandleStripeWebhook проверяет подпись и передает событие на обработку.
// Подпись проверяется по сырому телу до любого разбора JSON.
// POST /api/v1/webhooks/stripe
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Warnw("Failed to read webhook body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to read request body"}, http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.signingSecret)
	if err != nil {
		h.log.Warnw("Webhook signature verification failed", "error", err, "client_ip", c.ClientIP())
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid webhook signature"}, http.StatusBadRequest)
		return
	}

	if err := h.webhookService.HandleEvent(c.Request.Context(), event); err != nil {
		h.log.Errorw("Webhook event processing failed", "error", err, "eventID", event.ID, "eventType", event.Type)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to process event"}, http.StatusInternalServerError)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"received": true}, http.StatusOK)
}
