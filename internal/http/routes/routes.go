package routes

import (
	"net/http"

	"github.com/heterodox-labs/funding-service/internal/http/handlers"
	"github.com/heterodox-labs/funding-service/internal/middleware"
	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers собирает все HTTP-обработчики сервиса.
type Handlers struct {
	Funding    *handlers.FundingHandler
	Billing    *handlers.BillingHandler
	Donation   *handlers.DonationHandler
	Membership *handlers.MembershipHandler
	Webhook    *handlers.WebhookHandler
}

// Setup настраивает маршруты сервиса. Все маршруты /api/v1, кроме вебхука,
// требуют валидный токен: вебхук аутентифицируется подписью провайдера.
func Setup(
	router *gin.Engine,
	h Handlers,
	authMiddleware *middleware.JWTMiddleware,
	registry *prometheus.Registry,
	log *logger.Logger,
) {
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")

	// Вебхук публичный, подпись проверяется в обработчике
	api.POST("/webhooks/stripe", h.Webhook.HandleStripeWebhook)

	authorized := api.Group("")
	authorized.Use(authMiddleware.RequireAuth())
	{
		authorized.POST("/connect/link", h.Funding.CreateConnectLink)
		authorized.POST("/funding/info", h.Funding.GetFundingInfo)
		authorized.POST("/funding/save", h.Funding.SaveFundingID)
		authorized.POST("/funding/remove", h.Funding.RemoveFundingID)

		authorized.POST("/billing/setup", h.Billing.SetupPaymentMethod)
		authorized.POST("/billing/setup/finalize", h.Billing.FinalizeSetupIntent)
		authorized.POST("/billing/default", h.Billing.SetDefaultPaymentMethod)
		authorized.POST("/billing/info", h.Billing.GetPaymentInfo)
		authorized.POST("/billing/remove", h.Billing.RemovePaymentMethod)

		authorized.POST("/donations", h.Donation.Charge)

		authorized.POST("/memberships", h.Membership.Create)
		authorized.POST("/memberships/cancel", h.Membership.Cancel)
	}
}
