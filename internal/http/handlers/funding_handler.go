package handlers

import (
	"net/http"

	"github.com/heterodox-labs/funding-service/internal/service"
	"github.com/heterodox-labs/funding-service/pkg/logger"
	"github.com/heterodox-labs/funding-service/pkg/req"
	"github.com/heterodox-labs/funding-service/pkg/res"

	"github.com/gin-gonic/gin"
)

// ConnectLinkRequest тело запроса на ссылку онбординга Connect.
type ConnectLinkRequest struct {
	BusinessType string `json:"business_type" validate:"omitempty,oneof=individual company"`
}

// SaveFundingRequest тело запроса на привязку аккаунта выплат.
type SaveFundingRequest struct {
	FundingID string `json:"funding_id" validate:"required"`
}

// FundingInfoRequest тело запроса сводки банковского счета.
type FundingInfoRequest struct {
	FundingID string `json:"funding_id" validate:"required"`
}

// FundingHandler обрабатывает запросы аккаунтов выплат.
type FundingHandler struct {
	fundingService *service.FundingService
	log            *logger.Logger
}

// NewFundingHandler конструктор обработчика аккаунтов выплат.
func NewFundingHandler(fundingService *service.FundingService, log *logger.Logger) *FundingHandler {
	return &FundingHandler{fundingService: fundingService, log: log}
}

// CreateConnectLink выдает одноразовую ссылку онбординга Connect.
// POST /api/v1/connect/link
func (h *FundingHandler) CreateConnectLink(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	body, err := req.HandleBody[ConnectLinkRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = "https://" + c.Request.Host
	}

	url, err := h.fundingService.CreateConnectLink(c.Request.Context(), userID, body.BusinessType, origin)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"url": url}, http.StatusOK)
}

// GetFundingInfo возвращает сводку банковского счета аккаунта выплат.
// POST /api/v1/funding/info
func (h *FundingHandler) GetFundingInfo(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	body, err := req.HandleBody[FundingInfoRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	summary, err := h.fundingService.GetFundingInfo(c.Request.Context(), body.FundingID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, summary, http.StatusOK)
}

// SaveFundingID привязывает существующий аккаунт выплат к профилю участника.
// POST /api/v1/funding/save
func (h *FundingHandler) SaveFundingID(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	body, err := req.HandleBody[SaveFundingRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	profile, err := h.fundingService.SaveFundingID(c.Request.Context(), userID, body.FundingID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"success": true, "data": profile}, http.StatusOK)
}

// RemoveFundingID очищает привязку аккаунта выплат у профиля участника.
// POST /api/v1/funding/remove
func (h *FundingHandler) RemoveFundingID(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.fundingService.RemoveFundingID(c.Request.Context(), userID); err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"success": true}, http.StatusOK)
}
