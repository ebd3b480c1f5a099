package handlers

import (
	"net/http"

	"github.com/heterodox-labs/funding-service/internal/service"
	"github.com/heterodox-labs/funding-service/pkg/logger"
	"github.com/heterodox-labs/funding-service/pkg/req"
	"github.com/heterodox-labs/funding-service/pkg/res"

	"github.com/gin-gonic/gin"
)

// DonationRequest тело запроса на разовое пожертвование.
// Amount в минимальных единицах валюты (центах).
type DonationRequest struct {
	LabID    string `json:"lab_id" validate:"required"`
	GoalID   string `json:"goal_id"`
	GoalName string `json:"goal_name"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Caption  string `json:"caption" validate:"omitempty,max=500"`
}

// DonationHandler обрабатывает запросы разовых пожертвований.
type DonationHandler struct {
	donationService *service.DonationService
	log             *logger.Logger
}

// NewDonationHandler конструктор обработчика пожертвований.
func NewDonationHandler(donationService *service.DonationService, log *logger.Logger) *DonationHandler {
	return &DonationHandler{donationService: donationService, log: log}
}

// Charge проводит разовое пожертвование лаборатории.
// POST /api/v1/donations
func (h *DonationHandler) Charge(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	body, err := req.HandleBody[DonationRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	result, err := h.donationService.Charge(c.Request.Context(), service.DonationInput{
		UserID:      userID,
		LabID:       body.LabID,
		GoalID:      body.GoalID,
		GoalName:    body.GoalName,
		AmountMinor: body.Amount,
		Caption:     body.Caption,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{
		"success":           true,
		"payment_intent_id": result.PaymentIntentID,
		"amount":            result.Amount,
		"fee":               result.Fee,
		"goal_name":         result.GoalName,
	}, http.StatusOK)
}
