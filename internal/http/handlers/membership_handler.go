package handlers

import (
	"net/http"

	"github.com/heterodox-labs/funding-service/internal/service"
	"github.com/heterodox-labs/funding-service/pkg/logger"
	"github.com/heterodox-labs/funding-service/pkg/req"
	"github.com/heterodox-labs/funding-service/pkg/res"

	"github.com/gin-gonic/gin"
)

// MembershipRequest тело запроса на оформление членства.
type MembershipRequest struct {
	LabID  string `json:"lab_id" validate:"required"`
	GoalID string `json:"goal_id"`
}

// CancelMembershipRequest тело запроса на отмену членства.
type CancelMembershipRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

// MembershipHandler обрабатывает запросы членств.
type MembershipHandler struct {
	membershipService *service.MembershipService
	log               *logger.Logger
}

// NewMembershipHandler конструктор обработчика членств.
func NewMembershipHandler(membershipService *service.MembershipService, log *logger.Logger) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService, log: log}
}

// Create оформляет месячную подписку на лабораторию.
// POST /api/v1/memberships
func (h *MembershipHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	body, err := req.HandleBody[MembershipRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	result, err := h.membershipService.Create(c.Request.Context(), service.MembershipInput{
		UserID: userID,
		LabID:  body.LabID,
		GoalID: body.GoalID,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{
		"success":         true,
		"subscription_id": result.SubscriptionID,
		"monthly_amount":  result.MonthlyAmount,
		"status":          result.Status,
	}, http.StatusOK)
}

// Cancel запрашивает отмену подписки в конце оплаченного периода.
// POST /api/v1/memberships/cancel
func (h *MembershipHandler) Cancel(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	body, err := req.HandleBody[CancelMembershipRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	if err := h.membershipService.Cancel(c.Request.Context(), body.SubscriptionID); err != nil {
		writeServiceError(c, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"success": true}, http.StatusOK)
}
