package handlers

import (
	"errors"
	"net/http"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/middleware"
	"github.com/heterodox-labs/funding-service/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78"
)

// requireUserID достает ID аутентифицированного участника из контекста.
// При его отсутствии пишет 401 и возвращает false.
func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		res.JsonResponse(c.Writer, res.ErrorResponse{
			Error:     "Authentication required",
			ErrorCode: http.StatusUnauthorized,
		}, http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Ошибки предусловий и валидации - 400, отсутствие записей - 404,
// ошибки провайдера - 400 с исходным сообщением, остальное - 500.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var stripeErr *stripe.Error

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
		message = "Authentication required"
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = "Not found"
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		message = "Invalid request"
	case errors.Is(err, domain.ErrNoBillingIdentity):
		status = http.StatusBadRequest
		message = domain.ErrNoBillingIdentity.Error()
	case errors.Is(err, domain.ErrNoPayoutAccount):
		status = http.StatusBadRequest
		message = domain.ErrNoPayoutAccount.Error()
	case errors.Is(err, domain.ErrNoCardOnFile):
		status = http.StatusBadRequest
		message = domain.ErrNoCardOnFile.Error()
	case errors.Is(err, domain.ErrNoMembershipPlan):
		status = http.StatusBadRequest
		message = domain.ErrNoMembershipPlan.Error()
	case errors.Is(err, domain.ErrNoPaymentMethod):
		status = http.StatusNotFound
		message = domain.ErrNoPaymentMethod.Error()
	case errors.Is(err, domain.ErrNoBankAccount):
		status = http.StatusNotFound
		message = domain.ErrNoBankAccount.Error()
	case errors.Is(err, domain.ErrDonationNotLogged):
		// Деньги переведены, но запись не создана: это наша ошибка учета
		status = http.StatusInternalServerError
		message = "Failed to log donation"
	case errors.As(err, &stripeErr):
		// Сообщение провайдера отдается клиенту как есть
		status = http.StatusBadRequest
		message = stripeErr.Msg
	}

	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error:     message,
		ErrorCode: status,
	}, status)
}
