package confirm_payment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	confirmPayment "github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
)

const (
	msgInvalidAppointmentID = "некорректный ID приёма"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgMissingUserID        = "отсутствует ID пользователя"
	msgInvalidInput         = "некорректные данные платежа"
	msgNotFound             = "приём не найден"
	msgForbidden            = "доступ запрещен"
	msgNotAwaitingPayment   = "приём не ожидает оплаты"
	msgGatewayUnavailable   = "платёжный шлюз недоступен, повторите попытку"
)

type Handler struct {
	useCase ConfirmPaymentUseCase
	logger  Logger
}

func NewHandler(useCase ConfirmPaymentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments/{appointmentId}/payment
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/payment - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	patientID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/payment - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req ConfirmPaymentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/payment - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(appointmentID, patientID))
	if err != nil {
		switch {
		case errors.Is(err, confirmPayment.ErrInvalidInput):
			h.logger.Warn("POST /appointments/{id}/payment - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, confirmPayment.ErrAppointmentNotFound):
			h.logger.Warn("POST /appointments/{id}/payment - Appointment not found: appointment_id=%d", appointmentID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, confirmPayment.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/payment - Access denied: appointment_id=%d, user_id=%d",
				appointmentID, patientID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, confirmPayment.ErrNotAwaitingPayment):
			h.logger.Warn("POST /appointments/{id}/payment - Not awaiting payment: appointment_id=%d", appointmentID)
			handlers.RespondError(w, http.StatusConflict, msgNotAwaitingPayment)

		case errors.Is(err, confirmPayment.ErrGatewayUnavailable):
			h.logger.Warn("POST /appointments/{id}/payment - Gateway unavailable: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondError(w, http.StatusServiceUnavailable, msgGatewayUnavailable)

		case handlers.RespondDomainError(w, err):
			h.logger.Warn("POST /appointments/{id}/payment - Payment rejected: appointment_id=%d, error=%v",
				appointmentID, err)

		default:
			h.logger.Error("POST /appointments/{id}/payment - Failed to confirm payment: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/payment - Payment confirmed: appointment_id=%d, already_confirmed=%t",
		appointmentID, result.AlreadyConfirmed)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
