package booking_session

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/session"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_dates"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/release_appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_slot"
)

const (
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgMissingUserID        = "отсутствует ID пользователя"
	msgUnknownAction        = "неизвестное действие"
	msgWrongStep            = "действие недоступно на текущем шаге"
	msgInvalidInput         = "некорректные данные действия"
	msgNoAvailableDates     = "у врача нет свободных дат"
	msgNoAvailableSlots     = "на выбранную дату нет свободных слотов"
	msgConfirmationRequired = "подтвердите детали записи"
	msgCannotGoBack         = "на этот шаг вернуться нельзя"
	msgDoctorNotFound       = "врач не найден"
	msgAppointmentNotFound  = "запись не найдена"
	msgGatewayUnavailable   = "платежный сервис недоступен, повторите попытку"
)

type Handler struct {
	machine Machine
	logger  Logger
}

func NewHandler(machine Machine, logger Logger) *Handler {
	return &Handler{
		machine: machine,
		logger:  logger,
	}
}

// Handle POST /api/v1/booking-session
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /booking-session - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req SessionRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /booking-session - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	state, err := h.machine.Apply(r.Context(), patientID, req.State, req.Action)
	if err != nil {
		h.respondError(w, patientID, req, err)
		return
	}

	h.logger.Info("POST /booking-session - Action applied: patient_id=%d, action=%s, step=%s, notice=%s",
		patientID, req.Action.Type, state.Step, state.Notice)
	handlers.RespondJSON(w, http.StatusOK, SessionResponse{State: state})
}

func (h *Handler) respondError(w http.ResponseWriter, patientID int64, req SessionRequest, err error) {
	switch {
	case handlers.RespondDomainError(w, err):
		h.logger.Warn("POST /booking-session - Domain error: patient_id=%d, action=%s, error=%v",
			patientID, req.Action.Type, err)

	case errors.Is(err, session.ErrUnknownAction):
		handlers.RespondBadRequest(w, msgUnknownAction)

	case errors.Is(err, session.ErrWrongStep):
		handlers.RespondError(w, http.StatusConflict, msgWrongStep)

	case errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, confirm_payment.ErrInvalidInput),
		errors.Is(err, release_appointment.ErrInvalidInput):
		handlers.RespondBadRequest(w, msgInvalidInput)

	case errors.Is(err, session.ErrNoAvailableDates):
		handlers.RespondError(w, http.StatusConflict, msgNoAvailableDates)

	case errors.Is(err, session.ErrNoAvailableSlots):
		handlers.RespondError(w, http.StatusConflict, msgNoAvailableSlots)

	case errors.Is(err, session.ErrConfirmationRequired):
		handlers.RespondBadRequest(w, msgConfirmationRequired)

	case errors.Is(err, session.ErrCannotGoBack):
		handlers.RespondError(w, http.StatusConflict, msgCannotGoBack)

	case errors.Is(err, get_available_dates.ErrDoctorNotFound),
		errors.Is(err, get_available_slots.ErrDoctorNotFound),
		errors.Is(err, reserve_slot.ErrDoctorNotFound):
		handlers.RespondNotFound(w, msgDoctorNotFound)

	case errors.Is(err, confirm_payment.ErrAppointmentNotFound),
		errors.Is(err, release_appointment.ErrAppointmentNotFound),
		errors.Is(err, confirm_payment.ErrAccessDenied),
		errors.Is(err, release_appointment.ErrAccessDenied):
		// Чужая запись неотличима от несуществующей
		handlers.RespondNotFound(w, msgAppointmentNotFound)

	case errors.Is(err, confirm_payment.ErrNotAwaitingPayment),
		errors.Is(err, release_appointment.ErrCannotCancel):
		handlers.RespondError(w, http.StatusConflict, msgWrongStep)

	case errors.Is(err, confirm_payment.ErrGatewayUnavailable):
		handlers.RespondError(w, http.StatusServiceUnavailable, msgGatewayUnavailable)

	default:
		h.logger.Error("POST /booking-session - Failed to apply action: patient_id=%d, action=%s, step=%s, error=%v",
			patientID, req.Action.Type, req.State.Step, err)
		handlers.RespondInternalError(w)
	}
}
