package upsert_availability

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/availability"
)

const (
	msgInvalidDoctorID    = "некорректный ID врача"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgDoctorNotFound     = "врач не найден"
	msgForbidden          = "доступ запрещен"
	msgPastDate           = "нельзя менять расписание на прошедшую дату"
	msgHasAppointments    = "на эту дату уже есть записи, окно изменить нельзя"
	msgArbitrationBusy    = "дата сейчас бронируется, повторите попытку"
)

type Handler struct {
	service AvailabilityService
	logger  Logger
}

func NewHandler(service AvailabilityService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle PUT /api/v1/doctors/{doctorId}/availability/{date}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	doctorID, err := handlers.PathInt64(r, "doctorId")
	if err != nil {
		h.logger.Warn("PUT /doctors/{id}/availability/{date} - Invalid doctor ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDoctorID)
		return
	}
	date := mux.Vars(r)["date"]

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PUT /doctors/{id}/availability/{date} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req UpsertWindowRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /doctors/{id}/availability/{date} - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Сервис сам проверит права доступа и корректность окна
	window, err := h.service.Upsert(r.Context(), req.ToServiceRequest(userID, doctorID, date))
	if err != nil {
		switch {
		case handlers.RespondDomainError(w, err):
			h.logger.Warn("PUT /doctors/{id}/availability/{date} - Invalid window: doctor_id=%d, date=%s, error=%v",
				doctorID, date, err)

		case errors.Is(err, availability.ErrInvalidInput):
			h.logger.Warn("PUT /doctors/{id}/availability/{date} - Past date: doctor_id=%d, date=%s", doctorID, date)
			handlers.RespondBadRequest(w, msgPastDate)

		case errors.Is(err, availability.ErrDoctorNotFound):
			h.logger.Warn("PUT /doctors/{id}/availability/{date} - Doctor not found: doctor_id=%d", doctorID)
			handlers.RespondNotFound(w, msgDoctorNotFound)

		case errors.Is(err, availability.ErrAccessDenied):
			h.logger.Warn("PUT /doctors/{id}/availability/{date} - Access denied: doctor_id=%d, user_id=%d", doctorID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, availability.ErrWindowHasAppointments):
			h.logger.Warn("PUT /doctors/{id}/availability/{date} - Window has appointments: doctor_id=%d, date=%s", doctorID, date)
			handlers.RespondError(w, http.StatusConflict, msgHasAppointments)

		case errors.Is(err, availability.ErrArbitrationUnavailable):
			h.logger.Warn("PUT /doctors/{id}/availability/{date} - Date locked: doctor_id=%d, date=%s", doctorID, date)
			handlers.RespondError(w, http.StatusServiceUnavailable, msgArbitrationBusy)

		default:
			h.logger.Error("PUT /doctors/{id}/availability/{date} - Failed to save window: doctor_id=%d, date=%s, error=%v",
				doctorID, date, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PUT /doctors/{id}/availability/{date} - Window saved: window_id=%d, doctor_id=%d, date=%s",
		window.ID, doctorID, date)
	handlers.RespondJSON(w, http.StatusOK, window)
}
