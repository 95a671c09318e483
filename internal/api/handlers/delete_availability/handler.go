package delete_availability

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/availability"
	"github.com/m04kA/SMC-AppointmentService/internal/service/availability/models"
)

const (
	msgInvalidDoctorID = "некорректный ID врача"
	msgInvalidDate     = "некорректная дата, ожидается формат YYYY-MM-DD"
	msgMissingUserID   = "отсутствует ID пользователя"
	msgDoctorNotFound  = "врач не найден"
	msgWindowNotFound  = "рабочее окно не найдено"
	msgForbidden       = "доступ запрещен"
	msgHasAppointments = "на эту дату уже есть записи, окно удалить нельзя"
	msgArbitrationBusy = "дата сейчас бронируется, повторите попытку"
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

// Handle DELETE /api/v1/doctors/{doctorId}/availability/{date}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	doctorID, err := handlers.PathInt64(r, "doctorId")
	if err != nil {
		h.logger.Warn("DELETE /doctors/{id}/availability/{date} - Invalid doctor ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDoctorID)
		return
	}

	date, err := domain.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		h.logger.Warn("DELETE /doctors/{id}/availability/{date} - Invalid date: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("DELETE /doctors/{id}/availability/{date} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	err = h.service.Delete(r.Context(), &models.DeleteWindowRequest{
		UserID:   userID,
		DoctorID: doctorID,
		Date:     date,
	})
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrDoctorNotFound):
			h.logger.Warn("DELETE /doctors/{id}/availability/{date} - Doctor not found: doctor_id=%d", doctorID)
			handlers.RespondNotFound(w, msgDoctorNotFound)

		case errors.Is(err, availability.ErrWindowNotFound):
			h.logger.Warn("DELETE /doctors/{id}/availability/{date} - Window not found: doctor_id=%d", doctorID)
			handlers.RespondNotFound(w, msgWindowNotFound)

		case errors.Is(err, availability.ErrAccessDenied):
			h.logger.Warn("DELETE /doctors/{id}/availability/{date} - Access denied: doctor_id=%d, user_id=%d", doctorID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, availability.ErrWindowHasAppointments):
			handlers.RespondError(w, http.StatusConflict, msgHasAppointments)

		case errors.Is(err, availability.ErrArbitrationUnavailable):
			handlers.RespondError(w, http.StatusServiceUnavailable, msgArbitrationBusy)

		default:
			h.logger.Error("DELETE /doctors/{id}/availability/{date} - Failed to delete window: doctor_id=%d, error=%v", doctorID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("DELETE /doctors/{id}/availability/{date} - Window deleted: doctor_id=%d, date=%s",
		doctorID, date.Format(domain.DateFormat))
	w.WriteHeader(http.StatusNoContent)
}
