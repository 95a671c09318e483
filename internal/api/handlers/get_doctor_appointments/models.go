package get_doctor_appointments

import (
	"strconv"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

// ToServiceRequest создает запрос сервиса из query параметров
func ToServiceRequest(doctorID, userID int64, startDateStr, endDateStr, statusStr, includeCancelledStr string) (*models.GetDoctorAppointmentsRequest, error) {
	req := &models.GetDoctorAppointmentsRequest{
		UserID:   userID,
		DoctorID: doctorID,
	}

	if startDateStr != "" {
		date, err := domain.ParseDate(startDateStr)
		if err != nil {
			return nil, err
		}
		req.StartDate = &date
	}

	if endDateStr != "" {
		date, err := domain.ParseDate(endDateStr)
		if err != nil {
			return nil, err
		}
		req.EndDate = &date
	}

	if statusStr != "" {
		req.Status = &statusStr
	}

	if includeCancelledStr != "" {
		include, err := strconv.ParseBool(includeCancelledStr)
		if err != nil {
			return nil, err
		}
		req.IncludeCancelled = include
	}

	return req, nil
}
