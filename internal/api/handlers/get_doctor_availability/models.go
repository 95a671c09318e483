package get_doctor_availability

import (
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/availability/models"
)

// ToServiceRequest создает запрос сервиса из query параметров (from, to опциональны)
func ToServiceRequest(doctorID int64, fromStr, toStr string) (*models.GetWindowsRequest, error) {
	req := &models.GetWindowsRequest{DoctorID: doctorID}

	if fromStr != "" {
		from, err := domain.ParseDate(fromStr)
		if err != nil {
			return nil, err
		}
		req.From = &from
	}

	if toStr != "" {
		to, err := domain.ParseDate(toStr)
		if err != nil {
			return nil, err
		}
		req.To = &to
	}

	return req, nil
}
