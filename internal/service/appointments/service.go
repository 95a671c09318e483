package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	doctorClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

// Service сервис чтения приёмов
type Service struct {
	appointmentRepo AppointmentRepository
	doctorClient    DoctorServiceClient
	logger          Logger
}

// NewService создает новый экземпляр сервиса приёмов
func NewService(
	appointmentRepo AppointmentRepository,
	doctorClient DoctorServiceClient,
	logger Logger,
) *Service {
	return &Service{
		appointmentRepo: appointmentRepo,
		doctorClient:    doctorClient,
		logger:          logger,
	}
}

// GetByID получает приём по ID
// Доступно пациенту приёма и владельцу профиля врача
func (s *Service) GetByID(ctx context.Context, id int64, userID int64) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d for user=%d", id, userID)

	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("GetByID: appointment id=%d not found", id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("GetByID: repository error for appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if !appointment.IsOwnedByPatient(userID) {
		if err := s.checkDoctorAccess(ctx, appointment.DoctorID, userID); err != nil {
			s.logger.Warn("GetByID: access denied for user=%d to appointment id=%d", userID, id)
			return nil, err
		}
	}

	return models.FromDomainAppointment(appointment), nil
}

// GetPatientAppointments получает историю приёмов пациента
// Опционально фильтрует по статусу
func (s *Service) GetPatientAppointments(ctx context.Context, req *models.GetPatientAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("GetPatientAppointments: fetching appointments for patient=%d, status=%v", req.PatientID, req.Status)

	var status *domain.AppointmentStatus
	if req.Status != nil {
		parsed, err := models.ToDomainStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetPatientAppointments: invalid status=%s", *req.Status)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		status = &parsed
	}

	appointments, err := s.appointmentRepo.ListByPatient(ctx, req.PatientID, status)
	if err != nil {
		s.logger.Error("GetPatientAppointments: repository error for patient=%d: %v", req.PatientID, err)
		return nil, fmt.Errorf("%w: GetPatientAppointments - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetPatientAppointments: fetched %d appointments for patient=%d", len(appointments), req.PatientID)
	return models.FromDomainAppointmentList(appointments), nil
}

// GetDoctorAppointments получает приёмы врача за период
// Доступно только владельцу профиля врача
func (s *Service) GetDoctorAppointments(ctx context.Context, req *models.GetDoctorAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("GetDoctorAppointments: fetching appointments for doctor=%d by user=%d", req.DoctorID, req.UserID)

	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		s.logger.Warn("GetDoctorAppointments: endDate before startDate")
		return nil, fmt.Errorf("%w: endDate must not be before startDate", ErrInvalidInput)
	}

	if err := s.checkDoctorAccess(ctx, req.DoctorID, req.UserID); err != nil {
		return nil, err
	}

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetDoctorAppointments: invalid filter: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	appointments, err := s.appointmentRepo.ListByDoctor(ctx, filter)
	if err != nil {
		s.logger.Error("GetDoctorAppointments: repository error for doctor=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: GetDoctorAppointments - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetDoctorAppointments: fetched %d appointments for doctor=%d", len(appointments), req.DoctorID)
	return models.FromDomainAppointmentList(appointments), nil
}

// checkDoctorAccess проверяет, что пользователь владеет профилем врача
func (s *Service) checkDoctorAccess(ctx context.Context, doctorID int64, userID int64) error {
	doctor, err := s.doctorClient.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			s.logger.Warn("checkDoctorAccess: doctor id=%d not found", doctorID)
			return ErrDoctorNotFound
		}
		s.logger.Error("checkDoctorAccess: failed to get doctor id=%d: %v", doctorID, err)
		return fmt.Errorf("%w: checkDoctorAccess - failed to get doctor: %v", ErrInternal, err)
	}

	if doctor.UserID != userID {
		s.logger.Warn("checkDoctorAccess: user=%d does not own doctor=%d", userID, doctorID)
		return ErrAccessDenied
	}

	return nil
}
