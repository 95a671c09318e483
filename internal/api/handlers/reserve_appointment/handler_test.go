package reserve_appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	reserveSlot "github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_slot"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

type stubUseCase struct {
	got  *reserveSlot.Request
	resp *reserveSlot.Response
	err  error
}

func (s *stubUseCase) Execute(_ context.Context, req *reserveSlot.Request) (*reserveSlot.Response, error) {
	s.got = req
	return s.resp, s.err
}

func doRequest(t *testing.T, h *Handler, body string, userID *int64) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	if userID != nil {
		r = r.WithContext(middleware.WithUserID(r.Context(), *userID))
	}
	w := httptest.NewRecorder()
	h.Handle(w, r)
	return w
}

func TestHandler_Reserved(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	expiresAt := time.Date(2025, 1, 9, 12, 15, 0, 0, time.UTC)
	uc := &stubUseCase{resp: &reserveSlot.Response{
		Appointment: &domain.Appointment{
			ID:              7,
			DoctorID:        3,
			PatientID:       11,
			AppointmentDate: date,
			StartTime:       "10:00",
			EndTime:         "10:30",
			DurationMinutes: 30,
			Status:          domain.StatusAwaitingPayment,
			ConsultationFee: 1500,
			Currency:        "usd",
		},
		ExpiresAt: expiresAt,
	}}
	h := NewHandler(uc, logger.NewNop())
	patientID := int64(11)

	w := doRequest(t, h, `{"doctorId":3,"appointmentDate":"2025-01-10","startTime":"10:00"}`, &patientID)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, uc.got)
	assert.Equal(t, int64(11), uc.got.PatientID)
	assert.Equal(t, types.TimeString("10:00"), uc.got.StartTime)
	assert.True(t, uc.got.Date.Equal(date))

	var resp ReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.AppointmentID)
	assert.Equal(t, "awaiting_payment", resp.Status)
	assert.Equal(t, "10:30", resp.EndTime)
	assert.Equal(t, "2025-01-09T12:15:00Z", resp.ExpiresAt)
}

func TestHandler_Errors(t *testing.T) {
	patientID := int64(11)
	validBody := `{"doctorId":3,"appointmentDate":"2025-01-10","startTime":"10:00"}`

	tests := []struct {
		name       string
		body       string
		userID     *int64
		err        error
		wantStatus int
		wantReason string
	}{
		{name: "no user", body: validBody, wantStatus: http.StatusUnauthorized},
		{name: "unknown field", body: `{"doctorId":3,"foo":1}`, userID: &patientID, wantStatus: http.StatusBadRequest},
		{name: "bad date", body: `{"doctorId":3,"appointmentDate":"10.01.2025","startTime":"10:00"}`, userID: &patientID, wantStatus: http.StatusBadRequest},
		{name: "bad time", body: `{"doctorId":3,"appointmentDate":"2025-01-10","startTime":"25:00"}`, userID: &patientID, wantStatus: http.StatusBadRequest},
		{
			name:       "doctor not found",
			body:       validBody,
			userID:     &patientID,
			err:        fmt.Errorf("%w: doctor 3", reserveSlot.ErrDoctorNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "slot taken",
			body:       validBody,
			userID:     &patientID,
			err:        &domain.ConflictError{DoctorID: 3, StartTime: "10:00"},
			wantStatus: http.StatusConflict,
			wantReason: domain.ConflictReasonSlotAlreadyTaken,
		},
		{
			name:       "arbitration unavailable",
			body:       validBody,
			userID:     &patientID,
			err:        &domain.TransientArbitrationError{Key: "slot:3:2025-01-10", Attempts: 3, Err: errors.New("lock timeout")},
			wantStatus: http.StatusServiceUnavailable,
			wantReason: "arbitration_unavailable",
		},
		{
			name:       "internal",
			body:       validBody,
			userID:     &patientID,
			err:        reserveSlot.ErrInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&stubUseCase{err: tt.err}, logger.NewNop())

			w := doRequest(t, h, tt.body, tt.userID)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, tt.wantReason, resp.Reason)
		})
	}
}
