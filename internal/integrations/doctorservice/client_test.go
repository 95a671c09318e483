package doctorservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func TestClient_GetDoctor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/doctors/5":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":5,"user_id":42,"full_name":"Anna Petrova","specialty":"cardiology","consultation_fee":250000,"currency":"rub","is_active":true}`))
		case "/internal/doctors/6":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nopLogger{})

	doctor, err := client.GetDoctor(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(42), doctor.UserID)
	assert.Equal(t, int64(250000), doctor.ConsultationFee)
	assert.True(t, doctor.IsActive)

	_, err = client.GetDoctor(context.Background(), 6)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = client.GetDoctor(context.Background(), 7)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestStatic_GetDoctor(t *testing.T) {
	s := NewStatic(1500, "usd")

	doctor, err := s.GetDoctor(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), doctor.UserID)
	assert.Equal(t, int64(1500), doctor.ConsultationFee)

	_, err = s.GetDoctor(context.Background(), 0)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}
