package doctorservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент справочника врачей
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента справочника врачей
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetDoctor получает профиль врача
func (c *Client) GetDoctor(ctx context.Context, doctorID int64) (*Doctor, error) {
	url := fmt.Sprintf("%s/internal/doctors/%d", c.baseURL, doctorID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("DoctorService request failed for doctor_id=%d: %v", doctorID, err)
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: invalid doctor ID format", ErrInvalidResponse)
	case http.StatusNotFound:
		return nil, ErrDoctorNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var doctor Doctor
	if err := json.NewDecoder(resp.Body).Decode(&doctor); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return &doctor, nil
}

// Static справочник врачей без внешнего сервиса (локальный режим)
// Любой положительный ID считается активным врачом, профиль принадлежит пользователю с тем же ID
type Static struct {
	fee      int64
	currency string
}

// NewStatic создает статический справочник с единой стоимостью приёма
func NewStatic(fee int64, currency string) *Static {
	return &Static{fee: fee, currency: currency}
}

// GetDoctor возвращает профиль врача
func (s *Static) GetDoctor(_ context.Context, doctorID int64) (*Doctor, error) {
	if doctorID <= 0 {
		return nil, ErrDoctorNotFound
	}
	return &Doctor{
		ID:              doctorID,
		UserID:          doctorID,
		FullName:        fmt.Sprintf("Doctor #%d", doctorID),
		ConsultationFee: s.fee,
		Currency:        s.currency,
		IsActive:        true,
	}, nil
}
