package handlers

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

const (
	msgSlotTaken            = "слот уже занят, обновите список доступных слотов"
	msgArbitrationBusy      = "слот сейчас бронируется, повторите попытку"
	msgReservationExpired   = "время на оплату истекло, слот освобождён"
	msgPaymentDeclined      = "платёж отклонён"
	msgPaymentAmountInvalid = "сумма платежа не совпадает со стоимостью приёма"
	msgAppointmentCancelled = "приём отменён"
	msgInvalidWindow        = "некорректное рабочее окно"
	msgInvalidBooking       = "некорректный запрос на бронирование"
)

// RespondDomainError отвечает на типизированные ошибки домена
// Возвращает false, если ошибка не доменная и её нужно обработать вызывающему
func RespondDomainError(w http.ResponseWriter, err error) bool {
	var (
		conflict  *domain.ConflictError
		validErr  *domain.ValidationError
		configErr *domain.ConfigurationError
		transient *domain.TransientArbitrationError
		expired   *domain.ExpiredReservationError
		rejected  *domain.PaymentRejectedError
	)

	switch {
	case errors.As(err, &conflict):
		RespondErrorWithReason(w, http.StatusConflict, msgSlotTaken, conflict.Reason())

	case errors.As(err, &validErr):
		RespondErrorWithReason(w, http.StatusBadRequest, msgInvalidBooking+": "+validErr.Field+" "+validErr.Reason, "validation")

	case errors.As(err, &configErr):
		RespondErrorWithReason(w, http.StatusBadRequest, msgInvalidWindow+": "+configErr.Field+" "+configErr.Reason, "configuration")

	case errors.As(err, &transient):
		w.Header().Set("Retry-After", "1")
		RespondErrorWithReason(w, http.StatusServiceUnavailable, msgArbitrationBusy, "arbitration_unavailable")

	// ExpiredReservationError проверяется раньше PaymentRejectedError
	case errors.As(err, &expired):
		RespondErrorWithReason(w, http.StatusGone, msgReservationExpired, string(domain.RejectExpired))

	case errors.As(err, &rejected):
		switch rejected.Reason {
		case domain.RejectAmountMismatch:
			RespondErrorWithReason(w, http.StatusBadRequest, msgPaymentAmountInvalid, string(rejected.Reason))
		case domain.RejectCancelled:
			RespondErrorWithReason(w, http.StatusConflict, msgAppointmentCancelled, string(rejected.Reason))
		default:
			RespondErrorWithReason(w, http.StatusPaymentRequired, msgPaymentDeclined, string(rejected.Reason))
		}

	default:
		return false
	}

	return true
}
