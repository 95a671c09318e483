package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Request модель запроса на получение слотов
type Request struct {
	DoctorID int64     // ID врача
	Date     time.Time // Дата (без времени)
}

// Response модель ответа со слотами на дату
type Response struct {
	DoctorID  int64
	Date      time.Time
	HasWindow bool             // врач объявил рабочее окно на эту дату
	Slots     []domain.Slot    // Все слоты окна с состоянием и флагом Past
	Available []domain.Slot    // Слоты, которые можно забронировать сейчас
	Stats     domain.SlotStats // Статистика по всем слотам
}
