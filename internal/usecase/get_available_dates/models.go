package get_available_dates

import "time"

// Request модель запроса на получение дат с доступными слотами
type Request struct {
	DoctorID int64
}

// Response модель ответа
type Response struct {
	DoctorID int64
	From     time.Time  // Первая дата периода (сегодня)
	To       time.Time  // Последняя дата периода
	Dates    []DateInfo // Даты с хотя бы одним доступным слотом, по возрастанию
}

// DateInfo дата с количеством доступных слотов
type DateInfo struct {
	Date           time.Time
	AvailableSlots int
}
