package doctorservice

// Doctor профиль врача из справочника врачей
type Doctor struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"` // пользователь, которому принадлежит профиль
	FullName        string `json:"full_name"`
	Specialty       string `json:"specialty"`
	ConsultationFee int64  `json:"consultation_fee"` // в минимальных единицах валюты
	Currency        string `json:"currency"`
	IsActive        bool   `json:"is_active"`
}

// ErrorResponse модель ошибки от сервиса врачей
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
