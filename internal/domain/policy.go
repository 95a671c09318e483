package domain

import (
	"fmt"
	"time"
)

// BookingPolicy правила записи, общие для всех врачей сервиса
type BookingPolicy struct {
	Location                *time.Location // часовой пояс, в котором заданы окна врачей
	AdvanceBookingDays      int            // 0 = без ограничения
	MinBookingNoticeMinutes int
	HoldDuration            time.Duration // сколько слот удерживается до оплаты
}

// DefaultBookingPolicy политика по умолчанию
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		Location:                time.UTC,
		AdvanceBookingDays:      DefaultAdvanceBookingDays,
		MinBookingNoticeMinutes: DefaultMinBookingNoticeMinutes,
		HoldDuration:            DefaultHoldMinutes * time.Minute,
	}
}

func (p BookingPolicy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Today текущая дата в часовом поясе политики
func (p BookingPolicy) Today(now time.Time) time.Time {
	return DateOnly(now.In(p.location()))
}

// LastBookableDate последняя дата, на которую можно записаться
func (p BookingPolicy) LastBookableDate(now time.Time) time.Time {
	days := p.AdvanceBookingDays
	if days <= 0 {
		days = DefaultAdvanceBookingDays
	}
	return p.Today(now).AddDate(0, 0, days)
}

// CheckDate проверяет, что на дату можно записаться
func (p BookingPolicy) CheckDate(date time.Time, now time.Time) error {
	day := DateOnly(date)
	today := p.Today(now)

	if day.Before(today) {
		return &ValidationError{Field: "date", Reason: "is in the past"}
	}

	if p.AdvanceBookingDays > 0 && day.After(today.AddDate(0, 0, p.AdvanceBookingDays)) {
		return &ValidationError{
			Field:  "date",
			Reason: fmt.Sprintf("is more than %d days ahead", p.AdvanceBookingDays),
		}
	}

	return nil
}

// Deadline дедлайн оплаты для удержания, созданного в момент now
func (p BookingPolicy) Deadline(now time.Time) time.Time {
	hold := p.HoldDuration
	if hold <= 0 {
		hold = DefaultHoldMinutes * time.Minute
	}
	return now.Add(hold)
}

// Loc часовой пояс политики
func (p BookingPolicy) Loc() *time.Location {
	return p.location()
}
