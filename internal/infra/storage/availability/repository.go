package availability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

const tableName = "availability_windows"

// DBExecutor интерфейс выполнения запросов
type DBExecutor = dbmetrics.DBExecutor

var columns = []string{
	"id",
	"doctor_id",
	"window_date",
	"start_time",
	"end_time",
	"slot_duration_minutes",
	"breaks",
	"created_at",
	"updated_at",
}

// Repository репозиторий рабочих окон врачей
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория рабочих окон
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Upsert создает окно на дату или заменяет существующее
func (r *Repository) Upsert(ctx context.Context, w *domain.AvailabilityWindow) (*domain.AvailabilityWindow, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	breaks := w.Breaks
	if breaks == nil {
		breaks = []domain.BreakInterval{}
	}
	breaksJSON, err := json.Marshal(breaks)
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert: %v", ErrEncodeBreaks, err)
	}

	query, args, err := psqlbuilder.Insert(tableName).
		Columns(
			"doctor_id",
			"window_date",
			"start_time",
			"end_time",
			"slot_duration_minutes",
			"breaks",
		).
		Values(
			w.DoctorID,
			domain.DateOnly(w.Date),
			w.StartTime,
			w.EndTime,
			w.SlotDurationMinutes,
			string(breaksJSON),
		).
		Suffix(`ON CONFLICT (doctor_id, window_date) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			breaks = EXCLUDED.breaks,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&w.ID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %w", ErrExecQuery, err)
	}

	w.Breaks = breaks
	w.CreatedAt = createdAt.Time
	w.UpdatedAt = updatedAt.Time

	return w, nil
}

// GetByDoctorAndDate получает окно врача на дату
func (r *Repository) GetByDoctorAndDate(ctx context.Context, doctorID int64, date time.Time) (*domain.AvailabilityWindow, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"doctor_id": doctorID}).
		Where(squirrel.Eq{"window_date": domain.DateOnly(date)}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByDoctorAndDate - build select query: %v", ErrBuildQuery, err)
	}

	w, err := scanWindow(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWindowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByDoctorAndDate - scan window: %w", ErrScanRow, err)
	}

	return w, nil
}

// ListByDoctor получает окна врача в диапазоне дат [from, to], по возрастанию даты
func (r *Repository) ListByDoctor(ctx context.Context, doctorID int64, from, to time.Time) ([]*domain.AvailabilityWindow, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"doctor_id": doctorID}).
		Where(squirrel.GtOrEq{"window_date": domain.DateOnly(from)}).
		Where(squirrel.LtOrEq{"window_date": domain.DateOnly(to)}).
		OrderBy("window_date ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListByDoctor - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByDoctor - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	windows := make([]*domain.AvailabilityWindow, 0)
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListByDoctor - scan row: %v", ErrScanRow, err)
		}
		windows = append(windows, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByDoctor - rows error: %v", ErrScanRow, err)
	}

	return windows, nil
}

// Delete удаляет окно врача на дату
func (r *Repository) Delete(ctx context.Context, doctorID int64, date time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete(tableName).
		Where(squirrel.Eq{"doctor_id": doctorID}).
		Where(squirrel.Eq{"window_date": domain.DateOnly(date)}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Delete - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrWindowNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWindow(row rowScanner) (*domain.AvailabilityWindow, error) {
	var (
		w                    domain.AvailabilityWindow
		breaksJSON           []byte
		createdAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&w.Date,
		&w.StartTime,
		&w.EndTime,
		&w.SlotDurationMinutes,
		&breaksJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Breaks, err = decodeBreaks(breaksJSON)
	if err != nil {
		return nil, err
	}

	w.Date = domain.DateOnly(w.Date)
	w.CreatedAt = createdAt.Time
	w.UpdatedAt = updatedAt.Time

	return &w, nil
}

func decodeBreaks(raw []byte) ([]domain.BreakInterval, error) {
	breaks := make([]domain.BreakInterval, 0)
	if len(raw) == 0 {
		return breaks, nil
	}
	if err := json.Unmarshal(raw, &breaks); err != nil {
		return nil, fmt.Errorf("decode breaks: %w", err)
	}
	return breaks, nil
}
