package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

const (
	tableName = "appointments"

	pgUniqueViolation = "23505"
)

var columns = []string{
	"id",
	"doctor_id",
	"patient_id",
	"appointment_date",
	"start_time",
	"end_time",
	"duration_minutes",
	"status",
	"consultation_fee",
	"currency",
	"payment_status",
	"payment_method",
	"payment_reference",
	"notes",
	"shared_document_ids",
	"expires_at",
	"cancellation_reason",
	"confirmed_at",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий приёмов
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория приёмов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает приём
// Уникальный частичный индекс (doctor_id, appointment_date, start_time) WHERE status <> 'cancelled'
// гарантирует, что второй активный приём на тот же слот не будет создан: в этом случае возвращается ErrSlotTaken
func (r *Repository) Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	documentIDs := a.SharedDocumentIDs
	if documentIDs == nil {
		documentIDs = []string{}
	}

	query, args, err := psqlbuilder.Insert(tableName).
		Columns(
			"doctor_id",
			"patient_id",
			"appointment_date",
			"start_time",
			"end_time",
			"duration_minutes",
			"status",
			"consultation_fee",
			"currency",
			"payment_status",
			"notes",
			"shared_document_ids",
			"expires_at",
		).
		Values(
			a.DoctorID,
			a.PatientID,
			a.AppointmentDate,
			a.StartTime,
			a.EndTime,
			a.DurationMinutes,
			a.Status,
			a.ConsultationFee,
			a.Currency,
			a.PaymentStatus,
			a.Notes,
			pq.Array(documentIDs),
			a.ExpiresAt,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&a.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	a.SharedDocumentIDs = documentIDs
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return a, nil
}

// GetByID получает приём по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate получает приём по ID с блокировкой строки
// Блокировка берётся только внутри транзакции
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.getByID(ctx, id, dbmetrics.IsInTransaction(ctx))
}

func (r *Repository) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": id})

	if forUpdate {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	a, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %w", ErrScanRow, err)
	}

	return a, nil
}

// ListActiveByDoctorAndDate получает неотменённые приёмы врача на дату
// Внутри транзакции строки блокируются (FOR UPDATE)
func (r *Repository) ListActiveByDoctorAndDate(ctx context.Context, doctorID int64, date time.Time) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"doctor_id": doctorID}).
		Where(squirrel.Eq{"appointment_date": domain.DateOnly(date)}).
		Where(squirrel.NotEq{"status": string(domain.StatusCancelled)}).
		OrderBy("start_time ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveByDoctorAndDate - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveByDoctorAndDate - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListByDoctor получает приёмы врача с фильтрацией
// Для одной даты сортирует по времени начала, для периода - сначала новые
func (r *Repository) ListByDoctor(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"doctor_id": filter.DoctorID})

	if filter.StartDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"appointment_date": domain.DateOnly(*filter.StartDate)})
	}
	if filter.EndDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"appointment_date": domain.DateOnly(*filter.EndDate)})
	}

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": string(*filter.Status)})
	} else if !filter.IncludeCancelled {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": string(domain.StatusCancelled)})
	}

	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.Equal(*filter.EndDate) {
		selectBuilder = selectBuilder.OrderBy("start_time ASC")
	} else {
		selectBuilder = selectBuilder.OrderBy("appointment_date DESC", "start_time DESC")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByDoctor - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByDoctor - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListByPatient получает приёмы пациента, опционально по статусу
func (r *Repository) ListByPatient(ctx context.Context, patientID int64, status *domain.AppointmentStatus) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"patient_id": patientID}).
		OrderBy("appointment_date DESC", "start_time DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": string(*status)})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByPatient - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByPatient - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListExpiredHolds возвращает ID приёмов в AwaitingPayment с истёкшим дедлайном
func (r *Repository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id").
		From(tableName).
		Where(squirrel.Eq{"status": string(domain.StatusAwaitingPayment)}).
		Where(squirrel.LtOrEq{"expires_at": now}).
		OrderBy("expires_at ASC").
		Limit(uint64(limit)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListExpiredHolds - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListExpiredHolds - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: ListExpiredHolds - scan id: %v", ErrScanRow, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListExpiredHolds - rows error: %v", ErrScanRow, err)
	}

	return ids, nil
}

// Confirm переводит приём из AwaitingPayment в Confirmed
// Если приём уже не ожидает оплаты, возвращает ErrStatusConflict
func (r *Repository) Confirm(ctx context.Context, id int64, paymentMethod, paymentReference string, confirmedAt time.Time) error {
	query, args, err := psqlbuilder.Update(tableName).
		Set("status", string(domain.StatusConfirmed)).
		Set("payment_status", string(domain.PaymentPaid)).
		Set("payment_method", paymentMethod).
		Set("payment_reference", paymentReference).
		Set("confirmed_at", confirmedAt).
		Set("updated_at", confirmedAt).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": string(domain.StatusAwaitingPayment)}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Confirm - build update query: %v", ErrBuildQuery, err)
	}

	return r.execTransition(ctx, "Confirm", id, query, args)
}

// MarkPaymentFailed фиксирует отказ платёжного шлюза, приём продолжает ждать оплату
func (r *Repository) MarkPaymentFailed(ctx context.Context, id int64, paymentMethod string, at time.Time) error {
	query, args, err := psqlbuilder.Update(tableName).
		Set("payment_status", string(domain.PaymentFailed)).
		Set("payment_method", paymentMethod).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": string(domain.StatusAwaitingPayment)}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkPaymentFailed - build update query: %v", ErrBuildQuery, err)
	}

	return r.execTransition(ctx, "MarkPaymentFailed", id, query, args)
}

// Cancel отменяет приём, если его статус это допускает (Pending, AwaitingPayment, Confirmed)
// После отмены слот снова попадает в генерацию как свободный
func (r *Repository) Cancel(ctx context.Context, id int64, reason domain.CancellationReason, paymentStatus domain.PaymentStatus, cancelledAt time.Time) error {
	query, args, err := psqlbuilder.Update(tableName).
		Set("status", string(domain.StatusCancelled)).
		Set("cancellation_reason", string(reason)).
		Set("payment_status", string(paymentStatus)).
		Set("cancelled_at", cancelledAt).
		Set("updated_at", cancelledAt).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": []string{
			string(domain.StatusPending),
			string(domain.StatusAwaitingPayment),
			string(domain.StatusConfirmed),
		}}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Cancel - build update query: %v", ErrBuildQuery, err)
	}

	return r.execTransition(ctx, "Cancel", id, query, args)
}

// Expire отменяет удержание по таймауту оплаты
// Срабатывает только для AwaitingPayment с наступившим дедлайном, иначе ErrStatusConflict
func (r *Repository) Expire(ctx context.Context, id int64, at time.Time) error {
	query, args, err := psqlbuilder.Update(tableName).
		Set("status", string(domain.StatusCancelled)).
		Set("cancellation_reason", string(domain.ReasonPaymentTimeout)).
		Set("cancelled_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": string(domain.StatusAwaitingPayment)}).
		Where(squirrel.LtOrEq{"expires_at": at}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Expire - build update query: %v", ErrBuildQuery, err)
	}

	return r.execTransition(ctx, "Expire", id, query, args)
}

// execTransition выполняет условный UPDATE и различает "нет строки" и "не тот статус"
func (r *Repository) execTransition(ctx context.Context, op string, id int64, query string, args []interface{}) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %w", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	if rowsAffected > 0 {
		return nil
	}

	if _, err := r.getByID(ctx, id, false); err != nil {
		return err
	}
	return ErrStatusConflict
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var (
		a                    domain.Appointment
		createdAt, updatedAt sql.NullTime
		documentIDs          pq.StringArray
	)

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.AppointmentDate,
		&a.StartTime,
		&a.EndTime,
		&a.DurationMinutes,
		&a.Status,
		&a.ConsultationFee,
		&a.Currency,
		&a.PaymentStatus,
		&a.PaymentMethod,
		&a.PaymentReference,
		&a.Notes,
		&documentIDs,
		&a.ExpiresAt,
		&a.CancellationReason,
		&a.ConfirmedAt,
		&a.CancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.AppointmentDate = domain.DateOnly(a.AppointmentDate)
	a.SharedDocumentIDs = []string(documentIDs)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}

// scanAppointments сканирует результаты запроса в слайс приёмов
func scanAppointments(rows *sql.Rows) ([]*domain.Appointment, error) {
	appointments := make([]*domain.Appointment, 0)

	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanAppointments - scan row: %v", ErrScanRow, err)
		}
		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanAppointments - rows error: %v", ErrScanRow, err)
	}

	return appointments, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
