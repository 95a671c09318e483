package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const defaultMaxRetry = 5

func taskID(appointmentID int64) string {
	return fmt.Sprintf("appointment-expire-%d", appointmentID)
}

// NewExpireTask создает задачу снятия удержания
func NewExpireTask(appointmentID int64) (*asynq.Task, error) {
	b, err := json.Marshal(Payload{AppointmentID: appointmentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAppointmentExpire, b), nil
}

// AsynqScheduler ставит отложенные задачи в redis через asynq
// ID задачи привязан к приёму, поэтому повторная постановка не создаёт дубликат
type AsynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	log       Logger
}

// NewAsynqScheduler создает планировщик на asynq
func NewAsynqScheduler(opt asynq.RedisClientOpt, queue string, log Logger) *AsynqScheduler {
	return &AsynqScheduler{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     queue,
		log:       log,
	}
}

// Schedule ставит снятие удержания на момент at
func (s *AsynqScheduler) Schedule(ctx context.Context, appointmentID int64, at time.Time) error {
	task, err := NewExpireTask(appointmentID)
	if err != nil {
		return fmt.Errorf("expiry: build task for appointment %d: %w", appointmentID, err)
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(taskID(appointmentID)),
		asynq.Queue(s.queue),
		asynq.MaxRetry(defaultMaxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		s.log.Info("expiry: task for appointment %d already scheduled", appointmentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("expiry: enqueue task for appointment %d: %w", appointmentID, err)
	}

	return nil
}

// Cancel удаляет отложенную задачу (приём подтверждён или отменён раньше дедлайна)
func (s *AsynqScheduler) Cancel(_ context.Context, appointmentID int64) error {
	err := s.inspector.DeleteTask(s.queue, taskID(appointmentID))
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return fmt.Errorf("expiry: delete task for appointment %d: %w", appointmentID, err)
}

// Close закрывает соединения с redis
func (s *AsynqScheduler) Close() error {
	return errors.Join(s.client.Close(), s.inspector.Close())
}

// Worker обрабатывает задачи снятия удержаний
type Worker struct {
	srv    *asynq.Server
	expire ExpireFunc
	log    Logger
}

// NewWorker создает обработчик задач
// asynqLog получает внутренние сообщения asynq (подходит zap.SugaredLogger)
func NewWorker(opt asynq.RedisClientOpt, queue string, concurrency int, expire ExpireFunc, log Logger, asynqLog asynq.Logger) *Worker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		Logger: asynqLog,
	})

	return &Worker{
		srv:    srv,
		expire: expire,
		log:    log,
	}
}

// Start запускает обработку в фоне
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAppointmentExpire, w.Handle)
	return w.srv.Start(mux)
}

// Shutdown дожидается завершения активных задач и останавливает обработку
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

// Handle обрабатывает одну задачу
func (w *Worker) Handle(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		w.log.Error("expiry: invalid task payload: %v", err)
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.expire(ctx, p.AppointmentID); err != nil {
		w.log.Error("expiry: failed to expire appointment %d: %v", p.AppointmentID, err)
		return err
	}

	return nil
}
