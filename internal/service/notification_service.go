package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/infrastructure/queue"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Task types
// =============================================================================

const (
	TaskBookingConfirmed = "booking:confirmed"
	TaskDraftReap        = "draft:reap"

	notificationMaxRetry = 5
)

// =============================================================================
// Producer
// =============================================================================

// TaskEnqueuer is the part of *asynq.Client the notifier needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type notificationService struct {
	client TaskEnqueuer
	log    *logrus.Logger
}

// NewNotificationService returns a Notifier that hands events to the worker
// queue. Enqueue failures are logged and swallowed: a booking is never
// failed because its notification could not be queued.
func NewNotificationService(client TaskEnqueuer, log *logrus.Logger) gateway.Notifier {
	return &notificationService{client: client, log: log}
}

func (s *notificationService) BookingConfirmed(ctx context.Context, event gateway.BookingConfirmedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Warnf("Failed to encode booking confirmed event %s: %+v", event.BookingID, err)
		return
	}

	task := asynq.NewTask(TaskBookingConfirmed, payload)
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.Queue(queue.QueueNotifications),
		asynq.MaxRetry(notificationMaxRetry),
		asynq.TaskID("booking-confirmed:"+event.BookingID),
	)
	if err != nil {
		s.log.Warnf("Failed to enqueue booking confirmation for %s: %+v", event.BookingID, err)
		return
	}

	s.log.Debugf("Queued booking confirmation for %s", event.ConfirmationNumber)
}

// =============================================================================
// Consumer
// =============================================================================

// DraftReaper removes drafts that expired long enough ago.
type DraftReaper interface {
	ReapExpired(ctx context.Context) (int64, error)
}

// DeliveryFunc sends a confirmation to the patient. Returning an error makes
// the worker retry the task.
type DeliveryFunc func(ctx context.Context, event gateway.BookingConfirmedEvent) error

// TaskHandler processes the worker's task types.
type TaskHandler struct {
	log     *logrus.Logger
	reaper  DraftReaper
	deliver DeliveryFunc
}

// NewTaskHandler builds the worker handler. deliver may be nil, in which
// case confirmations are only logged.
func NewTaskHandler(log *logrus.Logger, reaper DraftReaper, deliver DeliveryFunc) *TaskHandler {
	return &TaskHandler{log: log, reaper: reaper, deliver: deliver}
}

// Register wires every task type into mux.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskBookingConfirmed, h.HandleBookingConfirmed)
	mux.HandleFunc(TaskDraftReap, h.HandleDraftReap)
}

func (h *TaskHandler) HandleBookingConfirmed(ctx context.Context, t *asynq.Task) error {
	var event gateway.BookingConfirmedEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		// A payload we cannot decode will never succeed.
		return fmt.Errorf("decode %s payload: %v: %w", TaskBookingConfirmed, err, asynq.SkipRetry)
	}

	h.log.WithFields(logrus.Fields{
		"booking_id":          event.BookingID,
		"confirmation_number": event.ConfirmationNumber,
		"slot_start":          event.SlotStart.Format(time.RFC3339),
	}).Info("Sending booking confirmation")

	if h.deliver == nil {
		return nil
	}
	if err := h.deliver(ctx, event); err != nil {
		h.log.Warnf("Failed to deliver booking confirmation %s: %+v", event.ConfirmationNumber, err)
		return err
	}
	return nil
}

func (h *TaskHandler) HandleDraftReap(ctx context.Context, _ *asynq.Task) error {
	n, err := h.reaper.ReapExpired(ctx)
	if err != nil {
		h.log.Warnf("Failed to reap expired drafts: %+v", err)
		return err
	}
	if n > 0 {
		h.log.Infof("Reaped %d expired drafts", n)
	}
	return nil
}

// NewDraftReapTask is the periodic task registered on the scheduler.
func NewDraftReapTask() *asynq.Task {
	return asynq.NewTask(TaskDraftReap, nil, asynq.Queue(queue.QueueMaintenance), asynq.MaxRetry(1))
}
