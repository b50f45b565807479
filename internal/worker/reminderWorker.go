package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ReminderSender is the part of the booking service the worker drives.
type ReminderSender interface {
	SendReminders(ctx context.Context, window time.Duration, limit int) (int, error)
}

// ReminderWorker periodically notifies holders of confirmed bookings whose
// event starts within the configured window.
type ReminderWorker struct {
	sender    ReminderSender
	interval  time.Duration
	window    time.Duration
	batchSize int

	mu       sync.Mutex
	lastRun  time.Time
	lastSent int
	runs     int
}

func NewReminderWorker(sender ReminderSender, interval, window time.Duration, batchSize int) *ReminderWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &ReminderWorker{
		sender:    sender,
		interval:  interval,
		window:    window,
		batchSize: batchSize,
	}
}

// Start blocks until ctx is cancelled. The first pass runs immediately.
func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"interval": w.interval.String(),
		"window":   w.window.String(),
	}).Info("Reminder worker started")

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Reminder worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Go runs Start in a goroutine. The returned channel closes once Start has
// returned, i.e. after the batch in flight at cancellation has finished.
func (w *ReminderWorker) Go(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	return done
}

// RunOnce sends every due reminder, draining the backlog batch by batch.
func (w *ReminderWorker) RunOnce(ctx context.Context) int {
	total := 0
	for {
		sent, err := w.sender.SendReminders(ctx, w.window, w.batchSize)
		total += sent
		if err != nil {
			logrus.WithError(err).Error("Failed to send booking reminders")
			break
		}
		// a short batch means nothing is left
		if w.batchSize <= 0 || sent < w.batchSize {
			break
		}
	}

	w.mu.Lock()
	w.lastRun = time.Now()
	w.lastSent = total
	w.runs++
	w.mu.Unlock()

	if total > 0 {
		logrus.WithField("sent", total).Info("Booking reminders sent")
	}
	return total
}

func (w *ReminderWorker) GetStats() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return map[string]any{
		"worker_type": "booking_reminder",
		"interval":    w.interval.String(),
		"window":      w.window.String(),
		"runs":        w.runs,
		"last_run":    w.lastRun,
		"last_sent":   w.lastSent,
	}
}
