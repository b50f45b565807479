package broker

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

const deadLetterTimeout = 5 * time.Second

// RetryPublisher retries failed publishes with exponential backoff and hands
// messages that still fail to a dead letter store.
type RetryPublisher struct {
	next       Publisher
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	deadLetter DeadLetter
	sleep      func(ctx context.Context, d time.Duration) error
}

func WithRetry(next Publisher, maxRetries int, baseDelay time.Duration, deadLetter DeadLetter) *RetryPublisher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	return &RetryPublisher{
		next:       next,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   baseDelay * 16,
		deadLetter: deadLetter,
		sleep:      sleepContext,
	}
}

func (p *RetryPublisher) Publish(ctx context.Context, topic string, payload any) error {
	var err error
	attempts := 0
	for {
		attempts++
		if err = p.next.Publish(ctx, topic, payload); err == nil {
			return nil
		}
		if !isRetryable(err) || attempts > p.maxRetries {
			break
		}
		if sleepErr := p.sleep(ctx, p.backoff(attempts)); sleepErr != nil {
			break
		}
	}

	if p.deadLetter != nil {
		// the caller's context may be what ended the retries
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadLetterTimeout)
		defer cancel()
		if dlqErr := p.deadLetter.Store(storeCtx, topic, payload, err, attempts); dlqErr != nil {
			logrus.WithError(dlqErr).WithField("topic", topic).Error("Failed to store dead letter")
		}
	}
	return err
}

func (p *RetryPublisher) Close() error {
	return p.next.Close()
}

// backoff is base * 2^(attempt-1) with ±25% jitter, capped at maxDelay.
func (p *RetryPublisher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return p.baseDelay
	}
	backoff := p.baseDelay * time.Duration(1<<(attempt-1))
	if backoff > p.maxDelay {
		backoff = p.maxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(backoff/4) + 1))
	if rand.Intn(2) == 0 {
		backoff += jitter
	} else {
		backoff -= jitter
	}
	return backoff
}

func isRetryable(err error) bool {
	var (
		typeErr    *json.UnsupportedTypeError
		valueErr   *json.UnsupportedValueError
		marshalErr *json.MarshalerError
	)
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.As(err, &typeErr), errors.As(err, &valueErr), errors.As(err, &marshalErr):
		return false
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
