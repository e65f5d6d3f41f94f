// Package mailer is the gateway to the external email-notification service
// used by the sync profile. Calls are retried with exponential backoff on
// transient failures and guarded by a circuit breaker; when the circuit is
// open the gateway fails fast without touching the network.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/dmarkov/user-microservice/internal/application"
)

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxFailures   uint32 // consecutive failures before the circuit opens
	Cooldown      time.Duration
	MaxRetries    uint64
	RetryInterval time.Duration
}

type Notifier struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewNotifier(cfg Config, logger *logrus.Logger) *Notifier {
	settings := gobreaker.Settings{
		Name:    "email-service",
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
	}
	if logger != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit state changed")
		}
	}
	return &Notifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (n *Notifier) NotifyCreated(ctx context.Context, email, name string) error {
	endpoint := fmt.Sprintf("%s/simple-email/type-operation-create?email=%s&name=%s",
		n.cfg.BaseURL, url.QueryEscape(email), url.QueryEscape(name))
	return n.call(ctx, endpoint)
}

func (n *Notifier) NotifyDeleted(ctx context.Context, email, name string) error {
	endpoint := fmt.Sprintf("%s/simple-email/type-operation-delete/%s/%s",
		n.cfg.BaseURL, url.PathEscape(email), url.PathEscape(name))
	return n.call(ctx, endpoint)
}

func (n *Notifier) call(ctx context.Context, endpoint string) error {
	_, err := n.breaker.Execute(func() (any, error) {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = n.cfg.RetryInterval
		return nil, backoff.Retry(
			func() error { return n.get(ctx, endpoint) },
			backoff.WithContext(backoff.WithMaxRetries(policy, n.cfg.MaxRetries), ctx),
		)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return application.ErrServiceUnavailable
	}
	return err
}

// get performs one attempt. 5xx and 429 are transient and retried; any
// other non-2xx status is terminal.
func (n *Notifier) get(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("email service returned %s", resp.Status)
	default:
		return backoff.Permanent(fmt.Errorf("email service returned %s", resp.Status))
	}
}

var _ application.Notifier = (*Notifier)(nil)
