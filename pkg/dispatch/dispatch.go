/*
 * Copyright 2025 The FrameHub Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package dispatch delivers imperative commands to tablet control endpoints
// with a bounded per-attempt timeout and exponential-backoff retry. Commands
// to one device are serialized; a collision is rejected, not queued.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/metrics"
	"github.com/framehub/framehub/pkg/models"
)

const (
	defaultCommandTimeout    = 5 * time.Second
	defaultConfigPushTimeout = 10 * time.Second
	defaultMaxRetries        = 2
	defaultInitialBackoff    = 1 * time.Second
	defaultMaxBackoff        = 8 * time.Second
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeviceResolver resolves a device id to its registered desired state. The
// registry satisfies this.
type DeviceResolver interface {
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
}

// Config bounds the dispatcher's timeouts and retry schedule.
type Config struct {
	CommandTimeout    models.Duration `json:"command_timeout"`
	ConfigPushTimeout models.Duration `json:"config_push_timeout"`
	MaxRetries        int             `json:"max_retries"`
	InitialBackoff    models.Duration `json:"initial_backoff"`
	MaxBackoff        models.Duration `json:"max_backoff"`
}

// Validate fills unset fields with defaults.
func (c *Config) Validate() error {
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = models.Duration(defaultCommandTimeout)
	}

	if c.ConfigPushTimeout <= 0 {
		c.ConfigPushTimeout = models.Duration(defaultConfigPushTimeout)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative: %d", c.MaxRetries)
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}

	if c.InitialBackoff <= 0 {
		c.InitialBackoff = models.Duration(defaultInitialBackoff)
	}

	if c.MaxBackoff <= 0 {
		c.MaxBackoff = models.Duration(defaultMaxBackoff)
	}

	return nil
}

// DefaultConfig returns the standard dispatch bounds.
func DefaultConfig() Config {
	cfg := Config{}
	_ = cfg.Validate()

	return cfg
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(client HTTPClient) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// WithLivenessHint registers a callback invoked after a dispatch exhausts
// its retries against an unreachable or silent device. The liveness tracker
// uses it to pull its next sweep forward; the dispatcher itself never
// touches connectivity.
func WithLivenessHint(hint func(deviceID string)) Option {
	return func(d *Dispatcher) {
		d.livenessHint = hint
	}
}

// Dispatcher sends commands to tablets.
type Dispatcher struct {
	resolver     DeviceResolver
	client       HTTPClient
	config       Config
	logger       logger.Logger
	livenessHint func(deviceID string)

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Dispatcher around the given resolver.
func New(resolver DeviceResolver, cfg Config, log logger.Logger, opts ...Option) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		resolver: resolver,
		client:   &http.Client{},
		config:   cfg,
		logger:   log.WithComponent("dispatch"),
		inflight: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Dispatch resolves the device, claims its slot, and sends the command with
// bounded retries. The returned error wraps ErrUnknownDevice, ErrBusy,
// ErrTimeout, ErrUnreachable, or ErrRejected. A failure here says nothing
// about connectivity; only the liveness tracker moves that.
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID string, cmd Command) error {
	device, err := d.resolver.GetDevice(ctx, deviceID)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues(string(cmd.Kind), metrics.ResultUnknownDevice).Inc()

		return fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}

	if !d.acquire(deviceID) {
		metrics.DispatchesTotal.WithLabelValues(string(cmd.Kind), metrics.ResultBusy).Inc()

		return fmt.Errorf("%w: command already in flight for %q", ErrBusy, deviceID)
	}
	defer d.release(deviceID)

	payload, err := cmd.body()
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues(string(cmd.Kind), metrics.ResultError).Inc()

		return err
	}

	started := time.Now()
	err = d.send(ctx, device.Address, cmd, payload)
	metrics.DispatchDurationSeconds.WithLabelValues(string(cmd.Kind)).Observe(time.Since(started).Seconds())
	metrics.DispatchesTotal.WithLabelValues(string(cmd.Kind), resultLabel(err)).Inc()

	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("device_id", deviceID).
			Str("command", string(cmd.Kind)).
			Msg("Dispatch failed")

		if d.livenessHint != nil && (errors.Is(err, ErrUnreachable) || errors.Is(err, ErrTimeout)) {
			d.livenessHint(deviceID)
		}

		return err
	}

	d.logger.Debug().
		Str("device_id", deviceID).
		Str("command", string(cmd.Kind)).
		Msg("Dispatch succeeded")

	return nil
}

func (d *Dispatcher) send(ctx context.Context, address string, cmd Command, payload []byte) error {
	endpoint := baseURL(address) + cmd.path()
	timeout := d.timeoutFor(cmd.Kind)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(d.config.InitialBackoff)
	bo.MaxInterval = time.Duration(d.config.MaxBackoff)
	bo.Multiplier = 2.0
	bo.RandomizationFactor = 0.2

	operation := func() (struct{}, error) {
		return struct{}{}, d.attempt(ctx, endpoint, payload, timeout)
	}

	tries := uint(d.config.MaxRetries) + 1

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(tries))

	return err
}

// attempt performs one request with its own deadline. A request still in
// flight when the deadline passes is abandoned by the transport.
func (d *Dispatcher) attempt(ctx context.Context, endpoint string, payload []byte, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request for %s: %w", endpoint, err))
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}

		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() != nil {
			return fmt.Errorf("%w: no answer within %s", ErrTimeout, timeout)
		}

		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return backoff.Permanent(fmt.Errorf("%w: status %d from %s", ErrRejected, resp.StatusCode, endpoint))
	default:
		return fmt.Errorf("%w: status %d from %s", ErrUnreachable, resp.StatusCode, endpoint)
	}
}

func (d *Dispatcher) timeoutFor(kind CommandKind) time.Duration {
	if kind == CommandRefreshConfig {
		return time.Duration(d.config.ConfigPushTimeout)
	}

	return time.Duration(d.config.CommandTimeout)
}

func (d *Dispatcher) acquire(deviceID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, held := d.inflight[deviceID]; held {
		return false
	}

	d.inflight[deviceID] = struct{}{}

	return true
}

func (d *Dispatcher) release(deviceID string) {
	d.mu.Lock()
	delete(d.inflight, deviceID)
	d.mu.Unlock()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrTimeout):
		return metrics.ResultTimeout
	case errors.Is(err, ErrUnreachable):
		return metrics.ResultUnreachable
	case errors.Is(err, ErrBusy):
		return metrics.ResultBusy
	default:
		return metrics.ResultError
	}
}
