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

// Package hub is the device coordination core: it owns observed device
// state, derives connectivity from status-report recency, reconciles
// desired-state changes by pushing configuration to tablets, and exposes
// the unified device view.
package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/framehub/framehub/pkg/bus"
	"github.com/framehub/framehub/pkg/db"
	"github.com/framehub/framehub/pkg/dispatch"
	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
	"github.com/framehub/framehub/pkg/natsutil"
	"github.com/framehub/framehub/pkg/registry"
)

// Server coordinates the tablet fleet. It implements lifecycle.Service.
type Server struct {
	config     *Config
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	database   db.Service
	bus        *bus.Bus
	events     *natsutil.EventPublisher
	natsConn   *nats.Conn
	logger     logger.Logger
	clock      Clock

	dispatchOpts []dispatch.Option

	mu       sync.RWMutex
	statuses map[string]*models.DeviceStatus

	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	pendingMu sync.Mutex
	pending   map[string]*models.PendingDevice

	sweepNudge chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerOption customizes a Server, mainly for tests.
type ServerOption func(*Server)

// WithClock substitutes the time source driving the sweep and flush loops.
func WithClock(clock Clock) ServerOption {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithDatabase injects a store, bypassing the pool the configuration would
// open.
func WithDatabase(database db.Service) ServerOption {
	return func(s *Server) {
		s.database = database
	}
}

// WithDispatchOptions forwards options to the dispatcher the server builds.
func WithDispatchOptions(opts ...dispatch.Option) ServerOption {
	return func(s *Server) {
		s.dispatchOpts = append(s.dispatchOpts, opts...)
	}
}

// NewServer wires the registry, dispatcher, store, and event publisher per
// the configuration.
func NewServer(ctx context.Context, cfg *Config, log logger.Logger, opts ...ServerOption) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hub config: %w", err)
	}

	s := &Server{
		config:     cfg,
		logger:     log.WithComponent("hub"),
		clock:      realClock{},
		statuses:   make(map[string]*models.DeviceStatus),
		dirty:      make(map[string]struct{}),
		pending:    make(map[string]*models.PendingDevice),
		sweepNudge: make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.database == nil && cfg.Database != nil {
		database, err := db.New(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}

		s.database = database
	}

	s.bus = bus.New(log)
	s.registry = registry.New(s.database, s.bus, log)

	dispatchOpts := append([]dispatch.Option{
		dispatch.WithLivenessHint(func(string) { s.Nudge() }),
	}, s.dispatchOpts...)

	dispatcher, err := dispatch.New(s.registry, cfg.Dispatch, log, dispatchOpts...)
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}

	s.dispatcher = dispatcher

	if cfg.Events != nil && cfg.Events.Enabled && cfg.NATS != nil {
		nc, err := natsutil.Connect(cfg.NATS, log)
		if err != nil {
			return nil, err
		}

		publisher, err := natsutil.CreateEventPublisher(ctx, nc, cfg.NATS.Domain, cfg.Events, log)
		if err != nil {
			nc.Close()
			return nil, err
		}

		s.natsConn = nc
		s.events = publisher
	}

	return s, nil
}

// Registry exposes the desired-state store to the API layer.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// SubscribeEvents hands out a coordination event feed; the cancel function
// must be called when the consumer is done.
func (s *Server) SubscribeEvents() (<-chan models.DeviceEvent, func()) {
	return s.bus.Subscribe()
}

// Start hydrates state from the store and launches the sweep, flush, and
// coordinator loops. It returns once the loops are running.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.database != nil {
		if _, _, err := s.registry.HydrateFromStore(runCtx); err != nil {
			return err
		}

		if err := s.loadStatuses(runCtx); err != nil {
			return err
		}

		if err := s.loadPending(runCtx); err != nil {
			return err
		}
	}

	s.wg.Add(1)

	go s.runCoordinator(runCtx)

	s.wg.Add(1)

	go s.runSweep(runCtx)

	if s.database != nil {
		s.wg.Add(1)

		go s.runFlush(runCtx)
	}

	s.logger.Info().
		Str("listen_addr", s.config.ListenAddr).
		Str("webhook_id", s.config.WebhookID).
		Msg("Hub started")

	return nil
}

// Stop winds down the loops, drains the write-behind buffer, and closes the
// store and the NATS connection.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()

	if s.database != nil {
		s.flushStatuses(ctx)
	}

	s.bus.Close()

	if s.natsConn != nil {
		s.natsConn.Close()
	}

	if s.database != nil {
		if err := s.database.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close database")
		}
	}

	s.logger.Info().Msg("Hub stopped")

	return nil
}

// Nudge schedules a liveness sweep at the next opportunity instead of
// waiting out the interval.
func (s *Server) Nudge() {
	select {
	case s.sweepNudge <- struct{}{}:
	default:
	}
}

func (s *Server) loadStatuses(ctx context.Context) error {
	statuses, err := s.database.ListDeviceStatuses(ctx)
	if err != nil {
		return fmt.Errorf("load device statuses: %w", err)
	}

	s.mu.Lock()
	for _, status := range statuses {
		if status == nil || status.DeviceID == "" {
			continue
		}

		clone := *status
		s.statuses[clone.DeviceID] = &clone
	}
	s.mu.Unlock()

	s.logger.Info().Int("statuses", len(statuses)).Msg("Observed state hydrated from store")

	return nil
}

func (s *Server) loadPending(ctx context.Context) error {
	pending, err := s.database.ListPendingDevices(ctx)
	if err != nil {
		return fmt.Errorf("load pending devices: %w", err)
	}

	s.pendingMu.Lock()
	for _, p := range pending {
		if p == nil || p.DeviceID == "" {
			continue
		}

		clone := *p
		s.pending[clone.DeviceID] = &clone
	}
	s.pendingMu.Unlock()

	return nil
}

// ensureStatusLocked creates the observed record on a device's first
// contact. Callers hold s.mu.
func (s *Server) ensureStatusLocked(deviceID string) *models.DeviceStatus {
	status, ok := s.statuses[deviceID]
	if !ok {
		status = &models.DeviceStatus{
			DeviceID:     deviceID,
			Connectivity: models.ConnectivityUnknown,
		}
		s.statuses[deviceID] = status
	}

	return status
}

func (s *Server) statusSnapshot(deviceID string) (models.DeviceStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[deviceID]
	if !ok {
		return models.DeviceStatus{}, false
	}

	return *status, true
}

func (s *Server) markDirty(deviceID string) {
	if s.database == nil {
		return
	}

	s.dirtyMu.Lock()
	s.dirty[deviceID] = struct{}{}
	s.dirtyMu.Unlock()
}

func (s *Server) runFlush(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.Ticker(time.Duration(s.config.FlushInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.flushStatuses(ctx)
		}
	}
}

// flushStatuses writes the dirty observed records to the store in one
// batch. Failed batches are re-marked so the next cycle retries them.
func (s *Server) flushStatuses(ctx context.Context) {
	s.dirtyMu.Lock()

	if len(s.dirty) == 0 {
		s.dirtyMu.Unlock()
		return
	}

	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}

	s.dirty = make(map[string]struct{})
	s.dirtyMu.Unlock()

	s.mu.RLock()

	statuses := make([]*models.DeviceStatus, 0, len(ids))

	for _, id := range ids {
		if status, ok := s.statuses[id]; ok {
			clone := *status
			statuses = append(statuses, &clone)
		}
	}
	s.mu.RUnlock()

	if len(statuses) == 0 {
		return
	}

	if err := s.database.UpsertDeviceStatuses(ctx, statuses); err != nil {
		s.logger.Error().
			Err(err).
			Int("count", len(statuses)).
			Msg("Failed to flush device statuses")

		s.dirtyMu.Lock()
		for _, id := range ids {
			s.dirty[id] = struct{}{}
		}
		s.dirtyMu.Unlock()

		return
	}

	s.logger.Debug().Int("count", len(statuses)).Msg("Flushed device statuses")
}
