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

// Package bus carries coordination events between the registry, the ingest
// path, the liveness tracker, and the coordinator inside one process.
package bus

import (
	"sync"

	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
)

const defaultSubscriberBuffer = 64

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(event models.DeviceEvent)
}

// Bus fans device events out to subscribers. Publishing never blocks: a
// subscriber that falls behind its buffer loses events (the unified view is
// rebuilt from state on read, so dropped events cost freshness, not
// correctness).
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan models.DeviceEvent
	nextID int
	buffer int
	closed bool
	logger logger.Logger
}

// New creates a Bus with the default per-subscriber buffer.
func New(log logger.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan models.DeviceEvent),
		buffer: defaultSubscriberBuffer,
		logger: log.WithComponent("bus"),
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes
// the subscription and closes its channel; it is safe to call twice.
func (b *Bus) Subscribe() (<-chan models.DeviceEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan models.DeviceEvent, b.buffer)

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.subs[id] = ch

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(event models.DeviceEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn().
				Str("device_id", event.DeviceID).
				Str("kind", string(event.Kind)).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
