// Package natsutil connects the hub to NATS JetStream and publishes
// CloudEvents for device status, connectivity, and configuration changes.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/metrics"
	"github.com/framehub/framehub/pkg/models"
)

const (
	eventSource = "framehub/hub"

	TypeDeviceStatus       = "com.framehub.device.status"
	TypeDeviceConnectivity = "com.framehub.device.connectivity"
	TypeDeviceConfig       = "com.framehub.device.config"

	SubjectDeviceStatus       = "events.device.status"
	SubjectDeviceConnectivity = "events.device.connectivity"
	SubjectDeviceConfig       = "events.device.config"
)

// EventPublisher publishes CloudEvents to a NATS JetStream stream.
type EventPublisher struct {
	js     jetstream.JetStream
	stream string
	logger logger.Logger
}

// NewEventPublisher creates an EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		js:     js,
		stream: streamName,
		logger: log.WithComponent("events"),
	}
}

// Connect opens a NATS connection per the given configuration.
func Connect(cfg *models.NATSConfig, log logger.Logger) (*nats.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid NATS configuration: %w", err)
	}

	connLog := log.WithComponent("nats")

	opts := []nats.Option{
		nats.Name("framehub"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			connLog.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			connLog.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			connLog.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}

	return nc, nil
}

// CreateEventPublisher builds a JetStream context on an existing connection
// and makes sure the event stream exists.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, domain string, events *models.EventsConfig, log logger.Logger) (*EventPublisher, error) {
	if err := events.Validate(); err != nil {
		return nil, fmt.Errorf("invalid events configuration: %w", err)
	}

	var (
		js  jetstream.JetStream
		err error
	)

	if domain != "" {
		js, err = jetstream.NewWithDomain(nc, domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	subjects := append([]string(nil), events.Subjects...)
	for _, subject := range []string{SubjectDeviceStatus, SubjectDeviceConnectivity, SubjectDeviceConfig} {
		subjects = ensureSubjectList(subjects, subject)
	}

	if _, err := js.Stream(ctx, events.StreamName); err != nil {
		if !isStreamMissingErr(err) {
			return nil, fmt.Errorf("look up stream %s: %w", events.StreamName, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     events.StreamName,
			Subjects: subjects,
		})
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", events.StreamName, err)
		}

		log.Info().Str("stream", events.StreamName).Msg("Created JetStream event stream")
	}

	return NewEventPublisher(js, events.StreamName, log), nil
}

// PublishStatusUpdated publishes a device status report event.
func (p *EventPublisher) PublishStatusUpdated(ctx context.Context, data models.DeviceStatusEventData) error {
	return p.publish(ctx, TypeDeviceStatus, SubjectDeviceStatus, data.Timestamp, data)
}

// PublishConnectivityChanged publishes an online/offline transition event.
func (p *EventPublisher) PublishConnectivityChanged(ctx context.Context, data models.DeviceConnectivityEventData) error {
	return p.publish(ctx, TypeDeviceConnectivity, SubjectDeviceConnectivity, data.Timestamp, data)
}

// PublishConfigChanged publishes a desired-state change event.
func (p *EventPublisher) PublishConfigChanged(ctx context.Context, data models.DeviceConfigEventData) error {
	return p.publish(ctx, TypeDeviceConfig, SubjectDeviceConfig, data.Timestamp, data)
}

func (p *EventPublisher) publish(ctx context.Context, eventType, subject string, at time.Time, data interface{}) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &at,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, subject, eventBytes)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(eventType).Inc()

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

func isStreamMissingErr(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, jetstream.ErrStreamNotFound),
		errors.Is(err, jetstream.ErrNoStreamResponse),
		errors.Is(err, nats.ErrStreamNotFound),
		errors.Is(err, nats.ErrNoStreamResponse),
		errors.Is(err, nats.ErrNoResponders):
		return true
	default:
		return false
	}
}

// ensureSubjectList appends subject unless an existing pattern already
// covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether a NATS subject pattern covers a literal
// subject, honoring the * and > wildcards.
func matchesSubject(pattern, subject string) bool {
	patternTokens := strings.Split(pattern, ".")
	subjectTokens := strings.Split(subject, ".")

	for i, token := range patternTokens {
		if token == ">" {
			return true
		}

		if i >= len(subjectTokens) {
			return false
		}

		if token == "*" {
			continue
		}

		if token != subjectTokens[i] {
			return false
		}
	}

	return len(patternTokens) == len(subjectTokens)
}
