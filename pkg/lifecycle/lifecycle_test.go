package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framehub/framehub/pkg/logger"
)

type fakeService struct {
	startErr error
	started  chan struct{}
	stopped  chan struct{}
}

func newFakeService(startErr error) *fakeService {
	return &fakeService{
		startErr: startErr,
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (s *fakeService) Start(ctx context.Context) error {
	close(s.started)

	if s.startErr != nil {
		return s.startErr
	}

	<-ctx.Done()

	return nil
}

func (s *fakeService) Stop(_ context.Context) error {
	close(s.stopped)
	return nil
}

func TestRunServerStartFailure(t *testing.T) {
	svc := newFakeService(errors.New("bind: address already in use"))

	err := RunServer(context.Background(), &ServerOptions{
		ServiceName: "framehub",
		Service:     svc,
		Logger:      logger.NewTestLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "framehub")
}

func TestRunServerStopsOnCancel(t *testing.T) {
	svc := newFakeService(nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- RunServer(ctx, &ServerOptions{
			ServiceName: "framehub",
			Service:     svc,
			Logger:      logger.NewTestLogger(),
		})
	}()

	select {
	case <-svc.started:
	case <-time.After(time.Second):
		t.Fatal("service never started")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunServer did not return after cancel")
	}

	select {
	case <-svc.stopped:
	case <-time.After(time.Second):
		t.Fatal("service was not stopped")
	}
}
