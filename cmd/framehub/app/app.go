package app

import (
	"context"

	"github.com/framehub/framehub/pkg/api"
	"github.com/framehub/framehub/pkg/hub"
	"github.com/framehub/framehub/pkg/lifecycle"
	"github.com/framehub/framehub/pkg/metrics"
	"github.com/framehub/framehub/pkg/version"
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run boots the hub service using the provided options.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// The config file carries the logging settings, so the loader runs
	// with a default logger and the real one is built afterwards.
	bootLogger, err := lifecycle.CreateComponentLogger("framehub", nil)
	if err != nil {
		return err
	}

	cfg, err := hub.LoadConfig(ctx, opts.ConfigPath, bootLogger)
	if err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("framehub", cfg.Logging)
	if err != nil {
		return err
	}

	mainLogger.Info().
		Str("version", version.GetFullVersion()).
		Msg("Starting FrameHub")

	metrics.MustRegister()

	server, err := hub.NewServer(ctx, cfg, mainLogger)
	if err != nil {
		return err
	}

	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithHub(server),
		api.WithRegistry(server.Registry()),
		api.WithWebhookID(cfg.WebhookID),
		api.WithAPIKey(cfg.APIKey),
		api.WithLogger(mainLogger),
	)

	// Start HTTP API server in background
	go func() {
		mainLogger.Info().
			Str("listen_addr", cfg.ListenAddr).
			Msg("Starting HTTP API server")

		if err := apiServer.Start(cfg.ListenAddr); err != nil {
			mainLogger.Error().Err(err).Msg("HTTP API server error")
		}
	}()

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName: "framehub",
		Service:     server,
		Logger:      mainLogger,
	})
}
