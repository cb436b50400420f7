package cli

import (
	"context"
	"os/signal"
	"syscall"

	"calls_dashboard/internal/app"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Port != "" {
		cfg.HTTPPort = normalizePort(c.Port)
	}
	if c.NoWatch {
		cfg.WatchDataset = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}
