package logging

import (
	"context"

	"kasir/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Options(
		fx.Module(
			"logging",
			fx.Provide(func(cfg config.Config) (*Sink, error) {
				return NewSink(cfg.LogFile, cfg.Debug)
			}),
			fx.Invoke(func(lc fx.Lifecycle, sink *Sink) {
				lc.Append(fx.Hook{
					OnStop: func(_ context.Context) error {
						return sink.Close()
					},
				})
			}),
		),
		// Decorations inside fx.Module stay in that module; the tee has to
		// reach every package's logger.
		fx.Decorate(func(base *zap.Logger, sink *Sink) *zap.Logger {
			return sink.Attach(base)
		}),
	)
}
