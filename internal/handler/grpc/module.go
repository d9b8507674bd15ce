package grpc

import (
	"context"
	"log/slog"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"go.uber.org/fx"
	"google.golang.org/grpc"
)

// Module serves the connection-control gRPC surface on cfg.GRPC.Addr,
// alongside the User Service's SSE/REST listener on a separate port.
var Module = fx.Module("handler-grpc",
	fx.Provide(NewService),
	fx.Invoke(runServer),
)

func runServer(lc fx.Lifecycle, svc *Service, cfg *config.Config, logger *slog.Logger) {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(logging.UnaryServerInterceptor(interceptorLogger(logger))),
	)
	RegisterConnectionControlServer(server, svc)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := server.Serve(lis); err != nil {
					logger.Error("grpc: server stopped", "error", err)
				}
			}()
			logger.Info("grpc: server listening", "addr", cfg.GRPC.Addr)
			return nil
		},
		OnStop: func(context.Context) error {
			server.GracefulStop()
			return nil
		},
	})
}

// interceptorLogger bridges the shared slog.Logger into go-grpc-middleware's
// logging.Logger contract, following the library's documented adapter shape.
func interceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, level logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(level), msg, fields...)
	})
}
