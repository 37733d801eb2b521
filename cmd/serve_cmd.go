package cmd

import (
	"bufio"
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reserve-vault/relaypay/go/events"
	"github.com/reserve-vault/relaypay/go/internal/conf"
	"github.com/reserve-vault/relaypay/go/statusapi"
)

var serveCmd = cobra.Command{
	Use:  "serve",
	Long: "Serve the transfer status API and run gasless transfers read from stdin, one \"recipient amount\" per line",
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfigAndArgs(cmd, func(config *conf.GlobalConfiguration, args []string) {
			withApp(cmd.Context(), config, serve)
		}, args)
	},
}

func serve(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := a.balance(a.config.Chain.TokenAddress)
	if err := tracker.Refresh(ctx); err != nil {
		a.logger.WithError(err).Warn("initial balance read failed")
	}
	coordinator := a.coordinator(tracker)

	if a.config.Events.Enabled {
		publisher, redisClient, err := events.NewRedisPublisher(a.config.Events.RedisURL, a.logger)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		defer publisher.Close()
		publisher.Attach(coordinator)
	}

	server := statusapi.NewServer(coordinator,
		statusapi.WithBalance(tracker),
		statusapi.WithLogger(a.logger),
	)
	addr := net.JoinHostPort(a.config.Status.Host, a.config.Status.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) != 2 {
				a.logger.Warn("expected \"recipient amount\"")
				continue
			}
			// a new line supersedes any transfer still in flight
			go func(recipient, amount string) {
				_ = coordinator.ExecuteTransfer(ctx, recipient, amount)
			}(fields[0], fields[1])
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
