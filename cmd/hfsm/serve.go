package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlekbai/hfsm"
	"github.com/atlekbai/hfsm/internal/httpapi"
	"github.com/atlekbai/hfsm/metrics"
	"github.com/atlekbai/hfsm/storage/redisstate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Serve one machine over HTTP",
		Long: `Starts an HTTP server driving a single machine built from the definition.
With --redis the machine state is kept in Redis under --id and survives restarts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			redisAddr, _ := cmd.Flags().GetString("redis")
			id, _ := cmd.Flags().GetString("id")
			logger := loggerFrom(cmd)

			def, g, err := load(args[0])
			if err != nil {
				return err
			}

			var (
				sm   *hfsm.StateMachine[string, string]
				opts []httpapi.Option
			)
			if redisAddr != "" {
				store := redisstate.New[string](redisAddr, "", 0)
				defer store.Close()
				sm, err = redisstate.NewMachine(store, g, id, def.Initial, hfsm.WithLogger(logger))
				opts = append(opts, httpapi.WithAfterFire(func(ctx context.Context, state hfsm.MachineState[string]) error {
					return store.SaveSnapshot(ctx, id, state)
				}))
			} else {
				sm, err = hfsm.NewStateMachine(g, def.Initial, hfsm.WithLogger(logger), hfsm.WithID(id))
			}
			if err != nil {
				return err
			}

			collector := metrics.NewCollector()
			reg := prometheus.NewRegistry()
			reg.MustRegister(collector, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			server := httpapi.NewServer(metrics.Instrument(collector, sm),
				append(opts, httpapi.WithLogger(logger), httpapi.WithGatherer(reg))...)
			srv := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("serving machine", "definition", args[0], "addr", addr, "id", sm.ID())
				serverErrors <- srv.ListenAndServe()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server: %w", err)
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					_ = srv.Close()
					return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
				}
				return nil
			}
		},
	}
	cmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	cmd.Flags().String("redis", "", "Redis address for persistent state (host:port)")
	cmd.Flags().String("id", "default", "Machine ID, also the Redis key")
	return cmd
}
