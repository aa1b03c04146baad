package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/guardrail/internal/guardrail"
	"github.com/roach88/guardrail/internal/httpapi"
	"github.com/roach88/guardrail/internal/logger"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr   string
	Record bool

	// ready, when set, receives the bound address once listening (for testing).
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the guardrail HTTP API",
		Long: `Serve the guardrail HTTP API.

Routes:
  POST /api/v1/guardrails/validate   validate one operation envelope
  POST /api/v1/guardrails/codes      validate taxonomy codes
  GET  /healthz

Example:
  guardrail serve --db ./snapshot.db --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "append every verdict to the --db verdict log")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Record && opts.Database == "" {
		_ = formatter.Error(ErrCodeGeneric, "--record requires --db", nil)
		return NewExitError(ExitCommandError, "--record requires --db")
	}

	env, err := opts.loadEnvironment(formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	log := opts.serverLogger(cmd)

	routerOpts := httpapi.Options{}
	if opts.Record {
		routerOpts.Recorder = env.store
	}
	router := httpapi.NewRouter(guardrail.New(env.policy, env.lookups), log, routerOpts)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	log.Info().Str("addr", ln.Addr().String()).Str("policy", env.policy.Source).Msg("guardrail api listening")
	if opts.ready != nil {
		opts.ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "server failed", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	return nil
}

// serverLogger returns the logger carried by the command context, or a
// fresh one at info level (debug with --debug).
func (o *RootOptions) serverLogger(cmd *cobra.Command) zerolog.Logger {
	if ctx := cmd.Context(); ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return *l
		}
	}
	return logger.New(cmd.ErrOrStderr(), o.Debug)
}
