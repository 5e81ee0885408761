package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/malbeclabs/spltoken/internal/metrics"
	"github.com/malbeclabs/spltoken/internal/scenario"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type ScenarioCmd struct {
	flags *globalFlags
	build BuildInfo
}

func NewScenarioCmd(flags *globalFlags, build BuildInfo) *ScenarioCmd {
	return &ScenarioCmd{flags: flags, build: build}
}

func (c *ScenarioCmd) Command() *cobra.Command {
	var planPath, receiver, metricsAddr string
	var repeat int
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run create mint, mint, transfer, burn and attach metadata end to end, checking balances after each step",
		RunE: withSession(c.flags, true, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			if repeat < 0 {
				return fmt.Errorf("%w: --repeat must be zero or more, got %d", scenario.ErrInvalidRepeat, repeat)
			}
			plan := scenario.DefaultPlan(s.mode)
			if planPath != "" {
				var err error
				plan, err = scenario.LoadPlan(planPath, s.mode)
				if err != nil {
					return err
				}
			}
			if receiver != "" {
				plan.Receiver = receiver
			}

			driver, err := scenario.New(scenario.Config{
				Logger: s.log,
				Client: s.client,
				Plan:   plan,
			})
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				metrics.BuildInfo.WithLabelValues(c.build.Version, c.build.Commit, c.build.Date).Set(1)
				stop, err := serveMetrics(ctx, s, metricsAddr)
				if err != nil {
					return err
				}
				defer stop()
			}

			s.log.Info("Running scenario",
				"mode", plan.Mode,
				"signer", s.signer.PublicKey(),
				"mint", plan.MintAmount,
				"transfer", plan.TransferAmount,
				"burn", plan.BurnAmount,
				"repeat", repeat,
			)

			out := cmd.OutOrStdout()
			if repeat == 1 {
				report, err := driver.Run(ctx)
				if report != nil {
					report.Render(out)
				}
				return err
			}
			return driver.RunRepeated(ctx, repeat, interval, func(r *scenario.Report) {
				r.Render(out)
			})
		}),
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "YAML plan file (default: the built-in plan)")
	cmd.Flags().StringVar(&receiver, "receiver", "", "owner receiving the transfer (default: a fresh address)")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "number of runs, 0 to run until interrupted (keypair mode only for more than one)")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "wait between repeated runs")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :8080")

	return cmd
}

func serveMetrics(ctx context.Context, s *session, addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start prometheus metrics server listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	s.log.Info("Prometheus metrics server listening", "address", listener.Addr().String())
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Failed to serve prometheus metrics", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
