package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
	"github.com/rustyeddy/propfirm/api"
	"github.com/rustyeddy/propfirm/config"
	"github.com/spf13/cobra"
	"github.com/yanun0323/logs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Start the challenge and trade API.

Example:
  propfirm serve --config propfirm.yaml --addr :9090`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	if cfg.Profiling.Enabled {
		profiler, err := startProfiler(cfg)
		if err != nil {
			return fmt.Errorf("pyroscope start: %w", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandler(a.svc, a.prices))
	return api.Serve(ctx, cfg.Server.Addr, router)
}

func startProfiler(cfg *config.Config) (*pyroscope.Profiler, error) {
	logs.Infof("pyroscope profiling to %s as %s", cfg.Profiling.ServerAddress, cfg.Profiling.ApplicationName)
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.Profiling.ApplicationName,
		ServerAddress:   cfg.Profiling.ServerAddress,
		Tags: map[string]string{
			"env": cfg.Server.Environment,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}
