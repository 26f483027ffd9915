package commands

import (
	"context"
	"log/slog"
	"nfce-backend/lib/serviceutil"
	"nfce-backend/lib/telemetry"
	"nfce-backend/services/produtos"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves POST /produtos on $PORT.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()

		config, err := loadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to load configuration", err)
		}

		tel, err := telemetry.Setup(ctx, "nfce", config.Telemetry)
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			err := tel.Shutdown(shutdownCtx)
			if err != nil {
				slog.Error("failed to shutdown telemetry", "err", err)
			}
		}()
		telemetry.InstrumentPerfStats(ctx)

		api := telemetry.SlogAPI{}
		opts, err := config.extractOptions(api)
		if err != nil {
			serviceutil.Fatal("failed to configure scraper", err)
		}
		if config.ProxyUrl != "" {
			slog.Info("routing sefaz traffic through proxy")
		}

		service := produtos.NewService(
			produtos.ScraperExtractor{Options: opts},
			produtos.Options{
				StaticDir: config.StaticDir,
				Telemetry: api,
			},
		)
		err = serviceutil.StartHttpServer(ctx, config.Port, service.Handler())
		if err != nil {
			serviceutil.Fatal("http server stopped", err)
		}
	},
}
