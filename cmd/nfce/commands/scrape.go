package commands

import (
	"encoding/json"
	"fmt"
	"nfce-backend/lib/scrapers/nfce"
	"nfce-backend/lib/serviceutil"
	"nfce-backend/lib/telemetry"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeJson bool
	scrapeDump string
)

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeJson, "json", false, "Print the products as the json /produtos would answer with.")
	scrapeCmd.Flags().StringVar(&scrapeDump, "dump", "", "Write every http exchange to this directory.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <qr_url> [--json] [--dump <dir>]",
	Short: "Extracts the products of a single receipt.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to load configuration", err)
		}
		if scrapeDump != "" {
			config.DumpDir = scrapeDump
		}
		opts, err := config.extractOptions(telemetry.SlogAPI{})
		if err != nil {
			serviceutil.Fatal("failed to configure scraper", err)
		}

		start := time.Now()
		result := nfce.Extract(cmd.Context(), args[0], opts)
		elapsed := time.Since(start)

		if scrapeJson {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			err := encoder.Encode(result.Products)
			if err != nil {
				serviceutil.Fatal("failed to encode products", err)
			}
		} else {
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"#", "Nome", "EAN"})
			for i, p := range result.Products {
				t.AppendRow(table.Row{i + 1, p.Name, p.Ean})
			}
			t.AppendFooter(table.Row{"", "status", result.Status})
			t.SetStyle(table.StyleRounded)
			t.Render()
		}

		fmt.Fprintf(os.Stderr, "%s in %.2fs\n", result.Status, elapsed.Seconds())
		if result.Err != nil {
			fmt.Fprintln(os.Stderr, result.Err)
			os.Exit(1)
		}
	},
}
