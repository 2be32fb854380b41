package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nsls2-sst/ucal-export/cmd/ucal_export/server"
	"github.com/nsls2-sst/ucal-export/internal/export"
	"github.com/nsls2-sst/ucal-export/internal/handlers"
)

var (
	// Version can be set during the compilation
	Version string = "0.0.1"
	// Build is set during the compilation
	Build string
	// BuildDate is set during the compilation
	BuildDate string
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "ucal-export",
	Short: "Export ucal runs to XDI, HDF5 and Athena files",
	Long: `ucal-export writes the end-of-run exports of the ucal beamline.

Runs are read from the Tiled catalog and written below the proposal
directory of the run:

  <proposal_root>/<cycle>/pass-<id>/<YYYYMMDD>_export/{xdi,hdf5,athena}

Examples:
  ucal-export export 5d8b1d2f-1f0a-4c53-9a53-0f8e5f3a2b11
  ucal-export process --reprocess 5d8b1d2f-1f0a-4c53-9a53-0f8e5f3a2b11
  ucal-export serve`,
	SilenceUsage: true,
}

var exportCmd = &cobra.Command{
	Use:   "export <uid>",
	Short: "Export one run, retrying the whole export on failure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configDir)
		if err != nil {
			return err
		}
		defer a.close()

		policy := export.RetryPolicy{Retries: a.config.Export.Retries, Delay: a.config.Export.RetryDelay}
		result, err := export.WithRetry(cmd.Context(), policy, a.logger, func(ctx context.Context) (*export.Result, error) {
			return a.exporter.ExportRun(ctx, args[0])
		})
		if err != nil {
			a.logger.Error("Export failed", "uid", args[0], "error", err.Error())
			return err
		}
		a.logger.Info("Export finished", "uid", args[0], "export_path", result.ExportPath, "written", result.Written, "skipped", result.Skipped)
		return nil
	},
}

var reprocess bool

var processCmd = &cobra.Command{
	Use:   "process <uid>",
	Short: "Run the analysis step for one run and record its derived channels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configDir)
		if err != nil {
			return err
		}
		defer a.close()

		processor, err := a.processingService()
		if err != nil {
			return err
		}
		processed, err := processor.Process(cmd.Context(), args[0], reprocess)
		a.metrics.ObserveProcessing(processed, err)
		if err != nil {
			a.logger.Error("Processing failed", "uid", args[0], "error", err.Error())
			return err
		}
		a.logger.Info("Processing finished", "uid", args[0], "processed", processed)
		return nil
	},
}

var datasetCmd = &cobra.Command{
	Use:   "dataset <uid>",
	Short: "Print the labeled arrays a run publishes to the tiled catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configDir)
		if err != nil {
			return err
		}
		defer a.close()

		run, err := a.catalog.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ds, ok, err := a.datasetAdapter().Export(cmd.Context(), run)
		if err != nil || !ok {
			return err
		}
		out := cmd.OutOrStdout()
		for name, coord := range ds.Coords {
			fmt.Fprintf(out, "coord %-24s %v %v\n", name, coord.Dims, coord.Array.Shape)
		}
		for _, v := range ds.Variables {
			fmt.Fprintf(out, "var   %-24s %v %v\n", v.Name, v.Dims, v.Array.Shape)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve export and processing triggers over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configDir)
		if err != nil {
			return err
		}
		defer a.close()

		// without a store or command the process endpoint answers 503
		var processor handlers.RunProcessor
		if p, err := a.processingService(); err != nil {
			a.logger.Warn("Processing disabled", "error", err.Error())
		} else {
			processor = p
		}
		policy := export.RetryPolicy{Retries: a.config.Export.Retries, Delay: a.config.Export.RetryDelay}
		h := handlers.New(a.exporter, processor, policy, a.metrics, a.config.Service.Build, a.config.Service.BuildDate)
		srv, err := server.NewServer(a.logger, a.config.Service, h, a.metrics)
		if err != nil {
			return err
		}

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.Start()
		}()
		select {
		case err := <-errChan:
			return err
		case <-cmd.Context().Done():
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Error("Server forced to shutdown", "error", err.Error())
			return err
		}
		a.logger.Info("Server shutdown successfully")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ucal-export %s (build %s, %s)\n", Version, Build, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.yaml")
	processCmd.Flags().BoolVar(&reprocess, "reprocess", false, "process the run again even if results exist")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Println(err.Error())
		os.Exit(1)
	}
}
