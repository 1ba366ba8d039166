package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jsoncv/config"
	"jsoncv/pkg/logger"
)

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "jsoncv",
	Short: "Build CVs from JSON and edit them in the browser",
	Long: `jsoncv renders JSON resumes into themed HTML and PDF files.

It serves the editor API with live previews, builds every versioned resume
into the static site and keeps older versions as timestamped backups.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		logger.Init(level)
		if cfg.EnvFile == "" {
			logger.Sugar.Debug("No .env file found, using environment variables from OS")
		} else {
			logger.Sugar.Debugf("Loaded environment from %s", cfg.EnvFile)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default from LOG_LEVEL)")

	buildCmd.Flags().Bool("watch", false, "Rebuild when resumes change")
	buildCmd.Flags().String("pdf", "", "PDF mode: none, remote or local (default from PDF_MODE)")
	renderCmd.Flags().String("data", "", "CV data file (default from DATA_FILENAME)")
	renderCmd.Flags().String("out", "", "Output directory (default from OUT_DIR)")
	renderCmd.Flags().String("theme", "", "Theme (default from THEME)")
	schemaCmd.Flags().Bool("base", false, "Print the bundled schema without editor ordering and formats")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
