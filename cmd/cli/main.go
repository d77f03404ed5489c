package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/intake-service/config"
	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/ingestion/docx"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intake-service",
	Short: "Intake Service CLI - product data document tooling",
	Long: `A CLI tool for working with product data documents: extract the tagged
content controls of a .docx file, import it as a submission, export a
submission as a workbook and manage the database schema.`,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Config is optional for some commands, don't fail here
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun runs before each command and initializes dependencies
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()

	switch cmd.Name() {
	case "import", "export", "migrate":
		if cfg == nil {
			return fmt.Errorf("config required for %s command but not loaded", cmd.Name())
		}
		if err := initDatabase(cmd.Context()); err != nil {
			return fmt.Errorf("database initialization failed: %w", err)
		}
		logger.Info().Msg("Database connected")
	}

	return nil
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// Log to stderr so command output on stdout stays pipeable
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stderr
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func initDatabase(ctx context.Context) error {
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := database.Connect(ctx, dbURL, cfg.Database); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// readerOptions applies the configured container limits over the defaults
func readerOptions() docx.Options {
	opts := docx.DefaultOptions()
	if cfg == nil {
		return opts
	}
	if cfg.Upload.MaxPartBytes > 0 {
		opts.MaxPartSize = cfg.Upload.MaxPartBytes
	}
	if cfg.Upload.MaxTotalBytes > 0 {
		opts.MaxTotalSize = cfg.Upload.MaxTotalBytes
	}
	opts.IncludeAuxiliaryParts = cfg.Upload.IncludeAuxiliaryParts
	return opts
}

func main() {
	err := Execute()
	database.Close()
	if err != nil {
		os.Exit(1)
	}
}
