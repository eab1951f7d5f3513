package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctastats/internal/config"
	"ctastats/internal/logging"
	"ctastats/internal/pipeline"
	"ctastats/internal/sheet"
	"ctastats/internal/sources"
	"ctastats/internal/sources/local"
	"ctastats/internal/sources/sbti"
	"ctastats/internal/store"
	"ctastats/internal/store/sqlite"
)

var (
	configPath string
	sourceKind string
	sourceURL  string
	sourceFile string
	dbPath     string
	datePolicy string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "collector",
	Short:         "Download the Companies Taking Action workbook and store normalized snapshots",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, normalize and save one snapshot",
	Args:  cobra.NoArgs,
	RunE:  runCollector,
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE:  listSnapshots,
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default: $CTASTATS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (default: store.path)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	runCmd.Flags().StringVar(&sourceKind, "source", "", "workbook source: http or file")
	runCmd.Flags().StringVar(&sourceURL, "url", "", "workbook URL for the http source")
	runCmd.Flags().StringVar(&sourceFile, "file", "", "workbook path for the file source")
	runCmd.Flags().StringVar(&datePolicy, "date-policy", "", "strict or lenient handling of malformed dates")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})
	rootCmd.AddCommand(runCmd, snapshotsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, rootCmd.UsageString())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "collector failed:", err)
		os.Exit(1)
	}
}

func runCollector(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Source.Kind == config.SourceDB {
		return usageError{err: errors.New("collector cannot read from the db source")}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	policy, err := sheet.ParseDatePolicy(cfg.Pipeline.DatePolicy)
	if err != nil {
		return usageError{err: err}
	}

	source, err := buildSource(cfg.Source)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := pipeline.NewFetchLoader(source, sheet.Options{Sheet: cfg.Source.Sheet, DatePolicy: policy}, logger.Named("loader"))
	snapshot, report, err := pipeline.Collect(ctx, loader, st, time.Now())
	if err != nil {
		return err
	}

	logger.Info("snapshot saved",
		zap.Int64("snapshot_id", snapshot.ID),
		zap.String("source", snapshot.Source),
		zap.Int("records", snapshot.Table.Len()),
		zap.Int("countries", len(snapshot.Table.Countries())),
	)
	fmt.Printf("collector run complete (snapshot=%d source=%s raw=%d retained=%d dropped_missing_date=%d dropped_bad_date=%d)\n",
		snapshot.ID, snapshot.Source, report.Raw, report.Retained, report.DroppedMissingDate, report.DroppedBadDate)
	for _, issue := range report.BadDates {
		fmt.Fprintf(os.Stderr, "dropped row %d: malformed date %q\n", issue.Row, issue.Value)
	}
	return nil
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		return usageError{err: errors.New("no database configured")}
	}

	st, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.ListSnapshots(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no snapshots")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%d\t%s\t%s\t%d\n", info.ID, info.FetchedAt.Format(time.RFC3339), info.Source, info.RecordCount)
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Kind = strings.ToLower(strings.TrimSpace(sourceKind))
	}
	if flags.Changed("url") {
		cfg.Source.URL = sourceURL
	}
	if flags.Changed("file") {
		cfg.Source.File = sourceFile
		if !flags.Changed("source") {
			cfg.Source.Kind = config.SourceFile
		}
	}
	if flags.Changed("db") {
		cfg.Store.Path = dbPath
	}
	if flags.Changed("date-policy") {
		cfg.Pipeline.DatePolicy = datePolicy
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, usageError{err: err}
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger.Named("collector"), nil
}

func buildSource(cfg config.SourceConfig) (sources.Source, error) {
	switch cfg.Kind {
	case config.SourceHTTP:
		return sbti.NewWithConfig(sbti.Config{
			URL:       cfg.URL,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			UserAgent: cfg.UserAgent,
		})
	case config.SourceFile:
		return local.New(cfg.File)
	default:
		return nil, fmt.Errorf("unknown source: %s", cfg.Kind)
	}
}

func openStore(path string) (store.Store, error) {
	if strings.TrimSpace(path) == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(path)
}
