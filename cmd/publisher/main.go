package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"ctastats/internal/config"
	"ctastats/internal/logging"
	"ctastats/internal/model"
	"ctastats/internal/pipeline"
	"ctastats/internal/render"
	"ctastats/internal/server"
	"ctastats/internal/sheet"
	"ctastats/internal/sources"
	"ctastats/internal/sources/local"
	"ctastats/internal/sources/sbti"
	"ctastats/internal/store"
	"ctastats/internal/store/sqlite"
)

var (
	configPath  string
	sourceKind  string
	sourceURL   string
	sourceFile  string
	dbPath      string
	datePolicy  string
	groupBy     string
	country     string
	rowsPerPage int
	outDir      string
	charts      bool
	jsonOutput  bool
	addr        string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "publisher",
	Short:         "Aggregate Companies Taking Action data into charts, tables and an HTTP API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Write charts and JSON for one view and print the summary tables",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the views over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

type metaFile struct {
	GeneratedAt        string   `json:"generated_at"`
	Source             string   `json:"source"`
	GroupBy            string   `json:"group_by"`
	Country            string   `json:"country,omitempty"`
	RowsPerPage        int      `json:"rows_per_page,omitempty"`
	RawRows            int      `json:"raw_rows"`
	Records            int      `json:"records"`
	DroppedMissingDate int      `json:"dropped_missing_date"`
	DroppedBadDate     int      `json:"dropped_bad_date"`
	Pages              int      `json:"pages"`
	Charts             []string `json:"charts,omitempty"`
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to YAML config (default: $CTASTATS_CONFIG)")
	flags.StringVar(&sourceKind, "source", "", "table source: http, file or db")
	flags.StringVar(&sourceURL, "url", "", "workbook URL for the http source")
	flags.StringVar(&sourceFile, "file", "", "workbook path for the file source")
	flags.StringVar(&dbPath, "db", "", "sqlite database path for the db source")
	flags.StringVar(&datePolicy, "date-policy", "", "strict or lenient handling of malformed dates")
	flags.BoolVar(&verbose, "verbose", false, "debug logging")

	buildCmd.Flags().StringVar(&groupBy, "group-by", "", "country or year")
	buildCmd.Flags().StringVar(&country, "country", "", "country for the per-year view and the summary")
	buildCmd.Flags().IntVar(&rowsPerPage, "rows-per-page", 0, "countries per chart (default 15, capped at the number of countries)")
	buildCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: output.dir)")
	buildCmd.Flags().BoolVar(&charts, "charts", true, "write PNG charts")
	buildCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON instead of tables")

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})
	rootCmd.AddCommand(buildCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, rootCmd.UsageString())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "publisher failed:", err)
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	params, err := paramsFromConfig(cfg)
	if err != nil {
		return usageError{err: err}
	}

	loader, closeLoader, err := buildLoader(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLoader()

	result, err := build(cmd.Context(), cfg, loader, params, logger)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidParams) {
			return usageError{err: err}
		}
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	fmt.Println(render.SummaryTable(result.Summary))
	fmt.Println(render.MatrixTable(result.Matrix, model.StatusLabels))
	fmt.Printf("publisher build complete (out=%s pages=%d)\n", cfg.Output.Dir, len(result.Pages))
	return nil
}

// build runs the pipeline and, only when it succeeds, writes every output
// file into cfg.Output.Dir.
func build(ctx context.Context, cfg config.Config, loader pipeline.Loader, params pipeline.Params, logger *zap.Logger) (pipeline.Result, error) {
	result, err := pipeline.New(loader, logger.Named("pipeline")).Run(ctx, params)
	if err != nil {
		return pipeline.Result{}, err
	}
	if err := writeOutputs(cfg, result); err != nil {
		return pipeline.Result{}, err
	}
	return result, nil
}

func writeOutputs(cfg config.Config, result pipeline.Result) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	meta := metaFile{
		GeneratedAt:        time.Now().UTC().Format(time.RFC3339),
		Source:             cfg.Source.Kind,
		GroupBy:            string(result.Params.GroupBy),
		Country:            result.Params.Country,
		RowsPerPage:        result.Params.RowsPerPage,
		RawRows:            result.Report.Raw,
		Records:            result.Report.Retained,
		DroppedMissingDate: result.Report.DroppedMissingDate,
		DroppedBadDate:     result.Report.DroppedBadDate,
		Pages:              len(result.Pages),
	}

	if cfg.Output.Charts {
		opts := render.ChartOptions{
			Title:       render.DefaultTitle(result.Matrix.Dimension(), result.Params.Country),
			Width:       vg.Length(cfg.Output.ChartWidthInches) * vg.Inch,
			Height:      vg.Length(cfg.Output.ChartHeightInches) * vg.Inch,
			Labels:      model.StatusLabels,
			ValueLabels: result.Params.GroupBy == pipeline.GroupByYear,
		}
		paths, err := render.ChartFiles(cfg.Output.Dir, string(result.Params.GroupBy), result.Pages, opts)
		if err != nil {
			return fmt.Errorf("write charts: %w", err)
		}
		for _, path := range paths {
			meta.Charts = append(meta.Charts, filepath.Base(path))
		}
	}

	matrix := struct {
		Params pipeline.Params `json:"params"`
		Matrix any             `json:"matrix"`
		Pages  any             `json:"pages"`
	}{result.Params, result.Matrix, result.Pages}
	if err := render.WriteJSON(filepath.Join(cfg.Output.Dir, "matrix.json"), matrix); err != nil {
		return fmt.Errorf("write matrix.json: %w", err)
	}
	if err := render.WriteWorkbook(filepath.Join(cfg.Output.Dir, "matrix.xlsx"), "By "+string(result.Params.GroupBy), result.Matrix, model.StatusLabels); err != nil {
		return fmt.Errorf("write matrix.xlsx: %w", err)
	}
	if err := render.WriteJSON(filepath.Join(cfg.Output.Dir, "summary.json"), result.Summary); err != nil {
		return fmt.Errorf("write summary.json: %w", err)
	}
	if err := render.WriteJSON(filepath.Join(cfg.Output.Dir, "meta.json"), meta); err != nil {
		return fmt.Errorf("write meta.json: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	loader, closeLoader, err := buildLoader(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLoader()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(loader, server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Chart: render.ChartOptions{
			Width:  vg.Length(cfg.Output.ChartWidthInches) * vg.Inch,
			Height: vg.Length(cfg.Output.ChartHeightInches) * vg.Inch,
		},
	}, logger.Named("server"))
	return srv.ListenAndServe(ctx)
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
	if flags.Changed("group-by") {
		cfg.Pipeline.GroupBy = groupBy
	}
	if flags.Changed("country") {
		cfg.Pipeline.Country = country
	}
	if flags.Changed("rows-per-page") {
		cfg.Pipeline.RowsPerPage = rowsPerPage
	}
	if flags.Changed("out") {
		cfg.Output.Dir = outDir
	}
	if flags.Changed("charts") {
		cfg.Output.Charts = charts
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, usageError{err: err}
	}
	return cfg, nil
}

func paramsFromConfig(cfg config.Config) (pipeline.Params, error) {
	group, err := pipeline.ParseGroupBy(cfg.Pipeline.GroupBy)
	if err != nil {
		return pipeline.Params{}, err
	}
	params := pipeline.Params{GroupBy: group, Country: cfg.Pipeline.Country}
	if group == pipeline.GroupByCountry {
		params.RowsPerPage = cfg.Pipeline.RowsPerPage
	}
	return params, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger.Named("publisher"), nil
}

// buildLoader picks the live workbook or the latest stored snapshot. The
// returned close func releases the database when one was opened.
func buildLoader(cfg config.Config, logger *zap.Logger) (pipeline.Loader, func() error, error) {
	noop := func() error { return nil }

	if cfg.Source.Kind == config.SourceDB {
		st, err := openStore(cfg.Store.Path)
		if err != nil {
			return nil, noop, err
		}
		return pipeline.NewSnapshotLoader(st), st.Close, nil
	}

	policy, err := sheet.ParseDatePolicy(cfg.Pipeline.DatePolicy)
	if err != nil {
		return nil, noop, usageError{err: err}
	}
	source, err := buildSource(cfg.Source)
	if err != nil {
		return nil, noop, err
	}
	options := sheet.Options{Sheet: cfg.Source.Sheet, DatePolicy: policy}
	return pipeline.NewFetchLoader(source, options, logger.Named("loader")), noop, nil
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
