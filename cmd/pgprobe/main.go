// Command pgprobe runs connectivity probes against a PostgreSQL database
// and exits 0 only when the connection test passes and the health check
// reports healthy.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/dashboard360/pgprobe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type probeFlags struct {
	envFile string
	logFile string
	jsonOut bool

	host     string
	port     int
	database string
	user     string
	password string
	schema   string
	sslMode  string
}

func newRootCmd() *cobra.Command {
	var flags probeFlags

	cmd := &cobra.Command{
		Use:           "pgprobe",
		Short:         "Probe connectivity to a PostgreSQL database",
		Long:          "pgprobe resolves connection configuration, opens a connection,\nruns introspection queries, and reports a pass/fail result with timing.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.envFile, "env-file", ".env", "path to a dotenv file loaded before resolution")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "pgprobe.log", "path to the probe log file")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "emit a machine-readable report on stdout")
	cmd.Flags().StringVar(&flags.host, "host", "", "database host (overrides DB_HOST)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "database port (overrides DB_PORT)")
	cmd.Flags().StringVar(&flags.database, "database", "", "database name (overrides DB_NAME)")
	cmd.Flags().StringVar(&flags.user, "user", "", "database user (overrides DB_USER)")
	cmd.Flags().StringVar(&flags.password, "password", "", "database password (overrides DB_PASSWORD)")
	cmd.Flags().StringVar(&flags.schema, "schema", "", "expected schema (overrides DB_SCHEMA)")
	cmd.Flags().StringVar(&flags.sslMode, "sslmode", "", "sslmode (overrides DB_SSLMODE)")

	return cmd
}

type report struct {
	ConnectionString string               `json:"connection_string"`
	Info             pgprobe.Snapshot     `json:"info"`
	ConnectionTest   pgprobe.Result       `json:"connection_test"`
	HealthCheck      pgprobe.HealthReport `json:"health_check"`
	Passed           bool                 `json:"passed"`
}

func run(cmd *cobra.Command, flags *probeFlags) error {
	ctx := cmd.Context()

	if err := godotenv.Load(flags.envFile); err == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "loaded config from %s\n", flags.envFile)
	}

	cfg, err := pgprobe.ResolveConfig(overrides(cmd, flags))
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}

	logger, closeLogger := newLogger(flags.logFile, flags.jsonOut)
	defer closeLogger()

	prober, err := pgprobe.New(cfg, pgprobe.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}

	rep := report{
		ConnectionString: cfg.Redacted(),
		Info:             prober.Info(),
	}
	rep.ConnectionTest = prober.TestConnection(ctx)
	rep.HealthCheck = prober.HealthCheck(ctx)
	rep.Passed = rep.ConnectionTest.Connected && rep.HealthCheck.Status == pgprobe.StatusHealthy

	if err := ctx.Err(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "probe interrupted")
		return err
	}

	if flags.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		render(cmd, rep, flags.logFile)
	}

	if !rep.Passed {
		return errors.New("probe failed")
	}
	return nil
}

// overrides maps changed flags onto configuration keys. Unset flags fall
// through to the environment and defaults.
func overrides(cmd *cobra.Command, flags *probeFlags) map[string]string {
	o := map[string]string{}
	if cmd.Flags().Changed("host") {
		o[pgprobe.KeyHost] = flags.host
	}
	if cmd.Flags().Changed("port") {
		o[pgprobe.KeyPort] = fmt.Sprintf("%d", flags.port)
	}
	if cmd.Flags().Changed("database") {
		o[pgprobe.KeyName] = flags.database
	}
	if cmd.Flags().Changed("user") {
		o[pgprobe.KeyUser] = flags.user
	}
	if cmd.Flags().Changed("password") {
		o[pgprobe.KeyPassword] = flags.password
	}
	if cmd.Flags().Changed("schema") {
		o[pgprobe.KeySchema] = flags.schema
	}
	if cmd.Flags().Changed("sslmode") {
		o[pgprobe.KeySSLMode] = flags.sslMode
	}
	return o
}

// newLogger builds the probe logging sink: structured lines to the log
// file, and mirrored to stderr unless JSON output owns the terminal.
func newLogger(path string, jsonOut bool) (*zap.Logger, func()) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		}),
		zap.InfoLevel,
	)

	cores := []zapcore.Core{fileCore}
	if !jsonOut {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stderr),
			zap.InfoLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger, func() { _ = logger.Sync() }
}

func render(cmd *cobra.Command, rep report, logFile string) {
	out := cmd.OutOrStdout()

	section(out, "CONNECTION STRING")
	fmt.Fprintf(out, "\n  %s\n", rep.ConnectionString)

	section(out, "DATABASE INFORMATION")
	fmt.Fprintf(out, "\n  type:      %s\n", rep.Info.Type)
	fmt.Fprintf(out, "  host:      %s:%d\n", rep.Info.Host, rep.Info.Port)
	fmt.Fprintf(out, "  database:  %s\n", rep.Info.Database)
	fmt.Fprintf(out, "  user:      %s\n", rep.Info.User)
	fmt.Fprintf(out, "  schema:    %s\n", rep.Info.Schema)
	fmt.Fprintf(out, "  sslmode:   %s\n", rep.Info.SSLMode)
	fmt.Fprintf(out, "  pool size: %d\n", rep.Info.PoolSize)

	section(out, "CONNECTION TEST")
	test := rep.ConnectionTest
	if test.Connected {
		fmt.Fprintln(out, "\n  PASSED")
		fmt.Fprintf(out, "  server version:  %s\n", test.ServerVersion)
		fmt.Fprintf(out, "  current schema:  %s (configured %s)\n", test.ReportedSchema, test.ConfiguredSchema)
		fmt.Fprintf(out, "  database size:   %s (%d bytes)\n", humanize.Bytes(uint64(test.DatabaseSize)), test.DatabaseSize)
		if test.ReportedSchema != test.ConfiguredSchema {
			fmt.Fprintln(out, "  warning: reported schema differs from configured schema")
		}
	} else {
		fmt.Fprintln(out, "\n  FAILED")
		fmt.Fprintf(out, "  error: %s\n", test.Error)
	}

	section(out, "HEALTH CHECK")
	health := rep.HealthCheck
	fmt.Fprintf(out, "\n  status:        %s\n", health.Status)
	fmt.Fprintf(out, "  connected:     %t\n", health.Connected)
	fmt.Fprintf(out, "  latency:       %.2fms\n", health.LatencyMS)
	if health.Connected {
		fmt.Fprintf(out, "  schema exists: %t\n", health.SchemaExists)
		fmt.Fprintf(out, "  database size: %s\n", humanize.Bytes(uint64(health.DatabaseSize)))
		fmt.Fprintf(out, "  active conns:  %d\n", health.ActiveConnections)
	}
	if health.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", health.Error)
	}

	section(out, "SUMMARY")
	if rep.Passed {
		fmt.Fprintln(out, "\n  ALL PROBES PASSED")
	} else {
		fmt.Fprintln(out, "\n  SOME PROBES FAILED")
		if !test.Connected {
			fmt.Fprintln(out, "  - connection test failed")
		}
		if health.Status != pgprobe.StatusHealthy {
			fmt.Fprintf(out, "  - health status: %s\n", health.Status)
		}
	}
	fmt.Fprintf(out, "\n  log file: %s\n", logFile)
}

func section(out io.Writer, title string) {
	line := strings.Repeat("=", 72)
	fmt.Fprintf(out, "\n%s\n  %s\n%s\n", line, title, line)
}
