// Command runmanifest records a run manifest for shell-driven pipelines.
//
// With a command after "--" the manifest brackets that command: the start
// time is taken before it runs and the report is saved after it exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	manifest "github.com/simon020286/go-manifest"
	"github.com/simon020286/go-manifest/config"
	"github.com/simon020286/go-manifest/sinks"
)

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// saveTimeout bounds the final save once the run context is gone
const saveTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("runmanifest", flag.ContinueOnError)
	configFile := fs.String("config", "", "YAML manifest configuration")
	destination := fs.String("o", "", "Destination: path, file://, s3://, postgres:// or - for stdout (overrides config)")
	workdir := fs.String("C", "", "Directory where git discovery starts (overrides config)")
	verbose := fs.Bool("v", false, "Enable debug logging")
	timeout := fs.Duration("t", 0, "Timeout for the wrapped command (0 for no timeout)")
	var inputs, outputs stringList
	fs.Var(&inputs, "in", "Input file (repeatable)")
	fs.Var(&outputs, "out", "Output file (repeatable)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: runmanifest [options] [-- command [args...]]\n\n")
		fmt.Fprintf(fs.Output(), "Record start/end time, inputs, outputs, git state, platform and Go modules.\n\n")
		fmt.Fprintf(fs.Output(), "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), "\nSinks: %s\n", strings.Join(sinks.ListSchemes(), ", "))
		fmt.Fprintf(fs.Output(), "\nExamples:\n")
		fmt.Fprintf(fs.Output(), "  runmanifest -in raw.csv -out clean.parquet -o manifests/run.json -- ./etl.sh\n")
		fmt.Fprintf(fs.Output(), "  runmanifest -config manifest.yaml -o s3://audit/runs/\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := &config.ManifestConfig{}
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			return 1
		}
		cfg = loaded
	} else {
		cfg.ApplyEnv()
	}
	if *destination != "" {
		cfg.Destination = *destination
	}
	if *workdir != "" {
		cfg.Workdir = *workdir
	}
	cfg.Inputs = append(cfg.Inputs, inputs...)
	cfg.Outputs = append(cfg.Outputs, outputs...)

	m, err := manifest.FromConfig(cfg, manifest.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build manifest", "error", err)
		return 1
	}
	logger.Debug("manifest started", "run_id", m.ID(), "name", cfg.Name, "start", m.Start())

	exitCode := 0
	if command := fs.Args(); len(command) > 0 {
		exitCode = runCommand(ctx, logger, command, *timeout)
	}

	// An interrupted run still gets its manifest.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if ctx.Err() != nil {
		logger.Warn("run interrupted, saving manifest", "run_id", m.ID())
	}
	if err := m.Finish(saveCtx); err != nil {
		return 1
	}
	return exitCode
}

// runCommand runs the wrapped command with inherited stdio and returns its exit code
func runCommand(ctx context.Context, logger *slog.Logger, command []string, timeout time.Duration) int {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Info("command completed", "command", command[0], "duration", elapsed)
		return 0
	case errors.As(err, &exitErr):
		logger.Warn("command failed", "command", command[0], "duration", elapsed, "exit_code", exitErr.ExitCode())
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return 1
	default:
		logger.Error("command could not run", "command", command[0], "error", err)
		return 127
	}
}
