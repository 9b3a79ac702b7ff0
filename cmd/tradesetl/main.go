// Trades ETL CLI
// This application fetches executed trades for a trading pair from the
// Mercado Bitcoin public API, writes them to a local CSV artifact, and
// uploads the artifact to an S3 bucket.
//
// Usage:
//
//	tradesetl run [--config config.json] [--symbol BTC-BRL]
//	tradesetl fetch [--config config.json] [--symbol BTC-BRL]
//
// For detailed help on any command, use: tradesetl <command> --help
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lucasvieira/go-trades-etl/internal/config"
	pkgerrors "github.com/lucasvieira/go-trades-etl/internal/errors"
	"github.com/lucasvieira/go-trades-etl/internal/exchange"
	"github.com/lucasvieira/go-trades-etl/internal/logger"
	"github.com/lucasvieira/go-trades-etl/internal/pipeline"
	"github.com/lucasvieira/go-trades-etl/internal/storage"
)

// CLI version information
const (
	Version = "1.0.0"
	AppName = "tradesetl"
)

// Exit codes following standard conventions
const (
	ExitSuccess       = 0
	ExitUsageError    = 1
	ExitConfigError   = 2
	ExitConnectionErr = 3
	ExitDataError     = 4
	ExitInterrupt     = 130
)

// CLI holds the wired application components.
type CLI struct {
	config     *config.AppConfig
	logManager *logger.Manager
	logger     *slog.Logger
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(ExitUsageError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		os.Exit(runCommand(ctx, args, false))
	case "fetch":
		os.Exit(runCommand(ctx, args, true))
	case "--version", "-v", "version":
		fmt.Printf("%s version %s\n", AppName, Version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(ExitUsageError)
	}
}

// runCommand executes the pipeline. With fetchOnly set it stops after the
// fetch step and reports the row count, which is useful for checking API
// connectivity without touching the filesystem or the bucket.
func runCommand(ctx context.Context, args []string, fetchOnly bool) int {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a JSON configuration file")
	symbol := flags.String("symbol", "", "trading pair symbol override (e.g. BTC-BRL)")

	if err := flags.Parse(args); err != nil {
		return ExitUsageError
	}

	cli, err := initialize(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return ExitConfigError
	}
	defer cli.logManager.Close()

	if *symbol != "" {
		cli.config.API.Symbol = *symbol
	}

	retrier := pkgerrors.NewRetrier(cli.config.Retry, cli.logger)
	fetcher := exchange.NewMercadoBitcoinAdapter(cli.config.API, retrier, cli.logManager.ComponentLogger("fetcher"))

	if fetchOnly {
		resp, err := fetcher.FetchTrades(ctx, exchange.FetchRequest{Symbol: cli.config.API.Symbol})
		if err != nil {
			cli.logger.Error("fetch failed", "error", err)
			return exitCodeFor(err)
		}

		fmt.Printf("fetched %d trades for %s\n", len(resp.Trades), cli.config.API.Symbol)
		return ExitSuccess
	}

	creds := storage.CredentialsFromConfig(cli.config.Storage)
	uploader, err := storage.NewS3Store(ctx, cli.config.Storage, creds, retrier, cli.logManager.ComponentLogger("uploader"))
	if err != nil {
		cli.logger.Error("failed to initialize storage", "error", err)
		return exitCodeFor(err)
	}

	p := pipeline.New(fetcher, uploader, cli.config, cli.logManager.ComponentLogger("pipeline"))

	result, err := p.Run(ctx)
	if err != nil {
		cli.logger.Error("pipeline run failed", "error", err)
		if ctx.Err() != nil {
			return ExitInterrupt
		}
		return exitCodeFor(err)
	}

	fmt.Printf("uploaded %d trades to s3://%s/%s\n", result.Rows, cli.config.Storage.Bucket, result.ObjectKey)
	return ExitSuccess
}

// initialize loads configuration and sets up logging.
func initialize(configPath string) (*CLI, error) {
	manager := config.NewManager(configPath, nil)

	cfg, err := manager.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logManager, err := logger.NewManager(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return &CLI{
		config:     cfg,
		logManager: logManager,
		logger:     logManager.Logger(),
	}, nil
}

// exitCodeFor maps the pipeline error taxonomy onto process exit codes.
func exitCodeFor(err error) int {
	var se *pkgerrors.StepError
	if !errors.As(err, &se) {
		return ExitDataError
	}

	switch se.Type {
	case pkgerrors.ErrorTypeNetwork, pkgerrors.ErrorTypeTimeout,
		pkgerrors.ErrorTypeRateLimit, pkgerrors.ErrorTypeServerError,
		pkgerrors.ErrorTypeAuth:
		return ExitConnectionErr
	case pkgerrors.ErrorTypeConfig:
		return ExitConfigError
	default:
		return ExitDataError
	}
}

// printUsage displays the main usage information
func printUsage() {
	fmt.Printf(`%s - Mercado Bitcoin trades ETL

USAGE:
    %s <command> [options]

COMMANDS:
    run       Fetch trades, write the CSV artifact, and upload it to S3
    fetch     Fetch trades and print the row count (no write, no upload)
    version   Show version information
    help      Show this help message

OPTIONS:
    --config <path>    Path to a JSON configuration file
    --symbol <pair>    Trading pair symbol override (e.g. BTC-BRL)

CONFIGURATION:
    Settings load from defaults, then the JSON config file, then environment
    variables. AWS credentials are read from AWS_ACCESS_KEY_ID and
    AWS_SECRET_ACCESS_KEY, optionally via a local .env file.

EXAMPLES:
    %s run
    %s run --config etl.json --symbol ETH-BRL
    %s fetch --symbol BTC-BRL

`, AppName, AppName, AppName, AppName, AppName)
}
