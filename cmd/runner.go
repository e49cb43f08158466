package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hubtwin/internal/services"
	"github.com/desertthunder/hubtwin/internal/shared"
)

const requestTimeout = 30 * time.Second

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	configPath  string
	config      *shared.Config
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error
	getenv      func(string) string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath  string
	Config      *shared.Config // skips loading ConfigPath when set
	HTTPClient  *http.Client   // replaces the retrying client when set
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(string) error
	Getenv      func(string) string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		configPath:  opts.ConfigPath,
		config:      opts.Config,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
		getenv:      opts.Getenv,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, invoicesCommand, syncCommand, ledgerCommand, runsCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies the global flags and loads the configuration.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}
	if r.config != nil {
		return ctx, nil
	}

	config, err := r.loadConfig()
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// loadConfig reads the config file when present, falling back to defaults, then applies environment overrides.
func (r *Runner) loadConfig() (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		if config, err = shared.LoadConfig(r.configPath); err != nil {
			return nil, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	config.ApplyEnv(r.getenv)
	return config, nil
}

// retryClient returns the HTTP client for outbound API calls.
func (r *Runner) retryClient(opts ...services.RetryOption) *http.Client {
	if r.httpClient != nil {
		return r.httpClient
	}
	opts = append(opts, services.WithRetryLogger(r.logger))
	return services.NewHTTPClient(r.config.Retry, requestTimeout, opts...)
}

// hubspot creates the HubSpot client. Batch association reads are POSTs without side effects, so POST is retried.
func (r *Runner) hubspot() (*services.HubSpotClient, error) {
	if err := r.config.ValidateHubSpot(); err != nil {
		return nil, err
	}
	client := r.retryClient(services.WithRetryMethods(http.MethodPost))
	return services.NewHubSpotClient(r.config.Credentials.HubSpot, client, r.logger)
}

func (r *Runner) twinfieldAuth(cfg shared.TwinfieldConfig) (*services.TwinfieldAuth, error) {
	return services.NewTwinfieldAuth(cfg, r.retryClient(services.WithRetryMethods(http.MethodPost)))
}

func (r *Runner) openLedger() (*sql.DB, error) {
	r.logger.Debug("opening database", "path", r.config.Database.Path)
	db, err := shared.OpenLedger(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (r *Runner) saveConfig() error {
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
