package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kasir/internal/config"
	"kasir/internal/llm"
	"kasir/internal/logging"
	"kasir/internal/posapi"
	"kasir/internal/session"

	"github.com/common-nighthawk/go-figure"
	"go.uber.org/zap"
)

type Runner struct {
	options   Options
	defaults  Options
	store     *session.Store
	assistant *llm.Client
	sink      *logging.Sink
	logger    *zap.Logger
	in        io.Reader
	out       io.Writer
}

func NewRunner(cfg config.Config, store *session.Store, assistant *llm.Client, sink *logging.Sink, logger *zap.Logger) *Runner {
	opts := Options{
		BaseURL:    cfg.POSBaseURL,
		Username:   cfg.POSUsername,
		Password:   cfg.POSPassword,
		LLMBaseURL: cfg.LLMBaseURL,
		LLMAPIKey:  cfg.LLMAPIKey,
		LLMModel:   cfg.LLMModel,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		LogFile:    cfg.LogFile,
		Debug:      cfg.Debug,
	}

	return &Runner{
		options:   opts,
		defaults:  opts,
		store:     store,
		assistant: assistant,
		sink:      sink,
		logger:    logger.Named("cli"),
		in:        os.Stdin,
		out:       os.Stdout,
	}
}

func (r *Runner) Execute() error {
	return r.run(os.Args[1:])
}

func (r *Runner) run(argv []string) error {
	opts := &r.options
	var timeoutSeconds int

	fs := flag.NewFlagSet("kasir", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [command [args...]]\n", fs.Name())
		fmt.Fprintln(os.Stderr, "Without a command an interactive session is started; type 'help' inside it.")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.BaseURL, "base-url", opts.BaseURL, "POS API base URL (POS_BASE_URL)")
	fs.StringVar(&opts.Username, "username", opts.Username, "POS username (POS_USERNAME)")
	fs.StringVar(&opts.Password, "password", opts.Password, "POS password (POS_PASSWORD)")
	fs.BoolVar(&opts.JSON, "json", opts.JSON, "Output JSON format")
	fs.BoolVar(&opts.Debug, "debug", opts.Debug, "Enable debug logging")
	fs.StringVar(&opts.LogFile, "log-file", opts.LogFile, "Log file path")
	fs.IntVar(&timeoutSeconds, "timeout", int(opts.Timeout.Seconds()), "Timeout in seconds")
	fs.Float64Var(&opts.RateLimit, "rate-limit", opts.RateLimit, "Maximum API requests per second, 0 for no limit (RATE_LIMIT)")
	fs.StringVar(&opts.LLMBaseURL, "llm-base-url", opts.LLMBaseURL, "LLM base URL (LLM_BASE_URL)")
	fs.StringVar(&opts.LLMAPIKey, "llm-api-key", opts.LLMAPIKey, "LLM API key (LLM_API_KEY)")
	fs.StringVar(&opts.LLMModel, "llm-model", opts.LLMModel, "LLM model (LLM_MODEL)")

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if timeoutSeconds > 0 {
		opts.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	opts.Command = fs.Args()

	if r.sink != nil {
		r.sink.SetDebug(opts.Debug)
		if err := r.sink.Redirect(opts.LogFile); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	sh, err := r.newShell(opts)
	if err != nil {
		return err
	}

	if len(opts.Command) == 0 {
		return sh.repl(ctx, r.in)
	}
	return sh.oneShot(ctx, opts.Command)
}

func (r *Runner) newShell(opts *Options) (*shell, error) {
	llmClient := r.assistant
	if llmClient == nil || r.llmOverridden(opts) {
		var err error
		llmClient, err = newLLMClientFromOptions(opts, r.logger)
		if err != nil {
			return nil, err
		}
	}

	sh := newShell(opts, r.out, r.logger)
	sh.llm = llmClient
	client, err := newPOSClientFromOptions(opts, r.store, r.logger, sh.navigateToLogin)
	if err != nil {
		return nil, err
	}
	sh.client = client
	return sh, nil
}

// llmOverridden reports whether flags changed the assistant settings the
// injected client was built with.
func (r *Runner) llmOverridden(opts *Options) bool {
	return opts.LLMBaseURL != r.defaults.LLMBaseURL ||
		opts.LLMAPIKey != r.defaults.LLMAPIKey ||
		opts.LLMModel != r.defaults.LLMModel ||
		opts.Timeout != r.defaults.Timeout
}

func newLLMClientFromOptions(opts *Options, logger *zap.Logger) (*llm.Client, error) {
	cfg := config.Config{
		LLMBaseURL: opts.LLMBaseURL,
		LLMAPIKey:  opts.LLMAPIKey,
		LLMModel:   opts.LLMModel,
		Timeout:    opts.Timeout,
	}
	return llm.NewClient(cfg, logger)
}

func newPOSClientFromOptions(opts *Options, store *session.Store, logger *zap.Logger, nav posapi.NavigatorFunc) (*posapi.Client, error) {
	cfg := config.Config{
		POSBaseURL: strings.TrimSpace(opts.BaseURL),
		Timeout:    opts.Timeout,
		RateLimit:  opts.RateLimit,
	}
	return posapi.NewClient(cfg, store, logger, posapi.WithLoginNavigator(nav))
}

func banner() string {
	return figure.NewFigure("kasir", "cybermedium", true).String()
}
