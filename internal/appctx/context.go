// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/basecamp/prismctl/internal/config"
	"github.com/basecamp/prismctl/internal/library"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/remote"
	"github.com/basecamp/prismctl/internal/repo"
	"github.com/basecamp/prismctl/internal/resilience"
	"github.com/basecamp/prismctl/internal/version"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// LibraryName names the realm of the CLI's library connection.
const LibraryName = "prismctl"

// App holds the shared application context for all commands.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Output  *output.Writer
	Metrics *repo.Metrics

	// Flags holds the global flag values
	Flags GlobalFlags
	// Dir and Overrides reproduce the configuration load on reload.
	Dir       string
	Overrides config.FlagOverrides

	// Dial connects to the library server. Tests replace it.
	Dial func(cfg *config.Config) (library.API, error)

	stdout io.Writer

	mu      sync.Mutex
	library *library.Library
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON   bool
	Quiet  bool
	Styled bool
	Count  bool
	JQ     string

	// Configuration flags
	BaseURL    string
	ConfigFile string
	CacheDir   string

	Verbose int // 0=warnings, 1=info, 2=debug (stacks with -v -v or -vv)
}

// Overrides converts the flags to config overrides. Verbose is only an
// override when given.
func (f GlobalFlags) Overrides(verboseSet bool) config.FlagOverrides {
	o := config.FlagOverrides{
		ConfigFile: f.ConfigFile,
		BaseURL:    f.BaseURL,
		CacheDir:   f.CacheDir,
		Verbose:    -1,
	}
	if verboseSet {
		o.Verbose = f.Verbose
	}
	return o
}

// NewApp creates a new App writing results to stdout and logs to stderr.
func NewApp(cfg *config.Config, flags GlobalFlags, stdout, stderr io.Writer) (*App, error) {
	a := &App{
		Config:  cfg,
		Flags:   flags,
		Logger:  NewLogger(stderr, cfg.VerboseLevel()),
		Metrics: repo.NewMetrics(""),
		stdout:  stdout,
	}
	a.Dial = a.dial

	out, err := output.New(output.Options{
		Format: a.format(),
		Writer: stdout,
		JQ:     flags.JQ,
	})
	if err != nil {
		return nil, err
	}
	a.Output = out

	for _, w := range cfg.Warnings {
		a.Logger.Warn().Msg(w)
	}
	return a, nil
}

// NewLogger returns a console logger on w. Level 0 logs warnings, 1 info
// and 2 debug output.
func NewLogger(w io.Writer, verbose int) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbose >= 2:
		level = zerolog.DebugLevel
	case verbose == 1:
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// format resolves the output format: flags win over the config file.
func (a *App) format() output.Format {
	switch {
	case a.Flags.Count:
		return output.FormatCount
	case a.Flags.Quiet:
		return output.FormatQuiet
	case a.Flags.JSON:
		return output.FormatJSON
	case a.Flags.Styled:
		return output.FormatStyled
	}
	f, err := output.ParseFormat(a.Config.Format)
	if err != nil {
		a.Logger.Warn().Str("format", a.Config.Format).Msg("unknown format in config, using auto")
	}
	return f
}

// Library returns the library connection, dialing on first use.
func (a *App) Library() (*library.Library, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.library != nil {
		return a.library, nil
	}
	api, err := a.Dial(a.Config)
	if err != nil {
		return nil, err
	}
	a.library = library.New(LibraryName, api, a.libraryOptions())
	return a.library, nil
}

func (a *App) libraryOptions() library.Options {
	return library.Options{
		Logger:   a.Logger,
		Metrics:  a.Metrics,
		PageRate: rate.Limit(a.Config.PageRate),
		FreshTTL: a.Config.FreshTTL,
	}
}

// Reload switches to cfg. A changed server, token or resilience setting
// reconnects and drops every cached repository; anything else only
// invalidates them. It reports whether it reconnected.
func (a *App) Reload(cfg *config.Config) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.Config
	a.Config = cfg
	if a.library == nil {
		return false, nil
	}
	if cfg.BaseURL == prev.BaseURL && cfg.Token == prev.Token && cfg.CacheDir == prev.CacheDir && cfg.Resilience == prev.Resilience {
		a.library.Invalidate()
		return false, nil
	}

	api, err := a.Dial(cfg)
	if err != nil {
		a.Config = prev
		return false, err
	}
	a.library.Reconnect(api)
	return true, nil
}

// Close tears down the library connection.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.library != nil {
		a.library.Close()
	}
}

// dial builds the HTTP client, gated by the persisted resilience state.
func (a *App) dial(cfg *config.Config) (library.API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, output.ErrUsageHint(err.Error(), "Run: prismctl --base-url https://photos.example.com albums")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, output.ErrUsage(fmt.Sprintf("invalid base_url %q: %v", cfg.BaseURL, err))
	}

	store := resilience.NewStore(cfg.CacheDir)
	gate := resilience.NewGate(store, u.Host, cfg.Resilience, a.Logger)
	client, err := remote.New(cfg.BaseURL,
		remote.WithToken(cfg.Token),
		remote.WithUserAgent(version.UserAgent()),
		remote.WithGate(gate),
		remote.WithLogger(a.Logger),
	)
	if err != nil {
		return nil, output.ErrUsage(err.Error())
	}
	return client, nil
}

// OK outputs a success response.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	return a.Output.OK(data, opts...)
}

// Err outputs an error response.
func (a *App) Err(err error) error {
	return a.Output.Err(err)
}

// Stdout returns the writer results go to.
func (a *App) Stdout() io.Writer { return a.stdout }

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
