package commands

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/appctx"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/resilience"
)

// ResilienceStatus is the persisted protection state for one server.
type ResilienceStatus struct {
	Host          string  `json:"host"`
	Circuit       string  `json:"circuit"`
	RetryIn       string  `json:"retry_in,omitempty"`
	Tokens        float64 `json:"tokens"`
	InFlight      int     `json:"in_flight"`
	MaxConcurrent int     `json:"max_concurrent"`
	StateFile     string  `json:"state_file"`
}

// NewResilienceCmd creates the resilience command.
func NewResilienceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resilience",
		Short: "Show circuit breaker, rate limiter and bulkhead state",
		Long: `Show the protection state shared by every prismctl process talking
to the configured server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			gate, store, err := gateFor(app)
			if err != nil {
				return err
			}

			circuit, err := gate.Breaker().State()
			if err != nil {
				return err
			}
			tokens, err := gate.Limiter().Tokens()
			if err != nil {
				return err
			}
			inUse, err := gate.Bulkhead().InUse()
			if err != nil {
				return err
			}

			st := ResilienceStatus{
				Host:          hostOf(app),
				Circuit:       circuit,
				Tokens:        tokens,
				InFlight:      inUse,
				MaxConcurrent: app.Config.Resilience.Bulkhead.MaxConcurrent,
				StateFile:     store.Path(),
			}
			if d := gate.Breaker().RetryIn(); d > 0 {
				st.RetryIn = d.String()
			}
			return app.OK(st, output.WithSummary(st.Host+": circuit "+circuit))
		},
	}
	cmd.AddCommand(newResilienceResetCmd())
	return cmd
}

func newResilienceResetCmd() *cobra.Command {
	var all, force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Close the circuit and refill the rate limiter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			gate, store, err := gateFor(app)
			if err != nil {
				return err
			}

			message := "Reset the circuit breaker and rate limiter for " + hostOf(app) + "?"
			if all {
				message = "Clear the protection state of every server?"
			}
			if err := confirm(message, force); err != nil {
				return err
			}

			if all {
				if err := store.Clear(); err != nil {
					return err
				}
				return app.OK(map[string]any{"cleared": store.Path()}, output.WithSummary("Cleared state for every server"))
			}
			if err := gate.Breaker().Reset(); err != nil {
				return err
			}
			if err := gate.Limiter().Reset(); err != nil {
				return err
			}
			return app.OK(map[string]any{"host": hostOf(app)}, output.WithSummary("Reset "+hostOf(app)))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear the state of every server")
	cmd.Flags().BoolVarP(&force, "force", "y", false, "Skip the confirmation prompt")
	return cmd
}

func gateFor(app *appctx.App) (*resilience.Gate, *resilience.Store, error) {
	if err := app.Config.Validate(); err != nil {
		return nil, nil, output.ErrUsage(err.Error())
	}
	store := resilience.NewStore(app.Config.CacheDir)
	return resilience.NewGate(store, hostOf(app), app.Config.Resilience, app.Logger), store, nil
}

func hostOf(app *appctx.App) string {
	u, err := url.Parse(app.Config.BaseURL)
	if err != nil {
		return app.Config.BaseURL
	}
	return u.Host
}
