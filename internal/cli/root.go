package cli

import (
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/basecamp/prismctl/internal/appctx"
	"github.com/basecamp/prismctl/internal/commands"
	"github.com/basecamp/prismctl/internal/config"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "prismctl",
		Short: "Command-line interface for a self-hosted photo library",
		Long: `prismctl browses a PhotoPrism-style photo library: albums, people,
labels, the gallery and the world map. Data is cached per run and kept
fresh by the watch command.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || strings.HasPrefix(cmd.Name(), "__complete") {
				return nil
			}

			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			overrides := flags.Overrides(cmd.Flags().Changed("verbose"))
			cfg, err := config.Load(dir, overrides)
			if err != nil {
				return output.ErrUsage(err.Error())
			}

			app, err := appctx.NewApp(cfg, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app.Dir = dir
			app.Overrides = overrides

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	cmd.PersistentFlags().BoolVar(&flags.Count, "count", false, "Output only count")
	cmd.PersistentFlags().StringVar(&flags.JQ, "jq", "", "Filter the JSON envelope with a jq expression")

	// Configuration flags
	cmd.PersistentFlags().StringVar(&flags.BaseURL, "base-url", "", "Library server URL (e.g., https://photos.example.com)")
	cmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Config file (replaces the global config)")
	cmd.PersistentFlags().StringVar(&flags.CacheDir, "cache-dir", "", "Directory for shared resilience state")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose logging (-v for info, -vv for debug)")

	return cmd
}

// AddCommands attaches every subcommand to root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(commands.NewAlbumsCmd())
	root.AddCommand(commands.NewPeopleCmd())
	root.AddCommand(commands.NewLabelsCmd())
	root.AddCommand(commands.NewGalleryCmd())
	root.AddCommand(commands.NewMapCmd())
	root.AddCommand(commands.NewStatusCmd())
	root.AddCommand(commands.NewWatchCmd())
	root.AddCommand(commands.NewResilienceCmd())
	root.AddCommand(commands.NewConfigCmd())
	root.AddCommand(commands.NewVersionCmd())
}

// Execute runs the root command and exits.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes args and returns the exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	AddCommands(cmd)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteContextC(ctx)
	var app *appctx.App
	if executedCmd != nil && executedCmd.Context() != nil {
		app = appctx.FromContext(executedCmd.Context())
	}
	if app != nil {
		defer app.Close()
	}
	if err == nil {
		return output.ExitOK
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)
	if app != nil {
		_ = app.Err(err)
		return apiErr.ExitCode()
	}

	// Fallback: the app is not available, e.g. setup failed.
	pf := cmd.PersistentFlags()
	format := output.FormatAuto
	if quiet, _ := pf.GetBool("quiet"); quiet {
		format = output.FormatQuiet
	} else if styled, _ := pf.GetBool("styled"); styled {
		format = output.FormatStyled
	} else if jsonFlag, _ := pf.GetBool("json"); jsonFlag {
		format = output.FormatJSON
	}
	if writer, werr := output.New(output.Options{Format: format, Writer: stdout}); werr == nil {
		_ = writer.Err(err)
	}
	return apiErr.ExitCode()
}

// normalizeFlagName accepts the config file spelling of a flag, so
// --base_url works as well as --base-url.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

var shorthandFlag = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError turns cobra's argument and flag errors into usage errors.
func transformCobraError(err error) error {
	msg := err.Error()

	if flag, ok := strings.CutPrefix(msg, "flag needs an argument: "); ok {
		return output.ErrUsage(flag + " requires a value")
	}
	if flag, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return output.ErrUsage("Unknown option: " + flag)
	}
	if m := shorthandFlag.FindStringSubmatch(msg); len(m) > 1 {
		return output.ErrUsage("Unknown option: " + m[1])
	}
	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run: prismctl --help")
	}
	if strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "arg(s), received") ||
		strings.Contains(msg, "accepts no arguments") {
		return output.ErrUsage(msg)
	}
	return err
}
