// Package cli implements the via-stitcher command line.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"via-stitcher/internal/prefs"
	"via-stitcher/internal/version"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

// rootOptions holds the global flags.
type rootOptions struct {
	verbose   bool
	prefsPath string
	noPrefs   bool
	logger    *slog.Logger
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:     "via-stitcher",
		Version: version.String(),
		Short:   "Place stitching vias in overlapping copper pours",
		Long: `via-stitcher fills the regions where a net's copper pours overlap on
several layers with a grid of vias, skipping every position that would break
the board's clearance rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if o.verbose {
				level = slog.LevelDebug
			}
			o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			o.logger.Debug("starting", "version", version.String())
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Log debug output")
	pf.StringVar(&o.prefsPath, "prefs", prefs.DefaultPath(), "Preferences file")
	pf.BoolVar(&o.noPrefs, "no-prefs", false, "Neither read nor write preferences")

	cmd.AddCommand(newRunCmd(o), newNetsCmd(o), newZonesCmd(o))
	return cmd
}

// prefs returns the preferences to use, nil when disabled.
func (o *rootOptions) prefs() *prefs.Prefs {
	if o.noPrefs {
		return nil
	}
	return prefs.LoadFrom(o.prefsPath)
}

// Execute runs the command line. SIGINT and SIGTERM cancel a running job.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

// FormatError formats an error for display.
func FormatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}
