package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// runOptions are the flags shared by the root and run commands
type runOptions struct {
	settingsPath string
	logDir       string
	quiet        bool
	timeout      time.Duration
	noProgress   bool
	apiURL       string
}

func newRootCmd() *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:          "v8fetch",
		Short:        fmt.Sprintf("v8fetch v%s downloads 1C:Enterprise platform and configuration updates", version),
		Long:         `v8fetch checks the 1C update service for a newer platform and newer versions of the tracked configurations, downloads them and records what was downloaded in the settings file.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.settingsPath, "settings", "c", "", "path to the settings file (default: settings.json in the current or a parent directory)")
	flags.StringVar(&opts.logDir, "log-dir", "logs", "directory of the main.log file")
	flags.BoolVar(&opts.quiet, "quiet", false, "do not echo the log to the console")
	flags.DurationVar(&opts.timeout, "timeout", 0, "timeout of every update service call, overrides apiTimeoutSeconds")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "do not show the download progress bar")
	flags.StringVar(&opts.apiURL, "api-url", "", "update service base URL")
	_ = flags.MarkHidden("api-url")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
