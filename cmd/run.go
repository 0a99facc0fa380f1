package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jonnyzzz.com/v8fetch/config"
	"jonnyzzz.com/v8fetch/logging"
	"jonnyzzz.com/v8fetch/runner"
	"jonnyzzz.com/v8fetch/unpack"
	"jonnyzzz.com/v8fetch/updates"
)

func newRunCmd(opts *runOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check for updates and download them",
		Long:  `Check the platform and every tracked configuration for updates, download what is newer and update the settings file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts)
		},
	}
}

func runUpdate(cmd *cobra.Command, opts *runOptions) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var console io.Writer
	if !opts.quiet {
		console = cmd.OutOrStdout()
	}

	log, err := logging.Open(logging.Options{Dir: opts.logDir, Console: console})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() {
		_ = log.Close()
	}()

	settingsPath, err := config.ResolveSettingsPath(opts.settingsPath)
	if err != nil {
		log.Error("Не найден файл настроек. %v", err)
		return err
	}

	store := config.NewStore(settingsPath)
	settings, err := store.Load()
	if err != nil {
		log.Error("Ошибка при чтении файла настроек. %v", err)
		return err
	}
	log.Debug("Файл настроек: %s", settingsPath)

	client := updates.NewClient(clientOptions(cmd, opts, settings, log))
	materializer := unpack.NewMaterializer(log)

	return runner.New(client, materializer, store, log).Run(ctx, settings)
}

func clientOptions(cmd *cobra.Command, opts *runOptions, settings *config.Settings, log *logging.Logger) updates.Options {
	timeout := opts.timeout
	if timeout <= 0 {
		timeout = time.Duration(settings.APITimeoutSeconds) * time.Second
	}

	var proxy updates.Proxy
	if p := settings.Proxy; p != nil {
		proxy = updates.Proxy{
			Host:     p.Host,
			Port:     string(p.Port),
			Username: p.Username,
			Password: p.Password,
		}
	}

	var progress io.Writer
	if !opts.noProgress {
		progress = cmd.ErrOrStderr()
	}

	return updates.Options{
		BaseURL:            opts.apiURL,
		Login:              settings.Login,
		Password:           settings.Password,
		Proxy:              proxy,
		InsecureSkipVerify: settings.SkipTLSVerify(),
		APITimeout:         timeout,
		Progress:           progress,
		Log:                log,
	}
}
