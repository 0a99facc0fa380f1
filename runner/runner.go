// Package runner drives one update run: it checks the platform and every
// tracked configuration, downloads what is newer and records checkpoints.
package runner

import (
	"context"
	"errors"
	"fmt"

	"jonnyzzz.com/v8fetch/config"
	"jonnyzzz.com/v8fetch/logging"
	"jonnyzzz.com/v8fetch/updates"
)

// UpdateService is the fail-soft view of the update service
type UpdateService interface {
	CheckPlatformUpdate(ctx context.Context, currentVersion string) *updates.PlatformUpdate
	CheckConfigurationUpdate(ctx context.Context, programName, version string) *updates.ConfigurationUpdate
	PlatformDownloadURL(ctx context.Context, distributionUin string) string
	ConfigurationDownloadData(ctx context.Context, stepUin, programUin string) *updates.DownloadData
	Download(ctx context.Context, url string) []byte
}

// Archiver stores downloaded archives
type Archiver interface {
	WriteArchive(path string, data []byte) error
	Extract(archivePath, targetDir string, removeAfter bool) error
}

// SettingsSaver persists checkpoints
type SettingsSaver interface {
	Save(settings *config.Settings) error
}

type Runner struct {
	api      UpdateService
	archiver Archiver
	store    SettingsSaver
	log      *logging.Logger
}

func New(api UpdateService, archiver Archiver, store SettingsSaver, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{api: api, archiver: archiver, store: store, log: log}
}

// Run processes the platform and then all configurations. Item failures
// are logged and do not stop the run. The returned error reports an
// interrupted run or a failed save.
func (r *Runner) Run(ctx context.Context, settings *config.Settings) error {
	r.log.Info("Начало проверки обновлений.")
	defer r.log.Info("Завершение проверки обновлений.")

	var errs []error
	if err := r.UpdatePlatform(ctx, settings); err != nil {
		errs = append(errs, err)
	}
	if ctx.Err() == nil {
		if err := r.UpdateConfigurations(ctx, settings); err != nil {
			errs = append(errs, err)
		}
	}

	if err := ctx.Err(); err != nil {
		r.log.Warn("Проверка обновлений прервана.")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runner) save(settings *config.Settings) error {
	if err := r.store.Save(settings); err != nil {
		r.log.Error("Ошибка при сохранении настроек. %v", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// materialize writes an archive and unpacks it next to itself when asked.
// An extraction failure is logged and reported as false.
func (r *Runner) materialize(prefix, fullPath string, data []byte, unzip bool) bool {
	r.log.Info("%s Сохранение архива на диск...", prefix)
	r.log.Info("%s Полный путь для сохранения: %s", prefix, fullPath)
	if err := r.archiver.WriteArchive(fullPath, data); err != nil {
		r.log.Error("%s Ошибка при сохранении архива. %v", prefix, err)
		return false
	}
	r.log.Info("%s Сохранение архива на диск... Завершено!", prefix)

	if !unzip {
		return true
	}

	r.log.Info("%s Распаковка архива...", prefix)
	if err := r.archiver.Extract(fullPath, "", true); err != nil {
		r.log.Error("%s Ошибка при распаковке архива. %v", prefix, err)
		return false
	}
	r.log.Info("%s Распаковка архива... Завершено!", prefix)
	return true
}

func sizeMB(size int64) float64 {
	return float64(size) / 1024 / 1024
}
