package runner

import (
	"context"

	"jonnyzzz.com/v8fetch/config"
	"jonnyzzz.com/v8fetch/layout"
	"jonnyzzz.com/v8fetch/updates"
)

// UpdateConfigurations walks the tracked configurations in order and
// downloads the upgrade chain of each one that has a newer version. The
// checkpoint of a configuration advances to the target version once every
// step was attempted, even if some steps failed. Settings are saved once at
// the end.
func (r *Runner) UpdateConfigurations(ctx context.Context, settings *config.Settings) error {
	for i := range settings.Configurations {
		if ctx.Err() != nil {
			break
		}

		configuration := &settings.Configurations[i]
		r.log.Info(" > Начало обновления конфигурации \"%s\".", configuration.HumanName)

		if version, ok := r.fetchConfiguration(ctx, settings, configuration); ok {
			configuration.LastDownloaded = version
		}

		r.log.Info(" < Обновление конфигурации завершено.")
	}

	return r.save(settings)
}

func (r *Runner) fetchConfiguration(ctx context.Context, settings *config.Settings, configuration *config.Configuration) (string, bool) {
	checkVersion := configuration.EffectiveVersion()

	update := r.api.CheckConfigurationUpdate(ctx, configuration.ProgramName, checkVersion)
	if update == nil {
		r.log.Info(" --  Обновление для текущей версии конфигурации не найдено.")
		return "", false
	}

	if update.ConfigurationVersion == "" || update.ConfigurationVersion == checkVersion {
		r.log.Info(" -- Текущая версия конфигурации является актуальной.")
		return "", false
	}

	r.log.Info(" -- Найдена новая версия \"%s\" конфигурации.", update.ConfigurationVersion)
	r.log.Info(" -- Скачивание цепочки обновлений...")

	for _, step := range update.UpgradeSequence {
		if ctx.Err() != nil {
			return "", false
		}
		r.fetchStep(ctx, settings, update, step)
	}

	// an interrupted chain must be fetched again on the next run
	if ctx.Err() != nil {
		return "", false
	}

	r.log.Info(" -- < Скачивание цепочки обновлений... Завершено!")
	return update.ConfigurationVersion, true
}

func (r *Runner) fetchStep(ctx context.Context, settings *config.Settings, update *updates.ConfigurationUpdate, step string) {
	data := r.api.ConfigurationDownloadData(ctx, step, update.ProgramVersionUin)
	if data == nil {
		r.log.Info(" ---- Не удалось скачать обновление с uid=%s.", step)
		return
	}

	r.log.Info(" -- > Скачивание цепочки %s...", data.TemplatePath)
	r.log.Info(" ---- Размер файла обновления: %.2f Мб.", sizeMB(data.Size))

	fullPath, err := layout.ResolveConfigurationArchive(settings.TemplatePath, data.TemplatePath)
	if err != nil {
		r.log.Error(" ---- Недопустимый путь шаблона %q. %v", data.TemplatePath, err)
		return
	}

	r.log.Info(" ---- Скачивание файла обновления...")
	archive := r.api.Download(ctx, data.UpdateFileURL)
	if len(archive) == 0 {
		r.log.Warn(" ---- Не удалось скачать обновление с uid=%s.", step)
		return
	}
	r.log.Info(" ---- Скачивание файла обновления... Завершено!")

	r.materialize(" ----", fullPath, archive, settings.UnzipFiles)
}
