package runner

import (
	"context"

	"jonnyzzz.com/v8fetch/config"
	"jonnyzzz.com/v8fetch/layout"
)

// UpdatePlatform downloads a newer platform distribution if there is one and
// persists the advanced checkpoint right away. Only a failed save is
// returned, everything else is logged.
func (r *Runner) UpdatePlatform(ctx context.Context, settings *config.Settings) error {
	r.log.Info(" > Начало обновления платформы 1С.")
	defer r.log.Info(" < Обновление платформы 1С завершено.")

	version, ok := r.fetchPlatform(ctx, settings)
	if !ok {
		return nil
	}

	settings.Platform.LastDownloaded = version
	return r.save(settings)
}

func (r *Runner) fetchPlatform(ctx context.Context, settings *config.Settings) (string, bool) {
	checkVersion := settings.Platform.EffectiveVersion()

	update := r.api.CheckPlatformUpdate(ctx, checkVersion)
	if update == nil {
		r.log.Info(" -- Обновление для текущей версии платформы не найдено.")
		return "", false
	}

	if update.PlatformVersion == "" || update.PlatformVersion == checkVersion {
		r.log.Info(" -- Текущая версия платформы является актуальной.")
		return "", false
	}

	r.log.Info(" -- Найдена новая версия %s платформы 1С.", update.PlatformVersion)
	r.log.Info(" -- Размер файла обновления: %.2f Мб.", sizeMB(update.Size))

	fullPath, err := layout.ResolvePlatformArchive(settings.PlatformPath, update.PlatformVersion)
	if err != nil {
		r.log.Error(" -- Не удалось вычислить путь для сохранения платформы. %v", err)
		return "", false
	}

	r.log.Info(" -- Скачивание архива с платформой 1С...")
	url := r.api.PlatformDownloadURL(ctx, update.DistributionUin)
	if url == "" {
		r.log.Warn(" -- Не удалось получить ссылку на скачивание платформы 1С.")
		return "", false
	}

	data := r.api.Download(ctx, url)
	if len(data) == 0 {
		r.log.Warn(" -- Не удалось скачать архив с платформой 1С.")
		return "", false
	}
	r.log.Info(" -- Скачивание архива с платформой 1С... Завершено!")

	if !r.materialize(" --", fullPath, data, settings.UnzipFiles) {
		return "", false
	}
	return update.PlatformVersion, true
}
