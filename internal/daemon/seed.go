package daemon

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/controller/setting"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/models"
	"github.com/GoPowerDNS-Admin/go-settings/internal/settings"
)

// seed creates the configured default settings that do not exist yet.
// Existing values are never overwritten.
// A shared cache may still hold the aggregate of an earlier run, so created names are invalidated.
func seed(cfg *config.Config, db *gorm.DB, svc *settings.Default) error {
	var (
		ctx     = context.Background()
		store   = setting.NewDefault(db)
		created []string
	)

	for _, d := range cfg.Defaults {
		err := store.Create(ctx, &models.Setting{
			Name:    d.Name,
			Value:   d.Value,
			Section: d.Section,
			Comment: d.Comment,
		})

		switch {
		case err == nil:
			created = append(created, d.Name)
		case errors.Is(err, setting.ErrSettingAlreadyExists):
			log.Debug().Str("name", d.Name).Msg("default setting exists")
		default:
			return err
		}
	}

	if len(created) == 0 {
		return nil
	}

	log.Info().Strs("names", created).Msg("default settings seeded")

	if err := svc.Invalidate(created...); err != nil {
		log.Warn().Err(err).Msg("can't invalidate seeded settings")
	}

	return nil
}
