// Package cache lets operators drop cached settings.
package cache

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
	"github.com/GoPowerDNS-Admin/go-settings/internal/settings"
	"github.com/GoPowerDNS-Admin/go-settings/internal/web/handler"
)

// Path is the cache resource of the API.
const Path = handler.APIPath + "/cache"

// InvalidateRequest is the optional body of DELETE Path. Without names the whole cache is cleared.
type InvalidateRequest struct {
	Names []string `json:"names" validate:"omitempty,dive,required,max=255"`
}

// Service is the cache handler service.
type Service struct {
	settings  *settings.Default
	validator *handler.XValidator
}

// Handler is the cache handler.
var Handler = Service{}

// Init initializes the cache handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, settings *settings.Default) error {
	if app == nil || cfg == nil || settings == nil {
		log.Fatal().Msg(handler.ErrNilACSFatalLogMsg)
		return nil
	}

	s.settings = settings
	s.validator = handler.NewValidator()

	app.Delete(Path, s.Delete)

	return nil
}

// Delete invalidates the given names or the whole cache.
func (s *Service) Delete(c fiber.Ctx) error {
	req := new(InvalidateRequest)

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if errs := s.validator.Validate(req); errs != nil {
			return handler.BadRequest(c, errs)
		}
	}

	if err := s.settings.Invalidate(req.Names...); err != nil {
		return handler.Error(err)
	}

	log.Info().
		Str("backend", s.settings.Cache().Name()).
		Strs("names", req.Names).
		Msg("settings cache invalidated")

	return c.SendStatus(fiber.StatusNoContent)
}
