// Package settings serves the settings JSON API.
package settings

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
	svc "github.com/GoPowerDNS-Admin/go-settings/internal/settings"
	"github.com/GoPowerDNS-Admin/go-settings/internal/web/handler"
)

const (
	// Path is the collection path of the settings API.
	Path = handler.APIPath + "/settings"

	// ItemPath addresses a single setting.
	ItemPath = Path + "/:name"

	// RawPath returns the stored entity of a setting.
	RawPath = ItemPath + "/raw"

	nameTag = "required,max=255"
)

type (
	// ValueRequest is the body of PUT ItemPath. A missing or null value stores null.
	ValueRequest struct {
		Value *string `json:"value"`
	}

	// ValuesRequest is the body of PUT Path.
	ValuesRequest struct {
		Values map[string]*string `json:"values" validate:"required,min=1,dive,keys,required,max=255,endkeys"`
	}

	// ValueResponse is a single name value pair.
	ValueResponse struct {
		Name  string  `json:"name"`
		Value *string `json:"value"`
	}

	// ValuesResponse is the name to value mapping of all settings.
	ValuesResponse struct {
		Settings map[string]*string `json:"settings"`
	}
)

// Service is the settings handler service.
type Service struct {
	cfg       *config.Config
	settings  *svc.Default
	validator *handler.XValidator
}

// Handler is the settings handler.
var Handler = Service{}

// Init initializes the settings handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, settings *svc.Default) error {
	if app == nil || cfg == nil || settings == nil {
		log.Fatal().Msg(handler.ErrNilACSFatalLogMsg)
		return nil
	}

	s.cfg = cfg
	s.settings = settings
	s.validator = handler.NewValidator()

	app.Get(Path, s.List)
	app.Put(Path, s.PutMultiple)
	app.Get(RawPath, s.Raw)
	app.Get(ItemPath, s.Get)
	app.Put(ItemPath, s.Put)
	app.Delete(ItemPath, s.Delete)

	return nil
}

// List returns all settings.
func (s *Service) List(c fiber.Ctx) error {
	values, err := s.settings.All(c.Context())
	if err != nil {
		return handler.Error(err)
	}

	return c.JSON(ValuesResponse{Settings: values})
}

// Get returns the value of one setting.
func (s *Service) Get(c fiber.Ctx) error {
	name, errs := s.name(c)
	if errs != nil {
		return handler.BadRequest(c, errs)
	}

	value, err := s.settings.Get(c.Context(), name)
	if err != nil {
		return handler.Error(err)
	}

	return c.JSON(ValueResponse{Name: name, Value: value})
}

// Raw returns the stored entity of one setting, bypassing the cache.
func (s *Service) Raw(c fiber.Ctx) error {
	name, errs := s.name(c)
	if errs != nil {
		return handler.BadRequest(c, errs)
	}

	entity, err := s.settings.GetRawSetting(c.Context(), name)
	if err != nil {
		return handler.Error(err)
	}

	return c.JSON(entity)
}

// Put stores the value of one setting.
func (s *Service) Put(c fiber.Ctx) error {
	name, errs := s.name(c)
	if errs != nil {
		return handler.BadRequest(c, errs)
	}

	req := new(ValueRequest)
	if err := c.Bind().JSON(req); err != nil {
		log.Debug().Err(err).Msg("failed to parse setting body")

		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.settings.Set(c.Context(), name, req.Value); err != nil {
		return handler.Error(err)
	}

	log.Info().Str("name", name).Msg("setting saved")

	return c.JSON(ValueResponse{Name: name, Value: req.Value})
}

// PutMultiple stores several settings in one batch.
func (s *Service) PutMultiple(c fiber.Ctx) error {
	req := new(ValuesRequest)
	if err := c.Bind().JSON(req); err != nil {
		log.Debug().Err(err).Msg("failed to parse settings body")

		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if errs := s.validator.Validate(req); errs != nil {
		return handler.BadRequest(c, errs)
	}

	if err := s.settings.SetMultiple(c.Context(), req.Values); err != nil {
		return handler.Error(err)
	}

	log.Info().Int("count", len(req.Values)).Msg("settings saved")

	return c.JSON(ValuesResponse{Settings: req.Values})
}

// Delete removes one setting.
func (s *Service) Delete(c fiber.Ctx) error {
	name, errs := s.name(c)
	if errs != nil {
		return handler.BadRequest(c, errs)
	}

	if err := s.settings.Delete(c.Context(), name); err != nil {
		return handler.Error(err)
	}

	log.Info().Str("name", name).Msg("setting deleted")

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) name(c fiber.Ctx) (string, []handler.ErrorResponse) {
	name := c.Params("name")

	return name, s.validator.Var("name", name, nameTag)
}
