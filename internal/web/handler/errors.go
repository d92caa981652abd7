package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/go-settings/internal/cache"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/controller/setting"
)

// MsgStoredNotInvalidated is the message of the 503 answer to a write whose cache invalidation failed.
const MsgStoredNotInvalidated = "value stored, cache invalidation failed"

// Error maps errors of the settings service to HTTP errors.
// Persistence failures are logged and hidden behind a 500.
//
// cache.ErrBackend is only returned by writes with strict invalidation, after the store
// write succeeded. It maps to 503 and the message says the value was stored, so clients
// must not treat it as a failed write. Re-reading may return the previous value until the
// cache entry is invalidated or expires.
func Error(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, setting.ErrSettingNotFound):
		return fiber.NewError(fiber.StatusNotFound, setting.ErrSettingNotFound.Error())
	case errors.Is(err, setting.ErrSettingNameEmpty):
		return fiber.NewError(fiber.StatusBadRequest, setting.ErrSettingNameEmpty.Error())
	case errors.Is(err, setting.ErrSettingAlreadyExists):
		return fiber.NewError(fiber.StatusConflict, setting.ErrSettingAlreadyExists.Error())
	case errors.Is(err, cache.ErrBackend):
		log.Error().Err(err).Msg("settings cache failure")

		return fiber.NewError(fiber.StatusServiceUnavailable, MsgStoredNotInvalidated)
	case setting.IsPersistenceFailure(err):
		log.Error().Err(err).Msg("settings persistence failure")

		return fiber.NewError(fiber.StatusInternalServerError, "persistence failure")
	default:
		log.Error().Err(err).Msg("settings service failure")

		return fiber.ErrInternalServerError
	}
}

// ErrorHandler renders every error as GlobalErrorHandlerResp.
func ErrorHandler(c fiber.Ctx, err error) error {
	fe := fiber.ErrInternalServerError
	errors.As(err, &fe)

	return c.Status(fe.Code).JSON(GlobalErrorHandlerResp{
		Success: false,
		Message: fe.Message,
	})
}
