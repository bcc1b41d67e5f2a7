package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/gobb-forum/gobb/internal/categories"
	store "github.com/gobb-forum/gobb/internal/db/controller/categories"
	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/privileges"
)

// Client visible error messages.
const (
	MsgOperationFailed = "[[error:operation-failed]]"
	MsgInvalidData     = "[[error:invalid-data]]"
	MsgNoCategory      = "[[error:no-category]]"
	MsgNoGroup         = "[[error:no-group]]"
	MsgInvalidEvent    = "[[error:invalid-event]]"
)

// ErrInvalidEvent is returned for socket events without an implementation.
var ErrInvalidEvent = errors.New(MsgInvalidEvent)

var badRequest = []error{
	ErrInvalidEvent,
	privileges.ErrInvalidArguments,
	privileges.ErrNoPrivileges,
	privileges.ErrNoGroups,
	privileges.ErrUnknownPrivilege,
	categories.ErrInvalidWatchState,
	store.ErrCategoryNameEmpty,
	store.ErrParentNotFound,
	store.ErrParentCycle,
	groups.ErrGroupNameEmpty,
	meta.ErrInvalidField,
	meta.ErrInvalidHash,
}

// Classify maps an error to a HTTP status and the message shown to the client.
// Internal failures are reported as operation-failed.
func Classify(err error) (int, string) {
	var (
		fiberErr      *fiber.Error
		validationErr validator.ValidationErrors
	)

	switch {
	case err == nil:
		return fiber.StatusOK, ""
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.Is(err, privileges.ErrForbidden):
		return fiber.StatusForbidden, privileges.ErrForbidden.Error()
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, MsgInvalidData
	case errors.Is(err, store.ErrCategoryNotFound):
		return fiber.StatusNotFound, MsgNoCategory
	case errors.Is(err, groups.ErrGroupNotFound):
		return fiber.StatusNotFound, MsgNoGroup
	}

	for _, target := range badRequest {
		if errors.Is(err, target) {
			return fiber.StatusBadRequest, target.Error()
		}
	}

	return fiber.StatusInternalServerError, MsgOperationFailed
}

// ErrorHandler writes errors returned by handlers as {"error": message}.
func ErrorHandler(c fiber.Ctx, err error) error {
	status, msg := Classify(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(status).JSON(fiber.Map{ErrorField: msg})
}
