package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"

	"github.com/gobb-forum/gobb/internal/categories"
	store "github.com/gobb-forum/gobb/internal/db/controller/categories"
	"github.com/gobb-forum/gobb/internal/privileges"
)

func TestClassify(t *testing.T) {
	type body struct {
		Name string `validate:"required"`
	}
	validationErr := validator.New().Struct(body{})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"forbidden", privileges.ErrForbidden, fiber.StatusForbidden, "[[error:no-privileges]]"},
		{"wrapped forbidden", fmt.Errorf("gate: %w", privileges.ErrForbidden), fiber.StatusForbidden, "[[error:no-privileges]]"},
		{"invalid arguments", privileges.ErrInvalidArguments, fiber.StatusBadRequest, "[[error:invalid-data]]"},
		{"unknown privilege", privileges.ErrUnknownPrivilege, fiber.StatusBadRequest, "unknown privilege"},
		{"watch state", categories.ErrInvalidWatchState, fiber.StatusBadRequest, "[[error:invalid-watch-state]]"},
		{"validation", validationErr, fiber.StatusBadRequest, MsgInvalidData},
		{"missing category", store.ErrCategoryNotFound, fiber.StatusNotFound, MsgNoCategory},
		{"fiber error", fiber.ErrNotFound, fiber.StatusNotFound, "Not Found"},
		{"internal", errors.New("disk on fire"), fiber.StatusInternalServerError, MsgOperationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
