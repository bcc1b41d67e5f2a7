// Package privilege lists and changes the privilege grants of the admin
// control panel and of single categories.
package privilege

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/privileges"
	"github.com/gobb-forum/gobb/internal/web/handler"
	"github.com/gobb-forum/gobb/internal/web/session"
)

const (
	// Path is the privileges page below the admin route group.
	Path = "/manage/privileges"

	// SelfPath is the admin path answering the privileges of the caller.
	// It is open to every user.
	SelfPath = "manage/privileges/self"
)

// Grant is the body of the give and rescind requests. Without a cid the
// privileges are admin privileges.
type Grant struct {
	Privileges []string `json:"privileges" validate:"required,min=1,dive,required"`
	Groups     []string `json:"groups" validate:"required,min=1,dive,required"`
	Cid        *int64   `json:"cid" validate:"omitempty,min=0"`
}

// Service is the privileges handler service.
type Service struct {
	handler.Service
	admin         *privileges.Admin
	categoryPrivs *privileges.Categories
	validator     *validator.Validate
}

// Handler is the privileges handler.
var Handler = Service{}

// Init registers the privilege routes on router, the admin route group.
func (s *Service) Init(router fiber.Router, cfg *config.Config, deps *handler.Deps) error {
	if router == nil || cfg == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.admin = deps.Admin
	s.categoryPrivs = deps.CategoryPrivs
	s.validator = validator.New()

	group := router.Group(Path)
	group.Get(handler.RouterRootPath, s.List)
	group.Get("/self", s.Self)
	group.Get("/:cid<int>", s.ListCategory)
	group.Put(handler.RouterRootPath, s.Give)
	group.Delete(handler.RouterRootPath, s.Rescind)

	return nil
}

// List returns the admin privilege table.
func (s *Service) List(c fiber.Ctx) error {
	data, err := s.admin.List(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(data)
}

// ListCategory returns the privilege table of a category.
func (s *Service) ListCategory(c fiber.Ctx) error {
	cid, err := strconv.ParseInt(c.Params("cid"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, handler.MsgInvalidData)
	}

	data, err := s.categoryPrivs.List(c.Context(), cid)
	if err != nil {
		return err
	}

	return c.JSON(data)
}

// Self returns the admin privileges of the caller.
func (s *Service) Self(c fiber.Ctx) error {
	data, err := s.admin.Get(c.Context(), session.UID(c))
	if err != nil {
		return err
	}

	return c.JSON(data)
}

// Give grants privileges to groups.
func (s *Service) Give(c fiber.Ctx) error {
	body, err := s.parse(c)
	if err != nil {
		return err
	}

	if body.Cid == nil {
		err = s.admin.Give(c.Context(), body.Privileges, body.Groups...)
	} else {
		err = s.categoryPrivs.Give(c.Context(), body.Privileges, []int64{*body.Cid}, body.Groups...)
	}
	if err != nil {
		return err
	}

	log.Info().
		Int64("uid", session.UID(c)).
		Strs("privileges", body.Privileges).
		Strs("groups", body.Groups).
		Msg("privileges given")

	return c.SendStatus(fiber.StatusNoContent)
}

// Rescind revokes privileges from groups.
func (s *Service) Rescind(c fiber.Ctx) error {
	body, err := s.parse(c)
	if err != nil {
		return err
	}

	if body.Cid == nil {
		err = s.admin.Rescind(c.Context(), body.Privileges, body.Groups...)
	} else {
		err = s.categoryPrivs.Rescind(c.Context(), body.Privileges, []int64{*body.Cid}, body.Groups...)
	}
	if err != nil {
		return err
	}

	log.Info().
		Int64("uid", session.UID(c)).
		Strs("privileges", body.Privileges).
		Strs("groups", body.Groups).
		Msg("privileges rescinded")

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) parse(c fiber.Ctx) (*Grant, error) {
	body := new(Grant)
	if err := c.Bind().Body(body); err != nil {
		log.Debug().Err(err).Msg("failed to parse grant body")
		return nil, fiber.NewError(fiber.StatusBadRequest, handler.MsgInvalidData)
	}

	if err := s.validator.Struct(body); err != nil {
		return nil, err
	}

	return body, nil
}
