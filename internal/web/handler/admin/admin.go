// Package admin serves the pages of the admin control panel. Every route is
// mounted behind the admin gate.
package admin

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/sync/errgroup"

	"github.com/gobb-forum/gobb/internal/categories"
	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/privileges"
	"github.com/gobb-forum/gobb/internal/web/handler"
	"github.com/gobb-forum/gobb/internal/web/session"
)

// Dashboard is the answer of the dashboard page.
type Dashboard struct {
	Title      string              `json:"title"`
	Categories int                 `json:"categories"`
	Privileges privileges.PrivData `json:"privileges"`
}

// CategoryPage is the answer of a single category page.
type CategoryPage struct {
	Category   *models.Category     `json:"category"`
	Privileges *privileges.ListData `json:"privileges"`
}

// SettingsPage is the answer of a settings page.
type SettingsPage struct {
	Term   string            `json:"term"`
	Values map[string]string `json:"values"`
}

// Service is the admin pages handler service.
type Service struct {
	handler.Service
	admin         *privileges.Admin
	categoryPrivs *privileges.Categories
	categories    *categories.Service
	configs       *meta.Configs
	settings      *meta.Settings
}

// Handler is the admin pages handler.
var Handler = Service{}

// Init registers the admin pages on router, the admin route group.
func (s *Service) Init(router fiber.Router, cfg *config.Config, deps *handler.Deps) error {
	if router == nil || cfg == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.admin = deps.Admin
	s.categoryPrivs = deps.CategoryPrivs
	s.categories = deps.Categories
	s.configs = deps.Configs
	s.settings = deps.Settings

	router.Get(handler.RouterRootPath, s.Landing)
	router.Get("/dashboard", s.Dashboard)
	router.Get("/manage/categories", s.Categories)
	router.Get("/manage/categories/:cid", s.Category)
	router.Get("/settings/:term", s.Settings)

	return nil
}

// Landing answers the empty admin path.
func (s *Service) Landing(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"privilege": privileges.AdminLanding})
}

// Dashboard returns the forum summary and the admin privileges of the caller.
func (s *Service) Dashboard(c fiber.Ctx) error {
	var (
		out     Dashboard
		g, gctx = errgroup.WithContext(c.Context())
	)

	g.Go(func() error {
		all, err := s.categories.All(gctx)
		out.Categories = len(all)
		return err
	})
	g.Go(func() error {
		var err error
		out.Privileges, err = s.admin.Get(gctx, session.UID(c))
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	out.Title, _ = s.configs.Cached(meta.FieldTitle)

	return c.JSON(out)
}

// Categories lists every category.
func (s *Service) Categories(c fiber.Ctx) error {
	all, err := s.categories.All(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(all)
}

// Category returns a category and the grants on it.
func (s *Service) Category(c fiber.Ctx) error {
	cid, err := strconv.ParseInt(c.Params("cid"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, handler.MsgInvalidData)
	}

	category, err := s.categories.Get(c.Context(), cid)
	if err != nil {
		return err
	}

	grants, err := s.categoryPrivs.List(c.Context(), cid)
	if err != nil {
		return err
	}

	return c.JSON(CategoryPage{Category: category, Privileges: grants})
}

// Settings returns the settings hash named by the term.
func (s *Service) Settings(c fiber.Ctx) error {
	term := c.Params("term")

	values, err := s.settings.Get(c.Context(), term)
	if err != nil {
		return err
	}

	return c.JSON(SettingsPage{Term: term, Values: values})
}
