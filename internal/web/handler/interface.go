package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/gobb-forum/gobb/internal/categories"
	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/privileges"
)

// Deps are the services the handlers work on.
type Deps struct {
	Admin         *privileges.Admin
	CategoryPrivs *privileges.Categories
	Categories    *categories.Service
	Configs       *meta.Configs
	Settings      *meta.Settings
}

// Valid reports whether every dependency is set.
func (d *Deps) Valid() bool {
	return d != nil &&
		d.Admin != nil &&
		d.CategoryPrivs != nil &&
		d.Categories != nil &&
		d.Configs != nil &&
		d.Settings != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(router fiber.Router, cfg *config.Config, deps *Deps) error
}
