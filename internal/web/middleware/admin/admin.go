package admin

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/gobb-forum/gobb/internal/privileges"
	"github.com/gobb-forum/gobb/internal/web/session"
)

// DefaultPrefix is the mount point of the admin API.
const DefaultPrefix = "/api/admin"

// PathChecker decides whether uid may open an admin path.
type PathChecker interface {
	CanPath(ctx context.Context, path string, uid int64) (bool, error)
}

// Config of the admin gate.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	//
	// Optional. Default: nil
	Next func(c fiber.Ctx) bool

	// Checker resolves and evaluates the admin path.
	Checker PathChecker

	// Prefix is stripped from the request path before resolving.
	//
	// Optional. Default: DefaultPrefix
	Prefix string
}

// New creates the admin gate.
func New(cfg Config) fiber.Handler {
	if cfg.Checker == nil {
		panic("admin gate: checker is nil")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	return func(c fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		path := Path(c.Path(), cfg.Prefix)
		uid := session.UID(c)

		allowed, err := cfg.Checker.CanPath(c.Context(), path, uid)
		if err != nil {
			return err
		}
		if !allowed {
			log.Debug().Int64("uid", uid).Str("path", path).Msg("admin path denied")
			return privileges.ErrForbidden
		}

		return c.Next()
	}
}

// Path returns the admin path of a request path: the prefix and the
// surrounding slashes are removed.
func Path(requestPath, prefix string) string {
	return strings.Trim(strings.TrimPrefix(requestPath, prefix), "/")
}
