// Package category serves the category picker of the forum.
package category

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/gobb-forum/gobb/internal/categories"
	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/web/handler"
	"github.com/gobb-forum/gobb/internal/web/session"
)

// Path is the mount point below the API group.
const Path = "/categories"

// Service is the category handler service.
type Service struct {
	handler.Service
	categories *categories.Service
}

// Handler is the category handler.
var Handler = Service{}

// Init registers the category routes on router.
func (s *Service) Init(router fiber.Router, cfg *config.Config, deps *handler.Deps) error {
	if router == nil || cfg == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.categories = deps.Categories

	group := router.Group(Path)
	group.Get("/filter", s.Filter)

	return nil
}

// Filter returns the category picker entries of the caller.
func (s *Service) Filter(c fiber.Ctx) error {
	q, err := ParseFilterQuery(c)
	if err != nil {
		return err
	}

	records, err := s.categories.LoadCategoryFilter(c.Context(), session.UID(c), q)
	if err != nil {
		return err
	}

	return c.JSON(records)
}

// ParseFilterQuery reads the filter from the query string. List parameters
// may be repeated, comma separated or use the brackets suffix.
func ParseFilterQuery(c fiber.Ctx) (categories.FilterQuery, error) {
	q := categories.FilterQuery{
		Query:        c.Query("query"),
		Privilege:    c.Query("privilege"),
		SelectedCids: multi(c, "selectedCids"),
		States:       multi(c, "states"),
	}

	if raw := c.Query("showLinks"); raw != "" {
		showLinks, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, handler.MsgInvalidData)
		}
		q.ShowLinks = showLinks
	}

	return q, nil
}

func multi(c fiber.Ctx, key string) []string {
	var out []string

	args := c.RequestCtx().QueryArgs()
	for _, k := range []string{key, key + "[]"} {
		for _, v := range args.PeekMulti(k) {
			for part := range strings.SplitSeq(string(v), ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}

	return out
}
