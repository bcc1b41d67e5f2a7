package socket

import (
	"context"
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"github.com/gobb-forum/gobb/internal/categories"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/privileges"
	"github.com/gobb-forum/gobb/internal/web/handler"
)

const adminPrefix = "admin."

type eventFunc func(ctx context.Context, uid int64, data json.RawMessage) (any, error)

// CreateCategory is the payload of admin.categories.create.
type CreateCategory struct {
	Name         string `json:"name" validate:"required,max=255"`
	Description  string `json:"description"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	BgColor      string `json:"bgColor"`
	Link         string `json:"link" validate:"omitempty,url"`
	ParentCID    int64  `json:"parentCid" validate:"min=0"`
	Order        int    `json:"order"`
	CloneFromCID int64  `json:"cloneFromCid" validate:"min=0"`
}

// CidPayload names a single category.
type CidPayload struct {
	Cid int64 `json:"cid" validate:"required,min=1"`
}

// CopySettings is the payload of admin.categories.copySettingsFrom.
type CopySettings struct {
	FromCid int64 `json:"fromCid" validate:"required,min=1"`
	ToCid   int64 `json:"toCid" validate:"required,min=1,nefield=FromCid"`
}

// HashPayload names a settings hash.
type HashPayload struct {
	Hash string `json:"hash" validate:"required"`
}

func (s *Server) routes() map[string]eventFunc {
	return map[string]eventFunc{
		"categories.loadCategoryFilter": s.loadCategoryFilter,

		"admin.categories.getAll":           s.categoriesGetAll,
		"admin.categories.create":           s.categoriesCreate,
		"admin.categories.update":           s.categoriesUpdate,
		"admin.categories.purge":            s.categoriesPurge,
		"admin.categories.copySettingsFrom": s.categoriesCopySettingsFrom,

		"admin.config.setMultiple": s.configSetMultiple,
		"admin.config.remove":      s.configRemove,
		"admin.settings.get":       s.settingsGet,
	}
}

// dispatch checks the admin privilege of admin events before running them.
// Mapped events without an implementation are answered after the check.
func (s *Server) dispatch(ctx context.Context, uid int64, req Request) (any, error) {
	if strings.HasPrefix(req.Event, adminPrefix) {
		allowed, err := s.deps.Admin.CanSocket(ctx, req.Event, uid)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, privileges.ErrForbidden
		}
	}

	fn, ok := s.events[req.Event]
	if !ok {
		return nil, handler.ErrInvalidEvent
	}

	return fn(ctx, uid, req.Data)
}

// decode unmarshals data into out and validates structs.
func (s *Server) decode(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return privileges.ErrInvalidArguments
	}
	if err := json.Unmarshal(data, out); err != nil {
		return privileges.ErrInvalidArguments
	}

	return s.validate.Struct(out)
}

func (s *Server) loadCategoryFilter(ctx context.Context, uid int64, data json.RawMessage) (any, error) {
	var q categories.FilterQuery
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, privileges.ErrInvalidArguments
		}
	}

	return s.deps.Categories.LoadCategoryFilter(ctx, uid, q)
}

func (s *Server) categoriesGetAll(ctx context.Context, _ int64, _ json.RawMessage) (any, error) {
	return s.deps.Categories.All(ctx)
}

func (s *Server) categoriesCreate(ctx context.Context, uid int64, data json.RawMessage) (any, error) {
	var in CreateCategory
	if err := s.decode(data, &in); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        in.Name,
		Description: in.Description,
		Icon:        in.Icon,
		Color:       in.Color,
		BgColor:     in.BgColor,
		Link:        in.Link,
		ParentCID:   in.ParentCID,
		Order:       in.Order,
	}

	if err := s.deps.Categories.Create(ctx, category, in.CloneFromCID); err != nil {
		return nil, err
	}

	s.log.Info().Int64("uid", uid).Int64("cid", category.CID).Msg("category created")

	return category, nil
}

func (s *Server) categoriesUpdate(ctx context.Context, _ int64, data json.RawMessage) (any, error) {
	var in map[string]categories.Patch
	if len(data) == 0 || json.Unmarshal(data, &in) != nil || len(in) == 0 {
		return nil, privileges.ErrInvalidArguments
	}

	updates := make(map[int64]map[string]any, len(in))
	for key, patch := range in {
		cid, err := strconv.ParseInt(key, 10, 64)
		if err != nil || cid <= 0 {
			return nil, privileges.ErrInvalidArguments
		}
		if err := s.validate.Struct(patch); err != nil {
			return nil, err
		}
		updates[cid] = patch.Columns()
	}

	return s.deps.Categories.Update(ctx, updates)
}

func (s *Server) categoriesPurge(ctx context.Context, _ int64, data json.RawMessage) (any, error) {
	var in CidPayload
	if err := s.decode(data, &in); err != nil {
		return nil, err
	}

	return nil, s.deps.Categories.Purge(ctx, in.Cid)
}

func (s *Server) categoriesCopySettingsFrom(ctx context.Context, _ int64, data json.RawMessage) (any, error) {
	var in CopySettings
	if err := s.decode(data, &in); err != nil {
		return nil, err
	}

	return s.deps.Categories.CopySettingsFrom(ctx, in.FromCid, in.ToCid)
}

func (s *Server) configSetMultiple(ctx context.Context, _ int64, data json.RawMessage) (any, error) {
	var in map[string]string
	if len(data) == 0 || json.Unmarshal(data, &in) != nil || len(in) == 0 {
		return nil, privileges.ErrInvalidArguments
	}

	if err := s.deps.Configs.SetMultiple(ctx, in); err != nil {
		return nil, err
	}

	return maps.Clone(in), nil
}

func (s *Server) configRemove(ctx context.Context, _ int64, data json.RawMessage) (any, error) {
	var field string
	if len(data) == 0 || json.Unmarshal(data, &field) != nil {
		return nil, privileges.ErrInvalidArguments
	}

	return nil, s.deps.Configs.Remove(ctx, field)
}

func (s *Server) settingsGet(ctx context.Context, _ int64, data json.RawMessage) (any, error) {
	var in HashPayload
	if err := s.decode(data, &in); err != nil {
		return nil, err
	}

	return s.deps.Settings.Get(ctx, in.Hash)
}
