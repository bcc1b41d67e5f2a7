package category

import (
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobb-forum/gobb/internal/categories"
	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/web/handler"
	"github.com/gobb-forum/gobb/internal/web/webtest"
)

func newApp(t *testing.T, uid int64) *fiber.App {
	t.Helper()

	env := webtest.New(t)

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	app.Use(webtest.AsUser(uid))

	svc := &Service{}
	require.NoError(t, svc.Init(app, &config.Config{}, env.Deps))

	return app
}

func cids(records []categories.SelectCategory) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.CID
	}

	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name         string
		uid          int64
		query        string
		wantCids     []int64
		wantSelected []int64
		wantStatus   int
	}{
		{
			name:       "guest sees readable tree",
			uid:        0,
			query:      "",
			wantCids:   []int64{webtest.CidGeneral, webtest.CidNews},
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "administrator sees everything",
			uid:        webtest.UIDAdmin,
			query:      "",
			wantCids:   []int64{webtest.CidGeneral, webtest.CidNews, webtest.CidStaff},
			wantStatus: fiber.StatusOK,
		},
		{
			name:         "selected cids comma separated",
			uid:          webtest.UIDMember,
			query:        "?selectedCids=1,3",
			wantCids:     []int64{webtest.CidGeneral, webtest.CidNews},
			wantSelected: []int64{webtest.CidGeneral, webtest.CidNews},
			wantStatus:   fiber.StatusOK,
		},
		{
			name:         "selected cids repeated",
			uid:          webtest.UIDMember,
			query:        "?selectedCids[]=3&selectedCids[]=2",
			wantCids:     []int64{webtest.CidGeneral, webtest.CidNews},
			wantSelected: []int64{webtest.CidNews},
			wantStatus:   fiber.StatusOK,
		},
		{
			name:       "search keeps ancestors",
			uid:        webtest.UIDMember,
			query:      "?query=news",
			wantCids:   []int64{webtest.CidGeneral, webtest.CidNews},
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "unknown watch state",
			uid:        webtest.UIDMember,
			query:      "?states=sleeping",
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "invalid showLinks",
			uid:        webtest.UIDMember,
			query:      "?showLinks=maybe",
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(t, tt.uid)

			if tt.wantStatus != fiber.StatusOK {
				resp := webtest.Do(t, app, fiber.MethodGet, Path+"/filter"+tt.query, nil, nil)
				assert.Equal(t, tt.wantStatus, resp.StatusCode)
				return
			}

			var records []categories.SelectCategory
			resp := webtest.Do(t, app, fiber.MethodGet, Path+"/filter"+tt.query, nil, &records)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantCids, cids(records))

			var selected []int64
			for _, r := range records {
				if r.Selected {
					selected = append(selected, r.CID)
				}
			}
			assert.Equal(t, tt.wantSelected, selected)
		})
	}
}
