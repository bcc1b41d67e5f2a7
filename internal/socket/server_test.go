package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobb-forum/gobb/internal/categories"
	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/web/webtest"
)

type sessions map[string][]byte

func (s sessions) Get(key string) ([]byte, error) {
	return s[key], nil
}

func newServer(t *testing.T) (*Server, *webtest.Env) {
	t.Helper()

	env := webtest.New(t)

	store := sessions{}
	for _, uid := range []int64{webtest.UIDAdmin, webtest.UIDMember, webtest.UIDCategoryAdmin} {
		store["sid-"+strconv.FormatInt(uid, 10)] = []byte(`{"uid":` + strconv.FormatInt(uid, 10) + `}`)
	}

	s := New(&config.Config{}, env.Deps, store)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})

	return s, env
}

func call(t *testing.T, s *Server, uid int64, event string, data any) Reply {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}

	return s.Handle(context.Background(), uid, Request{ID: 7, Event: event, Data: raw})
}

func TestHandlePrivileges(t *testing.T) {
	s, _ := newServer(t)

	tests := []struct {
		name    string
		uid     int64
		event   string
		data    any
		wantErr string
	}{
		{name: "filter guest", uid: 0, event: "categories.loadCategoryFilter", data: map[string]any{}},
		{name: "filter without data", uid: 0, event: "categories.loadCategoryFilter"},
		{name: "getAll member", uid: webtest.UIDMember, event: "admin.categories.getAll", wantErr: "[[error:no-privileges]]"},
		{name: "getAll category admin", uid: webtest.UIDCategoryAdmin, event: "admin.categories.getAll"},
		{name: "settings category admin", uid: webtest.UIDCategoryAdmin, event: "admin.settings.get", data: HashPayload{Hash: "general"}, wantErr: "[[error:no-privileges]]"},
		{name: "settings admin", uid: webtest.UIDAdmin, event: "admin.settings.get", data: HashPayload{Hash: "general"}},
		{name: "unmapped admin method", uid: webtest.UIDCategoryAdmin, event: "admin.user.ban", wantErr: "[[error:no-privileges]]"},
		{name: "unmapped admin method super-user", uid: webtest.UIDAdmin, event: "admin.user.ban", wantErr: "[[error:invalid-event]]"},
		{name: "mapped but not implemented", uid: webtest.UIDAdmin, event: "admin.themes.set", wantErr: "[[error:invalid-event]]"},
		{name: "mapped denied first", uid: webtest.UIDMember, event: "admin.themes.set", wantErr: "[[error:no-privileges]]"},
		{name: "unknown event", uid: webtest.UIDMember, event: "topics.post", wantErr: "[[error:invalid-event]]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := call(t, s, tt.uid, tt.event, tt.data)
			assert.Equal(t, int64(7), reply.ID)
			assert.Equal(t, tt.wantErr, reply.Error)
		})
	}
}

func TestCategoryEvents(t *testing.T) {
	s, env := newServer(t)
	ctx := context.Background()

	reply := call(t, s, webtest.UIDCategoryAdmin, "admin.categories.create", CreateCategory{
		Name:         "Rules",
		ParentCID:    webtest.CidGeneral,
		CloneFromCID: webtest.CidGeneral,
	})
	require.Empty(t, reply.Error)
	created, ok := reply.Data.(*models.Category)
	require.True(t, ok)
	assert.Equal(t, "Rules", created.Name)

	// the copied privileges make the new category readable for members
	allowed, err := env.Deps.CategoryPrivs.FilterCids(ctx, categories.DefaultPrivilege, []int64{created.CID}, webtest.UIDMember)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.CID}, allowed)

	reply = call(t, s, webtest.UIDCategoryAdmin, "admin.categories.update", map[string]any{
		strconv.FormatInt(created.CID, 10): map[string]any{"name": "House Rules", "order": 5},
	})
	require.Empty(t, reply.Error)

	got, err := env.Deps.Categories.Get(ctx, created.CID)
	require.NoError(t, err)
	assert.Equal(t, "House Rules", got.Name)
	assert.Equal(t, 5, got.Order)

	reply = call(t, s, webtest.UIDCategoryAdmin, "admin.categories.update", map[string]any{
		"abc": map[string]any{"name": "x"},
	})
	assert.Equal(t, "[[error:invalid-data]]", reply.Error)

	reply = call(t, s, webtest.UIDCategoryAdmin, "admin.categories.create", CreateCategory{})
	assert.Equal(t, "[[error:invalid-data]]", reply.Error)

	reply = call(t, s, webtest.UIDCategoryAdmin, "admin.categories.copySettingsFrom", CopySettings{FromCid: 1, ToCid: 1})
	assert.Equal(t, "[[error:invalid-data]]", reply.Error)

	reply = call(t, s, webtest.UIDCategoryAdmin, "admin.categories.purge", CidPayload{Cid: created.CID})
	require.Empty(t, reply.Error)

	_, err = env.Deps.Categories.Get(ctx, created.CID)
	require.Error(t, err)

	reply = call(t, s, webtest.UIDCategoryAdmin, "admin.categories.purge", CidPayload{Cid: 999})
	assert.Equal(t, "[[error:no-category]]", reply.Error)
}

func TestLoadCategoryFilterSelectedCids(t *testing.T) {
	s, _ := newServer(t)

	testCases := []struct {
		name string
		data string
	}{
		{name: "numbers", data: `{"selectedCids":[1]}`},
		{name: "strings", data: `{"selectedCids":["1"]}`},
		{name: "mixed", data: `{"selectedCids":[1,"3"]}`},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			reply := call(t, s, webtest.UIDMember, "categories.loadCategoryFilter", json.RawMessage(tt.data))
			require.Empty(t, reply.Error)

			got, ok := reply.Data.([]categories.SelectCategory)
			require.True(t, ok)

			var found bool
			for _, c := range got {
				if c.CID == webtest.CidGeneral {
					found = true
					assert.True(t, c.Selected)
				}
			}
			assert.True(t, found)
		})
	}

	reply := call(t, s, webtest.UIDMember, "categories.loadCategoryFilter", json.RawMessage(`{"selectedCids":[{}]}`))
	assert.Equal(t, "[[error:invalid-data]]", reply.Error)
}

func TestConfigEvents(t *testing.T) {
	s, env := newServer(t)
	ctx := context.Background()

	reply := call(t, s, webtest.UIDAdmin, "admin.config.setMultiple", map[string]string{meta.FieldTitle: "Forum"})
	require.Empty(t, reply.Error)

	v, ok, err := env.Deps.Configs.Get(ctx, meta.FieldTitle)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Forum", v)

	reply = call(t, s, webtest.UIDAdmin, "admin.config.remove", meta.FieldTitle)
	require.Empty(t, reply.Error)

	_, ok, err = env.Deps.Configs.Get(ctx, meta.FieldTitle)
	require.NoError(t, err)
	assert.False(t, ok)

	reply = call(t, s, webtest.UIDAdmin, "admin.config.setMultiple", nil)
	assert.Equal(t, "[[error:invalid-data]]", reply.Error)
}

func dial(t *testing.T, url string, uid int64) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if uid > 0 {
		header.Set("Cookie", "session=sid-"+strconv.FormatInt(uid, 10))
	}

	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ws.Close()
	})

	return ws
}

func TestWebsocketRoundTrip(t *testing.T) {
	s, env := newServer(t)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultPath

	admin := dial(t, url, webtest.UIDAdmin)
	guest := dial(t, url, 0)

	require.Eventually(t, func() bool { return s.Connections() == 2 }, time.Second, 10*time.Millisecond)

	// requests are answered with the id of the frame
	require.NoError(t, guest.WriteJSON(Request{ID: 1, Event: "admin.categories.getAll"}))

	var reply struct {
		ID    int64           `json:"id"`
		Error string          `json:"error"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, guest.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, guest.ReadJSON(&reply))
	assert.Equal(t, int64(1), reply.ID)
	assert.Equal(t, "[[error:no-privileges]]", reply.Error)

	require.NoError(t, guest.WriteJSON(Request{ID: 2, Event: "categories.loadCategoryFilter", Data: json.RawMessage(`{}`)}))
	require.NoError(t, guest.ReadJSON(&reply))
	assert.Equal(t, int64(2), reply.ID)
	assert.Empty(t, reply.Error)

	var records []categories.SelectCategory
	require.NoError(t, json.Unmarshal(reply.Data, &records))
	assert.Len(t, records, 2)

	// fired actions are pushed to every client
	env.Hooks.Observe(s.Observe)
	require.NoError(t, env.Deps.Configs.Set(context.Background(), meta.FieldTitle, "Pushed"))

	for _, ws := range []*websocket.Conn{admin, guest} {
		var push Push
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		require.NoError(t, ws.ReadJSON(&push))
		assert.Equal(t, "action:config.set", push.Event)
		assert.JSONEq(t, `{"title":"Pushed"}`, string(push.Data))
	}
}

func TestRejectAfterShutdown(t *testing.T) {
	s, _ := newServer(t)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultPath

	dial(t, url, webtest.UIDMember)
	require.Eventually(t, func() bool { return s.Connections() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, 0, s.Connections())

	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if ws != nil {
		_ = ws.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, s.Connections())
}

func TestCheckOrigin(t *testing.T) {
	env := webtest.New(t)
	s := New(&config.Config{Socket: config.Socket{AllowedOrigins: []string{"https://forum.example"}}}, env.Deps, nil)

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://forum.example", true},
		{"https://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, DefaultPath, nil)
			r.Header.Set("Origin", tt.origin)
			assert.Equal(t, tt.want, s.checkOrigin(r))
		})
	}
}
