package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"treehole/admin"
	"treehole/config"
	"treehole/messages"
)

func testConfig(t *testing.T, prefix string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Name = "TREEHOLE"
	cfg.Server.Prefix = prefix
	cfg.Database.Type = "sqlite3"
	cfg.Database.Database = filepath.Join(t.TempDir(), "treehole.db")
	return cfg
}

func newTestServer(t *testing.T, prefix string) (*App, *httptest.Server) {
	t.Helper()
	a, err := New(context.Background(), testConfig(t, prefix), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func do(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := noRedirect.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, data
}

func TestBoardLifecycle(t *testing.T) {
	_, srv := newTestServer(t, "/treehole")
	api := srv.URL + "/treehole/api"

	status, body := do(t, http.MethodPost, api+"/messages", messages.CreateMessageRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, status, string(body))
	var created messages.CreateMessageResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "hello", created.Content)

	status, body = do(t, http.MethodPut, api+"/messages/"+itoa(created.ID)+"/like", messages.ToggleLikeRequest{Action: "like"})
	require.Equal(t, http.StatusOK, status, string(body))
	var liked messages.ToggleLikeResponse
	require.NoError(t, json.Unmarshal(body, &liked))
	assert.Equal(t, messages.ToggleLikeResponse{Success: true, Likes: 1, Action: "liked"}, liked)

	status, body = do(t, http.MethodGet, api+"/messages", nil)
	require.Equal(t, http.StatusOK, status)
	var list []messages.Message
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Likes)

	status, _ = do(t, http.MethodDelete, api+"/messages/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = do(t, http.MethodDelete, api+"/messages/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRootRedirectsToPrefix(t *testing.T) {
	_, srv := newTestServer(t, "/treehole")

	res, err := noRedirect.Get(srv.URL + "/")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/treehole/", res.Header.Get("Location"))
}

func TestServesClient(t *testing.T) {
	_, srv := newTestServer(t, "/treehole")

	status, body := do(t, http.MethodGet, srv.URL+"/treehole/", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `id="msgList"`)

	status, _ = do(t, http.MethodGet, srv.URL+"/treehole/script.js", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/treehole/script.js", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestEmptyPrefixMountsAtRoot(t *testing.T) {
	_, srv := newTestServer(t, "")

	status, body := do(t, http.MethodGet, srv.URL+"/", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `id="msgList"`)

	status, body = do(t, http.MethodGet, srv.URL+"/api/messages", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestOperationalEndpoints(t *testing.T) {
	_, srv := newTestServer(t, "/treehole")

	status, body := do(t, http.MethodGet, srv.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	status, _ = do(t, http.MethodPost, srv.URL+"/treehole/api/messages", messages.CreateMessageRequest{Content: "counted"})
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, http.MethodGet, srv.URL+"/treehole/api/admin/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	var m admin.MetricsResponse
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, int64(1), m.Board.Messages)
	assert.Equal(t, "sqlite3", m.Database.Type)
	assert.Positive(t, m.Database.ActiveConnections)

	status, body = do(t, http.MethodGet, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "treehole_messages_created_total 1")
	assert.Contains(t, string(body), `route="API POST /messages"`)
}

func TestChangeFeed(t *testing.T) {
	a, srv := newTestServer(t, "/treehole")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/treehole/api/ws"
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.Hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	status, _ := do(t, http.MethodPost, srv.URL+"/treehole/api/messages", messages.CreateMessageRequest{Content: "live"})
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event messages.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, messages.EventCreated, event.Type)
	assert.Equal(t, int64(1), event.ID)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
