package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/ai-shell/internal/bridge"
	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/session"
)

type stubSubmitter struct {
	mu       sync.Mutex
	commands []string
}

func (s *stubSubmitter) Submit(_ context.Context, command string) bridge.Envelope {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()
	return bridge.Envelope{Succeeded: true, Output: "ran " + command, Command: command}
}

type stubStatus struct{}

func (stubStatus) WorkingDir() string { return "/srv/data" }
func (stubStatus) Prompt() string     { return "alice@box:data$ " }

func quietLogger() *logging.Logger {
	return logging.New(logging.Options{Level: logging.LevelNone, Output: io.Discard})
}

func newTestServer(t *testing.T, sub Submitter, status StatusSource) *httptest.Server {
	t.Helper()
	srv := New(DefaultConfig(), sub, status, quietLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postExecute(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/execute", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestExecute(t *testing.T) {
	sub := &stubSubmitter{}
	ts := newTestServer(t, sub, stubStatus{})

	resp, out := postExecute(t, ts, `{"command":"ls"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "ran ls", out["output"])
	assert.Equal(t, "ls", out["command"])
	assert.Equal(t, []string{"ls"}, sub.commands)
}

func TestExecute_EmptyCommand(t *testing.T) {
	sub := &stubSubmitter{}
	ts := newTestServer(t, sub, stubStatus{})

	for _, body := range []string{`{"command":""}`, `{"command":"   "}`, `{}`} {
		resp, out := postExecute(t, ts, body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, MsgNoCommand, out["output"])
	}
	assert.Empty(t, sub.commands)
}

func TestExecute_InvalidBody(t *testing.T) {
	ts := newTestServer(t, &stubSubmitter{}, stubStatus{})

	resp, out := postExecute(t, ts, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request body", out["error"])
}

func TestExecute_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &stubSubmitter{}, stubStatus{})

	resp, err := http.Get(ts.URL + "/execute")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, &stubSubmitter{}, stubStatus{})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, StatusResponse{CurrentDir: "/srv/data", Prompt: "alice@box:data$ "}, out)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, &stubSubmitter{}, stubStatus{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/execute", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func dialWebSocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket(t *testing.T) {
	sub := &stubSubmitter{}
	ts := newTestServer(t, sub, stubStatus{})
	conn := dialWebSocket(t, ts)

	for _, cmd := range []string{"pwd", "ls"} {
		require.NoError(t, conn.WriteJSON(ExecuteRequest{Command: cmd}))
		var env bridge.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		assert.True(t, env.Succeeded)
		assert.Equal(t, "ran "+cmd, env.Output)
		assert.Equal(t, cmd, env.Command)
	}

	require.NoError(t, conn.WriteJSON(ExecuteRequest{}))
	var env bridge.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.False(t, env.Succeeded)
	assert.Equal(t, MsgNoCommand, env.Output)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{broken")))
	require.NoError(t, conn.ReadJSON(&env))
	assert.False(t, env.Succeeded)
	assert.True(t, strings.HasPrefix(env.Output, "invalid request"), env.Output)

	assert.Equal(t, []string{"pwd", "ls"}, sub.commands)
}

func TestServer_EndToEnd(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/srv", 0755))
	reg, err := commands.NewDefaultRegistry(fsys, nil)
	require.NoError(t, err)
	s := session.New(reg, nil, commands.NewEnv("/srv", "/srv", nil),
		session.WithIdentity("web", "host"), session.WithLogger(quietLogger()))

	b := bridge.New(s, 0, bridge.WithLogger(quietLogger()))
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(b.Stop)

	ts := newTestServer(t, b, s)

	_, out := postExecute(t, ts, `{"command":"mkdir docs"}`)
	assert.Equal(t, true, out["success"])
	_, out = postExecute(t, ts, `{"command":"cd docs"}`)
	assert.Equal(t, true, out["success"])
	_, out = postExecute(t, ts, `{"command":"exit"}`)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "", out["output"])

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "/srv/docs", status.CurrentDir)
	assert.Equal(t, "web@host:docs$ ", status.Prompt)

	conn := dialWebSocket(t, ts)
	require.NoError(t, conn.WriteJSON(ExecuteRequest{Command: "ai create a folder called notes"}))
	var env bridge.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.True(t, env.Succeeded)
	assert.Equal(t, "$ mkdir notes\n", env.Output)

	ok, err := afero.DirExists(fsys, "/srv/docs/notes")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServe_Shutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(&Config{Addr: l.Addr().String()}, &stubSubmitter{}, stubStatus{}, quietLogger())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	require.Eventually(t, func() bool {
		resp, err := http.Post("http://"+l.Addr().String()+"/execute", "application/json",
			bytes.NewReader([]byte(`{"command":"pwd"}`)))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}
