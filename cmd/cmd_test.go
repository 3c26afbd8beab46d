package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/quocvuong92/ai-shell/internal/bridge"
	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/display"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/server"
)

func newTestApp() *App {
	return &App{
		cfg: config.NewConfig(),
		fs:  afero.NewMemMapFs(),
	}
}

func newTestFlow(t *testing.T, input string, verify verifyFunc) (*setupFlow, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &setupFlow{
		in:       bufio.NewReader(strings.NewReader(input)),
		out:      out,
		credPath: filepath.Join(t.TempDir(), config.CredentialFileName),
		verify:   verify,
	}, out
}

func TestSetupFlow_OpenAI(t *testing.T) {
	var got config.ProviderConfig
	flow, out := newTestFlow(t, "1\nsk-test-1234567890\n\n", func(_ context.Context, cfg config.ProviderConfig) ([]string, error) {
		got = cfg
		return []string{"ls"}, nil
	})

	if err := flow.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	cred, err := config.ReadCredentialFile(flow.credPath)
	if err != nil {
		t.Fatalf("ReadCredentialFile() error = %v", err)
	}
	if cred.APIKey != "sk-test-1234567890" || cred.Provider != config.ProviderOpenAI {
		t.Errorf("credential file = %+v", cred)
	}
	if cred.Model != "" {
		t.Errorf("default model should not be written, got %q", cred.Model)
	}

	info, err := os.Stat(flow.credPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credential file mode = %o, want 600", perm)
	}

	if got.Model != config.DefaultModel(config.ProviderOpenAI) || got.Endpoint != config.DefaultEndpoint(config.ProviderOpenAI, "") {
		t.Errorf("verify config = %+v", got)
	}
	if !strings.Contains(out.String(), "Provider resolved it to: ls") {
		t.Errorf("output missing verification result:\n%s", out.String())
	}
}

func TestSetupFlow_GeminiCustomModel(t *testing.T) {
	var got config.ProviderConfig
	flow, _ := newTestFlow(t, "2\nAIzaTestKey\ngemini-pro\n", func(_ context.Context, cfg config.ProviderConfig) ([]string, error) {
		got = cfg
		return []string{"ls"}, nil
	})

	if err := flow.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	cred, err := config.ReadCredentialFile(flow.credPath)
	if err != nil {
		t.Fatal(err)
	}
	if cred.Provider != config.ProviderGemini || cred.Model != "gemini-pro" {
		t.Errorf("credential file = %+v", cred)
	}
	if !strings.HasSuffix(got.Endpoint, "/models/gemini-pro:generateContent") {
		t.Errorf("verify endpoint = %q, want the chosen model in the path", got.Endpoint)
	}
}

func TestSetupFlow_CustomEndpointRequiresValue(t *testing.T) {
	flow, out := newTestFlow(t, "3\n\nhttp://localhost:8080/v1/chat/completions\nkey-123\nllama3\n", nil)

	if err := flow.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "A value is required.") {
		t.Errorf("empty endpoint was not re-asked:\n%s", out.String())
	}
	cred, err := config.ReadCredentialFile(flow.credPath)
	if err != nil {
		t.Fatal(err)
	}
	if cred.APIURL != "http://localhost:8080/v1/chat/completions" || cred.Model != "llama3" {
		t.Errorf("credential file = %+v", cred)
	}
}

func TestSetupFlow_SkipAndErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantMsg string
	}{
		{"skip", "4\n", errSetupSkipped, ""},
		{"invalid choice", "9\n", nil, `invalid choice "9"`},
		{"no input", "", errSetupAborted, ""},
		{"eof before key", "1\n", errSetupAborted, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, _ := newTestFlow(t, tt.input, nil)
			err := flow.run(context.Background())
			if err == nil {
				t.Fatal("run() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("run() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("run() error = %q, want %q", err.Error(), tt.wantMsg)
			}
			if _, statErr := os.Stat(flow.credPath); !os.IsNotExist(statErr) {
				t.Error("credential file should not be written")
			}
		})
	}
}

func TestSetupFlow_VerifyFailure(t *testing.T) {
	flow, _ := newTestFlow(t, "1\nsk-bad\n\n", func(context.Context, config.ProviderConfig) ([]string, error) {
		return nil, errors.New("openai API error: Incorrect API key (status code 401)")
	})

	err := flow.run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "provider test failed") {
		t.Fatalf("run() error = %v", err)
	}
	// Credentials are kept so the user can fix them by hand
	if _, statErr := os.Stat(flow.credPath); statErr != nil {
		t.Errorf("credential file missing: %v", statErr)
	}
}

func TestIntegration_VerifyProvider(t *testing.T) {
	prev := display.SpinnerWriter
	display.SpinnerWriter = io.Discard
	t.Cleanup(func() { display.SpinnerWriter = prev })

	var userPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) == 2 {
			userPrompt = body.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"ls\nfrobnicate"}}]}`)
	}))
	defer srv.Close()

	app := newTestApp()
	cfg := providerConfigFrom(&config.CredentialFile{
		Provider: config.ProviderOpenAI,
		APIKey:   "sk-test-1234567890",
		APIURL:   srv.URL,
	})

	lines, err := app.verifyProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("verifyProvider() error = %v", err)
	}
	if len(lines) != 1 || lines[0] != "ls" {
		t.Errorf("verifyProvider() = %v, want [ls]", lines)
	}
	if !strings.Contains(userPrompt, "'show me the files'") {
		t.Errorf("user prompt = %q", userPrompt)
	}
}

func TestWriteStatus(t *testing.T) {
	app := newTestApp()
	app.cfg.Provider.Kind = config.ProviderGemini
	app.cfg.Provider.Credential = "AIzaSyExampleKey1234"
	app.cfg.Provider.Model = "gemini-1.5-flash"
	app.cfg.Provider.Endpoint = config.DefaultEndpoint(config.ProviderGemini, "gemini-1.5-flash")
	app.cfg.CredentialSource = "API_KEY"
	app.cfg.HistoryFile = "/tmp/.aishell_history"

	var out bytes.Buffer
	app.writeStatus(&out)
	got := out.String()

	for _, want := range []string{
		"Provider:    Google Gemini",
		"Model:       gemini-1.5-flash",
		"(from API_KEY)",
		"History:     /tmp/.aishell_history",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "AIzaSyExampleKey1234") {
		t.Error("status leaked the full credential")
	}
}

func TestWriteStatus_NoCredential(t *testing.T) {
	app := newTestApp()
	app.cfg.HistoryEnabled = false

	var out bytes.Buffer
	app.writeStatus(&out)
	got := out.String()

	if !strings.Contains(got, "none (local keyword matching)") || !strings.Contains(got, "not configured") {
		t.Errorf("unexpected status:\n%s", got)
	}
	if !strings.Contains(got, "History:     disabled") {
		t.Errorf("history should be disabled:\n%s", got)
	}
}

func TestNewSession_LocalFallback(t *testing.T) {
	app := newTestApp()
	sess, err := app.newSession(sessionOptions{history: history.New(10)})
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}

	cwd, _ := os.Getwd()
	res, err := sess.Process(context.Background(), "pwd")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !res.Succeeded || res.Output != cwd {
		t.Errorf("pwd = %+v, want %q", res, cwd)
	}

	res, err = sess.Process(context.Background(), "ai create a folder called test")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.HasPrefix(res.Output, "$ mkdir test") {
		t.Errorf("fallback output = %q", res.Output)
	}
	if ok, _ := afero.DirExists(app.fs, filepath.Join(cwd, "test")); !ok {
		t.Error("mkdir did not create the directory")
	}
}

func TestInteractiveSession_Suggestions(t *testing.T) {
	app := newTestApp()
	sess, err := app.newSession(sessionOptions{history: history.New(10)})
	if err != nil {
		t.Fatal(err)
	}
	cwd := sess.WorkingDir()
	_ = app.fs.MkdirAll(filepath.Join(cwd, "docs"), 0755)
	_ = afero.WriteFile(app.fs, filepath.Join(cwd, "notes.txt"), []byte("x"), 0644)

	s := &InteractiveSession{app: app, session: sess}

	names := map[string]bool{}
	for _, sg := range s.commandSuggestions() {
		names[sg.Text] = true
	}
	for _, want := range []string{"ls", "cd", "cpu", "help", "history", "exit", "ai"} {
		if !names[want] {
			t.Errorf("command suggestions missing %q", want)
		}
	}

	paths := s.pathSuggestions()
	if len(paths) != 2 {
		t.Fatalf("pathSuggestions() = %+v", paths)
	}
	if paths[0].Text != "docs" || paths[0].Description != "directory" {
		t.Errorf("paths[0] = %+v", paths[0])
	}
	if paths[1].Text != "notes.txt" || paths[1].Description != "file" {
		t.Errorf("paths[1] = %+v", paths[1])
	}
}

func TestIntegration_Serve(t *testing.T) {
	app := newTestApp()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.serve(ctx, l, server.DefaultConfig())
	}()

	body := strings.NewReader(`{"command":"echo hello"}`)
	resp, err := http.Post("http://"+l.Addr().String()+"/execute", "application/json", body)
	if err != nil {
		cancel()
		t.Fatalf("POST /execute error = %v", err)
	}
	var env bridge.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if !env.Succeeded || env.Output != "hello" || env.Command != "echo hello" {
		t.Errorf("envelope = %+v", env)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve() did not return after cancel")
	}
}

func TestConfigureLogging_JSONToFile(t *testing.T) {
	t.Cleanup(func() {
		logging.SetOutput(os.Stderr)
		logging.SetFormat(logging.FormatText)
		logging.SetLevel(logging.LevelWarn)
	})

	app := newTestApp()
	app.cfg.LogLevel = "info"
	app.cfg.LogFormat = "json"
	app.cfg.LogFile = "/logs/ai-shell.log"
	if err := app.fs.MkdirAll("/logs", 0755); err != nil {
		t.Fatal(err)
	}

	app.configureLogging()
	logging.Info("configured", logging.Fields{"component": "test"})

	data, err := afero.ReadFile(app.fs, "/logs/ai-shell.log")
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line %q is not JSON: %v", data, err)
	}
	if entry["message"] != "configured" || entry["component"] != "test" {
		t.Errorf("entry = %v", entry)
	}
}
