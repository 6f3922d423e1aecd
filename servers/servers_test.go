package servers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"geminify/gemini"
	"geminify/handlers/web"
	"geminify/logger"
	"geminify/platform"
	"geminify/rewrite"
	"geminify/settings"
	"geminify/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	name     string
	startErr error
	events   *[]string
}

func (s *recordingServer) Name() string { return s.name }

func (s *recordingServer) Start() error {
	*s.events = append(*s.events, "start "+s.name)
	return s.startErr
}

func (s *recordingServer) Stop(ctx context.Context) error {
	*s.events = append(*s.events, "stop "+s.name)
	return nil
}

func TestManagerStopsInReverseOrder(t *testing.T) {
	var events []string
	m := NewManager(logger.Nop())
	m.AddServer(&recordingServer{name: "a", events: &events})
	m.AddServer(&recordingServer{name: "b", events: &events})

	require.NoError(t, m.StartAll())
	m.StopAll(context.Background())
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var events []string
	m := NewManager(logger.Nop())
	m.AddServer(&recordingServer{name: "a", events: &events})
	m.AddServer(&recordingServer{name: "b", events: &events, startErr: errors.New("boom")})

	err := m.StartAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, events)
}

type staticGenerator struct{}

func (staticGenerator) Generate(ctx context.Context, prompt string, cfg gemini.GenerationConfig) (string, error) {
	return "ok", nil
}

func (staticGenerator) Close() error { return nil }

func TestWebServerServesHealthAndMetrics(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewDBStore(filepath.Join(t.TempDir(), "servers.db"))
	require.NoError(t, err)
	defer store.Close()

	mgr := settings.NewManager(store, settings.Defaults(), logger.Nop())
	current, err := mgr.Load(ctx)
	require.NoError(t, err)
	orch, err := rewrite.New(ctx, current, rewrite.Options{
		Capabilities: platform.Detect(platform.Environment{Mode: platform.ModeDesktop}),
		NewGenerator: func(ctx context.Context, apiKey string) (gemini.Generator, error) { return staticGenerator{}, nil },
		Logger:       logger.Nop(),
	})
	require.NoError(t, err)
	defer orch.Close()

	h := web.NewHandler(web.Deps{Rewriter: orch, Settings: mgr, Store: store, Logger: logger.Nop()})
	srv := NewWebServer("127.0.0.1:0", h, "secret", logger.Nop())
	require.NoError(t, srv.Start())
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Stop(stopCtx))
	}()

	resp, err := http.Get("http://" + srv.Addr() + "/api/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"configured":false`)

	req, _ := http.NewRequest(http.MethodGet, "http://"+srv.Addr()+"/metrics", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "geminify_http_requests_total")
}
