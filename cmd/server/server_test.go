package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/phrazzld/scry-study/internal/api/shared"
	"github.com/phrazzld/scry-study/internal/config"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/observe"
	"github.com/phrazzld/scry-study/internal/platform/localaudio"
	"github.com/phrazzld/scry-study/internal/service"
	"github.com/phrazzld/scry-study/internal/session"
	"github.com/phrazzld/scry-study/internal/speech"
	"github.com/phrazzld/scry-study/internal/study/stats"
	"github.com/phrazzld/scry-study/internal/task"
)

type emptyStudyService struct{}

func (emptyStudyService) ListDecks(context.Context) ([]service.DeckSummary, error) {
	return nil, nil
}

func (emptyStudyService) GetDeck(context.Context, uuid.UUID) (*domain.Deck, error) {
	return nil, nil
}

func (emptyStudyService) CreateDeck(context.Context, string, []service.CardInput) (*domain.Deck, error) {
	return nil, nil
}

func (emptyStudyService) StartSession(context.Context, service.StartSessionParams) (*session.Session, error) {
	return nil, session.ErrManagerClosed
}

func (emptyStudyService) Leaderboard(context.Context, uuid.UUID, string) (*stats.Leaderboard, error) {
	return &stats.Leaderboard{}, nil
}

func newTestApplication(t *testing.T) *application {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	require.NoError(t, err)

	app := &application{
		config: &config.Config{Server: config.ServerConfig{
			Port:                   0,
			AllowedOrigins:         []string{"http://localhost:5173"},
			ShutdownTimeoutSeconds: 1,
		}},
		logger:       log,
		metrics:      metrics,
		speech:       speech.New(speech.Config{}, speech.WithOutput(localaudio.DiscardFactory()), speech.WithLogger(log)),
		taskRunner:   task.NewTaskRunner(task.DefaultTaskRunnerConfig(), log),
		sessions:     session.NewManager(session.DefaultConfig(), session.WithLogger(log)),
		studyService: emptyStudyService{},
	}
	app.taskRunner.Start()
	return app
}

func TestRouterRoutes(t *testing.T) {
	app := newTestApplication(t)
	t.Cleanup(func() { _ = app.cleanup(context.Background()) })
	router := app.setupRouter()

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/decks", "", http.StatusOK},
		{http.MethodGet, "/api/decks/" + uuid.NewString() + "/leaderboard", "", http.StatusOK},
		{http.MethodPost, "/api/sessions", `{"username":"ana","deck_id":"` + uuid.NewString() + `","mode":"memory"}`, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/sessions/missing", "", http.StatusNotFound},
		{http.MethodPost, "/api/speak", `{"text":"hola"}`, http.StatusOK},
		{http.MethodGet, "/api/nowhere", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		var body io.Reader
		if tc.body != "" {
			body = strings.NewReader(tc.body)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, body))
		assert.Equal(t, tc.status, w.Code, "%s %s: %s", tc.method, tc.path, w.Body.String())
		assert.Len(t, w.Header().Get(shared.TraceIDHeader), 32, "%s %s", tc.method, tc.path)
	}
}

func TestRouterCORS(t *testing.T) {
	app := newTestApplication(t)
	t.Cleanup(func() { _ = app.cleanup(context.Background()) })
	router := app.setupRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/decks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/decks", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartHTTPServerShutsDownOnCancel(t *testing.T) {
	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, app.startHTTPServer(ctx, http.NotFoundHandler()))
	assert.Equal(t, 0, app.sessions.Len())
	assert.Equal(t, speech.SourceSilent, app.speech.SpeakSync(context.Background(), "after dispose"))
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseFlags([]string{"-migrate", "up", "-config", "/etc/scry.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "up", opts.migrate)
	assert.Equal(t, "/etc/scry.yaml", opts.configPath)

	opts, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Empty(t, opts.migrate)

	_, err = parseFlags([]string{"-bogus"})
	assert.Error(t, err)
}

func TestNewSynthesizerSelection(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	synth, err := newSynthesizer(context.Background(), config.SpeechConfig{Provider: config.ProviderNone}, log)
	require.NoError(t, err)
	assert.Nil(t, synth)

	_, err = newSynthesizer(context.Background(), config.SpeechConfig{Provider: config.ProviderGemini}, log)
	assert.ErrorIs(t, err, speech.ErrConfiguration)

	_, err = newSynthesizer(context.Background(), config.SpeechConfig{Provider: config.ProviderHTTP}, log)
	assert.ErrorIs(t, err, speech.ErrConfiguration)

	synth, err = newSynthesizer(context.Background(), config.SpeechConfig{
		Provider: config.ProviderHTTP, ProxyURL: "http://localhost:9000",
	}, log)
	require.NoError(t, err)
	assert.NotNil(t, synth)
}
