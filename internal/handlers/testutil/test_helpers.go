package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charlesng35/socialink/internal/api"
	"github.com/charlesng35/socialink/internal/app"
	iauth "github.com/charlesng35/socialink/internal/auth"
	dbtestutil "github.com/charlesng35/socialink/internal/database/testutil"
	"github.com/charlesng35/socialink/internal/enrichment"
	"github.com/charlesng35/socialink/internal/monitoring"
	"github.com/charlesng35/socialink/internal/notify"
	"github.com/charlesng35/socialink/internal/services"
	"github.com/charlesng35/socialink/internal/storage"
	"github.com/charlesng35/socialink/internal/tasks"
	"github.com/charlesng35/socialink/pkg/mail"
	"github.com/charlesng35/socialink/pkg/response"
)

// PublicURL is the base URL used for links in emails sent by the test router.
const PublicURL = "http://testserver"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T         *testing.T
	DB        *gorm.DB
	Router    *gin.Engine
	Tokens    *iauth.TokenService
	Users     *services.UserService
	Posts     *services.PostService
	Mailer    *RecordingMailer
	Scheduler *InlineScheduler
	Generator *FakeGenerator
	Uploader  *FakeUploader
}

// Option tweaks the environment before the router is built.
type Option func(*envOptions)

type envOptions struct {
	config      *app.Config
	noUploader  bool
	noGenerator bool
}

// WithConfig mutates the router configuration.
func WithConfig(fn func(*app.Config)) Option {
	return func(o *envOptions) { fn(o.config) }
}

// WithoutUploader leaves file uploads unconfigured.
func WithoutUploader() Option {
	return func(o *envOptions) { o.noUploader = true }
}

// WithoutGenerator leaves image generation unconfigured.
func WithoutGenerator() Option {
	return func(o *envOptions) { o.noGenerator = true }
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	options := envOptions{config: &app.Config{
		Server: app.ServerConfig{PublicURL: PublicURL},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}}
	for _, opt := range opts {
		opt(&options)
	}

	db := dbtestutil.MustOpenTestDB(t, dbtestutil.WithAutoMigrate())

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret:               "test-suite-super-secret-key-32-bytes!!",
		Issuer:               "test-suite",
		AccessTokenTTL:       time.Hour,
		ConfirmationTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	users, err := services.NewUserService(db, services.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	posts, err := services.NewPostService(db)
	require.NoError(t, err)

	gateway, err := iauth.NewGateway(tokens, users)
	require.NoError(t, err)

	env := &Env{
		T:         t,
		DB:        db,
		Tokens:    tokens,
		Users:     users,
		Posts:     posts,
		Mailer:    &RecordingMailer{},
		Scheduler: &InlineScheduler{},
		Generator: &FakeGenerator{URL: "https://images.example.com/creature.png"},
		Uploader:  &FakeUploader{BaseURL: "https://files.example.com"},
	}
	notifier := notify.New(env.Mailer)

	deps := api.Dependencies{
		Config:    options.config,
		Gateway:   gateway,
		Users:     users,
		Posts:     posts,
		Scheduler: env.Scheduler,
		Notifier:  notifier,
	}
	if !options.noGenerator {
		pipeline, err := enrichment.NewPipeline(env.Generator, posts, notifier)
		require.NoError(t, err)
		deps.Pipeline = pipeline
	}
	if !options.noUploader {
		deps.Uploader = env.Uploader
	}

	health := monitoring.NewHealthManager()
	health.RegisterLiveness(monitoring.Check{Name: "process", Run: func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}})
	deps.Health = health

	router, err := api.NewRouter(deps)
	require.NoError(t, err)
	env.Router = router

	return env
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.Do(req, token)
}

// Do sends a prepared request, adding a bearer token when one is given.
func (e *Env) Do(req *http.Request, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Register signs up a user through the API and returns the confirmation
// link that was emailed.
func (e *Env) Register(email, password string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/register", map[string]string{"email": email, "password": password}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	msg, ok := e.Mailer.Last()
	require.True(e.T, ok, "registration email was not sent")
	idx := strings.Index(msg.Body, PublicURL+"/confirm/")
	require.GreaterOrEqual(e.T, idx, 0, msg.Body)
	return msg.Body[idx:]
}

// CreateConfirmedUser registers and confirms a user, returning an access token.
func (e *Env) CreateConfirmedUser(email, password string) string {
	e.T.Helper()

	link := e.Register(email, password)
	w := e.Request(http.MethodGet, strings.TrimPrefix(link, PublicURL), nil, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	return e.Login(email, password)
}

// Login exchanges credentials for an access token.
func (e *Env) Login(email, password string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/token", map[string]string{"email": email, "password": password}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	DecodeInto(e.T, w, &body)
	require.Equal(e.T, "bearer", body.TokenType)
	require.NotEmpty(e.T, body.AccessToken)
	return body.AccessToken
}

// DecodeInto unmarshals the response body into dest.
func DecodeInto[T any](t *testing.T, w *httptest.ResponseRecorder, dest *T) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

// DecodeError parses the standard error payload.
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	DecodeInto(t, w, &body)
	return body
}

// InlineScheduler runs submitted tasks synchronously on the request goroutine.
type InlineScheduler struct {
	mu     sync.Mutex
	names  []string
	errs   []error
	Reject bool
}

// Submit implements handlers.Scheduler.
func (s *InlineScheduler) Submit(name string, task tasks.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Reject {
		return false
	}
	s.names = append(s.names, name)
	s.errs = append(s.errs, task(context.Background()))
	return true
}

// Names lists the tasks that ran, in order.
func (s *InlineScheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

// Errors lists the task results, in order.
func (s *InlineScheduler) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// RecordingMailer keeps every message it is asked to send.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

// Send implements mail.Mailer.
func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of the sent messages.
func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// Last returns the most recent message.
func (m *RecordingMailer) Last() (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return mail.Message{}, false
	}
	return m.messages[len(m.messages)-1], true
}

// FakeGenerator returns URL, or Err when set.
type FakeGenerator struct {
	mu      sync.Mutex
	URL     string
	Err     error
	Prompts []string
}

// Generate implements generator.Generator.
func (g *FakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return g.URL, nil
}

// FakeUploader stores uploads in memory.
type FakeUploader struct {
	mu      sync.Mutex
	BaseURL string
	Err     error
	Objects map[string][]byte
}

// Upload implements storage.Uploader.
func (u *FakeUploader) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if u.Err != nil {
		return "", u.Err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Objects == nil {
		u.Objects = make(map[string][]byte)
	}
	u.Objects[key] = data
	return u.BaseURL + "/" + key, nil
}

var _ storage.Uploader = (*FakeUploader)(nil)
