package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"

	"sopdesk/api/internal/assistant"
	"sopdesk/api/internal/authpw"
	"sopdesk/api/internal/content"
	"sopdesk/api/internal/export"
	"sopdesk/api/internal/session"
	"sopdesk/api/internal/storage"
	"sopdesk/api/internal/store"
)

type fakeAsker struct {
	configured bool
	askFn      func(context.Context, assistant.Question) (assistant.Answer, error)
}

func (f *fakeAsker) Configured() bool { return f.configured }

func (f *fakeAsker) Ask(ctx context.Context, q assistant.Question) (assistant.Answer, error) {
	if f.askFn != nil {
		return f.askFn(ctx, q)
	}
	return assistant.Answer{Text: "ok", HTML: "<p>ok</p>", Outcome: assistant.OutcomeAnswered}, nil
}

type fakeExporter struct {
	exportFn func(context.Context, export.Request) (*export.Result, error)
}

func (f *fakeExporter) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	return f.exportFn(ctx, req)
}

type fakeAttachments struct {
	uploadFn func(ctx context.Context, name string, r io.Reader, size int64, contentType string) (content.Attachment, error)
	deleteFn func(ctx context.Context, id, name string) error
}

func (f *fakeAttachments) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (content.Attachment, error) {
	return f.uploadFn(ctx, name, r, size, contentType)
}

func (f *fakeAttachments) Delete(ctx context.Context, id, name string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id, name)
	}
	return nil
}

// pingStore lets health tests fail the store ping without a real outage.
type pingStore struct {
	*storage.Service
	pingFn func(context.Context) error
}

func (p *pingStore) Ping(ctx context.Context) error {
	if p.pingFn != nil {
		return p.pingFn(ctx)
	}
	return p.Service.Ping(ctx)
}

// withResetDevBypass swaps in an auth service that hands out reset codes
// when no mail server is configured.
func withResetDevBypass(deps *Dependencies) {
	kb := deps.Store.(*storage.Service)
	deps.Auth = authpw.NewService(kb, nil, session.NewMemoryStore(), authpw.Config{
		TokenSecret: "test-secret",
		AccessTTL:   time.Hour,
		DevBypass:   true,
	}, deps.Log)
}

type testEnv struct {
	server *HTTPServer
	kb     *storage.Service
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T, configure ...func(*Dependencies)) *testEnv {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	kb := storage.New(store.NewMemoryStore(), storage.WithBcryptCost(bcrypt.MinCost), storage.WithLogger(logger))
	if _, err := kb.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	authSvc := authpw.NewService(kb, nil, session.NewMemoryStore(), authpw.Config{TokenSecret: "test-secret", AccessTTL: time.Hour}, logger)

	deps := Dependencies{
		Store:     kb,
		Auth:      authSvc,
		Assistant: &fakeAsker{configured: true},
		Log:       logger,
		Now:       func() time.Time { return fixedNow },
	}
	for _, fn := range configure {
		fn(&deps)
	}
	return &testEnv{server: NewHTTPServer(New(deps), "*"), kb: kb}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	return e.doRaw(t, method, path, token, reader)
}

func (e *testEnv) doRaw(t *testing.T, method, path, token string, body io.Reader) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)

	var response map[string]any
	if rr.Header().Get("Content-Type") == "application/json" && rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to parse response: %v (%s)", err, rr.Body.String())
		}
	}
	return rr, response
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rr, response := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"password": storage.DefaultPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rr.Code, rr.Body.String())
	}
	token, _ := response["accessToken"].(string)
	if token == "" {
		t.Fatalf("expected accessToken, got %v", response)
	}
	return token
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func expectCode(t *testing.T, response map[string]any, want string) {
	t.Helper()
	if code := response["code"]; code != want {
		t.Fatalf("expected code %s, got %v", want, code)
	}
}
