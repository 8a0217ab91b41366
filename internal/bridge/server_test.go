package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"convrt/internal/events"
	"convrt/internal/history"
	"convrt/internal/modelcache"
	"convrt/internal/pipeline"
	"convrt/internal/services"
	"convrt/internal/transcription"
)

type workflowStub struct {
	acquire    pipeline.AcquireRequest
	transcribe pipeline.TranscribeRequest
	trim       pipeline.TrimRequest
	path       string
	text       string
	err        error
}

func (w *workflowStub) Acquire(_ context.Context, req pipeline.AcquireRequest) (string, error) {
	w.acquire = req
	if w.err != nil {
		return "", w.err
	}
	return w.path, nil
}

func (w *workflowStub) Transcribe(_ context.Context, req pipeline.TranscribeRequest) (pipeline.Transcript, error) {
	w.transcribe = req
	if w.err != nil {
		return pipeline.Transcript{}, w.err
	}
	return pipeline.Transcript{Result: transcription.Result{
		Text:             w.text,
		DetectedLanguage: "en",
		Segments:         []transcription.Segment{{Start: 0, End: 1200 * time.Millisecond, Text: w.text}},
	}}, nil
}

func (w *workflowStub) Trim(_ context.Context, req pipeline.TrimRequest) (string, error) {
	w.trim = req
	if w.err != nil {
		return "", w.err
	}
	return w.path, nil
}

type modelsStub struct {
	list     []modelcache.Descriptor
	resolved []string
	err      error
}

func (m *modelsStub) List() ([]modelcache.Descriptor, error) {
	return m.list, nil
}

func (m *modelsStub) Resolve(_ context.Context, name string) (string, error) {
	m.resolved = append(m.resolved, name)
	if m.err != nil {
		return "", m.err
	}
	return "/models/ggml-" + name + ".bin", nil
}

type historyStub struct {
	filter history.Filter
	runs   []history.Run
}

func (h *historyStub) List(_ context.Context, filter history.Filter) ([]history.Run, error) {
	h.filter = filter
	return h.runs, nil
}

type fixture struct {
	workflows *workflowStub
	models    *modelsStub
	history   *historyStub
	bus       *events.Bus
	server    *Server
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	f := &fixture{
		workflows: &workflowStub{path: "/out/clip.mp4", text: "hello"},
		models:    &modelsStub{list: []modelcache.Descriptor{{Name: "base", Present: true}}},
		history:   &historyStub{runs: []history.Run{{ID: "r1", Workflow: "trim", Status: history.StatusSucceeded}}},
		bus:       events.NewBus(32),
	}
	srv, err := New(Options{
		Bind:      "127.0.0.1:0",
		Token:     token,
		Workflows: f.workflows,
		Models:    f.models,
		History:   f.history,
		Events:    f.bus,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.server = srv
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) pipeline.Outcome {
	t.Helper()
	var out pipeline.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode outcome: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Bind: "127.0.0.1:0"}); err == nil {
		t.Fatal("expected error without workflows")
	}
	if _, err := New(Options{Workflows: &workflowStub{}, Models: &modelsStub{}}); err == nil {
		t.Fatal("expected error without bind address")
	}
}

func TestNewRefusesExposedBindWithoutToken(t *testing.T) {
	for _, bind := range []string{"0.0.0.0:7489", ":7489", "192.168.1.10:7489", "nonsense"} {
		if _, err := New(Options{Bind: bind, Workflows: &workflowStub{}, Models: &modelsStub{}}); err == nil {
			t.Fatalf("%s: expected refusal without token", bind)
		}
	}
	for _, bind := range []string{"127.0.0.1:0", "localhost:7489", "[::1]:7489"} {
		if _, err := New(Options{Bind: bind, Workflows: &workflowStub{}, Models: &modelsStub{}}); err != nil {
			t.Fatalf("%s: unexpected error %v", bind, err)
		}
	}
	if _, err := New(Options{Bind: "0.0.0.0:7489", Token: "secret", Workflows: &workflowStub{}, Models: &modelsStub{}}); err != nil {
		t.Fatalf("token should allow exposed bind: %v", err)
	}
}

func TestNonJSONBodyIsRejected(t *testing.T) {
	f := newFixture(t, "")
	for _, contentType := range []string{"text/plain", "application/x-www-form-urlencoded", ""} {
		req := httptest.NewRequest(http.MethodPost, "/api/trim", strings.NewReader(`{"inputPath":"/home/u/.ssh/id_rsa","durationSeconds":1}`))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("%q: expected 415, got %d", contentType, w.Code)
		}
	}
	if f.workflows.trim.InputPath != "" {
		t.Fatalf("trim must not run, got %#v", f.workflows.trim)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/acquire", strings.NewReader(`{"url":"https://example.com/v"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected charset parameter to be accepted, got %d", w.Code)
	}
}

func TestForeignOriginIsRefused(t *testing.T) {
	f := newFixture(t, "")
	cases := []struct {
		origin string
		want   int
	}{
		{"https://evil.example", http.StatusForbidden},
		{"null", http.StatusForbidden},
		{"http://127.0.0.1.evil.example", http.StatusForbidden},
		{"http://localhost:3000", http.StatusOK},
		{"http://127.0.0.1:5173", http.StatusOK},
		{"http://[::1]:8080", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/trim", strings.NewReader(`{"inputPath":"/in.mp4","durationSeconds":1}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", tc.origin)
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("origin %q: expected %d, got %d", tc.origin, tc.want, w.Code)
		}
	}
	if w := f.do(t, http.MethodGet, "/api/models", ""); w.Code != http.StatusOK {
		t.Fatalf("requests without Origin must pass, got %d", w.Code)
	}
}

func TestEventStreamRefusesForeignOrigin(t *testing.T) {
	f := newFixture(t, "")
	ts := httptest.NewServer(f.server.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		conn.Close()
		t.Fatal("expected handshake to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 response, got %#v", resp)
	}
}

func TestModelsEndpoints(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(t, http.MethodGet, "/api/models", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list ModelListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Models) != 1 || list.Models[0].Name != "base" {
		t.Fatalf("unexpected models %#v", list.Models)
	}

	w = f.do(t, http.MethodPost, "/api/models/tiny.en", "")
	var ensured ModelEnsureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ensured); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ensured.Name != "tiny.en" || ensured.Path != "/models/ggml-tiny.en.bin" {
		t.Fatalf("unexpected ensure response %#v", ensured)
	}

	f.models.err = &services.Error{Kind: services.KindNetwork, Op: "modelcache.download", StatusCode: 404}
	w = f.do(t, http.MethodPost, "/api/models/missing", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if out := decodeOutcome(t, w); out.ErrorKind != "network" || out.Hint == "" {
		t.Fatalf("unexpected outcome %#v", out)
	}
}

func TestWorkflowEndpoints(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(t, http.MethodPost, "/api/acquire", `{"url":"https://example.com/v"}`)
	if w.Code != http.StatusOK || decodeOutcome(t, w).Output != "/out/clip.mp4" {
		t.Fatalf("unexpected acquire response %d %s", w.Code, w.Body.String())
	}
	if f.workflows.acquire.URL != "https://example.com/v" {
		t.Fatalf("acquire received %#v", f.workflows.acquire)
	}

	w = f.do(t, http.MethodPost, "/api/transcribe", `{"inputPath":"/in.mp4","model":"tiny","language":"de","translate":true}`)
	out := decodeOutcome(t, w)
	if out.Text != "hello" || out.DetectedLanguage != "en" {
		t.Fatalf("unexpected transcribe outcome %#v", out)
	}
	if got := f.workflows.transcribe; got.Model != "tiny" || got.Language != "de" || !got.Translate {
		t.Fatalf("transcribe received %#v", got)
	}

	w = f.do(t, http.MethodPost, "/api/trim", `{"inputPath":"/in.mp4","startSeconds":1.5,"durationSeconds":4,"format":"gif","crop":"vertical"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected trim status %d", w.Code)
	}
	if got := f.workflows.trim; got.Start != 1500*time.Millisecond || got.Duration != 4*time.Second || got.Format != "gif" || got.Crop != "vertical" {
		t.Fatalf("trim received %#v", got)
	}
}

func TestTranscribeReturnsSRTOnRequest(t *testing.T) {
	f := newFixture(t, "")

	out := decodeOutcome(t, f.do(t, http.MethodPost, "/api/transcribe", `{"inputPath":"/in.mp4","srt":true}`))
	if out.SRT != "1\n00:00:00,000 --> 00:00:01,200\nhello\n" {
		t.Fatalf("unexpected srt %q", out.SRT)
	}
	if out.Text != "hello" {
		t.Fatalf("expected plain text alongside cues, got %#v", out)
	}

	if out := decodeOutcome(t, f.do(t, http.MethodPost, "/api/transcribe", `{"inputPath":"/in.mp4"}`)); out.SRT != "" {
		t.Fatalf("srt must be opt-in, got %q", out.SRT)
	}
}

func TestWorkflowErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		kind services.Kind
		want int
	}{
		{services.KindValidation, http.StatusBadRequest},
		{services.KindFormatValidation, http.StatusUnprocessableEntity},
		{services.KindProcessExecution, http.StatusInternalServerError},
		{services.KindCanceled, http.StatusRequestTimeout},
	}
	for _, tc := range cases {
		f := newFixture(t, "")
		f.workflows.err = services.New(tc.kind, "pipeline.test", "failed")
		w := f.do(t, http.MethodPost, "/api/transcribe", `{"inputPath":"/in.mp4"}`)
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.kind, tc.want, w.Code)
		}
		out := decodeOutcome(t, w)
		if out.ErrorKind != string(tc.kind) || out.Text != "" {
			t.Fatalf("%s: unexpected outcome %#v", tc.kind, out)
		}
	}
}

func TestMalformedBodyIsRejected(t *testing.T) {
	f := newFixture(t, "")
	for _, body := range []string{`{`, `{"url":"x","extra":1}`} {
		w := f.do(t, http.MethodPost, "/api/acquire", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
	}
	if f.workflows.acquire.URL != "" {
		t.Fatal("workflow must not run on malformed input")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(t, http.MethodGet, "/api/history?workflow=trim&status=succeeded&limit=5", "")
	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].ID != "r1" {
		t.Fatalf("unexpected runs %#v", resp.Runs)
	}
	if f.history.filter != (history.Filter{Workflow: "trim", Status: history.StatusSucceeded, Limit: 5}) {
		t.Fatalf("unexpected filter %#v", f.history.filter)
	}

	if w := f.do(t, http.MethodGet, "/api/history?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestMethodMismatchIsRejected(t *testing.T) {
	f := newFixture(t, "")
	if w := f.do(t, http.MethodGet, "/api/acquire", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t, "secret")

	if w := f.do(t, http.MethodGet, "/api/models", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}

	if w := f.do(t, http.MethodGet, "/api/models?token=secret", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", w.Code)
	}
}

func TestEventStreamPushesBusEvents(t *testing.T) {
	f := newFixture(t, "")
	ts := httptest.NewServer(f.server.Handler())
	t.Cleanup(ts.Close)

	f.bus.Publish(events.Event{RunID: "other", Type: events.TypeStage, Stage: "download"})
	f.bus.Publish(events.Event{RunID: "r1", Type: events.TypeStage, Stage: "transcode"})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events?run=r1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first events.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.RunID != "r1" || first.Stage != "transcode" {
		t.Fatalf("unexpected first event %#v", first)
	}

	f.bus.Publish(events.Event{RunID: "r1", Type: events.TypeResult, OutputPath: "/out/clip.mp4"})
	var second events.Event
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second.Type != events.TypeResult || second.Seq <= first.Seq {
		t.Fatalf("unexpected second event %#v", second)
	}
}

func TestServerStartAndStop(t *testing.T) {
	f := newFixture(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.server.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := f.server.Addr()
	if addr == "" {
		t.Fatal("expected bound address")
	}
	resp, err := http.Post("http://"+addr+"/api/acquire", "application/json", bytes.NewBufferString(`{"url":"https://example.com/v"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	f.server.Stop()
}
