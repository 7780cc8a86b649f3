package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	checkapp "github.com/khanhnv2901/wisafe/internal/application/check"
	"github.com/khanhnv2901/wisafe/internal/auth"
	"github.com/khanhnv2901/wisafe/internal/checker"
	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/domain/scan"
	"github.com/khanhnv2901/wisafe/internal/scanner"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"go.uber.org/zap/zaptest"
)

type fakeScans struct {
	records []network.Record
}

func (f *fakeScans) UserScan(context.Context) ([]network.UserRecord, error) {
	return scanner.UserRecords(f.records), nil
}

func (f *fakeScans) ExpertScan(_ context.Context, operator string) (*scan.Scan, string, error) {
	sc, err := scan.NewScan(operator, f.records)
	return sc, "", err
}

func (f *fakeScans) History(context.Context, int) ([]scan.Summary, error) {
	return []scan.Summary{}, nil
}

func (f *fakeScans) GetScan(_ context.Context, id string) (*scan.Scan, error) {
	if id != "scan_1" {
		return nil, sharedErrors.ErrScanNotFound
	}
	return scan.Reconstruct(id, "expert", time.Now(), f.records), nil
}

func (f *fakeScans) Guide(audience string) (scanner.Guide, error) {
	if audience == "bogus" {
		return nil, sharedErrors.ErrInvalidInput
	}
	return scanner.Guide{network.LevelSafe: {Title: "Safe"}}, nil
}

type fakeChecks struct {
	cancelled string
}

func (f *fakeChecks) SecurityCheck(_ context.Context, req checkapp.CheckRequest) (checkapp.CheckOutcome, error) {
	if req.Protocol == "" {
		return checkapp.CheckOutcome{}, sharedErrors.ErrMissingProtocol
	}
	if req.Record.IsRealScan {
		return checkapp.CheckOutcome{JobID: "crack_1"}, nil
	}
	v, err := checker.Evaluate(req.Protocol, time.Now())
	if err != nil {
		return checkapp.CheckOutcome{}, err
	}
	return checkapp.CheckOutcome{Verdict: &v}, nil
}

func (f *fakeChecks) Progress(id string) (job.Progress, *job.Result, error) {
	if id != "crack_1" {
		return job.Progress{Status: job.StatusNotFound}, nil, sharedErrors.ErrJobNotFound
	}
	return job.Progress{Status: job.StatusCompleted, Progress: 100}, &job.Result{Success: true, Password: "letmein"}, nil
}

func (f *fakeChecks) Cancel(id string) error {
	f.cancelled = id
	return nil
}

func (f *fakeChecks) Krack(_ context.Context, rec network.Record, ssid string) (checker.KrackResult, error) {
	return checker.KrackResult{Vulnerable: true, SSID: ssid, BSSID: rec.BSSID}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeChecks) {
	t.Helper()
	creds, err := auth.NewCredentials("expert", "", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	issuer, err := auth.NewIssuer("0123456789abcdef0123456789abcdef", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	checks := &fakeChecks{}
	records := []network.Record{
		{SSID: "Free_WiFi", BSSID: "00:11:22:33:44:55", Protocol: network.ProtocolOpen},
		{SSID: "Office", BSSID: "00:11:22:33:44:58", Protocol: network.ProtocolWPA2},
	}
	network.NormalizeAll(records)
	jobs := NewJobManager(zaptest.NewLogger(t))
	t.Cleanup(jobs.Close)
	s := NewServer(Config{
		Scans:  &fakeScans{records: records},
		Checks: checks,
		Auth:   auth.NewManager(creds, issuer, nil),
		Jobs:   jobs,
		Logger: zaptest.NewLogger(t),
	})
	t.Cleanup(s.Close)
	return s, checks
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return out
}

func login(t *testing.T, s *Server) map[string]any {
	t.Helper()
	rr := do(t, s, http.MethodPost, "/expert/login", `{"username":"expert","password":"s3cret"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	return decode(t, rr)
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content-type, got %s", got)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestWriteErrorInternal(t *testing.T) {
	s := &Server{cfg: Config{Logger: zaptest.NewLogger(t)}}
	rr := httptest.NewRecorder()
	s.writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusInternalServerError, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal server error") || strings.Contains(rr.Body.String(), "boom") {
		t.Fatalf("expected sanitized message, got %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"success":false`) {
		t.Fatalf("expected success=false, got %s", rr.Body.String())
	}
}

func TestWriteErrorClient(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	s.writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusBadRequest, errors.New("bad input"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bad input") {
		t.Fatalf("expected original error message, got %s", rr.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		sharedErrors.ErrJobNotFound:         http.StatusNotFound,
		sharedErrors.ErrTokenRevoked:        http.StatusUnauthorized,
		sharedErrors.ErrOpenNetwork:         http.StatusBadRequest,
		sharedErrors.ErrUnsupportedProtocol: http.StatusBadRequest,
		sharedErrors.ErrScanUnavailable:     http.StatusServiceUnavailable,
		context.DeadlineExceeded:            http.StatusGatewayTimeout,
		errors.New("disk on fire"):          http.StatusInternalServerError,
	}
	for err, want := range cases {
		wrapped := errors.Join(errors.New("context"), err)
		if got := statusFor(wrapped); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestWriteStreamChunk(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	if !s.writeStreamChunk(rr, []byte("hello")) {
		t.Fatal("expected writeStreamChunk to succeed")
	}
	if rr.Body.String() != "hello" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if s.writeStreamChunk(&failingWriter{}, []byte("fail")) {
		t.Fatalf("expected writeStreamChunk to fail")
	}
}

func TestHealthAndMethods(t *testing.T) {
	s, _ := newTestServer(t)
	if rr := do(t, s, http.MethodGet, "/health", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := do(t, s, http.MethodDelete, "/health", "", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	rr := do(t, s, http.MethodGet, "/ready", "", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestUserScanIsPublic(t *testing.T) {
	s, _ := newTestServer(t)
	rr := do(t, s, http.MethodPost, "/api/scan", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["success"] != true || body["count"].(float64) != 2 {
		t.Fatalf("unexpected body: %v", body)
	}
	if strings.Contains(rr.Body.String(), "bssid") {
		t.Fatalf("user view must not expose bssid: %s", rr.Body.String())
	}
}

func TestExpertRoutesRequireAuth(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/api/expert/scan", "/api/expert/verify", "/api/expert/jobs", "/api/expert/cracking-progress?cracking_id=x"} {
		rr := do(t, s, http.MethodGet, path, "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rr.Code)
		}
	}
	rr := do(t, s, http.MethodGet, "/api/expert/verify", "", "not-a-token")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rr.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/expert/login", `{"username":"expert","password":"nope"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = do(t, s, http.MethodPost, "/expert/login", `{"username":"expert","password":"s3cret"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cookies := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		cookies[c.Name] = c
	}
	if c := cookies[auth.AccessCookie]; c == nil || !c.HttpOnly {
		t.Fatalf("expected HttpOnly access cookie, got %+v", c)
	}
	body := decode(t, rr)
	access := body["access_token"].(string)
	refresh := body["refresh_token"].(string)

	rr = do(t, s, http.MethodGet, "/api/expert/verify", "", access)
	if rr.Code != http.StatusOK || decode(t, rr)["username"] != "expert" {
		t.Fatalf("verify failed: %d %s", rr.Code, rr.Body.String())
	}

	// Cookie-based authentication
	req := httptest.NewRequest(http.MethodGet, "/api/expert/verify", nil)
	req.AddCookie(cookies[auth.AccessCookie])
	crr := httptest.NewRecorder()
	s.ServeHTTP(crr, req)
	if crr.Code != http.StatusOK {
		t.Fatalf("cookie auth failed: %d", crr.Code)
	}

	rr = do(t, s, http.MethodPost, "/api/expert/refresh", "", access)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("access token must not refresh, got %d", rr.Code)
	}
	rr = do(t, s, http.MethodPost, "/api/expert/refresh", "", refresh)
	if rr.Code != http.StatusOK || decode(t, rr)["access_token"] == "" {
		t.Fatalf("refresh failed: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, s, http.MethodPost, "/expert/logout", "", refresh)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout failed: %d", rr.Code)
	}
	rr = do(t, s, http.MethodPost, "/api/expert/refresh", "", refresh)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked refresh token accepted: %d", rr.Code)
	}
}

func TestSecurityCheck(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s)["access_token"].(string)

	rr := do(t, s, http.MethodPost, "/api/expert/security-check", `{"wifi_data":{"ssid":"Old"},"protocol":"WEP"}`, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	result := decode(t, rr)["result"].(map[string]any)
	if result["risk_level"] != "danger" {
		t.Fatalf("unexpected verdict: %v", result)
	}

	rr = do(t, s, http.MethodPost, "/api/expert/security-check", `{"wifi_data":{"ssid":"Lab","is_real_scan":true},"protocol":"WPA2"}`, token)
	if rr.Code != http.StatusOK || decode(t, rr)["cracking_id"] != "crack_1" {
		t.Fatalf("expected cracking id, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, s, http.MethodPost, "/api/expert/security-check", `{"wifi_data":{"ssid":"Free"},"protocol":"OPEN"}`, token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for open network, got %d", rr.Code)
	}
	rr = do(t, s, http.MethodPost, "/api/expert/security-check", `{"wifi_data":{"ssid":"x"}}`, token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing protocol, got %d", rr.Code)
	}
	rr = do(t, s, http.MethodPost, "/api/expert/security-check", `{not json`, token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", rr.Code)
	}
}

func TestCrackingProgressAndCancel(t *testing.T) {
	s, checks := newTestServer(t)
	token := login(t, s)["access_token"].(string)

	rr := do(t, s, http.MethodGet, "/api/expert/cracking-progress?cracking_id=crack_1", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decode(t, rr)
	if body["progress"].(map[string]any)["status"] != "completed" || body["result"].(map[string]any)["password"] != "letmein" {
		t.Fatalf("unexpected body: %v", body)
	}

	rr = do(t, s, http.MethodGet, "/api/expert/cracking-progress?cracking_id=missing", "", token)
	if rr.Code != http.StatusNotFound || decode(t, rr)["success"] != false {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr = do(t, s, http.MethodGet, "/api/expert/cracking-progress", "", token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", rr.Code)
	}

	rr = do(t, s, http.MethodPost, "/api/expert/cracking-cancel", `{"cracking_id":"crack_1"}`, token)
	if rr.Code != http.StatusOK || checks.cancelled != "crack_1" {
		t.Fatalf("cancel failed: %d %q", rr.Code, checks.cancelled)
	}
}

func TestKrackCheck(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s)["access_token"].(string)

	rr := do(t, s, http.MethodPost, "/api/expert/krack-check", `{"wifi_data":{"bssid":"aa:bb:cc:dd:ee:ff","protocol":"WPA2"},"ssid":"Lab"}`, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	result := decode(t, rr)["result"].(map[string]any)
	if result["vulnerable"] != true || result["ssid"] != "Lab" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestGuideAndJobs(t *testing.T) {
	s, _ := newTestServer(t)
	rr := do(t, s, http.MethodGet, "/api/guide?audience=expert", "", "")
	if rr.Code != http.StatusOK || decode(t, rr)["audience"] != "expert" {
		t.Fatalf("guide failed: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, s, http.MethodGet, "/api/guide?audience=bogus", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	token := login(t, s)["access_token"].(string)
	rr = do(t, s, http.MethodGet, "/api/expert/jobs?limit=5", "", token)
	if rr.Code != http.StatusOK || decode(t, rr)["count"].(float64) != 0 {
		t.Fatalf("jobs failed: %d %s", rr.Code, rr.Body.String())
	}
}

func TestScanHistoryDetail(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s)["access_token"].(string)

	rr := do(t, s, http.MethodGet, "/api/expert/scans?id=scan_1", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if len(body["wifi_list"].([]any)) != 2 {
		t.Fatalf("expected stored records, got %v", body["wifi_list"])
	}
	if body["scan"].(map[string]any)["open_count"].(float64) != 1 {
		t.Fatalf("unexpected summary: %v", body["scan"])
	}

	rr = do(t, s, http.MethodGet, "/api/expert/scans?id=missing", "", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.RateLimit = 1
	s.cfg.RateBurst = 1

	if rr := do(t, s, http.MethodGet, "/health", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}
	rr := do(t, s, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID on the rate-limited response")
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.CORSOrigins = []string{"http://allowed.example"}

	req := httptest.NewRequest(http.MethodOptions, "/api/scan", nil)
	req.Header.Set("Origin", "http://allowed.example")
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "http://allowed.example" {
		t.Fatalf("unexpected preflight response: %d %v", rr.Code, rr.Header())
	}

	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unexpected CORS header for disallowed origin")
	}
}

type failingWriter struct{}

func (f *failingWriter) Header() http.Header { return http.Header{} }
func (f *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}
func (f *failingWriter) WriteHeader(statusCode int) {}

func TestJobStream(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s)["access_token"].(string)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/expert/jobs-stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	jobs := s.cfg.Jobs.(*JobManager)
	deadline := time.Now().Add(2 * time.Second)
	for {
		jobs.mu.RLock()
		n := len(jobs.subscribers)
		jobs.mu.RUnlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	created, _ := jobs.Create("crack", job.Target{SSID: "Office", BSSID: "00:11:22:33:44:58"})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || line != "event: job\n" {
		t.Fatalf("unexpected event line %q: %v", line, err)
	}
	line, err = reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "data: ") || !strings.Contains(line, created.ID) {
		t.Fatalf("unexpected data line %q: %v", line, err)
	}
}
