package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/wisafe/internal/api/middleware"
	checkapp "github.com/khanhnv2901/wisafe/internal/application/check"
	"github.com/khanhnv2901/wisafe/internal/auth"
	"github.com/khanhnv2901/wisafe/internal/checker"
	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/domain/scan"
	"github.com/khanhnv2901/wisafe/internal/scanner"
	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

var errAuthUnavailable = errors.New("authentication not configured")

type ScanService interface {
	UserScan(ctx context.Context) ([]network.UserRecord, error)
	ExpertScan(ctx context.Context, operator string) (*scan.Scan, string, error)
	History(ctx context.Context, limit int) ([]scan.Summary, error)
	GetScan(ctx context.Context, id string) (*scan.Scan, error)
	Guide(audience string) (scanner.Guide, error)
}

type CheckService interface {
	SecurityCheck(ctx context.Context, req checkapp.CheckRequest) (checkapp.CheckOutcome, error)
	Progress(id string) (job.Progress, *job.Result, error)
	Cancel(id string) error
	Krack(ctx context.Context, rec network.Record, ssid string) (checker.KrackResult, error)
}

type AuthService interface {
	Login(username, password string) (auth.TokenPair, error)
	Refresh(refreshToken string) (string, error)
	Authenticate(accessToken string) (string, error)
	Logout(refreshToken string)
}

type JobService interface {
	ListJobs(limit int) []job.Job
	Subscribe() (chan job.Job, func())
}

type HealthService interface {
	Check(ctx context.Context) error
	Ready(ctx context.Context) error
}

// LoginRecorder counts login attempts.
type LoginRecorder interface {
	Login(success bool)
}

type Config struct {
	Scans         ScanService
	Checks        CheckService
	Auth          AuthService
	Jobs          JobService
	Health        HealthService
	Metrics       http.Handler
	Logins        LoginRecorder
	Logger        *zap.Logger
	CORSOrigins   []string // Allowed CORS origins (empty = allow all)
	RateLimit     int      // Requests per second per IP (0 = disabled)
	RateBurst     int      // Burst size for rate limiter
	SecureCookies bool     // Mark session cookies Secure
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	limiters *rateLimiterMap
}

func NewServer(cfg Config) *Server {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = constants.AccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = constants.RefreshTokenTTL
	}
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Middleware chain: RequestID -> Logging -> RateLimit -> CORS -> mux; auth wraps individual routes
	handler := middleware.RequestID(s.withLogging(s.withRateLimit(s.withCORS(s.mux))))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Public routes
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.HandleFunc("/api/scan", s.handleUserScan)
	s.mux.HandleFunc("/api/guide", s.handleGuide)
	s.mux.HandleFunc("/expert/login", s.handleLogin)
	s.mux.HandleFunc("/expert/logout", s.handleLogout)
	s.mux.HandleFunc("/api/expert/refresh", s.handleRefresh)
	if s.cfg.Metrics != nil {
		s.mux.Handle("/metrics", s.cfg.Metrics)
	}

	// Expert routes
	s.mux.Handle("/api/expert/verify", s.withAuth(http.HandlerFunc(s.handleVerify)))
	s.mux.Handle("/api/expert/scan", s.withAuth(http.HandlerFunc(s.handleExpertScan)))
	s.mux.Handle("/api/expert/scans", s.withAuth(http.HandlerFunc(s.handleScanHistory)))
	s.mux.Handle("/api/expert/security-check", s.withAuth(http.HandlerFunc(s.handleSecurityCheck)))
	s.mux.Handle("/api/expert/cracking-progress", s.withAuth(http.HandlerFunc(s.handleCrackingProgress)))
	s.mux.Handle("/api/expert/cracking-cancel", s.withAuth(http.HandlerFunc(s.handleCrackingCancel)))
	s.mux.Handle("/api/expert/krack-check", s.withAuth(http.HandlerFunc(s.handleKrackCheck)))
	s.mux.Handle("/api/expert/jobs", s.withAuth(http.HandlerFunc(s.handleJobs)))
	s.mux.Handle("/api/expert/jobs-stream", s.withAuth(http.HandlerFunc(s.handleJobStream)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Check(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Ready(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleUserScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	records, err := s.cfg.Scans.UserScan(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"wifi_list": records,
		"count":     len(records),
	})
}

func (s *Server) handleExpertScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	sc, warning, err := s.cfg.Scans.ExpertScan(r.Context(), middleware.GetOperator(r.Context()))
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	records := sc.Records()
	resp := map[string]any{
		"success":   true,
		"scan_id":   sc.ID(),
		"wifi_list": records,
		"count":     len(records),
	}
	if warning != "" {
		resp["warning"] = warning
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScanHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		sc, err := s.cfg.Scans.GetScan(r.Context(), id)
		if err != nil {
			s.writeError(w, r, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"scan":      sc.Summarize(),
			"wifi_list": sc.Records(),
		})
		return
	}
	scans, err := s.cfg.Scans.History(r.Context(), queryLimit(r, 0))
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "scans": scans, "count": len(scans)})
}

func (s *Server) handleGuide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	audience := r.URL.Query().Get("audience")
	guide, err := s.cfg.Scans.Guide(audience)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if audience == "" {
		audience = string(scanner.AudienceUser)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "audience": audience, "guide": guide})
}

type securityCheckRequest struct {
	WifiData network.Record `json:"wifi_data"`
	Protocol string         `json:"protocol"`
}

func (s *Server) handleSecurityCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req securityCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	out, err := s.cfg.Checks.SecurityCheck(r.Context(), checkapp.CheckRequest{
		Record:   req.WifiData,
		Protocol: req.Protocol,
	})
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if out.JobID != "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "cracking_id": out.JobID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": out.Verdict})
}

func (s *Server) handleCrackingProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	id := r.URL.Query().Get("cracking_id")
	if id == "" {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: cracking_id", sharedErrors.ErrMissingRequired))
		return
	}
	progress, result, err := s.cfg.Checks.Progress(id)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	resp := map[string]any{"success": true, "progress": progress}
	if result != nil {
		resp["result"] = result
	}
	writeJSON(w, http.StatusOK, resp)
}

type cancelRequest struct {
	CrackingID string `json:"cracking_id"`
}

func (s *Server) handleCrackingCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req cancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.CrackingID == "" {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: cracking_id", sharedErrors.ErrMissingRequired))
		return
	}
	if err := s.cfg.Checks.Cancel(req.CrackingID); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cracking_id": req.CrackingID})
}

type krackRequest struct {
	WifiData network.Record `json:"wifi_data"`
	SSID     string         `json:"ssid"`
}

func (s *Server) handleKrackCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req krackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	result, err := s.cfg.Checks.Krack(r.Context(), req.WifiData, req.SSID)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Auth == nil {
		s.writeError(w, r, http.StatusNotFound, errAuthUnavailable)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	pair, err := s.cfg.Auth.Login(req.Username, req.Password)
	if s.cfg.Logins != nil {
		s.cfg.Logins.Login(err == nil)
	}
	if err != nil {
		s.requestLogger(r).Warn("login_failed", zap.String("username", req.Username))
		s.writeError(w, r, statusFor(err), err)
		return
	}

	s.setCookie(w, auth.AccessCookie, pair.AccessToken, s.cfg.AccessTTL)
	s.setCookie(w, auth.RefreshCookie, pair.RefreshToken, s.cfg.RefreshTTL)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Auth == nil {
		s.writeError(w, r, http.StatusNotFound, errAuthUnavailable)
		return
	}
	access, err := s.cfg.Auth.Refresh(auth.TokenFromRequest(r, auth.RefreshCookie))
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.setCookie(w, auth.AccessCookie, access, s.cfg.AccessTTL)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "access_token": access})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "username": middleware.GetOperator(r.Context())})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Auth == nil {
		s.writeError(w, r, http.StatusNotFound, errAuthUnavailable)
		return
	}
	s.cfg.Auth.Logout(auth.TokenFromRequest(r, auth.RefreshCookie))
	s.setCookie(w, auth.AccessCookie, "", -1)
	s.setCookie(w, auth.RefreshCookie, "", -1)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	jobs := s.cfg.Jobs.ListJobs(queryLimit(r, 25))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, unsubscribe := s.cfg.Jobs.Subscribe()
	defer unsubscribe()
	ctx := r.Context()
	for {
		select {
		case j, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(j)
			if err != nil {
				s.requestLogger(r).Error("failed to marshal job", zap.Error(err))
				continue
			}
			if !s.writeStreamChunk(w, []byte("event: job\ndata: ")) {
				return
			}
			if !s.writeStreamChunk(w, payload) {
				return
			}
			if !s.writeStreamChunk(w, []byte("\n\n")) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip rate limiting if disabled
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientAddr(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded",
				zap.String("client_ip", clientIP),
			)
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddr returns the caller IP, preferring the first X-Forwarded-For hop.
func clientAddr(r *http.Request) string {
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			clientIP = strings.TrimSpace(forwarded[:idx])
		} else {
			clientIP = strings.TrimSpace(forwarded)
		}
	}
	if idx := strings.LastIndex(clientIP, ":"); idx > 0 && !strings.HasSuffix(clientIP, "]") {
		clientIP = clientIP[:idx]
	}
	return clientIP
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowedOrigin := range s.cfg.CORSOrigins {
				if allowedOrigin == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
			if allowOrigin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		if s.cfg.Logger != nil {
			s.cfg.Logger.Info("http_request",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", lrw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int64("bytes", lrw.bytesWritten),
			)
		}
	})
}

// withAuth requires a valid access token from the Authorization header or the
// access cookie and stores the operator in the request context.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Auth == nil {
			s.writeError(w, r, http.StatusUnauthorized, errAuthUnavailable)
			return
		}
		operator, err := s.cfg.Auth.Authenticate(auth.TokenFromRequest(r, auth.AccessCookie))
		if err != nil {
			s.writeError(w, r, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithOperator(r.Context(), operator)))
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

// Flush lets the job stream pass through the logging wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", sharedErrors.ErrInvalidInput, err)
	}
	return nil
}

func queryLimit(r *http.Request, def int) int {
	if q := r.URL.Query().Get("limit"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrJobNotFound),
		errors.Is(err, sharedErrors.ErrScanNotFound),
		errors.Is(err, sharedErrors.ErrNetworkNotFound):
		return http.StatusNotFound
	case errors.Is(err, sharedErrors.ErrInvalidCredentials),
		errors.Is(err, sharedErrors.ErrTokenMissing),
		errors.Is(err, sharedErrors.ErrTokenInvalid),
		errors.Is(err, sharedErrors.ErrTokenRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, sharedErrors.ErrInvalidInput),
		errors.Is(err, sharedErrors.ErrValidation),
		errors.Is(err, sharedErrors.ErrMissingRequired),
		errors.Is(err, sharedErrors.ErrMissingProtocol),
		errors.Is(err, sharedErrors.ErrOpenNetwork),
		errors.Is(err, sharedErrors.ErrUnsupportedProtocol),
		errors.Is(err, sharedErrors.ErrNotWPA2):
		return http.StatusBadRequest
	case errors.Is(err, sharedErrors.ErrScannerMissing),
		errors.Is(err, sharedErrors.ErrScanUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// For 5xx errors, return generic message and log details server-side
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}

	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		}
		return false
	}
	return true
}

// Close stops background goroutines owned by the server
func (s *Server) Close() {
	s.limiters.close()
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[ip]
	if !exists {
		if burst <= 0 {
			burst = rps
		}
		limiter = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter.limiter
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			for ip, limiter := range m.limiters {
				if time.Since(limiter.lastSeen) > 5*time.Minute {
					delete(m.limiters, ip)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *rateLimiterMap) close() {
	m.once.Do(func() { close(m.done) })
}
