package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/service/activity"
	"github.com/YeJunlin777/yachts-system/internal/service/analytics"
	"github.com/YeJunlin777/yachts-system/internal/service/auth"
	"github.com/YeJunlin777/yachts-system/internal/service/customers"
	"github.com/YeJunlin777/yachts-system/internal/service/orders"
	"github.com/YeJunlin777/yachts-system/internal/service/users"
	"github.com/YeJunlin777/yachts-system/internal/store"
	"github.com/YeJunlin777/yachts-system/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	auth      auth.Service
	users     users.Service
	customers customers.Service
	orders    orders.Service
	activity  activity.Service
	analytics analytics.Service
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	limiter   RateLimiter
	kvHealth  func(context.Context) error
	heartbeat time.Duration

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitLogin     = 12
	rateLimitWrite     = 60
	rateLimitRead      = 120
	rateLimitStream    = 30
	healthCheckTimeout = 2 * time.Second
	dateOnlyLayout     = "2006-01-02"
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, userSvc users.Service, customerSvc customers.Service, orderSvc orders.Service, activitySvc activity.Service, analyticsSvc analytics.Service, hub *ws.Hub, limiter RateLimiter, heartbeat time.Duration, kvHealth func(context.Context) error) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		auth:      authSvc,
		users:     userSvc,
		customers: customerSvc,
		orders:    orderSvc,
		activity:  activitySvc,
		analytics: analyticsSvc,
		hub:       hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:   limiter,
		kvHealth:  kvHealth,
		heartbeat: heartbeat,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.heartbeat <= 0 {
		r.heartbeat = 25 * time.Second
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.HandleFunc("/metrics", promhttp.Handler().ServeHTTP)
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/auth/logout", r.audit("/auth/logout", r.requireAuth(r.handleLogout)))
	r.mux.HandleFunc("/auth/session", r.audit("/auth/session", r.handleSession))
	r.mux.HandleFunc("/auth/change-password", r.audit("/auth/change-password", r.handlerAuthRate("/auth/change-password", rateLimitWrite, rateWindowDefault, r.handleChangePassword)))
	r.mux.HandleFunc("/users", r.audit("/users", r.handlerAuthRate("/users", rateLimitWrite, rateWindowDefault, r.handleUsers)))
	r.mux.HandleFunc("/users/", r.audit("/users/{id}", r.handlerAuthRate("/users/{id}", rateLimitWrite, rateWindowDefault, r.handleUserByID)))
	r.mux.HandleFunc("/customers", r.audit("/customers", r.handlerAuthRate("/customers", rateLimitRead, rateWindowDefault, r.handleCustomers)))
	r.mux.HandleFunc("/orders", r.audit("/orders", r.handlerAuthRate("/orders", rateLimitRead, rateWindowDefault, r.handleOrders)))
	r.mux.HandleFunc("/orders/", r.audit("/orders/{id}", r.handlerAuthRate("/orders/{id}", rateLimitWrite, rateWindowDefault, r.handleOrderSubroutes)))
	r.mux.HandleFunc("/activity", r.audit("/activity", r.handlerAuthRate("/activity", rateLimitRead, rateWindowDefault, r.handleActivity)))
	r.mux.HandleFunc("/analytics/", r.audit("/analytics", r.handlerAuthRate("/analytics", rateLimitRead, rateWindowDefault, r.handleAnalytics)))
	r.mux.HandleFunc("/ws/events", r.audit("/ws/events", r.handlerAuthRate("/ws/events", rateLimitStream, rateWindowRealtime, r.handleEventsWS)))
	r.mux.HandleFunc("/events", r.audit("/events", r.handlerAuthRate("/events", rateLimitStream, rateWindowRealtime, r.handleEventsSSE)))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Account  string `json:"account"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := r.auth.Login(req.Context(), payload.Account, payload.Password, clientIP(req))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	r.auth.Logout(req.Context(), clientIP(req))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, r.auth.Current())
}

func (r *Router) handleChangePassword(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Account         string `json:"account"`
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Account == "" {
		if info, ok := authInfoFromContext(req.Context()); ok {
			payload.Account = info.Account
		}
	}
	if err := r.auth.ChangePassword(req.Context(), payload.Account, payload.OldPassword, payload.NewPassword, payload.ConfirmPassword, clientIP(req)); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (r *Router) handleUsers(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, r.users.List(req.Context()))
	case http.MethodPost:
		var payload users.CreateInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := r.users.Create(req.Context(), payload, r.actor(req))
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleUserByID(w http.ResponseWriter, req *http.Request) {
	id := strings.TrimPrefix(req.URL.Path, "/users/")
	if id == "" || strings.Contains(id, "/") {
		r.notFound(w)
		return
	}
	switch req.Method {
	case http.MethodPut:
		var payload users.UpdateInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := r.users.Update(req.Context(), id, payload, r.actor(req))
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := r.users.Delete(req.Context(), id, r.actor(req)); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleCustomers(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	query := req.URL.Query()
	filter := customers.Filter{
		Region:  domain.Region(query.Get("region")),
		Gender:  query.Get("gender"),
		Auditor: query.Get("auditor"),
		Keyword: query.Get("keyword"),
		SortBy:  query.Get("sortBy"),
		Asc:     query.Get("order") == "asc",
	}
	var err error
	if filter.From, filter.To, err = dateRange(query.Get("from"), query.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := r.customers.List(req.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (r *Router) handleOrders(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	query := req.URL.Query()
	filter := orders.Filter{
		Region:  domain.Region(query.Get("region")),
		Status:  domain.OrderStatus(query.Get("status")),
		Keyword: query.Get("keyword"),
	}
	var err error
	if filter.From, filter.To, err = dateRange(query.Get("from"), query.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, r.orders.List(req.Context(), filter))
}

func (r *Router) handleOrderSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/orders/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" {
		r.notFound(w)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "order id must be numeric")
		return
	}
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	switch parts[1] {
	case "approve":
		order, err := r.orders.Approve(req.Context(), id, r.actor(req))
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, order)
	case "refund":
		order, err := r.orders.MarkRefunding(req.Context(), id, r.actor(req))
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, order)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleActivity(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	query := req.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	filter := activity.Filter{
		Module:   query.Get("module"),
		Result:   domain.ActivityResult(query.Get("result")),
		Operator: query.Get("operator"),
		Limit:    limit,
	}
	writeJSON(w, http.StatusOK, r.activity.List(req.Context(), filter))
}

func (r *Router) handleAnalytics(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	switch strings.TrimPrefix(req.URL.Path, "/analytics/") {
	case "summary":
		writeJSON(w, http.StatusOK, r.analytics.Summary(req.Context()))
	case "orders/monthly":
		writeJSON(w, http.StatusOK, r.analytics.OrderMonthly(req.Context()))
	case "customers/monthly":
		writeJSON(w, http.StatusOK, r.analytics.CustomerMonthly(req.Context()))
	case "revenue/monthly":
		writeJSON(w, http.StatusOK, r.analytics.RevenueMonthly(req.Context()))
	case "revenue/by-service":
		writeJSON(w, http.StatusOK, r.analytics.RevenueByService(req.Context()))
	case "revenue/forecast":
		months, _ := strconv.Atoi(req.URL.Query().Get("months"))
		if months <= 0 {
			months = 3
		}
		writeJSON(w, http.StatusOK, r.analytics.RevenueForecast(req.Context(), months))
	default:
		r.notFound(w)
	}
}

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	topic := req.URL.Query().Get("topic")
	if topic == "" {
		writeError(w, http.StatusBadRequest, "topic query parameter required")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(topic, client)
	go func() {
		defer func() {
			r.hub.Unregister(topic, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleEventsSSE(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	topic := req.URL.Query().Get("topic")
	if topic == "" {
		writeError(w, http.StatusBadRequest, "topic query parameter required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(topic, client)
	defer func() {
		r.hub.Unregister(topic, client)
		client.Close()
	}()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.kvHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.kvHealth(ctx); err != nil {
			status = "degraded"
			components["storage"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["storage"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// actor resolves the display identity for operation log entries.
func (r *Router) actor(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.Account != "" {
		return info.Account
	}
	return "anonymous"
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateAccount),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrCannotDeleteSelf),
		errors.Is(err, store.ErrOrderNotPending),
		errors.Is(err, store.ErrOrderNotRefundable):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidCredentials),
		errors.Is(err, store.ErrWrongOldPassword):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func dateRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	if from != "" {
		parsed, err := time.Parse(dateOnlyLayout, from)
		if err != nil {
			return start, end, fmt.Errorf("invalid from date %q", from)
		}
		start = parsed
	}
	if to != "" {
		parsed, err := time.Parse(dateOnlyLayout, to)
		if err != nil {
			return start, end, fmt.Errorf("invalid to date %q", to)
		}
		// Inclusive through the end of the named day.
		end = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, nil
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID, "account", info.Account)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
