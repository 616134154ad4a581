package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/sangukO/haru-word/internal/auth"
	"github.com/sangukO/haru-word/internal/domain"
	"github.com/sangukO/haru-word/internal/logging"
	"github.com/sangukO/haru-word/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxWords          = 5

	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"

	messageNotFound         = "요청한 경로를 찾을 수 없습니다."
	messageMethodNotAllowed = "허용되지 않은 요청 방식입니다."
)

type SentenceGenerator interface {
	Generate(ctx context.Context, in usecase.GenerateInput) (usecase.GenerateOutput, error)
	Usage(ctx context.Context) (usecase.UsageOutput, error)
}

type HistoryLister interface {
	History(ctx context.Context, limit int) ([]domain.UsageLogEntry, error)
}

type ActivityTracker interface {
	RecordVisit(ctx context.Context) (string, error)
	Activity(ctx context.Context, year int) ([]domain.ActivityDay, error)
}

// Services groups the use cases served over HTTP.
type Services struct {
	Sentences SentenceGenerator
	History   HistoryLister
	Activity  ActivityTracker
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithLocation sets the zone used to pick the default activity year.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.location = loc
		}
	}
}

// Handler serves API Gateway proxy requests.
type Handler struct {
	svc      Services
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
	routes   map[string]map[string]routeFunc
}

type routeFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (any, error)

type generateRequest struct {
	Words []domain.TargetWord `json:"words"`
}

type visitResponse struct {
	VisitDate string `json:"visitDate"`
}

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewHandler(svc Services, opts ...Option) (*Handler, error) {
	if svc.Sentences == nil {
		return nil, errors.New("handler: sentence service must not be nil")
	}
	if svc.History == nil {
		return nil, errors.New("handler: history service must not be nil")
	}
	if svc.Activity == nil {
		return nil, errors.New("handler: activity service must not be nil")
	}
	h := &Handler{
		svc:      svc,
		logger:   slog.Default(),
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes = map[string]map[string]routeFunc{
		"/ai/sentences": {http.MethodPost: h.generate},
		"/ai/usage":     {http.MethodGet: h.usage},
		"/ai/history":   {http.MethodGet: h.history},
		"/visits":       {http.MethodPost: h.recordVisit},
		"/activity":     {http.MethodGet: h.activity},
	}
	return h, nil
}

// Handle routes one request. Failures are rendered into the response; the
// returned error is always nil so Lambda never retries a request.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	path := normalizePath(req.Path)
	log := h.logger.With("correlation_id", correlationID, "method", req.HTTPMethod, "path", path)

	userID := auth.ClaimsUserID(req.RequestContext.Authorizer)
	ctx = auth.WithUserID(ctx, userID)
	ctx = logging.WithLogger(ctx, log)

	resp := h.dispatch(ctx, log, path, req)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["Content-Type"] = "application/json; charset=utf-8"
	resp.Headers[correlationHeader] = correlationID

	log.Info("request completed",
		"status", resp.StatusCode,
		"authenticated", userID != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (h *Handler) dispatch(ctx context.Context, log *slog.Logger, path string, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	methods, ok := h.routes[path]
	if !ok {
		return jsonResponse(http.StatusNotFound, errorResponse{Message: messageNotFound, Error: codeNotFound})
	}
	route, ok := methods[strings.ToUpper(req.HTTPMethod)]
	if !ok {
		resp := jsonResponse(http.StatusMethodNotAllowed, errorResponse{Message: messageMethodNotAllowed, Error: codeMethodNotAllowed})
		resp.Headers["Allow"] = allowedMethods(methods)
		return resp
	}

	data, err := route(ctx, req)
	if err != nil {
		return h.renderError(ctx, log, err)
	}
	return jsonResponse(http.StatusOK, successResponse{Success: true, Data: data})
}

func (h *Handler) generate(ctx context.Context, req events.APIGatewayProxyRequest) (any, error) {
	// Anonymous callers are rejected before the body is looked at.
	if _, ok := auth.UserID(ctx); !ok {
		return nil, &usecase.Error{Code: usecase.ErrorUnauthenticated, Reason: "missing_identity"}
	}
	body, err := requestBody(req)
	if err != nil {
		return nil, invalidInput("invalid_body_encoding", err)
	}
	var in generateRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, invalidInput("invalid_json", err)
	}
	words, err := validateWords(in.Words)
	if err != nil {
		return nil, err
	}

	out, err := h.svc.Sentences.Generate(ctx, usecase.GenerateInput{Words: words})
	if err != nil {
		return nil, err
	}
	return out.Sentence, nil
}

func (h *Handler) usage(ctx context.Context, _ events.APIGatewayProxyRequest) (any, error) {
	return h.svc.Sentences.Usage(ctx)
}

func (h *Handler) history(ctx context.Context, req events.APIGatewayProxyRequest) (any, error) {
	limit := 0
	if raw := strings.TrimSpace(req.QueryStringParameters["limit"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, invalidInput("invalid_limit", err)
		}
		limit = n
	}
	return h.svc.History.History(ctx, limit)
}

func (h *Handler) recordVisit(ctx context.Context, _ events.APIGatewayProxyRequest) (any, error) {
	date, err := h.svc.Activity.RecordVisit(ctx)
	if err != nil {
		return nil, err
	}
	return visitResponse{VisitDate: date}, nil
}

func (h *Handler) activity(ctx context.Context, req events.APIGatewayProxyRequest) (any, error) {
	year := h.now().In(h.location).Year()
	if raw := strings.TrimSpace(req.QueryStringParameters["year"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalidInput("invalid_year", err)
		}
		year = n
	}
	return h.svc.Activity.Activity(ctx, year)
}

// validateWords enforces the request contract: one to five words, each with
// a positive id and non-blank word and meaning.
func validateWords(words []domain.TargetWord) ([]domain.TargetWord, error) {
	if len(words) == 0 {
		return nil, invalidInput("no_words", nil)
	}
	if len(words) > maxWords {
		return nil, invalidInput("too_many_words", nil)
	}
	out := make([]domain.TargetWord, 0, len(words))
	for _, w := range words {
		w.Word = strings.TrimSpace(w.Word)
		w.Meaning = strings.TrimSpace(w.Meaning)
		if w.ID <= 0 {
			return nil, invalidInput("invalid_word_id", nil)
		}
		if w.Word == "" || w.Meaning == "" {
			return nil, invalidInput("empty_word", nil)
		}
		out = append(out, w)
	}
	return out, nil
}

func invalidInput(reason string, err error) error {
	return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: reason, Err: err}
}

// renderError is the one place a surfaced failure is logged.
func (h *Handler) renderError(ctx context.Context, log *slog.Logger, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		log.Error("unexpected handler error", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{
			Message: usecase.MessageInternal,
			Error:   string(usecase.ErrorInternal),
		})
	}

	status := statusFor(ucErr.Code)
	attrs := []any{"code", string(ucErr.Code), "reason", ucErr.Reason, "status", status}
	if userID, ok := auth.UserID(ctx); ok {
		attrs = append(attrs, "user_id", userID)
	}
	if ucErr.Err != nil {
		attrs = append(attrs, "err", ucErr.Err)
	}
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", attrs...)
	case status == http.StatusTooManyRequests:
		log.Info("request rejected", attrs...)
	default:
		log.Warn("request rejected", attrs...)
	}
	return jsonResponse(status, errorResponse{Message: ucErr.UserMessage(), Error: string(ucErr.Code)})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorUnauthenticated:
		return http.StatusUnauthorized
	case usecase.ErrorQuotaExceeded:
		return http.StatusTooManyRequests
	case usecase.ErrorQuotaCheckFailed:
		return http.StatusServiceUnavailable
	case usecase.ErrorGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"message":"` + usecase.MessageInternal + `","error":"` + string(usecase.ErrorInternal) + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{},
		Body:       string(body),
	}
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func allowedMethods(methods map[string]routeFunc) string {
	out := make([]string, 0, len(methods))
	for m := range methods {
		out = append(out, m)
	}
	return strings.Join(out, ", ")
}
