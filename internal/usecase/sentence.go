package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sangukO/haru-word/internal/domain"
	"github.com/sangukO/haru-word/internal/integrations/paramstore"
	"github.com/sangukO/haru-word/internal/logging"
)

const (
	DefaultDailyLimit   = 3
	defaultOpenAIModel  = "gpt-4o-mini"
	unknownErrorMessage = "unknown error"
)

var errEmptyCompletion = errors.New("usecase: empty model response")

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// IdentityResolver reports the authenticated user of the current request.
type IdentityResolver interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// UsageLogStore is the log table the quota is counted from and written to.
// The two calls are independent; no transaction spans them.
type UsageLogStore interface {
	CountUsageSince(ctx context.Context, userID string, since time.Time) (int, error)
	InsertUsageLog(ctx context.Context, entry domain.UsageLogEntry) (domain.UsageLogEntry, error)
}

// rateLimitReporter is implemented by upstream errors that can tell a
// rate or quota refusal apart from other failures.
type rateLimitReporter interface {
	RateLimited() bool
}

// SentenceConfig holds the scalar settings of SentenceService.
type SentenceConfig struct {
	ParamPrefix string
	DailyLimit  int
	Location    *time.Location
	Logger      *slog.Logger
}

// SentenceService generates AI example sentences under a per-user daily quota.
type SentenceService struct {
	params      ParamGetter
	llm         LLMClient
	logs        UsageLogStore
	identity    IdentityResolver
	paramPrefix string
	dailyLimit  int
	location    *time.Location
	logger      *slog.Logger
	now         func() time.Time

	cacheMu     sync.RWMutex
	cacheLoaded bool
	openaiModel string
}

type GenerateInput struct {
	Words []domain.TargetWord
}

type GenerateOutput struct {
	Sentence string
}

// UsageOutput summarises today's quota for the current user.
type UsageOutput struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resetsAt"`
}

// generation is the captured outcome of one model call. Exactly one of
// sentence and err is meaningful.
type generation struct {
	sentence string
	err      error
	reason   string
}

func NewSentenceService(p ParamGetter, llm LLMClient, logs UsageLogStore, identity IdentityResolver, cfg SentenceConfig) (*SentenceService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if logs == nil {
		return nil, errors.New("usecase: usage log store must not be nil")
	}
	if identity == nil {
		return nil, errors.New("usecase: identity resolver must not be nil")
	}
	prefix := strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if prefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultDailyLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SentenceService{
		params:      p,
		llm:         llm,
		logs:        logs,
		identity:    identity,
		paramPrefix: prefix,
		dailyLimit:  cfg.DailyLimit,
		location:    resolveLocation(cfg.Location),
		logger:      cfg.Logger,
		now:         time.Now,
	}, nil
}

// Generate runs quota check, generation and usage recording in that order.
// Every call that passes the quota gate writes exactly one usage log entry.
func (s *SentenceService) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	userID, err := currentUser(ctx, s.identity)
	if err != nil {
		return GenerateOutput{}, err
	}

	used, err := s.logs.CountUsageSince(ctx, userID, startOfDay(s.now(), s.location))
	if err != nil {
		return GenerateOutput{}, newError(ErrorQuotaCheckFailed, "usage_count_error", err)
	}
	if used >= s.dailyLimit {
		return GenerateOutput{}, newError(ErrorQuotaExceeded, "daily_limit_reached", nil)
	}

	gen := s.generate(ctx, in.Words)
	s.record(ctx, userID, in.Words, gen)

	if gen.err != nil {
		return GenerateOutput{}, newError(ErrorGenerationFailed, gen.reason, gen.err)
	}
	return GenerateOutput{Sentence: gen.sentence}, nil
}

// Usage reports how many generations the current user has left today.
func (s *SentenceService) Usage(ctx context.Context) (UsageOutput, error) {
	userID, err := currentUser(ctx, s.identity)
	if err != nil {
		return UsageOutput{}, err
	}
	since, resetsAt := QuotaWindow(s.now(), s.location)
	used, err := s.logs.CountUsageSince(ctx, userID, since)
	if err != nil {
		return UsageOutput{}, newError(ErrorQuotaCheckFailed, "usage_count_error", err)
	}
	return UsageOutput{
		Used:      used,
		Limit:     s.dailyLimit,
		Remaining: max(0, s.dailyLimit-used),
		ResetsAt:  resetsAt,
	}, nil
}

// generate never returns an error directly; every failure, including a
// panic in a collaborator, is captured in the result.
func (s *SentenceService) generate(ctx context.Context, words []domain.TargetWord) (out generation) {
	defer func() {
		if r := recover(); r != nil {
			out = generation{err: fmt.Errorf("usecase: generation panicked: %v", r), reason: "generation_panic"}
		}
	}()

	model, err := s.ensureModel(ctx)
	if err != nil {
		return generation{err: err, reason: "ssm_load_error"}
	}

	raw, err := s.llm.Chat(ctx, model, buildSentenceMessages(words))
	if err != nil {
		if rateLimited(err) {
			return generation{err: err, reason: "openai_rate_limited"}
		}
		return generation{err: err, reason: "openai_error"}
	}

	sentence := cleanCompletion(raw)
	if sentence == "" {
		return generation{err: errEmptyCompletion, reason: "empty_completion"}
	}
	return generation{sentence: sentence}
}

// record writes the usage log entry for gen. It runs on a context detached
// from request cancellation; a failed insert is logged and not surfaced.
func (s *SentenceService) record(ctx context.Context, userID string, words []domain.TargetWord, gen generation) {
	ids := domain.WordIDs(words)

	var entry domain.UsageLogEntry
	if gen.err == nil {
		entry = domain.NewSuccessEntry(userID, domain.FeatureSentenceGeneration, ids, gen.sentence)
	} else {
		entry = domain.NewFailureEntry(userID, domain.FeatureSentenceGeneration, ids, failureMessage(gen.err))
	}

	if _, err := s.logs.InsertUsageLog(context.WithoutCancel(ctx), entry); err != nil {
		logging.FromContext(ctx, s.logger).Error("usage log insert failed",
			"user_id", userID,
			"status", string(entry.Status),
			"word_ids", ids,
			"err", err,
		)
	}
}

func (s *SentenceService) ensureModel(ctx context.Context) (string, error) {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		model := s.openaiModel
		s.cacheMu.RUnlock()
		return model, nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return s.openaiModel, nil
	}

	model, err := paramstore.GetParameterOr(ctx, s.params, s.paramPrefix+"/config/openai_model", defaultOpenAIModel)
	if err != nil {
		return "", fmt.Errorf("usecase: load openai model: %w", err)
	}
	s.openaiModel = model
	s.cacheLoaded = true
	return model, nil
}

func failureMessage(err error) string {
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return unknownErrorMessage
	}
	return err.Error()
}

func currentUser(ctx context.Context, identity IdentityResolver) (string, error) {
	userID, ok := identity.CurrentUserID(ctx)
	userID = strings.TrimSpace(userID)
	if !ok || userID == "" {
		return "", newError(ErrorUnauthenticated, "missing_identity", nil)
	}
	return userID, nil
}

func rateLimited(err error) bool {
	var r rateLimitReporter
	return errors.As(err, &r) && r.RateLimited()
}
