package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/sangukO/haru-word/handler"
	"github.com/sangukO/haru-word/internal/auth"
	"github.com/sangukO/haru-word/internal/integrations/openai"
	"github.com/sangukO/haru-word/internal/integrations/paramstore"
	"github.com/sangukO/haru-word/internal/repository"
	"github.com/sangukO/haru-word/internal/usecase"
)

// settings is everything read from the environment at cold start.
type settings struct {
	stateTable  string
	paramPrefix string
	dailyLimit  int
	maxTokens   int
	openaiURL   string
	temperature *float64
	location    *time.Location
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	s, err := loadSettings()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	h, err := build(context.Background(), s, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	lambda.Start(h.Handle)
}

func loadSettings() (settings, error) {
	s := settings{
		stateTable:  strings.TrimSpace(os.Getenv("STATE_TABLE")),
		paramPrefix: strings.TrimSpace(os.Getenv("PARAM_PREFIX")),
		dailyLimit:  positiveInt("AI_DAILY_LIMIT", usecase.DefaultDailyLimit),
		maxTokens:   positiveInt("OPENAI_MAX_TOKENS", 300),
		openaiURL:   strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_TEMPERATURE")); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 2 {
			return settings{}, fmt.Errorf("OPENAI_TEMPERATURE %q: want a number in [0, 2]", v)
		}
		s.temperature = &t
	}
	var missing []string
	if s.stateTable == "" {
		missing = append(missing, "STATE_TABLE")
	}
	if s.paramPrefix == "" {
		missing = append(missing, "PARAM_PREFIX")
	}
	if len(missing) > 0 {
		return settings{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	zone := os.Getenv("SERVICE_TIMEZONE")
	if strings.TrimSpace(zone) == "" {
		zone = usecase.DefaultLocation
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return settings{}, fmt.Errorf("SERVICE_TIMEZONE %q: %w", zone, err)
	}
	s.location = loc
	return s, nil
}

// build wires AWS clients, services and the HTTP handler.
func build(ctx context.Context, s settings, logger *slog.Logger) (*handler.Handler, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), s.stateTable)
	if err != nil {
		return nil, err
	}
	llmOpts := []openai.Option{openai.WithMaxTokens(s.maxTokens)}
	if s.openaiURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(s.openaiURL))
	}
	if s.temperature != nil {
		llmOpts = append(llmOpts, openai.WithTemperature(*s.temperature))
	}
	llm, err := openai.NewClient(params, s.paramPrefix, llmOpts...)
	if err != nil {
		return nil, err
	}

	identity := auth.ContextResolver{}
	sentences, err := usecase.NewSentenceService(params, llm, store, identity, usecase.SentenceConfig{
		ParamPrefix: s.paramPrefix,
		DailyLimit:  s.dailyLimit,
		Location:    s.location,
		Logger:      logger,
	})
	history, histErr := usecase.NewHistoryService(store, identity)
	activity, actErr := usecase.NewActivityService(store, store, identity, s.location)
	if err := errors.Join(err, histErr, actErr); err != nil {
		return nil, err
	}

	return handler.NewHandler(handler.Services{
		Sentences: sentences,
		History:   history,
		Activity:  activity,
	}, handler.WithLogger(logger), handler.WithLocation(s.location))
}

func positiveInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer environment variable", "key", key, "value", v)
		return def
	}
	return n
}

func logLevel(v string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
