package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/logging"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://api.x.ai/v1"
	DefaultModel       = "grok-3-fast"
	DefaultTemperature = 0.7
)

// Client is the remote [Analyst] talking to an OpenAI compatible chat completion API.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	limiter     *rate.Limiter
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewClient creates a remote analyst. A missing API key is an [models.ErrConfiguration].
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.Mark(models.ErrConfiguration, errors.New("analysis api key missing"))
	}
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := DefaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		limiter:     limiter,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}, nil
}

func (c *Client) Mode() string {
	return ModeRemote
}

// SyncCompletion sends the system and user prompts and returns the content of the first choice.
func (c *Client) SyncCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Mark(models.ErrTransport, errors.Wrap(err, "wait for rate limiter"))
	}
	start := time.Now()
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:       c.model,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		},
	)
	if err != nil {
		return "", errors.Mark(models.ErrTransport, errors.Wrap(err, "create chat completion",
			slog.String("model", c.model)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion done",
		slog.String("model", c.model),
		slog.Int("total_tokens", completion.Usage.TotalTokens),
		slog.Duration("duration", time.Since(start)))
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

// Analyze asks the model for the structured analysis of billText.
func (c *Client) Analyze(ctx context.Context, billText string) (models.BillAnalysis, error) {
	content, err := c.SyncCompletion(ctx, analysisSystemPrompt, analysisUserPrompt(billText))
	if err != nil {
		return models.BillAnalysis{}, errors.Wrap(err, "analyze bill")
	}
	analysis, err := c.parseAnalysis(content)
	if err != nil {
		return models.BillAnalysis{}, errors.Wrap(err, "analyze bill")
	}
	c.logUnknownJurisdictions(ctx, analysis)
	return analysis, nil
}

// Simulate asks the model for events of analysis within window.
func (c *Client) Simulate(
	ctx context.Context,
	analysis models.BillAnalysis,
	window models.DateRange,
) ([]models.SimulationEvent, error) {
	userPrompt, err := simulationUserPrompt(analysis, window)
	if err != nil {
		return nil, err
	}
	content, err := c.SyncCompletion(ctx, simulationSystemPrompt, userPrompt)
	if err != nil {
		return nil, errors.Wrap(err, "simulate impacts")
	}
	events, err := c.parseEvents(content)
	if err != nil {
		return nil, errors.Wrap(err, "simulate impacts")
	}
	for _, e := range events {
		if _, ok := models.LookupJurisdiction(e.State); !ok {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "event in unknown jurisdiction",
				slog.String("state", e.State), slog.String("event_id", e.ID))
		}
	}
	return events, nil
}

func (c *Client) logUnknownJurisdictions(ctx context.Context, analysis models.BillAnalysis) {
	for _, clause := range analysis.Clauses {
		for _, state := range clause.AffectedStates {
			if _, ok := models.LookupJurisdiction(state); !ok {
				ctx = logging.WithAttrs(ctx, slog.String("clause_id", clause.ID))
				c.logger.LogAttrs(ctx, slog.LevelWarn, "clause affects unknown jurisdiction",
					slog.String("state", state))
			}
		}
	}
}

func (c *Client) parseAnalysis(content string) (models.BillAnalysis, error) {
	var analysis models.BillAnalysis
	raw, ok := extractJSON(content, '{', '}')
	if !ok {
		return analysis, errors.Mark(models.ErrParse, errors.New("no json object in response",
			slog.String("content", snippet(content))))
	}
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return analysis, errors.Mark(models.ErrParse, errors.Wrap(err, "decode analysis"))
	}
	normalizeAnalysis(&analysis)
	if err := c.validate.Struct(analysis); err != nil {
		return analysis, errors.Mark(models.ErrParse, errors.Wrap(err, "validate analysis"))
	}
	return analysis, nil
}

// rawEvent is the wire shape of a simulation event.
type rawEvent struct {
	ID          string `json:"id"`
	State       string `json:"state"       validate:"required"`
	Date        string `json:"date"        validate:"required"`
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description"`
	Impact      string `json:"impact"      validate:"oneof=positive negative neutral"`
}

func (c *Client) parseEvents(content string) ([]models.SimulationEvent, error) {
	raw, ok := extractJSON(content, '[', ']')
	if !ok {
		return nil, errors.Mark(models.ErrParse, errors.New("no json array in response",
			slog.String("content", snippet(content))))
	}
	var rawEvents []rawEvent
	if err := json.Unmarshal([]byte(raw), &rawEvents); err != nil {
		return nil, errors.Mark(models.ErrParse, errors.Wrap(err, "decode events"))
	}
	events := make([]models.SimulationEvent, 0, len(rawEvents))
	for i, re := range rawEvents {
		re.Impact = normalizeEnum(re.Impact)
		if err := c.validate.Struct(re); err != nil {
			return nil, errors.Mark(models.ErrParse, errors.Wrap(err, "validate event", slog.Int("index", i)))
		}
		date, err := parseEventDate(re.Date)
		if err != nil {
			return nil, errors.Mark(models.ErrParse, errors.Wrap(err, "parse event date",
				slog.Int("index", i), slog.String("date", re.Date)))
		}
		if re.ID == "" {
			re.ID = uuid.NewString()
		}
		events = append(events, models.SimulationEvent{
			ID:          re.ID,
			State:       re.State,
			Date:        date,
			Title:       re.Title,
			Description: re.Description,
			Impact:      models.Impact(re.Impact),
		})
	}
	return events, nil
}

// parseEventDate accepts calendar dates and timestamps, keeping the calendar date in both cases.
func parseEventDate(s string) (time.Time, error) {
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	date, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return date, nil
}

func snippet(s string) string {
	const maxSnippet = 200
	if len(s) > maxSnippet {
		return s[:maxSnippet]
	}
	return s
}
