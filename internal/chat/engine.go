// Package chat coordinates one conversational turn: safety screening first,
// then retrieval-augmented completion, then persistence. Screening outcomes
// never depend on provider availability.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/assessment"
	"github.com/mindspace/backend/internal/crisis"
	"github.com/mindspace/backend/internal/llm"
	"github.com/mindspace/backend/internal/metrics"
	"github.com/mindspace/backend/internal/prompt"
	"github.com/mindspace/backend/internal/retrieval"
	"github.com/mindspace/backend/internal/sentiment"
	"github.com/mindspace/backend/internal/severity"
	"github.com/mindspace/backend/internal/storage/models"
	"github.com/mindspace/backend/pkg/logger"
	"github.com/mindspace/backend/pkg/utils"
)

var ErrEmptyMessage = errors.New("chat: message must not be empty")

// degradedResponse is served when every provider fails. Safety annotations
// on the turn are computed before any provider call, so they survive this
// path unchanged.
const degradedResponse = "I'm sorry, I'm having trouble responding right now. " +
	"Please try again in a moment. If you are in immediate distress, call or " +
	"text 988 (Suicide & Crisis Lifeline) to talk to someone now."

// Completer is the completion side of the provider orchestrator.
type Completer interface {
	Complete(ctx context.Context, payload prompt.Payload) (*llm.Result, error)
	CompleteStream(ctx context.Context, payload prompt.Payload) <-chan llm.Fragment
}

// PassageRetriever returns supporting passages for a query, best effort.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) []retrieval.Passage
}

// Store persists turns and safety events.
type Store interface {
	InsertChatTurn(turn *models.ChatTurn) error
	InsertCrisisEvent(event *models.CrisisEvent) error
	GetChatHistory(sessionID string, limit int) ([]models.ChatTurn, error)
}

// ResponseCache serves completed responses for repeated queries. Optional.
type ResponseCache interface {
	GetResponse(ctx context.Context, queryHash string, response interface{}) (bool, error)
	SetResponse(ctx context.Context, queryHash string, response interface{}, ttl time.Duration) error
}

// Request is one incoming user turn.
type Request struct {
	SessionID  string
	Query      string
	History    []prompt.Message
	Assessment *assessment.Result
}

// Response is the completed turn with its safety annotations.
type Response struct {
	SessionID            string             `json:"session_id"`
	Text                 string             `json:"response"`
	Severity             int                `json:"severity"`
	SeverityLabel        string             `json:"severity_label"`
	CrisisDetected       bool               `json:"crisis_detected"`
	RequiresIntervention bool               `json:"requires_intervention"`
	MatchedTerms         []string           `json:"matched_terms,omitempty"`
	Recommendation       string             `json:"recommendation"`
	Resources            *crisis.Resources  `json:"resources,omitempty"`
	Sentiment            sentiment.Analysis `json:"sentiment"`
	Provider             string             `json:"provider,omitempty"`
	Degraded             bool               `json:"degraded,omitempty"`
	LatencyMS            int                `json:"latency_ms"`
}

type Engine struct {
	retriever     PassageRetriever
	assembler     *prompt.Assembler
	completer     Completer
	store         Store
	cache         ResponseCache
	historyWindow int
}

func NewEngine(retriever PassageRetriever, assembler *prompt.Assembler, completer Completer, store Store, cache ResponseCache, historyWindow int) *Engine {
	if historyWindow <= 0 {
		historyWindow = 8
	}
	return &Engine{
		retriever:     retriever,
		assembler:     assembler,
		completer:     completer,
		store:         store,
		cache:         cache,
		historyWindow: historyWindow,
	}
}

// Handle processes one turn. The message is screened before any provider
// call; when all providers fail the caller still gets a well formed response
// carrying the screening outcome.
func (e *Engine) Handle(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyMessage
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	score := crisis.Score(query)
	level := e.effectiveLevel(score, req.Assessment)

	resp := e.annotate(req.SessionID, query, score, level)

	if cached := e.cachedText(ctx, query, req, level); cached != "" {
		resp.Text = e.decorate(cached, level)
		resp.Provider = "cache"
		resp.LatencyMS = int(time.Since(start).Milliseconds())
		e.persistTurn(req, resp, query, score)
		metrics.ChatTotal.WithLabelValues("cached").Inc()
		metrics.ChatDuration.WithLabelValues("sync").Observe(time.Since(start).Seconds())
		return resp, nil
	}

	history := e.resolveHistory(req)
	passages := e.retriever.Retrieve(ctx, query)
	metrics.RetrievalResultsCount.Observe(float64(len(passages)))

	payload := e.assembler.Assemble(passages, history, query)

	result, err := e.completer.Complete(ctx, payload)
	switch {
	case err == nil:
		resp.Text = e.decorate(result.Text, level)
		resp.Provider = string(result.Provider)
		if result.Provider == llm.TagSecondary {
			metrics.ProviderFallbacks.Inc()
		}
		metrics.ChatTotal.WithLabelValues("ok").Inc()
		e.storeInCache(ctx, query, req, level, result.Text)
	case errors.Is(err, llm.ErrProvidersExhausted):
		logger.Error("All providers exhausted", zap.String("session_id", req.SessionID), zap.Error(err))
		resp.Text = e.decorate(degradedResponse, level)
		resp.Degraded = true
		metrics.ChatTotal.WithLabelValues("degraded").Inc()
	default:
		metrics.ChatTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	resp.LatencyMS = int(time.Since(start).Milliseconds())
	e.persistTurn(req, resp, query, score)
	metrics.ChatDuration.WithLabelValues("sync").Observe(time.Since(start).Seconds())

	return resp, nil
}

// annotate builds the response shell carrying the screening outcome. These
// fields are final before any provider is consulted.
func (e *Engine) annotate(sessionID, query string, score crisis.ScoreResult, level severity.Level) *Response {
	resp := &Response{
		SessionID:            sessionID,
		Severity:             int(level),
		SeverityLabel:        level.String(),
		CrisisDetected:       level >= severity.High,
		RequiresIntervention: level >= severity.High,
		MatchedTerms:         score.MatchedTerms(),
		Recommendation:       recommendationFor(score, level),
		Sentiment:            sentiment.Analyze(query),
	}
	if resp.RequiresIntervention {
		res := crisis.DefaultResources()
		resp.Resources = &res
	}
	return resp
}

// recommendationFor keeps the recommendation consistent with the effective
// level when an assessment escalated it past the lexicon score.
func recommendationFor(score crisis.ScoreResult, level severity.Level) string {
	if level == score.Level {
		return string(score.Recommendation)
	}
	switch level {
	case severity.Critical:
		return string(crisis.RecommendImmediateHelp)
	case severity.High:
		return string(crisis.RecommendProfessionalSupport)
	case severity.Moderate:
		return string(crisis.RecommendMonitoring)
	default:
		return string(crisis.RecommendContinue)
	}
}

// effectiveLevel combines message screening with the most recent assessment
// under a max severity rule.
func (e *Engine) effectiveLevel(score crisis.ScoreResult, result *assessment.Result) severity.Level {
	level := score.Level
	if result != nil {
		level = severity.Max(level, result.Severity)
	}
	return level
}

// decorate prepends the crisis banner when the turn warrants intervention.
func (e *Engine) decorate(text string, level severity.Level) string {
	banner := crisis.Banner(level)
	if banner == "" {
		return text
	}
	return banner + "\n\n" + text
}

// resolveHistory prefers caller supplied history; otherwise loads the recent
// window from storage. A load failure degrades to an empty history.
func (e *Engine) resolveHistory(req Request) []prompt.Message {
	if len(req.History) > 0 || e.store == nil {
		return req.History
	}

	turns, err := e.store.GetChatHistory(req.SessionID, e.historyWindow)
	if err != nil {
		logger.Warn("Failed to load chat history", zap.String("session_id", req.SessionID), zap.Error(err))
		return nil
	}

	history := make([]prompt.Message, 0, len(turns)*2)
	for _, t := range turns {
		history = append(history, prompt.Message{Role: prompt.RoleUser, Content: t.Message, Timestamp: t.CreatedAt})
		if t.Response != "" {
			history = append(history, prompt.Message{Role: prompt.RoleAssistant, Content: t.Response, Timestamp: t.CreatedAt})
		}
	}
	return history
}

// cachedText returns a cached completion, or empty string. Turns that carry
// history or need intervention always go through the live pipeline.
func (e *Engine) cachedText(ctx context.Context, query string, req Request, level severity.Level) string {
	if e.cache == nil || len(req.History) > 0 || level >= severity.High {
		return ""
	}

	var text string
	hit, err := e.cache.GetResponse(ctx, utils.HashString(query), &text)
	if err != nil {
		logger.Warn("Response cache lookup failed", zap.Error(err))
		metrics.CacheMisses.WithLabelValues("response").Inc()
		return ""
	}
	if !hit {
		metrics.CacheMisses.WithLabelValues("response").Inc()
		return ""
	}
	metrics.CacheHits.WithLabelValues("response").Inc()
	return text
}

func (e *Engine) storeInCache(ctx context.Context, query string, req Request, level severity.Level, text string) {
	if e.cache == nil || len(req.History) > 0 || level >= severity.High {
		return
	}
	if err := e.cache.SetResponse(ctx, utils.HashString(query), text, 30*time.Minute); err != nil {
		logger.Warn("Failed to cache response", zap.Error(err))
	}
}

// persistTurn writes the turn and any crisis event. Storage failures are
// logged, never surfaced; the user already has their response.
func (e *Engine) persistTurn(req Request, resp *Response, query string, score crisis.ScoreResult) {
	if e.store == nil {
		return
	}

	now := time.Now()
	turn := &models.ChatTurn{
		ID:             uuid.NewString(),
		SessionID:      req.SessionID,
		Message:        query,
		Response:       resp.Text,
		Severity:       resp.Severity,
		SeverityLabel:  resp.SeverityLabel,
		CrisisDetected: resp.CrisisDetected,
		SentimentScore: resp.Sentiment.Score,
		SentimentLabel: resp.Sentiment.Label,
		Provider:       resp.Provider,
		LatencyMS:      resp.LatencyMS,
		CreatedAt:      now,
	}
	if err := e.store.InsertChatTurn(turn); err != nil {
		logger.Error("Failed to persist chat turn", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	if score.RequiresIntervention() {
		metrics.CrisisEvents.WithLabelValues(score.Level.String(), "message").Inc()
		event := &models.CrisisEvent{
			ID:           uuid.NewString(),
			SessionID:    req.SessionID,
			Source:       "message",
			Level:        score.Level.String(),
			Severity:     int(score.Level),
			MatchedTerms: score.MatchedTerms(),
			CreatedAt:    now,
		}
		if err := e.store.InsertCrisisEvent(event); err != nil {
			logger.Error("Failed to persist crisis event", zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	if req.Assessment != nil && req.Assessment.Severity >= severity.High {
		metrics.CrisisEvents.WithLabelValues(req.Assessment.Severity.String(), "assessment").Inc()
		event := &models.CrisisEvent{
			ID:        uuid.NewString(),
			SessionID: req.SessionID,
			Source:    "assessment",
			Level:     req.Assessment.Severity.String(),
			Severity:  int(req.Assessment.Severity),
			CreatedAt: now,
		}
		if err := e.store.InsertCrisisEvent(event); err != nil {
			logger.Error("Failed to persist crisis event", zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}
}
