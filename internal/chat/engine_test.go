package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindspace/backend/internal/assessment"
	"github.com/mindspace/backend/internal/llm"
	"github.com/mindspace/backend/internal/prompt"
	"github.com/mindspace/backend/internal/retrieval"
	"github.com/mindspace/backend/internal/severity"
	"github.com/mindspace/backend/internal/storage/models"
)

type fakeRetriever struct {
	passages []retrieval.Passage
	calls    int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) []retrieval.Passage {
	f.calls++
	return f.passages
}

type fakeCompleter struct {
	result    *llm.Result
	err       error
	fragments []llm.Fragment
	calls     int
}

func (f *fakeCompleter) Complete(ctx context.Context, payload prompt.Payload) (*llm.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeCompleter) CompleteStream(ctx context.Context, payload prompt.Payload) <-chan llm.Fragment {
	f.calls++
	out := make(chan llm.Fragment)
	go func() {
		defer close(out)
		for _, frag := range f.fragments {
			select {
			case out <- frag:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type fakeStore struct {
	turns   []*models.ChatTurn
	events  []*models.CrisisEvent
	history []models.ChatTurn
}

func (f *fakeStore) InsertChatTurn(turn *models.ChatTurn) error {
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeStore) InsertCrisisEvent(event *models.CrisisEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) GetChatHistory(sessionID string, limit int) ([]models.ChatTurn, error) {
	return f.history, nil
}

type fakeCache struct {
	stored map[string]string
	hits   int
}

func (f *fakeCache) GetResponse(ctx context.Context, queryHash string, response interface{}) (bool, error) {
	text, ok := f.stored[queryHash]
	if !ok {
		return false, nil
	}
	f.hits++
	*(response.(*string)) = text
	return true, nil
}

func (f *fakeCache) SetResponse(ctx context.Context, queryHash string, response interface{}, ttl time.Duration) error {
	if f.stored == nil {
		f.stored = make(map[string]string)
	}
	f.stored[queryHash] = response.(string)
	return nil
}

func newTestEngine(retriever *fakeRetriever, completer *fakeCompleter, store *fakeStore, cache ResponseCache) *Engine {
	return NewEngine(retriever, prompt.NewAssembler(8), completer, store, cache, 8)
}

func TestHandleRejectsEmptyMessage(t *testing.T) {
	e := newTestEngine(&fakeRetriever{}, &fakeCompleter{}, &fakeStore{}, nil)

	_, err := e.Handle(context.Background(), Request{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestHandleNormalTurn(t *testing.T) {
	retriever := &fakeRetriever{passages: []retrieval.Passage{
		{Text: "Box breathing slows the stress response.", Similarity: 0.9, SourceID: "doc1"},
	}}
	completer := &fakeCompleter{result: &llm.Result{Text: "Try box breathing.", Provider: llm.TagPrimary}}
	store := &fakeStore{}
	e := newTestEngine(retriever, completer, store, nil)

	resp, err := e.Handle(context.Background(), Request{SessionID: "s1", Query: "how do I calm down before a presentation"})
	require.NoError(t, err)

	assert.Equal(t, "Try box breathing.", resp.Text)
	assert.Equal(t, string(llm.TagPrimary), resp.Provider)
	assert.Equal(t, int(severity.Normal), resp.Severity)
	assert.False(t, resp.CrisisDetected)
	assert.False(t, resp.RequiresIntervention)
	assert.Nil(t, resp.Resources)
	assert.False(t, resp.Degraded)

	require.Len(t, store.turns, 1)
	assert.Equal(t, "s1", store.turns[0].SessionID)
	assert.Empty(t, store.events)
}

func TestHandleCrisisAnnotationsSurviveProviderOutage(t *testing.T) {
	completer := &fakeCompleter{err: fmt.Errorf("%w: primary down; secondary down", llm.ErrProvidersExhausted)}
	store := &fakeStore{}
	e := newTestEngine(&fakeRetriever{}, completer, store, nil)

	resp, err := e.Handle(context.Background(), Request{SessionID: "s1", Query: "I want to end my life"})
	require.NoError(t, err, "provider exhaustion must not surface as an error")

	assert.True(t, resp.Degraded)
	assert.True(t, resp.CrisisDetected)
	assert.True(t, resp.RequiresIntervention)
	assert.Equal(t, int(severity.Critical), resp.Severity)
	require.NotNil(t, resp.Resources)
	assert.NotEmpty(t, resp.Resources.Emergency)
	assert.Contains(t, resp.Text, "988")

	require.Len(t, store.events, 1)
	assert.Equal(t, "message", store.events[0].Source)
	assert.Equal(t, "CRITICAL", store.events[0].Level)
}

func TestHandleFallbackProviderTagged(t *testing.T) {
	completer := &fakeCompleter{result: &llm.Result{Text: "Here is a grounding exercise.", Provider: llm.TagSecondary}}
	e := newTestEngine(&fakeRetriever{}, completer, &fakeStore{}, nil)

	resp, err := e.Handle(context.Background(), Request{Query: "I feel on edge today"})
	require.NoError(t, err)

	assert.Equal(t, string(llm.TagSecondary), resp.Provider)
	assert.NotEmpty(t, resp.Text)
	assert.NotEmpty(t, resp.SessionID, "a session id is assigned when the caller omits one")
}

func TestHandleAssessmentRaisesSeverity(t *testing.T) {
	completer := &fakeCompleter{result: &llm.Result{Text: "ok", Provider: llm.TagPrimary}}
	store := &fakeStore{}
	e := newTestEngine(&fakeRetriever{}, completer, store, nil)

	result := assessment.Result{
		Instrument: assessment.PHQ9,
		RawScore:   22,
		Severity:   severity.Critical,
		Band:       "Severe",
	}
	resp, err := e.Handle(context.Background(), Request{
		SessionID:  "s1",
		Query:      "thanks for checking in",
		Assessment: &result,
	})
	require.NoError(t, err)

	assert.Equal(t, int(severity.Critical), resp.Severity)
	assert.True(t, resp.RequiresIntervention)

	require.Len(t, store.events, 1)
	assert.Equal(t, "assessment", store.events[0].Source)
}

func TestHandleEmptyIndex(t *testing.T) {
	completer := &fakeCompleter{result: &llm.Result{Text: "answer", Provider: llm.TagPrimary}}
	e := newTestEngine(&fakeRetriever{passages: nil}, completer, &fakeStore{}, nil)

	resp, err := e.Handle(context.Background(), Request{Query: "what is mindfulness"})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Text)
}

func TestHandleServesCachedResponse(t *testing.T) {
	completer := &fakeCompleter{result: &llm.Result{Text: "fresh answer", Provider: llm.TagPrimary}}
	cache := &fakeCache{}
	e := newTestEngine(&fakeRetriever{}, completer, &fakeStore{}, cache)

	_, err := e.Handle(context.Background(), Request{Query: "what is mindfulness"})
	require.NoError(t, err)
	require.Equal(t, 1, completer.calls)

	resp, err := e.Handle(context.Background(), Request{Query: "what is mindfulness"})
	require.NoError(t, err)
	assert.Equal(t, "fresh answer", resp.Text)
	assert.Equal(t, "cache", resp.Provider)
	assert.Equal(t, 1, completer.calls, "cache hit must not call providers")
	assert.Equal(t, 1, cache.hits)
}

func TestHandleNeverCachesCrisisTurns(t *testing.T) {
	completer := &fakeCompleter{result: &llm.Result{Text: "please reach out", Provider: llm.TagPrimary}}
	cache := &fakeCache{}
	e := newTestEngine(&fakeRetriever{}, completer, &fakeStore{}, cache)

	_, err := e.Handle(context.Background(), Request{Query: "I want to end my life"})
	require.NoError(t, err)
	assert.Empty(t, cache.stored)
}

func TestHandleStreamMetaFirstThenTokens(t *testing.T) {
	completer := &fakeCompleter{fragments: []llm.Fragment{
		{Kind: llm.FragmentToken, Text: "take ", Provider: llm.TagPrimary},
		{Kind: llm.FragmentToken, Text: "a breath", Provider: llm.TagPrimary},
		{Kind: llm.FragmentDone, Provider: llm.TagPrimary},
	}}
	store := &fakeStore{}
	e := newTestEngine(&fakeRetriever{}, completer, store, nil)

	events, err := e.HandleStream(context.Background(), Request{SessionID: "s1", Query: "I feel anxious"})
	require.NoError(t, err)

	var collected []Event
	for ev := range events {
		collected = append(collected, ev)
	}

	require.GreaterOrEqual(t, len(collected), 4)
	assert.Equal(t, EventMeta, collected[0].Kind)
	require.NotNil(t, collected[0].Meta)
	assert.Equal(t, int(severity.Moderate), collected[0].Meta.Severity)

	last := collected[len(collected)-1]
	assert.Equal(t, EventDone, last.Kind)
	require.NotNil(t, last.Meta)
	assert.Equal(t, "take a breath", last.Meta.Text)
	assert.Equal(t, string(llm.TagPrimary), last.Meta.Provider)

	require.Len(t, store.turns, 1)
	assert.Equal(t, "take a breath", store.turns[0].Response)
}

func TestHandleStreamRestartDiscardsPartials(t *testing.T) {
	completer := &fakeCompleter{fragments: []llm.Fragment{
		{Kind: llm.FragmentToken, Text: "partial", Provider: llm.TagPrimary},
		{Kind: llm.FragmentRestart, Provider: llm.TagPrimary},
		{Kind: llm.FragmentToken, Text: "clean answer", Provider: llm.TagSecondary},
		{Kind: llm.FragmentDone, Provider: llm.TagSecondary},
	}}
	e := newTestEngine(&fakeRetriever{}, completer, &fakeStore{}, nil)

	events, err := e.HandleStream(context.Background(), Request{Query: "hello"})
	require.NoError(t, err)

	var sawRestart bool
	var done Event
	for ev := range events {
		if ev.Kind == EventRestart {
			sawRestart = true
		}
		if ev.Kind == EventDone {
			done = ev
		}
	}

	assert.True(t, sawRestart)
	require.NotNil(t, done.Meta)
	assert.Equal(t, "clean answer", done.Meta.Text, "partials are never concatenated across providers")
	assert.Equal(t, string(llm.TagSecondary), done.Meta.Provider)
}

func TestHandleStreamExhaustionStillDelivers(t *testing.T) {
	completer := &fakeCompleter{fragments: []llm.Fragment{
		{Kind: llm.FragmentToken, Text: "partial", Provider: llm.TagPrimary},
		{Kind: llm.FragmentRestart, Provider: llm.TagPrimary},
		{Kind: llm.FragmentError, Err: llm.ErrProvidersExhausted},
	}}
	e := newTestEngine(&fakeRetriever{}, completer, &fakeStore{}, nil)

	events, err := e.HandleStream(context.Background(), Request{Query: "I feel hopeless"})
	require.NoError(t, err)

	var sawError bool
	var done Event
	for ev := range events {
		if ev.Kind == EventError {
			sawError = true
		}
		if ev.Kind == EventDone {
			done = ev
		}
	}

	assert.True(t, sawError)
	require.NotNil(t, done.Meta)
	assert.True(t, done.Meta.Degraded)
	assert.True(t, done.Meta.CrisisDetected, "screening outcome is independent of provider health")
}
