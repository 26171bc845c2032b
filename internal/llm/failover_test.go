package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mindspace/backend/internal/prompt"
)

type fakeProvider struct {
	name      string
	text      string
	err       error
	tokens    []string
	failAfter int // fail mid-stream after emitting this many tokens; -1 never
	calls     int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeProvider) CompleteStream(ctx context.Context, payload prompt.Payload, emit func(string) error) error {
	f.calls++
	for i, token := range f.tokens {
		if f.failAfter >= 0 && i == f.failAfter {
			return errors.New("mid-stream failure")
		}
		if err := emit(token); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	return nil
}

func payload() prompt.Payload {
	return prompt.Payload{SystemInstruction: "sys", Query: "hello"}
}

func TestCompletePrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "primary", text: "from primary"}
	secondary := &fakeProvider{name: "secondary", text: "from secondary"}
	o := NewOrchestrator(primary, secondary, OrchestratorConfig{})

	result, err := o.Complete(context.Background(), payload())
	require.NoError(t, err)
	require.Equal(t, "from primary", result.Text)
	require.Equal(t, TagPrimary, result.Provider)
	require.Equal(t, 0, secondary.calls, "secondary must not be touched on primary success")
}

func TestCompleteFallsBackToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("rate limited")}
	secondary := &fakeProvider{name: "secondary", text: "from secondary"}
	o := NewOrchestrator(primary, secondary, OrchestratorConfig{})

	result, err := o.Complete(context.Background(), payload())
	require.NoError(t, err)
	require.NotEmpty(t, result.Text)
	require.Equal(t, TagSecondary, result.Provider)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, secondary.calls, "exactly one fallback hop")
}

func TestCompleteBothProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("down")}
	secondary := &fakeProvider{name: "secondary", err: errors.New("also down")}
	o := NewOrchestrator(primary, secondary, OrchestratorConfig{})

	_, err := o.Complete(context.Background(), payload())
	require.ErrorIs(t, err, ErrProvidersExhausted)
}

func TestCompleteCancelledContextDoesNotHop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeProvider{name: "primary", err: errors.New("aborted")}
	secondary := &fakeProvider{name: "secondary", text: "unused"}
	o := NewOrchestrator(primary, secondary, OrchestratorConfig{})

	_, err := o.Complete(ctx, payload())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrProvidersExhausted)
	require.Equal(t, 0, secondary.calls)
}

func collect(t *testing.T, ch <-chan Fragment) []Fragment {
	t.Helper()
	var fragments []Fragment
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return fragments
			}
			fragments = append(fragments, f)
		case <-timeout:
			t.Fatal("stream did not terminate")
		}
	}
}

func TestCompleteStreamPrimary(t *testing.T) {
	primary := &fakeProvider{name: "primary", tokens: []string{"hel", "lo"}, failAfter: -1}
	secondary := &fakeProvider{name: "secondary", failAfter: -1}
	o := NewOrchestrator(primary, secondary, OrchestratorConfig{})

	fragments := collect(t, o.CompleteStream(context.Background(), payload()))
	require.Len(t, fragments, 3)
	require.Equal(t, FragmentToken, fragments[0].Kind)
	require.Equal(t, "hel", fragments[0].Text)
	require.Equal(t, FragmentDone, fragments[2].Kind)
	require.Equal(t, TagPrimary, fragments[2].Provider)
}

func TestCompleteStreamMidStreamFailureRestartsOnSecondary(t *testing.T) {
	primary := &fakeProvider{name: "primary", tokens: []string{"par", "tial", "junk"}, failAfter: 2}
	secondary := &fakeProvider{name: "secondary", tokens: []string{"clean", "answer"}, failAfter: -1}
	o := NewOrchestrator(primary, secondary, OrchestratorConfig{})

	fragments := collect(t, o.CompleteStream(context.Background(), payload()))

	var kinds []FragmentKind
	var text strings.Builder
	sawRestart := false
	for _, f := range fragments {
		kinds = append(kinds, f.Kind)
		if f.Kind == FragmentRestart {
			sawRestart = true
			text.Reset() // consumer contract: discard partial output
		}
		if f.Kind == FragmentToken {
			text.WriteString(f.Text)
		}
	}

	require.True(t, sawRestart, "restart fragment must separate providers, kinds: %v", kinds)
	require.Equal(t, "cleananswer", text.String(), "partial primary output must be discarded, never concatenated")
	require.Equal(t, FragmentDone, fragments[len(fragments)-1].Kind)
	require.Equal(t, TagSecondary, fragments[len(fragments)-1].Provider)
}

func TestCompleteStreamBothFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("down"), failAfter: -1}
	secondary := &fakeProvider{name: "secondary", err: errors.New("also down"), failAfter: -1}
	o := NewOrchestrator(primary, secondary, OrchestratorConfig{})

	fragments := collect(t, o.CompleteStream(context.Background(), payload()))
	require.NotEmpty(t, fragments)
	last := fragments[len(fragments)-1]
	require.Equal(t, FragmentError, last.Kind)
	require.ErrorIs(t, last.Err, ErrProvidersExhausted)
}

func TestTransientClassification(t *testing.T) {
	require.False(t, Transient(nil))
	require.False(t, Transient(errors.New("config error")))
	require.True(t, Transient(context.DeadlineExceeded))
}
