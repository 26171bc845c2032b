package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindspace/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, client.InitSchema())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGetChatHistoryPreservesSameSecondOrder(t *testing.T) {
	client := newTestClient(t)

	// Timestamps store at second resolution, so rapid turns collide on
	// created_at and ordering must fall back to insertion order.
	now := time.Now()
	for i := 0; i < 5; i++ {
		err := client.InsertChatTurn(&models.ChatTurn{
			ID:            fmt.Sprintf("turn-%d", i),
			SessionID:     "s1",
			Message:       fmt.Sprintf("message %d", i),
			Response:      fmt.Sprintf("response %d", i),
			SeverityLabel: "NORMAL",
			CreatedAt:     now,
		})
		require.NoError(t, err)
	}

	turns, err := client.GetChatHistory("s1", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)

	// Most recent three, oldest first.
	assert.Equal(t, "turn-2", turns[0].ID)
	assert.Equal(t, "turn-3", turns[1].ID)
	assert.Equal(t, "turn-4", turns[2].ID)
	assert.Equal(t, "message 4", turns[2].Message)
	assert.Equal(t, "response 4", turns[2].Response)
}

func TestGetChatHistoryScopedToSession(t *testing.T) {
	client := newTestClient(t)

	now := time.Now()
	require.NoError(t, client.InsertChatTurn(&models.ChatTurn{
		ID: "a1", SessionID: "sa", Message: "hello", CreatedAt: now,
	}))
	require.NoError(t, client.InsertChatTurn(&models.ChatTurn{
		ID: "b1", SessionID: "sb", Message: "other session", CreatedAt: now,
	}))

	turns, err := client.GetChatHistory("sa", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "a1", turns[0].ID)

	turns, err = client.GetChatHistory("missing", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestGetLatestAssessmentBreaksSameSecondTies(t *testing.T) {
	client := newTestClient(t)

	now := time.Now()
	require.NoError(t, client.InsertAssessment(&models.AssessmentRecord{
		ID: "a-old", SessionID: "s1", Instrument: "phq9",
		RawScore: 4, MaxPossible: 27, Band: "Minimal", CreatedAt: now,
	}))
	require.NoError(t, client.InsertAssessment(&models.AssessmentRecord{
		ID: "a-new", SessionID: "s1", Instrument: "gad7",
		RawScore: 16, MaxPossible: 21, Severity: 10, Band: "Severe", CreatedAt: now,
	}))

	record, err := client.GetLatestAssessment("s1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "a-new", record.ID)
	assert.Equal(t, "gad7", record.Instrument)

	record, err = client.GetLatestAssessment("missing")
	require.NoError(t, err)
	assert.Nil(t, record)
}
