package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCompleted: true,
		StatusFailed:    true,
	}
	for _, s := range []Status{
		StatusPlannerRunning, StatusAwaitingUserInput, StatusPlannerComplete,
		StatusDesignerRunning, StatusDesignerComplete,
		StatusAuthorRunning, StatusAuthorComplete,
		StatusValidatorRunning, StatusValidatorComplete,
		StatusRCARunning, StatusRCAComplete,
		StatusCompleted, StatusFailed,
	} {
		assert.Equal(t, terminal[s], s.Terminal(), string(s))
	}
}

func TestStatusAcceptsMessages(t *testing.T) {
	assert.True(t, StatusPlannerRunning.AcceptsMessages())
	assert.True(t, StatusAwaitingUserInput.AcceptsMessages())
	assert.False(t, StatusDesignerRunning.AcceptsMessages())
	assert.False(t, StatusCompleted.AcceptsMessages())
	assert.False(t, StatusFailed.AcceptsMessages())
}

func TestAppendMessageStampsTime(t *testing.T) {
	lab := &Lab{}
	before := time.Now().UTC()
	lab.AppendMessage(RoleUser, "hello")

	require.Len(t, lab.Conversation, 1)
	msg := lab.Conversation[0]
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.Timestamp.Before(before))
}

func TestSnapshotIsolation(t *testing.T) {
	stage := StageDesigner
	lab := &Lab{
		ID:           "lab-1",
		Status:       StatusDesignerRunning,
		CurrentStage: &stage,
		Progress: Progress{
			ExerciseSpec: &ExerciseSpec{Title: "Static Routing"},
		},
	}
	lab.AppendMessage(RoleUser, "original")

	snap := lab.Snapshot()

	// Later mutations must not leak into the snapshot.
	lab.AppendMessage(RoleAssistant, "later")
	lab.Progress.ExerciseSpec.Title = "changed"
	*lab.CurrentStage = StageAuthor

	require.Len(t, snap.Conversation.Messages, 1)
	assert.Equal(t, "original", snap.Conversation.Messages[0].Content)
	assert.Equal(t, "Static Routing", snap.Progress.ExerciseSpec.Title)
	assert.Equal(t, StageDesigner, *snap.CurrentAgent)
}

func TestSnapshotNilStage(t *testing.T) {
	lab := &Lab{ID: "lab-1", Status: StatusCompleted}
	snap := lab.Snapshot()
	assert.Nil(t, snap.CurrentAgent)
}

func TestSummaryTitle(t *testing.T) {
	t.Run("prefers exercise spec title", func(t *testing.T) {
		lab := &Lab{
			ID:     "lab-1",
			Prompt: "teach me static routing",
			Progress: Progress{
				ExerciseSpec: &ExerciseSpec{Title: "Static Routing Basics"},
			},
		}
		assert.Equal(t, "Static Routing Basics", lab.Summary().Title)
	})

	t.Run("truncates long prompt", func(t *testing.T) {
		lab := &Lab{ID: "lab-1", Prompt: strings.Repeat("x", 100)}
		title := lab.Summary().Title
		assert.Equal(t, 63, len(title))
		assert.True(t, strings.HasSuffix(title, "..."))
	})

	t.Run("trims prompt whitespace", func(t *testing.T) {
		lab := &Lab{ID: "lab-1", Prompt: "  short prompt  "}
		assert.Equal(t, "short prompt", lab.Summary().Title)
	})
}
