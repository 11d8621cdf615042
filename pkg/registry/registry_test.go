package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labforge/labforge/pkg/models"
)

func TestCreateSeedsInitialState(t *testing.T) {
	r := New(32)
	id := r.Create("Build a 2-router static-routing lab", models.Options{DryRun: true})
	require.NotEmpty(t, id)

	snap, err := r.Get(id)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPlannerRunning, snap.Status)
	require.NotNil(t, snap.CurrentAgent)
	assert.Equal(t, models.StagePlanner, *snap.CurrentAgent)
	require.Len(t, snap.Conversation.Messages, 1)
	assert.Equal(t, models.RoleUser, snap.Conversation.Messages[0].Role)
	assert.Equal(t, "Build a 2-router static-routing lab", snap.Conversation.Messages[0].Content)
	assert.False(t, snap.Conversation.AwaitingUserInput)
	assert.False(t, snap.CreatedAt.After(snap.UpdatedAt))
}

func TestGetUnknownLab(t *testing.T) {
	r := New(32)
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentCreatesYieldDistinctIDs(t *testing.T) {
	r := New(32)
	const n = 50

	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.Create("prompt for concurrency test", models.Options{})
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate lab id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, r.Len())
}

func TestListNewestFirst(t *testing.T) {
	r := New(32)
	first := r.Create("first prompt", models.Options{})
	time.Sleep(2 * time.Millisecond)
	second := r.Create("second prompt", models.Options{})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].LabID)
	assert.Equal(t, first, list[1].LabID)
}

func TestListTitleDerivation(t *testing.T) {
	r := New(32)

	longPrompt := "teach OSPF multi-area design with four routers and loopback interfaces plus verification"
	id := r.Create(longPrompt, models.Options{})

	list := r.List()
	require.Len(t, list, 1)
	assert.Len(t, list[0].Title, 63) // 60 chars + "..."

	// Once the Planner produced a spec, its title wins.
	require.NoError(t, r.Mutate(id, func(lab *models.Lab) {
		lab.Progress.ExerciseSpec = &models.ExerciseSpec{Title: "OSPF Multi-Area Lab"}
	}))
	list = r.List()
	assert.Equal(t, "OSPF Multi-Area Lab", list[0].Title)
}

func TestEnqueueMessage(t *testing.T) {
	r := New(2)
	id := r.Create("prompt long enough", models.Options{})

	require.NoError(t, r.EnqueueMessage(id, "one"))
	require.NoError(t, r.EnqueueMessage(id, "two"))

	// Queue capacity is 2.
	assert.ErrorIs(t, r.EnqueueMessage(id, "three"), ErrQueueFull)

	// Unknown lab.
	assert.ErrorIs(t, r.EnqueueMessage("nope", "msg"), ErrNotFound)

	// Terminal lab refuses messages.
	require.NoError(t, r.Mutate(id, func(lab *models.Lab) {
		lab.Status = models.StatusCompleted
	}))
	assert.ErrorIs(t, r.EnqueueMessage(id, "late"), ErrInvalidState)
}

func TestWaitForMessageFIFO(t *testing.T) {
	r := New(8)
	id := r.Create("prompt long enough", models.Options{})

	require.NoError(t, r.EnqueueMessage(id, "first"))
	require.NoError(t, r.EnqueueMessage(id, "second"))

	msg, err := r.WaitForMessage(context.Background(), id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", msg)

	msg, err = r.WaitForMessage(context.Background(), id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "second", msg)
}

func TestWaitForMessageTimeout(t *testing.T) {
	r := New(8)
	id := r.Create("prompt long enough", models.Options{})

	_, err := r.WaitForMessage(context.Background(), id, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrReplyTimeout)
}

func TestWaitForMessageCancellation(t *testing.T) {
	r := New(8)
	id := r.Create("prompt long enough", models.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.WaitForMessage(ctx, id, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMutateStrictlyIncreasesUpdatedAt(t *testing.T) {
	r := New(8)
	id := r.Create("prompt long enough", models.Options{})

	var stamps []time.Time
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Mutate(id, func(lab *models.Lab) {
			lab.Status = models.StatusDesignerRunning
		}))
		snap, err := r.Get(id)
		require.NoError(t, err)
		stamps = append(stamps, snap.UpdatedAt)
	}

	for i := 1; i < len(stamps); i++ {
		assert.True(t, stamps[i].After(stamps[i-1]),
			"updated_at must strictly increase: %v !> %v", stamps[i], stamps[i-1])
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := New(8)
	id := r.Create("prompt long enough", models.Options{})

	snap1, err := r.Get(id)
	require.NoError(t, err)

	require.NoError(t, r.Mutate(id, func(lab *models.Lab) {
		lab.AppendMessage(models.RoleAssistant, "How many routers?")
		lab.Status = models.StatusAwaitingUserInput
		lab.AwaitingUserInput = true
	}))

	// The earlier snapshot is unaffected by the mutation.
	assert.Len(t, snap1.Conversation.Messages, 1)
	assert.Equal(t, models.StatusPlannerRunning, snap1.Status)

	snap2, err := r.Get(id)
	require.NoError(t, err)
	assert.Len(t, snap2.Conversation.Messages, 2)
	assert.True(t, snap2.Conversation.AwaitingUserInput)
}

func TestStatusReadIsSideEffectFree(t *testing.T) {
	r := New(8)
	id := r.Create("prompt long enough", models.Options{})

	snap1, err := r.Get(id)
	require.NoError(t, err)
	snap2, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, snap1, snap2)
}

func TestCancel(t *testing.T) {
	r := New(8)
	id := r.Create("prompt long enough", models.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	r.RegisterCancel(id, cancel)

	require.NoError(t, r.Cancel(id))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	require.NoError(t, r.Mutate(id, func(lab *models.Lab) {
		lab.Status = models.StatusFailed
	}))
	assert.ErrorIs(t, r.Cancel(id), ErrNotCancellable)
	assert.ErrorIs(t, r.Cancel("nope"), ErrNotFound)
}

func TestCancelBeforeRegisterFiresOnRegistration(t *testing.T) {
	r := New(8)
	id := r.Create("prompt long enough", models.Options{})

	require.NoError(t, r.Cancel(id))

	ctx, cancel := context.WithCancel(context.Background())
	r.RegisterCancel(id, cancel)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
