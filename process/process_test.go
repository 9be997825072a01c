package process

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-desim/simtime"
)

func TestCreateRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("p", "main")
	require.NoError(t, err)
	_, err = r.Create("p", "main")
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestNameNotReclaimedUntilCleanup(t *testing.T) {
	r := NewRegistry()
	rec, err := r.Create("p", "main")
	require.NoError(t, err)
	r.SetFinished(rec.ID)

	_, err = r.Create("p", "main")
	require.ErrorIs(t, err, ErrDuplicateName, "name must stay reserved until Cleanup runs")

	r.Cleanup()
	_, err = r.Create("p", "main")
	require.NoError(t, err, "Cleanup frees the name for reuse")
}

func TestCleanupRemovesOnlyFinished(t *testing.T) {
	r := NewRegistry()
	live, err := r.Create("live", "main")
	require.NoError(t, err)
	dead, err := r.Create("dead", "main")
	require.NoError(t, err)
	r.SetFinished(dead.ID)

	r.Cleanup()

	require.ElementsMatch(t, []ID{live.ID}, r.ListActive())
	_, ok := r.Get(dead.ID)
	require.False(t, ok)
	_, ok = r.GetByName("dead")
	require.False(t, ok)
}

func TestStateTransitions(t *testing.T) {
	r := NewRegistry()
	rec, err := r.Create("p", "main")
	require.NoError(t, err)
	require.Equal(t, Ready, r.State(rec.ID))

	r.SetRunning(rec.ID)
	require.Equal(t, Running, r.State(rec.ID))

	r.SetWaitingForTime(rec.ID, simtime.FromSeconds(5))
	require.Equal(t, WaitingForTime, r.State(rec.ID))
	got, _ := r.Get(rec.ID)
	require.Equal(t, simtime.FromSeconds(5), got.WakeTime)

	r.SetWaitingForResource(rec.ID, "cashier")
	require.Equal(t, WaitingForResource, r.State(rec.ID))
	got, _ = r.Get(rec.ID)
	require.Equal(t, "cashier", got.WaitingRes)

	r.SetReady(rec.ID)
	require.Equal(t, Ready, r.State(rec.ID))
	got, _ = r.Get(rec.ID)
	require.Empty(t, got.WaitingRes)
}

func TestStateOfUnknownIsFinished(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, Finished, r.State(999))
}

func TestListActiveExcludesFinished(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Create("a", "main")
	b, _ := r.Create("b", "main")
	r.SetFinished(b.ID)
	require.Equal(t, []ID{a.ID}, r.ListActive())
}
