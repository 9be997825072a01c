package resource

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-desim/simtime"
)

func TestCreateRejectsDuplicateAndEmpty(t *testing.T) {
	m := New()
	require.NoError(t, m.Create("r", 1))
	require.ErrorIs(t, m.Create("r", 1), ErrDuplicateName)
	require.ErrorIs(t, m.Create("", 1), ErrEmptyName)
}

func TestRequestGrantsUntilCapacityExhausted(t *testing.T) {
	m := New()
	require.NoError(t, m.Create("atm", 2))

	o1, err := m.Request("atm", "p1", simtime.Zero)
	require.NoError(t, err)
	require.Equal(t, Granted, o1)

	o2, err := m.Request("atm", "p2", simtime.Zero)
	require.NoError(t, err)
	require.Equal(t, Granted, o2)

	o3, err := m.Request("atm", "p3", simtime.Zero)
	require.NoError(t, err)
	require.Equal(t, Queued, o3)

	stats := m.Stats()
	require.Len(t, stats, 1)
	require.EqualValues(t, 0, stats[0].Available)
	require.EqualValues(t, 1, stats[0].QueueLength)
}

func TestRequestUnknownResource(t *testing.T) {
	m := New()
	_, err := m.Request("nope", "p1", simtime.Zero)
	require.ErrorIs(t, err, ErrUnknown)
}

func TestReleaseHandsOffFIFO(t *testing.T) {
	m := New()
	require.NoError(t, m.Create("cashier", 1))

	_, err := m.Request("cashier", "p1", simtime.FromSeconds(0))
	require.NoError(t, err)
	_, err = m.Request("cashier", "p2", simtime.FromSeconds(1))
	require.NoError(t, err)
	_, err = m.Request("cashier", "p3", simtime.FromSeconds(2))
	require.NoError(t, err)

	handoff, ok, err := m.Release("cashier", simtime.FromSeconds(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p2", handoff, "FIFO: earliest enqueued waiter goes first")

	stats := m.Stats()
	require.EqualValues(t, 0, stats[0].Available, "hand-off keeps available at zero")
	require.EqualValues(t, 1, stats[0].QueueLength)
	require.Equal(t, simtime.FromSeconds(2), stats[0].TotalWaitTime, "p2 waited from t=1 to t=3")
}

func TestReleaseWithEmptyWaitListIncrementsAvailable(t *testing.T) {
	m := New()
	require.NoError(t, m.Create("r", 2))
	_, err := m.Request("r", "p1", simtime.Zero)
	require.NoError(t, err)

	_, ok, err := m.Release("r", simtime.Zero)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, m.Stats()[0].Available)
}

func TestDoubleReleaseIsNoOp(t *testing.T) {
	m := New()
	require.NoError(t, m.Create("r", 1))
	_, ok, err := m.Release("r", simtime.Zero)
	require.NoError(t, err)
	require.False(t, ok, "releasing an already-full resource reports ok=false")
}

func TestForgetRemovesWaiter(t *testing.T) {
	m := New()
	require.NoError(t, m.Create("r", 1))
	_, err := m.Request("r", "p1", simtime.Zero)
	require.NoError(t, err)
	_, err = m.Request("r", "p2", simtime.Zero)
	require.NoError(t, err)

	m.Forget("r", "p2")
	handoff, ok, err := m.Release("r", simtime.Zero)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, handoff, "p2 was forgotten, no waiter remains")
}

func TestUtilisation(t *testing.T) {
	m := New()
	require.NoError(t, m.Create("r", 4))
	_, err := m.Request("r", "p1", simtime.Zero)
	require.NoError(t, err)
	stats := m.Stats()
	require.InDelta(t, 0.25, stats[0].Utilisation, 1e-9)
}
