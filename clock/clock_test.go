package clock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-desim/simtime"
)

func TestScheduleAndProcessOrder(t *testing.T) {
	c := New()
	var order []string

	require.NoError(t, c.ScheduleAt(simtime.FromSeconds(5), simtime.Normal, func() { order = append(order, "normal") }))
	require.NoError(t, c.ScheduleAt(simtime.FromSeconds(5), simtime.High, func() { order = append(order, "high") }))
	require.NoError(t, c.ScheduleAt(simtime.FromSeconds(1), simtime.Low, func() { order = append(order, "early") }))

	for c.HasEvents() {
		require.NoError(t, c.ProcessNextEvent())
	}

	require.Equal(t, []string{"early", "high", "normal"}, order)
	require.Equal(t, simtime.FromSeconds(5), c.Now())
}

func TestScheduleAtPastFails(t *testing.T) {
	c := New()
	require.NoError(t, c.ScheduleAt(simtime.FromSeconds(10), simtime.Normal, func() {}))
	require.NoError(t, c.ProcessNextEvent())
	require.ErrorIs(t, c.ScheduleAt(simtime.FromSeconds(5), simtime.Normal, func() {}), ErrPastSchedule)
}

func TestScheduleAfterNegativeDelay(t *testing.T) {
	c := New()
	require.ErrorIs(t, c.ScheduleAfter(simtime.FromSeconds(-1), simtime.Normal, func() {}), ErrNegativeDelay)
}

func TestProcessNextEventEmpty(t *testing.T) {
	c := New()
	require.ErrorIs(t, c.ProcessNextEvent(), ErrEmpty)
}

func TestDrainDueAtFiresOnlySimultaneous(t *testing.T) {
	c := New()
	var fired []simtime.SimTime
	require.NoError(t, c.ScheduleAt(simtime.FromSeconds(3), simtime.Normal, func() { fired = append(fired, c.Now()) }))
	require.NoError(t, c.ScheduleAt(simtime.FromSeconds(3), simtime.High, func() { fired = append(fired, c.Now()) }))
	require.NoError(t, c.ScheduleAt(simtime.FromSeconds(7), simtime.Normal, func() { fired = append(fired, c.Now()) }))

	require.NoError(t, c.DrainDueAt(simtime.FromSeconds(3)))
	require.Len(t, fired, 2)
	require.True(t, c.HasEvents())

	tm, ok := c.PeekTime()
	require.True(t, ok)
	require.Equal(t, simtime.FromSeconds(7), tm)
}

func TestAdvanceTo(t *testing.T) {
	c := New()
	require.NoError(t, c.AdvanceTo(simtime.FromSeconds(42)))
	require.Equal(t, simtime.FromSeconds(42), c.Now())
	require.ErrorIs(t, c.AdvanceTo(simtime.FromSeconds(1)), ErrPastSchedule)
}

func TestClear(t *testing.T) {
	c := New()
	require.NoError(t, c.ScheduleAt(simtime.FromSeconds(1), simtime.Normal, func() {}))
	c.Clear()
	require.False(t, c.HasEvents())
}
