package simtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSub(t *testing.T) {
	a := FromSeconds(5)
	b := a.Add(FromSeconds(3))
	require.Equal(t, FromSeconds(8), b)

	c := a.Sub(FromSeconds(10))
	require.Equal(t, Zero, c, "Sub saturates at zero")
}

func TestFromSecondsClampsNegative(t *testing.T) {
	require.Equal(t, Zero, FromSeconds(-5))
}

func TestPriorityValid(t *testing.T) {
	require.True(t, High.Valid())
	require.True(t, Normal.Valid())
	require.True(t, Low.Valid())
	require.False(t, Priority(42).Valid())
}

func TestPriorityOrdering(t *testing.T) {
	require.Less(t, int(High), int(Normal))
	require.Less(t, int(Normal), int(Low))
}
