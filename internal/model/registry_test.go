package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rishav/goldmine/internal/fixedpoint"
)

func TestRegistryInsertAndLookup(t *testing.T) {
	r := NewOrderRegistry()
	o := New(42, "A", "FOO", fixedpoint.FromFloat(1), 10, Buy, Market)
	require.NoError(t, r.Insert(o))

	got, ok := r.ByClientID(42)
	require.True(t, ok)
	require.Same(t, o, got)

	got, ok = r.ByLocalID(o.LocalID)
	require.True(t, ok)
	require.Same(t, o, got)
}

func TestRegistryRejectsDuplicateClientID(t *testing.T) {
	r := NewOrderRegistry()
	o1 := New(7, "A", "FOO", fixedpoint.FromFloat(1), 10, Buy, Market)
	o2 := New(7, "A", "BAR", fixedpoint.FromFloat(1), 10, Sell, Market)
	require.NoError(t, r.Insert(o1))
	require.ErrorIs(t, r.Insert(o2), ErrDuplicateClientID)
}

func TestRegistryRetireMovesOrderOutOfActiveTables(t *testing.T) {
	r := NewOrderRegistry()
	o := New(1, "A", "FOO", fixedpoint.FromFloat(1), 10, Buy, Market)
	require.NoError(t, r.Insert(o))
	require.Equal(t, 1, r.ActiveCount())

	o.State = Executed
	r.Retire(o.LocalID)
	require.Equal(t, 0, r.ActiveCount())

	got, ok := r.ByLocalID(o.LocalID)
	require.True(t, ok)
	require.Same(t, o, got)

	_, ok = r.ByClientID(o.ClientAssignedID)
	require.False(t, ok)
}
