package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, src := range []string{"recA", "recB", "recC"} {
		e := NewEntry(src, "FAILED_PARTIAL", "decision batch short", []string{"t1"}, nil, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.Record(ctx, e))
	}

	got, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "recC", got[0].SourceID)
	assert.Equal(t, "recB", got[1].SourceID)
	assert.Equal(t, []string{}, got[0].CreatedDecisionIDs)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, DefaultListLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxListLimit, clampLimit(MaxListLimit+1))
}

func TestNewEntry_CopiesIDs(t *testing.T) {
	tasks := []string{"t1", "t2"}
	e := NewEntry("recX", "FAILED_PARTIAL_ORPHAN_RISK", "delete failed", tasks, []string{"d1"}, time.Now())
	tasks[0] = "mutated"
	assert.Equal(t, []string{"t1", "t2"}, e.CreatedTaskIDs)
	assert.NotEqual(t, [16]byte{}, [16]byte(e.ID))
}
