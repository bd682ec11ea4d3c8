package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLookup struct{}

func (failingLookup) ParentOf(context.Context, int64) (int64, bool, error) {
	return 0, false, errors.New("connection refused")
}

func chain() ParentIndex {
	// 1 <- 2 <- 3, 4 is a separate root
	return ParentIndex{1: RootID, 2: 1, 3: 2, 4: RootID}
}

func TestValidateParent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		index     ParentIndex
		id        int64
		newParent int64
		maxDepth  int
		wantErr   error
	}{
		{name: "move to root", index: chain(), id: 3, newParent: RootID},
		{name: "move under unrelated root", index: chain(), id: 3, newParent: 4},
		{name: "move under sibling branch", index: chain(), id: 4, newParent: 3},
		{name: "self parent", index: chain(), id: 1, newParent: 1, wantErr: ErrSelfParent},
		{name: "ancestor under descendant", index: chain(), id: 1, newParent: 3, wantErr: ErrCycle},
		{name: "direct child", index: chain(), id: 2, newParent: 3, wantErr: ErrCycle},
		{name: "missing parent", index: chain(), id: 1, newParent: 77, wantErr: ErrParentNotFound},
		{
			name:      "existing corrupt loop fails closed",
			index:     ParentIndex{1: RootID, 5: 6, 6: 5},
			id:        1,
			newParent: 5,
			wantErr:   ErrCycle,
		},
		{
			name:      "depth cap fails closed",
			index:     ParentIndex{1: RootID, 2: 1, 3: 2, 4: 3, 5: 4, 9: RootID},
			id:        9,
			newParent: 5,
			maxDepth:  3,
			wantErr:   ErrDepthExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParent(ctx, tt.index, tt.id, tt.newParent, tt.maxDepth)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidateParentDepthExceededIsCycle(t *testing.T) {
	assert.ErrorIs(t, ErrDepthExceeded, ErrCycle)
}

func TestValidateParentLookupError(t *testing.T) {
	err := ValidateParent(context.Background(), failingLookup{}, 1, 2, 0)

	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestValidateCreate(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, ValidateCreate(ctx, chain(), RootID))
	assert.NoError(t, ValidateCreate(ctx, chain(), 3))
	assert.ErrorIs(t, ValidateCreate(ctx, chain(), 12), ErrParentNotFound)
}

func TestValidateDelete(t *testing.T) {
	ctx := context.Background()

	assert.ErrorIs(t, ValidateDelete(ctx, chain(), 1), ErrHasChildren)
	assert.ErrorIs(t, ValidateDelete(ctx, chain(), 2), ErrHasChildren)
	assert.NoError(t, ValidateDelete(ctx, chain(), 3))
	assert.NoError(t, ValidateDelete(ctx, chain(), 4))
}

func TestWithAncestors(t *testing.T) {
	idx := ParentIndex{1: RootID, 2: 1, 3: 2, 4: RootID, 5: 4, 6: 7, 7: 6}

	got := idx.WithAncestors([]int64{3, 5, 404})
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true, 4: true, 5: true}, got)

	looped := idx.WithAncestors([]int64{6})
	assert.Equal(t, map[int64]bool{6: true, 7: true}, looped)
}

func TestIndexOf(t *testing.T) {
	idx := IndexOf([]testNode{{ID: 1}, {ID: 2, Parent: 1}})
	assert.Equal(t, ParentIndex{1: RootID, 2: 1}, idx)
}
