package hierarchy

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	ID     int64
	Parent int64
	Order  int
}

func (n testNode) NodeID() int64       { return n.ID }
func (n testNode) ParentNodeID() int64 { return n.Parent }
func (n testNode) SortKey() int        { return n.Order }

func ids(items []testNode) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestBuildTree(t *testing.T) {
	t.Run("groups children under parents", func(t *testing.T) {
		nodes := []testNode{
			{ID: 1, Parent: RootID},
			{ID: 2, Parent: 1},
			{ID: 3, Parent: 1},
			{ID: 4, Parent: 2},
			{ID: 5, Parent: RootID},
		}

		forest := BuildTree(nodes)

		require.Len(t, forest, 2)
		assert.Equal(t, int64(1), forest[0].Item.ID)
		assert.Equal(t, int64(5), forest[1].Item.ID)
		require.Len(t, forest[0].Children, 2)
		assert.Equal(t, int64(4), forest[0].Children[0].Children[0].Item.ID)
		assert.Empty(t, forest[1].Children)
	})

	t.Run("orders siblings by sort key then input order", func(t *testing.T) {
		nodes := []testNode{
			{ID: 10, Parent: RootID, Order: 2},
			{ID: 11, Parent: RootID, Order: 1},
			{ID: 12, Parent: RootID, Order: 2},
			{ID: 13, Parent: RootID, Order: 0},
		}

		forest := BuildTree(nodes)

		assert.Equal(t, []int64{13, 11, 10, 12}, ids(Flatten(forest)))
	})

	t.Run("promotes orphans to roots", func(t *testing.T) {
		nodes := []testNode{
			{ID: 1, Parent: RootID},
			{ID: 2, Parent: 99},
			{ID: 3, Parent: 2},
		}

		forest := BuildTree(nodes)

		require.Len(t, forest, 2)
		assert.Equal(t, int64(2), forest[1].Item.ID)
		assert.Equal(t, int64(3), forest[1].Children[0].Item.ID)
	})

	t.Run("self parent becomes root", func(t *testing.T) {
		forest := BuildTree([]testNode{{ID: 7, Parent: 7}})

		require.Len(t, forest, 1)
		assert.Empty(t, forest[0].Children)
	})

	t.Run("keeps every node of a corrupt cycle exactly once", func(t *testing.T) {
		nodes := []testNode{
			{ID: 1, Parent: 3},
			{ID: 2, Parent: 1},
			{ID: 3, Parent: 2},
			{ID: 4, Parent: RootID},
		}

		forest := BuildTree(nodes)

		got := ids(Flatten(forest))
		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		assert.Equal(t, []int64{1, 2, 3, 4}, got)
		assert.Equal(t, 4, Count(forest))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, BuildTree[testNode](nil))
	})
}

func TestBuildTreeRoundTrip(t *testing.T) {
	nodes := []testNode{
		{ID: 1, Parent: RootID, Order: 3},
		{ID: 2, Parent: 1, Order: 1},
		{ID: 3, Parent: 1, Order: 0},
		{ID: 4, Parent: 3},
		{ID: 5, Parent: 4},
		{ID: 6, Parent: RootID, Order: 1},
		{ID: 7, Parent: 6},
		{ID: 8, Parent: 42},
	}

	flat := Flatten(BuildTree(nodes))

	require.Len(t, flat, len(nodes))
	seen := make(map[int64]int)
	for _, n := range flat {
		seen[n.ID]++
	}
	for _, n := range nodes {
		assert.Equal(t, 1, seen[n.ID], "node %d", n.ID)
	}
}
