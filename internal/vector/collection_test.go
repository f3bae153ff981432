package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string `json:"name"`
}

func newTestCollection(t *testing.T) *Collection[record] {
	t.Helper()
	dir := t.TempDir()
	return NewCollection[record]("memory", filepath.Join(dir, "index.bin"), filepath.Join(dir, "meta.json"))
}

func TestCollection_QueryMissing(t *testing.T) {
	c := newTestCollection(t)
	_, err := c.Query(context.Background(), []float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.False(t, c.Exists())
}

func TestCollection_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)

	require.NoError(t, c.Append(ctx, []float32{2, 0, 0}, record{"x"}))
	require.NoError(t, c.Append(ctx, []float32{0, 3, 0}, record{"y"}))
	require.NoError(t, c.Append(ctx, []float32{0, 0, 1}, record{"z"}))
	assert.Equal(t, 3, c.Size())

	hits, err := c.Query(ctx, []float32{0, 5, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "y", hits[0].Item.Name)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestCollection_AppendDimensionChangeRebuilds(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)

	require.NoError(t, c.Append(ctx, []float32{1, 0}, record{"old-1"}))
	require.NoError(t, c.Append(ctx, []float32{0, 1}, record{"old-2"}))
	require.NoError(t, c.Append(ctx, []float32{1, 0, 0}, record{"new"}))

	items, err := c.Items()
	require.NoError(t, err)
	assert.Equal(t, []record{{"new"}}, items)
	assert.Equal(t, 1, c.Size())
}

func TestCollection_QueryDimensionChangeRebuilds(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)
	require.NoError(t, c.Append(ctx, []float32{1, 0}, record{"a"}))

	hits, err := c.Query(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	items, err := c.Items()
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, c.Size())
}

func TestCollection_SkipsStaleSlots(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)
	require.NoError(t, c.Append(ctx, []float32{1, 0}, record{"a"}))
	require.NoError(t, c.Append(ctx, []float32{0.9, 0.1}, record{"b"}))

	// Truncate the sidecar so slot 1 has no record.
	require.NoError(t, os.WriteFile(c.metaPath, []byte(`[{"name":"a"}]`), 0644))

	hits, err := c.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Item.Name)
}

func TestCollection_Replace(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)
	require.NoError(t, c.Append(ctx, []float32{1, 0}, record{"previous"}))

	dim, err := c.Replace(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}}, []record{{"a"}, {"b"}})
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	items, err := c.Items()
	require.NoError(t, err)
	assert.Equal(t, []record{{"a"}, {"b"}}, items)

	_, err = c.Replace(ctx, nil, nil)
	assert.Error(t, err)
	items, err = c.Items()
	require.NoError(t, err)
	assert.Len(t, items, 2, "failed replace must leave the collection untouched")
}
