package cached

import (
	"context"
	"reflect"
	"testing"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/database/memory"
	"github.com/aquilax/cmsnode/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplementsDatabase(t *testing.T) {
	inter := reflect.TypeOf((*database.Database)(nil)).Elem()

	if !reflect.TypeOf(New(memory.New())).Implements(inter) {
		t.Errorf("Cached does not implement the database interface")
	}
}

type countingDB struct {
	*memory.Memory
	getNode int
}

func (c *countingDB) GetNode(ctx context.Context, nodeID int64) (*node.Node, error) {
	c.getNode++
	return c.Memory.GetNode(ctx, nodeID)
}

func TestCached_GetNode(t *testing.T) {
	ctx := context.Background()
	inner := &countingDB{Memory: memory.New()}
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "hits"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "misses"})
	db := New(inner).WithMetrics(hits, misses)

	folder := &node.FolderRecord{Title: "Home"}
	_, err := db.AddFolder(ctx, folder)
	require.NoError(t, err)
	block := &node.BlockRecord{Name: "content"}
	_, err = db.AddBlock(ctx, block)
	require.NoError(t, err)

	n := node.New().SetModule("News")
	require.NoError(t, n.SetFolder(folder))
	require.NoError(t, n.SetBlock(block))
	id, err := db.AddNode(ctx, n)
	require.NoError(t, err)

	first, err := db.GetNode(ctx, id)
	require.NoError(t, err)
	second, err := db.GetNode(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.getNode)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Module(), second.Module())
	assert.Equal(t, float64(1), testutil.ToFloat64(hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(misses))

	second.SetModule("Gallery")
	require.NoError(t, db.EditNode(ctx, second))
	third, err := db.GetNode(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Gallery", third.Module())
	assert.Equal(t, 2, inner.getNode)
}

func TestCached_FolderListingInvalidation(t *testing.T) {
	ctx := context.Background()
	db := New(memory.New())

	folder := &node.FolderRecord{Title: "Home"}
	_, err := db.AddFolder(ctx, folder)
	require.NoError(t, err)
	block := &node.BlockRecord{Name: "content"}
	_, err = db.AddBlock(ctx, block)
	require.NoError(t, err)

	total, err := db.GetTotalFolderNodes(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	n := node.New().SetModule("News")
	require.NoError(t, n.SetFolder(folder))
	require.NoError(t, n.SetBlock(block))
	_, err = db.AddNode(ctx, n)
	require.NoError(t, err)

	total, err = db.GetTotalFolderNodes(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	nl, err := db.GetFolderNodes(ctx, folder.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, nl, 1)

	require.NoError(t, db.DeleteNode(ctx, n.ID()))
	nl, err = db.GetBlockNodes(ctx, block.ID, false)
	require.NoError(t, err)
	assert.Empty(t, nl)
}

func TestCached_ParamsAreNotShared(t *testing.T) {
	ctx := context.Background()
	db := New(memory.New())

	folder := &node.FolderRecord{Title: "Home"}
	_, err := db.AddFolder(ctx, folder)
	require.NoError(t, err)
	block := &node.BlockRecord{Name: "content"}
	_, err = db.AddBlock(ctx, block)
	require.NoError(t, err)

	n := node.New().SetModule("News").SetParams(node.Params{"limit": "5"})
	require.NoError(t, n.SetFolder(folder))
	require.NoError(t, n.SetBlock(block))
	id, err := db.AddNode(ctx, n)
	require.NoError(t, err)

	got, err := db.GetNode(ctx, id)
	require.NoError(t, err)
	got.Params()["limit"] = "500"
	again, err := db.GetNode(ctx, id)
	require.NoError(t, err)
	v, _ := again.Param("limit")
	assert.Equal(t, "5", v)

	listed, err := db.GetFolderNodes(ctx, folder.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].Params()["limit"] = "500"
	listed, err = db.GetFolderNodes(ctx, folder.ID, 10, 0)
	require.NoError(t, err)
	v, _ = listed[0].Param("limit")
	assert.Equal(t, "5", v)

	inBlock, err := db.GetBlockNodes(ctx, block.ID, false)
	require.NoError(t, err)
	require.Len(t, inBlock, 1)
	inBlock[0].Params()["limit"] = "500"
	inBlock, err = db.GetBlockNodes(ctx, block.ID, false)
	require.NoError(t, err)
	v, _ = inBlock[0].Param("limit")
	assert.Equal(t, "5", v)
}
