package memory

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplementsDatabase(t *testing.T) {
	inter := reflect.TypeOf((*database.Database)(nil)).Elem()

	if !reflect.TypeOf(New()).Implements(inter) {
		t.Errorf("Memory does not implement the database interface")
	}
}

func seed(t *testing.T, m *Memory) (*node.FolderRecord, *node.BlockRecord, *node.BlockRecord) {
	t.Helper()
	ctx := context.Background()
	folder := &node.FolderRecord{Title: "Home", IsActive: true}
	_, err := m.AddFolder(ctx, folder)
	require.NoError(t, err)
	content := &node.BlockRecord{Name: "content"}
	_, err = m.AddBlock(ctx, content)
	require.NoError(t, err)
	sidebar := &node.BlockRecord{Name: "sidebar"}
	_, err = m.AddBlock(ctx, sidebar)
	require.NoError(t, err)
	return folder, content, sidebar
}

func addNode(t *testing.T, m *Memory, module string, f node.Folder, b node.Block, position, priority int) *node.Node {
	t.Helper()
	n := node.New().SetModule(module).SetPosition(position).SetPriority(priority)
	require.NoError(t, n.SetFolder(f))
	require.NoError(t, n.SetBlock(b))
	_, err := m.AddNode(context.Background(), n)
	require.NoError(t, err)
	return n
}

func TestMemory_AddAndGetNode(t *testing.T) {
	m := New()
	ctx := context.Background()
	folder, content, _ := seed(t, m)

	n := node.New().SetModule("Texter").SetParams(node.Params{"text_item_id": 1})
	require.NoError(t, n.SetFolder(folder))
	require.NoError(t, n.SetBlock(content))

	id, err := m.AddNode(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, id, n.ID())

	got, err := m.GetNode(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Texter", got.Module())
	name, err := got.BlockName()
	require.NoError(t, err)
	assert.Equal(t, "content", name)
	folderID, err := got.FolderID()
	require.NoError(t, err)
	assert.Equal(t, folder.ID, folderID)
	v, ok := got.Param("text_item_id")
	assert.True(t, ok)
	assert.Equal(t, json.Number("1"), v)

	_, err = m.GetNode(ctx, 404)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestMemory_AddNodeRejectsInvalid(t *testing.T) {
	m := New()
	_, err := m.AddNode(context.Background(), node.New())
	assert.ErrorIs(t, err, node.ErrInvalid)
}

func TestMemory_FolderNodesOrdering(t *testing.T) {
	m := New()
	ctx := context.Background()
	folder, content, sidebar := seed(t, m)

	a := addNode(t, m, "Menu", folder, sidebar, 1, 0)
	b := addNode(t, m, "Texter", folder, content, 2, 0)
	c := addNode(t, m, "News", folder, content, 1, 0)
	d := addNode(t, m, "Banner", folder, content, 1, 10)

	nl, err := m.GetFolderNodes(ctx, folder.ID, 10, 0)
	require.NoError(t, err)
	var ids []int64
	for _, n := range nl {
		ids = append(ids, n.ID())
	}
	assert.Equal(t, []int64{d.ID(), c.ID(), b.ID(), a.ID()}, ids)

	total, err := m.GetTotalFolderNodes(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	page, err := m.GetFolderNodes(ctx, folder.ID, 2, 3)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	empty, err := m.GetFolderNodes(ctx, folder.ID, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemory_BlockNodes(t *testing.T) {
	m := New()
	ctx := context.Background()
	folder, content, _ := seed(t, m)

	active := addNode(t, m, "News", folder, content, 1, 0)
	inactive := addNode(t, m, "Texter", folder, content, 2, 0)
	inactive.SetActive(false)
	require.NoError(t, m.EditNode(ctx, inactive))

	all, err := m.GetBlockNodes(ctx, content.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled, err := m.GetBlockNodes(ctx, content.ID, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, active.ID(), enabled[0].ID())
}

func TestMemory_EditAndDelete(t *testing.T) {
	m := New()
	ctx := context.Background()
	folder, content, _ := seed(t, m)
	n := addNode(t, m, "News", folder, content, 1, 0)

	n.SetTemplate("list.html").SetDescription("latest news")
	require.NoError(t, m.EditNode(ctx, n))
	got, err := m.GetNode(ctx, n.ID())
	require.NoError(t, err)
	assert.Equal(t, "list.html", got.Template(""))
	assert.Equal(t, "latest news", got.Description())

	require.NoError(t, m.DeleteNode(ctx, n.ID()))
	assert.ErrorIs(t, m.DeleteNode(ctx, n.ID()), database.ErrNotFound)
	assert.ErrorIs(t, m.EditNode(ctx, n), database.ErrNotFound)
}
