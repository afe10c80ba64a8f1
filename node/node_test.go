package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFolder struct {
	id    int64
	calls int
}

func (f *countingFolder) FolderID() int64 {
	f.calls++
	return f.id
}

type countingBlock struct {
	id    int64
	name  string
	calls int
}

func (b *countingBlock) BlockID() int64 {
	return b.id
}

func (b *countingBlock) BlockName() string {
	b.calls++
	return b.name
}

func newTestNode(t *testing.T) *Node {
	t.Helper()
	n := New().SetModule("News")
	require.NoError(t, n.SetFolder(&FolderRecord{ID: 3, Title: "About us"}))
	require.NoError(t, n.SetBlock(&BlockRecord{ID: 7, Name: "content"}))
	return n
}

func TestNew_Defaults(t *testing.T) {
	n := New()

	assert.False(t, n.HasID())
	assert.True(t, n.IsEnabled())
	assert.True(t, n.Cached().Valid)
	assert.False(t, n.Cached().Bool)
	assert.Empty(t, n.Params())
	assert.Equal(t, 0, n.Position())
	assert.Equal(t, 0, n.Priority())
	assert.Equal(t, int64(0), n.CreatedByUserID())
	assert.False(t, n.CreatedAt().IsZero())
	assert.False(t, n.IsEip())
	assert.Empty(t, n.FrontControls())
}

func TestNode_AssignID(t *testing.T) {
	n := New()
	assert.ErrorIs(t, n.AssignID(0), ErrInvalidID)
	require.NoError(t, n.AssignID(12))
	assert.Equal(t, int64(12), n.ID())
	assert.ErrorIs(t, n.AssignID(13), ErrIDAssigned)
	assert.Equal(t, int64(12), n.ID())
}

func TestNode_EnabledDisabledAreComplements(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(n *Node)
		enabled bool
	}{
		{"active", func(n *Node) { n.SetActive(true) }, true},
		{"inactive", func(n *Node) { n.SetActive(false) }, false},
		{"unset", func(n *Node) { n.ClearActive() }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New()
			tt.setup(n)
			assert.Equal(t, tt.enabled, n.IsEnabled())
			assert.Equal(t, !tt.enabled, n.IsDisabled())
		})
	}
}

func TestNode_SetPosition(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{-1, 0},
		{-300, 0},
		{5, 5},
	}
	for _, tt := range tests {
		n := New().SetPosition(tt.in)
		assert.Equal(t, tt.want, n.Position(), "SetPosition(%d)", tt.in)
	}
}

func TestNode_Template(t *testing.T) {
	n := New()
	assert.Equal(t, "fallback", n.Template("fallback"))
	n.SetTemplate("")
	assert.Equal(t, "fallback", n.Template("fallback"))
	n.SetTemplate("wide.html")
	assert.Equal(t, "wide.html", n.Template("fallback"))
}

func TestNode_Params(t *testing.T) {
	n := New().SetParams(Params{"count": 10, "tag": "go"})

	v, ok := n.Param("count")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	v, ok = n.Param("missing")
	assert.False(t, ok)
	assert.Nil(t, v)

	n.SetParams(nil)
	assert.NotNil(t, n.Params())
	assert.Empty(t, n.Params())
}

func TestNode_RelationsRequireValue(t *testing.T) {
	n := New()
	var folder *FolderRecord
	var block *BlockRecord

	err := n.SetFolder(folder)
	assert.ErrorIs(t, err, ErrRelationNotSet)
	err = n.SetBlock(nil)
	assert.ErrorIs(t, err, ErrRelationNotSet)
	err = n.SetBlock(block)
	assert.ErrorIs(t, err, ErrRelationNotSet)

	var rerr *RelationError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, RelationBlock, rerr.Relation)
}

func TestNode_FolderIDIsMemoized(t *testing.T) {
	f := &countingFolder{id: 42}
	n := New()
	require.NoError(t, n.SetFolder(f))

	id, err := n.FolderID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	f.id = 99
	id, err = n.FolderID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, 1, f.calls)
}

func TestNode_BlockNameIsMemoized(t *testing.T) {
	b := &countingBlock{id: 1, name: "sidebar"}
	n := New()
	require.NoError(t, n.SetBlock(b))

	for i := 0; i < 3; i++ {
		name, err := n.BlockName()
		require.NoError(t, err)
		assert.Equal(t, "sidebar", name)
	}
	assert.Equal(t, 1, b.calls)
}

func TestNode_DerivedFieldsWithoutRelations(t *testing.T) {
	n := New()

	_, err := n.FolderID()
	assert.ErrorIs(t, err, ErrRelationNotSet)
	_, err = n.BlockName()
	assert.ErrorIs(t, err, ErrRelationNotSet)
}

func TestNode_FrontControls(t *testing.T) {
	n := New()
	n.AddFrontControl("x", 1)
	assert.Empty(t, n.FrontControls())
	n.SetFrontControls(map[string]interface{}{"y": 2})
	assert.Empty(t, n.FrontControls())

	n.SetEip(true)
	n.AddFrontControl("x", 1).AddFrontControl("x", "edit")
	assert.Equal(t, map[string]interface{}{"x": "edit"}, n.FrontControls())

	n.SetFrontControls(map[string]interface{}{"y": 2})
	assert.Equal(t, map[string]interface{}{"y": 2}, n.FrontControls())

	n.SetEip(false)
	n.AddFrontControl("z", 3)
	assert.Equal(t, map[string]interface{}{"y": 2}, n.FrontControls())
}

func TestNode_Controller(t *testing.T) {
	n := New().SetModule("News")

	c := n.Controller()
	assert.Equal(t, "NewsModule:News:index", c.Target())

	n.SetModule("Gallery")
	assert.Equal(t, c, n.Controller())
	assert.Equal(t, "NewsModule:News:index", n.ControllerFor("Other", "show").Target())
}

func TestNode_ControllerFor(t *testing.T) {
	n := New().SetModule("Blog")
	assert.Equal(t, "BlogModule:Archive:list", n.ControllerFor("Archive", "list").Target())

	n.SetController(Controller{ControllerKey: "TextModule:Text:show"})
	assert.Equal(t, "TextModule:Text:show", n.Controller().Target())

	n.SetController(nil)
	assert.Equal(t, "BlogModule:Blog:index", n.Controller().Target())
}

func TestNode_Validate(t *testing.T) {
	assert.NoError(t, newTestNode(t).Validate())

	n := New().SetModule("   ").SetTemplate("a-template-name-that-is-way-too-long.html")
	err := n.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"module":   "notblank",
		"template": "max",
		"folder":   "required",
		"block":    "required",
	}, verr.Fields)
}

func TestNode_ValidateSmallintBounds(t *testing.T) {
	tests := []struct {
		name     string
		position int
		priority int
		fields   map[string]string
	}{
		{"upper bounds", 32767, 32767, nil},
		{"lower priority bound", 0, -32768, nil},
		{"position too large", 32768, 0, map[string]string{"position": "max"}},
		{"priority too large", 0, 32768, map[string]string{"priority": "max"}},
		{"priority too small", 0, -32769, map[string]string{"priority": "min"}},
		{"both out of range", 70000, -99999, map[string]string{"position": "max", "priority": "min"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNode(t).SetPosition(tt.position).SetPriority(tt.priority)
			err := n.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.fields, verr.Fields)
		})
	}
}

func TestRestore_NormalizesState(t *testing.T) {
	n := Restore(Record{ID: 5, Module: "Menu", Position: -2})

	assert.Equal(t, int64(5), n.ID())
	assert.Equal(t, 0, n.Position())
	assert.NotNil(t, n.Params())
	assert.True(t, n.IsDisabled())

	r := n.Record()
	assert.Equal(t, "Menu", r.Module)
	assert.Equal(t, int64(5), r.ID)
}
