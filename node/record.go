package node

import (
	"database/sql"
	"time"
)

// Record is the persisted state of a node. Runtime state (edit-in-place,
// front controls, the routing target) is not part of it.
type Record struct {
	ID              int64
	IsActive        sql.NullBool
	Module          string
	Params          Params
	Template        string
	Folder          Folder
	Block           Block
	Position        int
	Priority        int
	IsCached        sql.NullBool
	Description     string
	CreatedByUserID int64
	CreatedAt       time.Time
}

// Restore rebuilds a node from persisted state.
func Restore(r Record) *Node {
	n := &Node{
		id:              r.ID,
		isActive:        r.IsActive,
		module:          r.Module,
		template:        r.Template,
		folder:          r.Folder,
		block:           r.Block,
		priority:        r.Priority,
		isCached:        r.IsCached,
		description:     r.Description,
		createdByUserID: r.CreatedByUserID,
		createdAt:       r.CreatedAt,
		frontControls:   make(map[string]interface{}),
	}
	n.SetParams(r.Params)
	n.SetPosition(r.Position)
	return n
}

func (n *Node) Record() Record {
	return Record{
		ID:              n.id,
		IsActive:        n.isActive,
		Module:          n.module,
		Params:          n.Params(),
		Template:        n.template,
		Folder:          n.folder,
		Block:           n.block,
		Position:        n.position,
		Priority:        n.priority,
		IsCached:        n.isCached,
		Description:     n.description,
		CreatedByUserID: n.createdByUserID,
		CreatedAt:       n.createdAt,
	}
}
