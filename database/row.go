package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aquilax/cmsnode/node"
)

// SelectNodes is the column list shared by the SQL backends. The block name
// comes from a join so loaded nodes can answer BlockName without a lookup.
const SelectNodes = `SELECT
	n.node_id,
	n.is_active,
	n.module,
	n.params,
	n.template,
	n.folder_id,
	n.block_id,
	b.name AS block_name,
	n.position,
	n.priority,
	n.is_cached,
	n.descr,
	n.create_by_user_id,
	n.create_datetime
	FROM engine_nodes n
	LEFT JOIN engine_blocks b ON b.block_id = n.block_id`

// NodeRow is the flat engine_nodes row.
type NodeRow struct {
	ID              int64          `db:"node_id"`
	IsActive        sql.NullBool   `db:"is_active"`
	Module          string         `db:"module"`
	Params          string         `db:"params"`
	Template        sql.NullString `db:"template"`
	FolderID        int64          `db:"folder_id"`
	BlockID         int64          `db:"block_id"`
	BlockName       sql.NullString `db:"block_name"`
	Position        int            `db:"position"`
	Priority        int            `db:"priority"`
	IsCached        sql.NullBool   `db:"is_cached"`
	Description     sql.NullString `db:"descr"`
	CreatedByUserID int64          `db:"create_by_user_id"`
	CreatedAt       time.Time      `db:"create_datetime"`
}

type NodeRows []NodeRow

func NewNodeRow(n *node.Node) (NodeRow, error) {
	folderID, err := n.FolderID()
	if err != nil {
		return NodeRow{}, err
	}
	block := n.Block()
	if block == nil {
		return NodeRow{}, &node.RelationError{Relation: node.RelationBlock}
	}
	blockName, err := n.BlockName()
	if err != nil {
		return NodeRow{}, err
	}
	params, err := EncodeParams(n.Params())
	if err != nil {
		return NodeRow{}, err
	}
	return NodeRow{
		ID:              n.ID(),
		IsActive:        n.Active(),
		Module:          n.Module(),
		Params:          params,
		Template:        nullString(n.Template("")),
		FolderID:        folderID,
		BlockID:         block.BlockID(),
		BlockName:       nullString(blockName),
		Position:        n.Position(),
		Priority:        n.Priority(),
		IsCached:        n.Cached(),
		Description:     nullString(n.Description()),
		CreatedByUserID: n.CreatedByUserID(),
		CreatedAt:       n.CreatedAt(),
	}, nil
}

func (r NodeRow) Node() (*node.Node, error) {
	params, err := DecodeParams(r.Params)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", r.ID, err)
	}
	return node.Restore(node.Record{
		ID:              r.ID,
		IsActive:        r.IsActive,
		Module:          r.Module,
		Params:          params,
		Template:        r.Template.String,
		Folder:          &node.FolderRecord{ID: r.FolderID},
		Block:           &node.BlockRecord{ID: r.BlockID, Name: r.BlockName.String},
		Position:        r.Position,
		Priority:        r.Priority,
		IsCached:        r.IsCached,
		Description:     r.Description.String,
		CreatedByUserID: r.CreatedByUserID,
		CreatedAt:       r.CreatedAt,
	}), nil
}

func (rows NodeRows) Nodes() (node.NodeList, error) {
	nl := make(node.NodeList, 0, len(rows))
	for _, r := range rows {
		n, err := r.Node()
		if err != nil {
			return nil, err
		}
		nl = append(nl, n)
	}
	return nl, nil
}

// EncodeParams stores params as JSON text.
func EncodeParams(p node.Params) (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	return string(b), nil
}

func DecodeParams(s string) (node.Params, error) {
	p := make(node.Params)
	if s == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
