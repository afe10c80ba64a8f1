package dynamo

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
)

func folderPK(id int64) string { return fmt.Sprintf("FOLDER#%d", id) }
func blockPK(id int64) string  { return fmt.Sprintf("BLOCK#%d", id) }
func nodePK(id int64) string   { return fmt.Sprintf("NODE#%d", id) }

// rankKey sorts by position ascending, then priority descending, then id.
func rankKey(position, priority int, nodeID int64) string {
	inverted := int64(math.MaxInt32) - int64(priority)
	return fmt.Sprintf("POS#%010d#PRI#%010d#NODE#%020d", position, inverted, nodeID)
}

func folderSortKey(blockID int64, position, priority int, nodeID int64) string {
	return fmt.Sprintf("BLOCK#%020d#", blockID) + rankKey(position, priority, nodeID)
}

type folderItem struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	Type      string    `dynamodbav:"Type"`
	ID        int64     `dynamodbav:"FolderID"`
	ParentID  int64     `dynamodbav:"ParentID"`
	Title     string    `dynamodbav:"Title"`
	URIPart   string    `dynamodbav:"URIPart"`
	IsActive  bool      `dynamodbav:"IsActive"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
}

func newFolderItem(f *node.FolderRecord) folderItem {
	return folderItem{
		PK:        folderPK(f.ID),
		SK:        metadataSK,
		Type:      typeFolder,
		ID:        f.ID,
		ParentID:  f.ParentID,
		Title:     f.Title,
		URIPart:   f.URIPart,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
	}
}

func (i folderItem) record() *node.FolderRecord {
	return &node.FolderRecord{
		ID:        i.ID,
		ParentID:  i.ParentID,
		Title:     i.Title,
		URIPart:   i.URIPart,
		IsActive:  i.IsActive,
		CreatedAt: i.CreatedAt,
	}
}

type blockItem struct {
	PK          string    `dynamodbav:"PK"`
	SK          string    `dynamodbav:"SK"`
	Type        string    `dynamodbav:"Type"`
	ID          int64     `dynamodbav:"BlockID"`
	Name        string    `dynamodbav:"Name"`
	Position    int       `dynamodbav:"Position"`
	Description string    `dynamodbav:"Description"`
	CreatedAt   time.Time `dynamodbav:"CreatedAt"`
}

func newBlockItem(b *node.BlockRecord) blockItem {
	return blockItem{
		PK:          blockPK(b.ID),
		SK:          metadataSK,
		Type:        typeBlock,
		ID:          b.ID,
		Name:        b.Name,
		Position:    b.Position,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}

func (i blockItem) record() *node.BlockRecord {
	return &node.BlockRecord{
		ID:          i.ID,
		Name:        i.Name,
		Position:    i.Position,
		Description: i.Description,
		CreatedAt:   i.CreatedAt,
	}
}

// nodeItem mirrors database.NodeRow. Unset flags are left out of the item.
type nodeItem struct {
	PK              string    `dynamodbav:"PK"`
	SK              string    `dynamodbav:"SK"`
	Type            string    `dynamodbav:"Type"`
	GSI1PK          string    `dynamodbav:"GSI1PK"`
	GSI1SK          string    `dynamodbav:"GSI1SK"`
	GSI2PK          string    `dynamodbav:"GSI2PK"`
	GSI2SK          string    `dynamodbav:"GSI2SK"`
	ID              int64     `dynamodbav:"NodeID"`
	IsActive        *bool     `dynamodbav:"IsActive,omitempty"`
	Module          string    `dynamodbav:"Module"`
	Params          string    `dynamodbav:"Params"`
	Template        string    `dynamodbav:"Template,omitempty"`
	FolderID        int64     `dynamodbav:"FolderID"`
	BlockID         int64     `dynamodbav:"BlockID"`
	Position        int       `dynamodbav:"Position"`
	Priority        int       `dynamodbav:"Priority"`
	IsCached        *bool     `dynamodbav:"IsCached,omitempty"`
	Description     string    `dynamodbav:"Description,omitempty"`
	CreatedByUserID int64     `dynamodbav:"CreatedByUserID"`
	CreatedAt       time.Time `dynamodbav:"CreatedAt"`
}

func newNodeItem(r database.NodeRow) nodeItem {
	return nodeItem{
		PK:              nodePK(r.ID),
		SK:              metadataSK,
		Type:            typeNode,
		GSI1PK:          folderPK(r.FolderID),
		GSI1SK:          folderSortKey(r.BlockID, r.Position, r.Priority, r.ID),
		GSI2PK:          blockPK(r.BlockID),
		GSI2SK:          rankKey(r.Position, r.Priority, r.ID),
		ID:              r.ID,
		IsActive:        boolPtr(r.IsActive),
		Module:          r.Module,
		Params:          r.Params,
		Template:        r.Template.String,
		FolderID:        r.FolderID,
		BlockID:         r.BlockID,
		Position:        r.Position,
		Priority:        r.Priority,
		IsCached:        boolPtr(r.IsCached),
		Description:     r.Description.String,
		CreatedByUserID: r.CreatedByUserID,
		CreatedAt:       r.CreatedAt,
	}
}

func (i nodeItem) row(blockName string) database.NodeRow {
	return database.NodeRow{
		ID:              i.ID,
		IsActive:        nullBool(i.IsActive),
		Module:          i.Module,
		Params:          i.Params,
		Template:        sql.NullString{String: i.Template, Valid: i.Template != ""},
		FolderID:        i.FolderID,
		BlockID:         i.BlockID,
		BlockName:       sql.NullString{String: blockName, Valid: blockName != ""},
		Position:        i.Position,
		Priority:        i.Priority,
		IsCached:        nullBool(i.IsCached),
		Description:     sql.NullString{String: i.Description, Valid: i.Description != ""},
		CreatedByUserID: i.CreatedByUserID,
		CreatedAt:       i.CreatedAt,
	}
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
