package node

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion tags the positional layout written by MarshalBinary.
// Fields may only ever be appended, together with a version bump.
const SnapshotVersion = 1

const snapshotFields = 14

type folderRef struct {
	ID int64 `json:"id"`
}

type blockRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MarshalBinary writes the node as a versioned positional JSON array:
//
//	[version, id, isActive, isCached, module, params, folder, folderId,
//	 block, blockName, position, priority, description, createdByUserId,
//	 createdAt]
//
// The folder id is memoized and the block is read as a side effect, so both
// relations must be set.
func (n *Node) MarshalBinary() ([]byte, error) {
	folderID, err := n.FolderID()
	if err != nil {
		return nil, err
	}
	if isNil(n.block) {
		return nil, &RelationError{Relation: RelationBlock}
	}
	block := blockRef{ID: n.block.BlockID(), Name: n.block.BlockName()}

	var blockName *string
	if n.blockNameLoaded {
		name := n.blockName
		blockName = &name
	}

	return json.Marshal([]interface{}{
		SnapshotVersion,
		n.id,
		nullBoolPtr(n.isActive),
		nullBoolPtr(n.isCached),
		n.module,
		n.Params(),
		folderRef{ID: folderID},
		folderID,
		block,
		blockName,
		n.position,
		n.priority,
		n.description,
		n.createdByUserID,
		n.createdAt,
	})
}

// UnmarshalBinary replaces the receiver with the node encoded in data.
// Anything but the exact current layout fails with ErrShapeMismatch.
func (n *Node) UnmarshalBinary(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if len(raw) != snapshotFields+1 {
		return fmt.Errorf("%w: got %d elements, want %d", ErrShapeMismatch, len(raw), snapshotFields+1)
	}
	var version int
	if err := decodeField(raw[0], &version, "version"); err != nil {
		return err
	}
	if version != SnapshotVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrShapeMismatch, version, SnapshotVersion)
	}

	var (
		id              int64
		isActive        *bool
		isCached        *bool
		module          string
		params          Params
		folder          *folderRef
		folderID        int64
		block           *blockRef
		blockName       *string
		position        int
		priority        int
		description     string
		createdByUserID int64
		createdAt       time.Time
	)
	targets := []struct {
		name string
		dst  interface{}
	}{
		{"id", &id},
		{"isActive", &isActive},
		{"isCached", &isCached},
		{"module", &module},
		{"params", &params},
		{"folder", &folder},
		{"folderId", &folderID},
		{"block", &block},
		{"blockName", &blockName},
		{"position", &position},
		{"priority", &priority},
		{"description", &description},
		{"createdByUserId", &createdByUserID},
		{"createdAt", &createdAt},
	}
	for i, t := range targets {
		if err := decodeField(raw[i+1], t.dst, t.name); err != nil {
			return err
		}
	}

	restored := Restore(Record{
		ID:              id,
		IsActive:        boolPtrNull(isActive),
		Module:          module,
		Params:          params,
		Position:        position,
		Priority:        priority,
		IsCached:        boolPtrNull(isCached),
		Description:     description,
		CreatedByUserID: createdByUserID,
		CreatedAt:       createdAt,
	})
	if folder != nil {
		restored.folder = &FolderRecord{ID: folder.ID}
	}
	if block != nil {
		restored.block = &BlockRecord{ID: block.ID, Name: block.Name}
	}
	restored.folderID = folderID
	restored.folderIDLoaded = true
	if blockName != nil {
		restored.blockName = *blockName
		restored.blockNameLoaded = true
	}
	*n = *restored
	return nil
}

// FromBinary decodes a node written by MarshalBinary.
func FromBinary(data []byte) (*Node, error) {
	n := &Node{}
	if err := n.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeField(raw json.RawMessage, dst interface{}, name string) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: field %s: %v", ErrShapeMismatch, name, err)
	}
	return nil
}

func nullBoolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func boolPtrNull(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
