package node

import (
	"reflect"
	"time"

	"github.com/gosimple/slug"
)

// Folder is the hierarchical container owning nodes.
type Folder interface {
	FolderID() int64
}

// Block is the named layout slot a node renders into.
type Block interface {
	BlockID() int64
	BlockName() string
}

type FolderRecord struct {
	ID        int64     `db:"folder_id" json:"id"`
	ParentID  int64     `db:"parent_id" json:"parent_id,omitempty"`
	Title     string    `db:"title" json:"title"`
	URIPart   string    `db:"uri_part" json:"uri_part"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"create_datetime" json:"created_at"`
}

func (f *FolderRecord) FolderID() int64 {
	return f.ID
}

// Slug is the URI part of the folder, derived from the title when unset.
func (f *FolderRecord) Slug() string {
	if f.URIPart != "" {
		return f.URIPart
	}
	return slug.Make(f.Title)
}

type BlockRecord struct {
	ID          int64     `db:"block_id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Position    int       `db:"position" json:"position"`
	Description string    `db:"descr" json:"description,omitempty"`
	CreatedAt   time.Time `db:"create_datetime" json:"created_at"`
}

func (b *BlockRecord) BlockID() int64 {
	return b.ID
}

func (b *BlockRecord) BlockName() string {
	return b.Name
}

// isNil also catches typed nil pointers stored in an interface.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
