// Package node holds the engine node record: a module bound to a block
// position inside a folder.
//
// A Node is not safe for concurrent use. FolderID, BlockName and Controller
// memoize derived values on first access, so even readers mutate the
// instance; callers sharing a node between goroutines must synchronize.
package node

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"time"
)

// Params is free-form renderer configuration.
type Params map[string]interface{}

// UnmarshalJSON keeps numbers as json.Number so integers beyond 2^53 are
// written back unchanged.
func (p *Params) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*p = m
	return nil
}

// Node is a content-placement record.
type Node struct {
	id              int64
	isActive        sql.NullBool
	module          string
	params          Params
	template        string
	folder          Folder
	block           Block
	position        int
	priority        int
	isCached        sql.NullBool
	description     string
	createdByUserID int64
	createdAt       time.Time

	folderID        int64
	folderIDLoaded  bool
	blockName       string
	blockNameLoaded bool

	controller       Controller
	controllerLoaded bool

	eip           bool
	frontControls map[string]interface{}
}

type NodeList []*Node

// New returns a node with the default state of a freshly created record.
func New() *Node {
	return &Node{
		isActive:      sql.NullBool{Bool: true, Valid: true},
		isCached:      sql.NullBool{Bool: false, Valid: true},
		params:        make(Params),
		createdAt:     time.Now(),
		frontControls: make(map[string]interface{}),
	}
}

func (n *Node) ID() int64 {
	return n.id
}

// HasID reports whether the node was persisted.
func (n *Node) HasID() bool {
	return n.id != 0
}

// AssignID stores the identifier handed out by the persistence layer. It can
// only happen once per instance.
func (n *Node) AssignID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if n.id != 0 {
		return ErrIDAssigned
	}
	n.id = id
	return nil
}

func (n *Node) IsEnabled() bool {
	return n.isActive.Valid && n.isActive.Bool
}

// IsDisabled is true whenever the active flag is false or unset.
func (n *Node) IsDisabled() bool {
	return !n.IsEnabled()
}

func (n *Node) Active() sql.NullBool {
	return n.isActive
}

func (n *Node) SetActive(active bool) *Node {
	n.isActive = sql.NullBool{Bool: active, Valid: true}
	return n
}

func (n *Node) ClearActive() *Node {
	n.isActive = sql.NullBool{}
	return n
}

func (n *Node) Cached() sql.NullBool {
	return n.isCached
}

func (n *Node) SetCached(cached bool) *Node {
	n.isCached = sql.NullBool{Bool: cached, Valid: true}
	return n
}

func (n *Node) ClearCached() *Node {
	n.isCached = sql.NullBool{}
	return n
}

func (n *Node) Description() string {
	return n.description
}

func (n *Node) SetDescription(description string) *Node {
	n.description = description
	return n
}

func (n *Node) Position() int {
	return n.position
}

// SetPosition stores the position inside the block. Zero and negative values
// mean "no position" and are stored as 0.
func (n *Node) SetPosition(position int) *Node {
	if position <= 0 {
		position = 0
	}
	n.position = position
	return n
}

func (n *Node) Priority() int {
	return n.priority
}

func (n *Node) SetPriority(priority int) *Node {
	n.priority = priority
	return n
}

func (n *Node) CreatedByUserID() int64 {
	return n.createdByUserID
}

func (n *Node) SetCreatedByUserID(userID int64) *Node {
	n.createdByUserID = userID
	return n
}

func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

func (n *Node) Module() string {
	return n.module
}

func (n *Node) SetModule(module string) *Node {
	n.module = module
	return n
}

// Params never returns nil.
func (n *Node) Params() Params {
	if n.params == nil {
		return Params{}
	}
	return n.params
}

// SetParams replaces all params.
func (n *Node) SetParams(params Params) *Node {
	if params == nil {
		params = make(Params)
	}
	n.params = params
	return n
}

// Param looks up a single param. A missing key is not an error.
func (n *Node) Param(key string) (interface{}, bool) {
	v, ok := n.params[key]
	return v, ok
}

// Template returns the display template override, or def when none is set.
func (n *Node) Template(def string) string {
	if n.template == "" {
		return def
	}
	return n.template
}

func (n *Node) SetTemplate(template string) *Node {
	n.template = template
	return n
}

func (n *Node) Folder() Folder {
	return n.folder
}

func (n *Node) SetFolder(folder Folder) error {
	if isNil(folder) {
		return &RelationError{Relation: RelationFolder}
	}
	n.folder = folder
	return nil
}

func (n *Node) Block() Block {
	return n.block
}

func (n *Node) SetBlock(block Block) error {
	if isNil(block) {
		return &RelationError{Relation: RelationBlock}
	}
	n.block = block
	return nil
}

// FolderID returns the owning folder's id. The folder is asked only once; the
// value sticks to the instance even if the folder is replaced later.
func (n *Node) FolderID() (int64, error) {
	if n.folderIDLoaded {
		return n.folderID, nil
	}
	if isNil(n.folder) {
		return 0, &RelationError{Relation: RelationFolder}
	}
	n.folderID = n.folder.FolderID()
	n.folderIDLoaded = true
	return n.folderID, nil
}

// BlockName returns the block's name, memoized like FolderID.
func (n *Node) BlockName() (string, error) {
	if n.blockNameLoaded {
		return n.blockName, nil
	}
	if isNil(n.block) {
		return "", &RelationError{Relation: RelationBlock}
	}
	n.blockName = n.block.BlockName()
	n.blockNameLoaded = true
	return n.blockName, nil
}

func (n *Node) IsEip() bool {
	return n.eip
}

func (n *Node) SetEip(eip bool) *Node {
	n.eip = eip
	return n
}

// AddFrontControl stores edit controls under name. It does nothing unless
// edit-in-place is on.
func (n *Node) AddFrontControl(name string, controls interface{}) *Node {
	if !n.eip {
		return n
	}
	if n.frontControls == nil {
		n.frontControls = make(map[string]interface{})
	}
	n.frontControls[name] = controls
	return n
}

// SetFrontControls replaces the front controls when edit-in-place is on.
func (n *Node) SetFrontControls(controls map[string]interface{}) *Node {
	if !n.eip {
		return n
	}
	if controls == nil {
		controls = make(map[string]interface{})
	}
	n.frontControls = controls
	return n
}

func (n *Node) FrontControls() map[string]interface{} {
	if n.frontControls == nil {
		return map[string]interface{}{}
	}
	return n.frontControls
}
