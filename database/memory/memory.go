package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
)

type Memory struct {
	mu      sync.RWMutex
	folders []node.FolderRecord
	blocks  []node.BlockRecord
	rows    database.NodeRows
	seq     struct{ folder, block, node int64 }
}

func New() *Memory {
	return &Memory{}
}

func find(rows database.NodeRows, filter func(r database.NodeRow) bool) database.NodeRows {
	var result database.NodeRows
	for _, r := range rows {
		if filter(r) {
			result = append(result, r)
		}
	}
	return result
}

// byPlacement orders rows the way blocks render them.
func byPlacement(rows database.NodeRows) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.BlockID != b.BlockID {
			return a.BlockID < b.BlockID
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	}
}

func (m *Memory) Open(driver, dsn string) error {
	return nil
}

func (m *Memory) CreateSchema(ctx context.Context) error {
	return nil
}

func (m *Memory) AddFolder(ctx context.Context, f *node.FolderRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq.folder++
	f.ID = m.seq.folder
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	m.folders = append(m.folders, *f)
	return f.ID, nil
}

func (m *Memory) GetFolder(ctx context.Context, folderID int64) (*node.FolderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.folders {
		if f.ID == folderID {
			f := f
			return &f, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *Memory) GetFolders(ctx context.Context) ([]node.FolderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]node.FolderRecord, len(m.folders))
	copy(result, m.folders)
	return result, nil
}

func (m *Memory) AddBlock(ctx context.Context, b *node.BlockRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq.block++
	b.ID = m.seq.block
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	m.blocks = append(m.blocks, *b)
	return b.ID, nil
}

func (m *Memory) GetBlock(ctx context.Context, blockID int64) (*node.BlockRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.block(blockID)
}

func (m *Memory) block(blockID int64) (*node.BlockRecord, error) {
	for _, b := range m.blocks {
		if b.ID == blockID {
			b := b
			return &b, nil
		}
	}
	return nil, database.ErrNotFound
}

// joined fills in the block name the way the SQL backends join it.
func (m *Memory) joined(rows database.NodeRows) (node.NodeList, error) {
	out := make(database.NodeRows, len(rows))
	for i, r := range rows {
		r.BlockName = sql.NullString{}
		if b, err := m.block(r.BlockID); err == nil {
			r.BlockName = sql.NullString{String: b.Name, Valid: true}
		}
		out[i] = r
	}
	return out.Nodes()
}

func (m *Memory) GetNode(ctx context.Context, nodeID int64) (*node.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := find(m.rows, func(r database.NodeRow) bool {
		return r.ID == nodeID
	})
	if len(found) == 0 {
		return nil, database.ErrNotFound
	}
	nl, err := m.joined(found[:1])
	if err != nil {
		return nil, err
	}
	return nl[0], nil
}

func (m *Memory) GetFolderNodes(ctx context.Context, folderID int64, count, offset int) (node.NodeList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := find(m.rows, func(r database.NodeRow) bool {
		return r.FolderID == folderID
	})
	sort.SliceStable(found, byPlacement(found))
	start, end := database.Window(len(found), count, offset)
	return m.joined(found[start:end])
}

func (m *Memory) GetTotalFolderNodes(ctx context.Context, folderID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := find(m.rows, func(r database.NodeRow) bool {
		return r.FolderID == folderID
	})
	return len(found), nil
}

func (m *Memory) GetBlockNodes(ctx context.Context, blockID int64, activeOnly bool) (node.NodeList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := find(m.rows, func(r database.NodeRow) bool {
		if activeOnly && !(r.IsActive.Valid && r.IsActive.Bool) {
			return false
		}
		return r.BlockID == blockID
	})
	sort.SliceStable(found, byPlacement(found))
	return m.joined(found)
}

func (m *Memory) AddNode(ctx context.Context, n *node.Node) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}
	row, err := database.NewNodeRow(n)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq.node++
	if err := n.AssignID(m.seq.node); err != nil {
		m.seq.node--
		return 0, err
	}
	row.ID = n.ID()
	m.rows = append(m.rows, row)
	return row.ID, nil
}

func (m *Memory) EditNode(ctx context.Context, n *node.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	row, err := database.NewNodeRow(n)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == row.ID {
			m.rows[i] = row
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *Memory) DeleteNode(ctx context.Context, nodeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == nodeID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *Memory) Close() error {
	return nil
}
