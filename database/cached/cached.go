package cached

import (
	"context"
	"fmt"
	"sync"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
	"github.com/prometheus/client_golang/prometheus"
)

// Cached keeps node reads in memory until the next node write. Records are
// cached rather than nodes so every read hands out a fresh instance with its
// own lazy fields.
type Cached struct {
	db          database.Database
	mu          sync.Mutex
	nodeCache   map[int64]node.Record
	folderCache map[string][]node.Record
	totalsCache map[int64]int
	blockCache  map[string][]node.Record
	hits        prometheus.Counter
	misses      prometheus.Counter
}

func New(db database.Database) *Cached {
	c := &Cached{db: db}
	c.reset()
	return c
}

// WithMetrics counts cache hits and misses.
func (m *Cached) WithMetrics(hits, misses prometheus.Counter) *Cached {
	m.hits = hits
	m.misses = misses
	return m
}

func (m *Cached) reset() {
	m.nodeCache = make(map[int64]node.Record)
	m.folderCache = make(map[string][]node.Record)
	m.totalsCache = make(map[int64]int)
	m.blockCache = make(map[string][]node.Record)
}

func (m *Cached) clear() {
	m.mu.Lock()
	m.reset()
	m.mu.Unlock()
}

func (m *Cached) hit() {
	if m.hits != nil {
		m.hits.Inc()
	}
}

func (m *Cached) miss() {
	if m.misses != nil {
		m.misses.Inc()
	}
}

// record snapshots n with its own params map so callers cannot reach into
// the cache.
func record(n *node.Node) node.Record {
	return withOwnParams(n.Record())
}

func withOwnParams(r node.Record) node.Record {
	params := make(node.Params, len(r.Params))
	for k, v := range r.Params {
		params[k] = v
	}
	r.Params = params
	return r
}

func restore(r node.Record) *node.Node {
	return node.Restore(withOwnParams(r))
}

func restoreList(records []node.Record) node.NodeList {
	nl := make(node.NodeList, len(records))
	for i, r := range records {
		nl[i] = restore(r)
	}
	return nl
}

func records(nl node.NodeList) []node.Record {
	result := make([]node.Record, len(nl))
	for i, n := range nl {
		result[i] = record(n)
	}
	return result
}

func (m *Cached) Open(driver, dsn string) error {
	return m.db.Open(driver, dsn)
}

func (m *Cached) CreateSchema(ctx context.Context) error {
	return m.db.CreateSchema(ctx)
}

func (m *Cached) AddFolder(ctx context.Context, f *node.FolderRecord) (int64, error) {
	return m.db.AddFolder(ctx, f)
}

func (m *Cached) GetFolder(ctx context.Context, folderID int64) (*node.FolderRecord, error) {
	return m.db.GetFolder(ctx, folderID)
}

func (m *Cached) GetFolders(ctx context.Context) ([]node.FolderRecord, error) {
	return m.db.GetFolders(ctx)
}

func (m *Cached) AddBlock(ctx context.Context, b *node.BlockRecord) (int64, error) {
	return m.db.AddBlock(ctx, b)
}

func (m *Cached) GetBlock(ctx context.Context, blockID int64) (*node.BlockRecord, error) {
	return m.db.GetBlock(ctx, blockID)
}

func (m *Cached) GetNode(ctx context.Context, nodeID int64) (*node.Node, error) {
	m.mu.Lock()
	r, found := m.nodeCache[nodeID]
	m.mu.Unlock()
	if found {
		m.hit()
		return restore(r), nil
	}
	m.miss()
	n, err := m.db.GetNode(ctx, nodeID)
	if err == nil {
		m.mu.Lock()
		m.nodeCache[nodeID] = record(n)
		m.mu.Unlock()
	}
	return n, err
}

func (m *Cached) GetFolderNodes(ctx context.Context, folderID int64, count, offset int) (node.NodeList, error) {
	key := fmt.Sprintf("%d|%d|%d", folderID, count, offset)
	m.mu.Lock()
	result, found := m.folderCache[key]
	m.mu.Unlock()
	if found {
		m.hit()
		return restoreList(result), nil
	}
	m.miss()
	nl, err := m.db.GetFolderNodes(ctx, folderID, count, offset)
	if err == nil {
		m.mu.Lock()
		m.folderCache[key] = records(nl)
		m.mu.Unlock()
	}
	return nl, err
}

func (m *Cached) GetTotalFolderNodes(ctx context.Context, folderID int64) (int, error) {
	m.mu.Lock()
	result, found := m.totalsCache[folderID]
	m.mu.Unlock()
	if found {
		m.hit()
		return result, nil
	}
	m.miss()
	result, err := m.db.GetTotalFolderNodes(ctx, folderID)
	if err == nil {
		m.mu.Lock()
		m.totalsCache[folderID] = result
		m.mu.Unlock()
	}
	return result, err
}

func (m *Cached) GetBlockNodes(ctx context.Context, blockID int64, activeOnly bool) (node.NodeList, error) {
	key := fmt.Sprintf("%d|%t", blockID, activeOnly)
	m.mu.Lock()
	result, found := m.blockCache[key]
	m.mu.Unlock()
	if found {
		m.hit()
		return restoreList(result), nil
	}
	m.miss()
	nl, err := m.db.GetBlockNodes(ctx, blockID, activeOnly)
	if err == nil {
		m.mu.Lock()
		m.blockCache[key] = records(nl)
		m.mu.Unlock()
	}
	return nl, err
}

func (m *Cached) AddNode(ctx context.Context, n *node.Node) (int64, error) {
	result, err := m.db.AddNode(ctx, n)
	if err == nil {
		m.clear()
	}
	return result, err
}

func (m *Cached) EditNode(ctx context.Context, n *node.Node) error {
	err := m.db.EditNode(ctx, n)
	if err == nil {
		m.clear()
	}
	return err
}

func (m *Cached) DeleteNode(ctx context.Context, nodeID int64) error {
	err := m.db.DeleteNode(ctx, nodeID)
	if err == nil {
		m.clear()
	}
	return err
}

func (m *Cached) Close() error {
	return m.db.Close()
}
