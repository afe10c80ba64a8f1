package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/database/cached"
	"github.com/aquilax/cmsnode/database/dynamo"
	"github.com/aquilax/cmsnode/database/memory"
	"github.com/aquilax/cmsnode/database/postgres"
	"github.com/aquilax/cmsnode/database/sqlite"
	"github.com/aquilax/cmsnode/node"
)

// drivers maps the configured backend name to its constructor and the
// driver name handed to Open.
var drivers = map[string]struct {
	driver string
	create func() database.Database
}{
	"memory":   {"memory", func() database.Database { return memory.New() }},
	"sqlite":   {"sqlite", func() database.Database { return sqlite.New() }},
	"postgres": {"postgres", func() database.Database { return postgres.New() }},
	"dynamo":   {"dynamodb", func() database.Database { return dynamo.New() }},
}

func openDatabase(ctx context.Context, c *Config, metrics *Metrics) (database.Database, error) {
	d, ok := drivers[c.Database]
	if !ok {
		return nil, fmt.Errorf("unknown database %q", c.Database)
	}
	db := d.create()
	if c.Cache {
		db = cached.New(db).WithMetrics(metrics.CacheHits, metrics.CacheMisses)
	}
	if err := db.Open(d.driver, c.Dsn); err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Database, err)
	}
	if err := db.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

type Model struct {
	db database.Database
}

func NewModel(db database.Database) *Model {
	return &Model{db}
}

// BlockGroup holds the nodes of one block inside a folder listing.
type BlockGroup struct {
	BlockID   int64      `json:"block_id"`
	BlockName string     `json:"block_name"`
	Nodes     []NodeView `json:"nodes"`
}

// getFolderBlocks returns a page of folder nodes grouped by block. The
// listing is already ordered by block so groups are contiguous.
func (m *Model) getFolderBlocks(ctx context.Context, folderID int64, count, offset int, view func(*node.Node) (NodeView, error)) ([]BlockGroup, error) {
	nl, err := m.db.GetFolderNodes(ctx, folderID, count, offset)
	if err != nil {
		return nil, err
	}
	groups := make([]BlockGroup, 0)
	for _, n := range nl {
		v, err := view(n)
		if err != nil {
			return nil, err
		}
		last := len(groups) - 1
		if last < 0 || groups[last].BlockID != v.BlockID {
			groups = append(groups, BlockGroup{BlockID: v.BlockID, BlockName: v.BlockName})
			last++
		}
		groups[last].Nodes = append(groups[last].Nodes, v)
	}
	return groups, nil
}

func (m *Model) getFolder(ctx context.Context, folderID int64) (*node.FolderRecord, error) {
	return m.db.GetFolder(ctx, folderID)
}

func (m *Model) getNode(ctx context.Context, nodeID int64) (*node.Node, error) {
	return m.db.GetNode(ctx, nodeID)
}

func (m *Model) addNode(ctx context.Context, n *node.Node) (int64, error) {
	return m.db.AddNode(ctx, n)
}

func (m *Model) editNode(ctx context.Context, n *node.Node) error {
	return m.db.EditNode(ctx, n)
}

// recentFolderNodes returns up to limit folder nodes, newest first.
func (m *Model) recentFolderNodes(ctx context.Context, folderID int64, limit int) (node.NodeList, error) {
	total, err := m.db.GetTotalFolderNodes(ctx, folderID)
	if err != nil || total == 0 {
		return node.NodeList{}, err
	}
	nl, err := m.db.GetFolderNodes(ctx, folderID, total, 0)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(nl, func(i, j int) bool {
		return nl[i].CreatedAt().After(nl[j].CreatedAt())
	})
	if len(nl) > limit {
		nl = nl[:limit]
	}
	return nl, nil
}

// activeFolders lists the folders shown in the sitemap.
func (m *Model) activeFolders(ctx context.Context) ([]node.FolderRecord, error) {
	fl, err := m.db.GetFolders(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]node.FolderRecord, 0, len(fl))
	for _, f := range fl {
		if f.IsActive {
			result = append(result, f)
		}
	}
	return result, nil
}
