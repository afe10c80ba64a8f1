package database

import (
	"context"
	"errors"

	"github.com/aquilax/cmsnode/node"
)

var ErrNotFound = errors.New("not found")

// Window returns the bounds of the count items starting at offset within a
// list of size n. Negative offsets start at 0 and a negative count takes the
// rest of the list.
func Window(n, count, offset int) (start, end int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	if count < 0 || count > n-offset {
		count = n - offset
	}
	return offset, offset + count
}

type Database interface {
	Open(driver, dsn string) error
	CreateSchema(ctx context.Context) error
	AddFolder(ctx context.Context, f *node.FolderRecord) (int64, error)
	GetFolder(ctx context.Context, folderID int64) (*node.FolderRecord, error)
	GetFolders(ctx context.Context) ([]node.FolderRecord, error)
	AddBlock(ctx context.Context, b *node.BlockRecord) (int64, error)
	GetBlock(ctx context.Context, blockID int64) (*node.BlockRecord, error)
	GetNode(ctx context.Context, nodeID int64) (*node.Node, error)
	GetFolderNodes(ctx context.Context, folderID int64, count, offset int) (node.NodeList, error)
	GetTotalFolderNodes(ctx context.Context, folderID int64) (int, error)
	GetBlockNodes(ctx context.Context, blockID int64, activeOnly bool) (node.NodeList, error)
	AddNode(ctx context.Context, n *node.Node) (int64, error)
	EditNode(ctx context.Context, n *node.Node) error
	DeleteNode(ctx context.Context, nodeID int64) error
	Close() error
}
