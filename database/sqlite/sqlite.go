package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS engine_folders (
	folder_id INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id INTEGER NOT NULL DEFAULT 0,
	title VARCHAR(255) NOT NULL,
	uri_part VARCHAR(255) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT 1,
	create_datetime DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS engine_blocks (
	block_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(50) NOT NULL,
	position SMALLINT NOT NULL DEFAULT 0,
	descr VARCHAR(255) NOT NULL DEFAULT '',
	create_datetime DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS engine_nodes (
	node_id INTEGER PRIMARY KEY AUTOINCREMENT,
	is_active BOOLEAN NULL,
	module VARCHAR(50) NOT NULL,
	params TEXT NOT NULL,
	template VARCHAR(30) NULL,
	folder_id INTEGER NOT NULL REFERENCES engine_folders(folder_id),
	block_id INTEGER NOT NULL REFERENCES engine_blocks(block_id),
	position SMALLINT NULL DEFAULT 0,
	priority SMALLINT NOT NULL DEFAULT 0,
	is_cached BOOLEAN NULL,
	descr VARCHAR(255) NULL,
	create_by_user_id INTEGER NOT NULL DEFAULT 0,
	create_datetime DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_is_active ON engine_nodes (is_active);
CREATE INDEX IF NOT EXISTS idx_nodes_position ON engine_nodes (position);
CREATE INDEX IF NOT EXISTS idx_nodes_block_id ON engine_nodes (block_id);
CREATE INDEX IF NOT EXISTS idx_nodes_module ON engine_nodes (module);
`

type SQLite struct {
	db *sqlx.DB
}

func New() *SQLite {
	return &SQLite{}
}

func (m *SQLite) Open(driver, DSN string) error {
	var err error
	m.db, err = sqlx.Open(driver, DSN)
	if err != nil {
		return err
	}
	// one writer, and ":memory:" databases live per connection
	m.db.SetMaxOpenConns(1)
	return m.db.Ping()
}

func (m *SQLite) CreateSchema(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, schema)
	return err
}

func (m *SQLite) AddFolder(ctx context.Context, f *node.FolderRecord) (int64, error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	res, err := m.db.NamedExecContext(ctx, `INSERT INTO engine_folders (
			parent_id,
			title,
			uri_part,
			is_active,
			create_datetime
		) VALUES (
			:parent_id,
			:title,
			:uri_part,
			:is_active,
			:create_datetime
		)`, f)
	if err != nil {
		return 0, err
	}
	f.ID, err = res.LastInsertId()
	return f.ID, err
}

func (m *SQLite) GetFolder(ctx context.Context, folderID int64) (*node.FolderRecord, error) {
	var f node.FolderRecord
	if err := m.db.GetContext(ctx, &f, "SELECT * FROM engine_folders WHERE folder_id = ?", folderID); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (m *SQLite) GetFolders(ctx context.Context) ([]node.FolderRecord, error) {
	var fl []node.FolderRecord
	err := m.db.SelectContext(ctx, &fl, "SELECT * FROM engine_folders ORDER BY folder_id")
	return fl, err
}

func (m *SQLite) AddBlock(ctx context.Context, b *node.BlockRecord) (int64, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	res, err := m.db.NamedExecContext(ctx, `INSERT INTO engine_blocks (
			name,
			position,
			descr,
			create_datetime
		) VALUES (
			:name,
			:position,
			:descr,
			:create_datetime
		)`, b)
	if err != nil {
		return 0, err
	}
	b.ID, err = res.LastInsertId()
	return b.ID, err
}

func (m *SQLite) GetBlock(ctx context.Context, blockID int64) (*node.BlockRecord, error) {
	var b node.BlockRecord
	if err := m.db.GetContext(ctx, &b, "SELECT * FROM engine_blocks WHERE block_id = ?", blockID); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (m *SQLite) GetNode(ctx context.Context, nodeID int64) (*node.Node, error) {
	var row database.NodeRow
	if err := m.db.GetContext(ctx, &row, database.SelectNodes+" WHERE n.node_id = ?", nodeID); err != nil {
		return nil, notFound(err)
	}
	return row.Node()
}

func (m *SQLite) GetFolderNodes(ctx context.Context, folderID int64, count, offset int) (node.NodeList, error) {
	var rows database.NodeRows
	err := m.db.SelectContext(ctx, &rows, database.SelectNodes+
		" WHERE n.folder_id = ? ORDER BY n.block_id, n.position, n.priority DESC, n.node_id LIMIT ? OFFSET ?",
		folderID, count, offset)
	if err != nil {
		return nil, err
	}
	return rows.Nodes()
}

func (m *SQLite) GetTotalFolderNodes(ctx context.Context, folderID int64) (int, error) {
	var total int
	err := m.db.GetContext(ctx, &total, "SELECT count(*) FROM engine_nodes WHERE folder_id = ?", folderID)
	return total, err
}

func (m *SQLite) GetBlockNodes(ctx context.Context, blockID int64, activeOnly bool) (node.NodeList, error) {
	query := database.SelectNodes + " WHERE n.block_id = ?"
	if activeOnly {
		query += " AND n.is_active = 1"
	}
	var rows database.NodeRows
	if err := m.db.SelectContext(ctx, &rows, query+" ORDER BY n.position, n.priority DESC, n.node_id", blockID); err != nil {
		return nil, err
	}
	return rows.Nodes()
}

func (m *SQLite) AddNode(ctx context.Context, n *node.Node) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}
	if n.HasID() {
		return 0, node.ErrIDAssigned
	}
	row, err := database.NewNodeRow(n)
	if err != nil {
		return 0, err
	}
	res, err := m.db.NamedExecContext(ctx, `INSERT INTO engine_nodes (
			is_active,
			module,
			params,
			template,
			folder_id,
			block_id,
			position,
			priority,
			is_cached,
			descr,
			create_by_user_id,
			create_datetime
		) VALUES (
			:is_active,
			:module,
			:params,
			:template,
			:folder_id,
			:block_id,
			:position,
			:priority,
			:is_cached,
			:descr,
			:create_by_user_id,
			:create_datetime
		)`, row)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, n.AssignID(id)
}

func (m *SQLite) EditNode(ctx context.Context, n *node.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	row, err := database.NewNodeRow(n)
	if err != nil {
		return err
	}
	res, err := m.db.NamedExecContext(ctx, `UPDATE engine_nodes SET
			is_active = :is_active,
			module = :module,
			params = :params,
			template = :template,
			folder_id = :folder_id,
			block_id = :block_id,
			position = :position,
			priority = :priority,
			is_cached = :is_cached,
			descr = :descr
			WHERE node_id = :node_id`, row)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *SQLite) DeleteNode(ctx context.Context, nodeID int64) error {
	res, err := m.db.ExecContext(ctx, "DELETE FROM engine_nodes WHERE node_id = ?", nodeID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *SQLite) Close() error {
	return m.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	return err
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}
