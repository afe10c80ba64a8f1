package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS engine_folders (
	folder_id BIGSERIAL PRIMARY KEY,
	parent_id BIGINT NOT NULL DEFAULT 0,
	title VARCHAR(255) NOT NULL,
	uri_part VARCHAR(255) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	create_datetime TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS engine_blocks (
	block_id BIGSERIAL PRIMARY KEY,
	name VARCHAR(50) NOT NULL,
	position SMALLINT NOT NULL DEFAULT 0,
	descr VARCHAR(255) NOT NULL DEFAULT '',
	create_datetime TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS engine_nodes (
	node_id BIGSERIAL PRIMARY KEY,
	is_active BOOLEAN NULL,
	module VARCHAR(50) NOT NULL,
	params TEXT NOT NULL,
	template VARCHAR(30) NULL,
	folder_id BIGINT NOT NULL REFERENCES engine_folders(folder_id),
	block_id BIGINT NOT NULL REFERENCES engine_blocks(block_id),
	position SMALLINT NULL DEFAULT 0,
	priority SMALLINT NOT NULL DEFAULT 0,
	is_cached BOOLEAN NULL,
	descr VARCHAR(255) NULL,
	create_by_user_id BIGINT NOT NULL DEFAULT 0,
	create_datetime TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_is_active ON engine_nodes (is_active);
CREATE INDEX IF NOT EXISTS idx_nodes_position ON engine_nodes (position);
CREATE INDEX IF NOT EXISTS idx_nodes_block_id ON engine_nodes (block_id);
CREATE INDEX IF NOT EXISTS idx_nodes_module ON engine_nodes (module);
`

type Postgres struct {
	db *sqlx.DB
}

func New() *Postgres {
	return &Postgres{}
}

func (m *Postgres) Open(driver, DSN string) error {
	var err error
	m.db, err = sqlx.Open(driver, DSN)
	if err != nil {
		return err
	}
	return m.db.Ping()
}

func (m *Postgres) CreateSchema(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, schema)
	return err
}

// insert runs a named INSERT ... RETURNING and scans the new id.
func (m *Postgres) insert(ctx context.Context, query string, arg interface{}) (int64, error) {
	rows, err := m.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var id int64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, sql.ErrNoRows
	}
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}

func (m *Postgres) AddFolder(ctx context.Context, f *node.FolderRecord) (int64, error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	id, err := m.insert(ctx, `INSERT INTO engine_folders (
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
		) RETURNING folder_id`, f)
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

func (m *Postgres) GetFolder(ctx context.Context, folderID int64) (*node.FolderRecord, error) {
	var f node.FolderRecord
	if err := m.db.GetContext(ctx, &f, "SELECT * FROM engine_folders WHERE folder_id = $1", folderID); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (m *Postgres) GetFolders(ctx context.Context) ([]node.FolderRecord, error) {
	var fl []node.FolderRecord
	err := m.db.SelectContext(ctx, &fl, "SELECT * FROM engine_folders ORDER BY folder_id")
	return fl, err
}

func (m *Postgres) AddBlock(ctx context.Context, b *node.BlockRecord) (int64, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	id, err := m.insert(ctx, `INSERT INTO engine_blocks (
			name,
			position,
			descr,
			create_datetime
		) VALUES (
			:name,
			:position,
			:descr,
			:create_datetime
		) RETURNING block_id`, b)
	if err != nil {
		return 0, err
	}
	b.ID = id
	return id, nil
}

func (m *Postgres) GetBlock(ctx context.Context, blockID int64) (*node.BlockRecord, error) {
	var b node.BlockRecord
	if err := m.db.GetContext(ctx, &b, "SELECT * FROM engine_blocks WHERE block_id = $1", blockID); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (m *Postgres) GetNode(ctx context.Context, nodeID int64) (*node.Node, error) {
	var row database.NodeRow
	if err := m.db.GetContext(ctx, &row, database.SelectNodes+" WHERE n.node_id = $1", nodeID); err != nil {
		return nil, notFound(err)
	}
	return row.Node()
}

func (m *Postgres) GetFolderNodes(ctx context.Context, folderID int64, count, offset int) (node.NodeList, error) {
	var rows database.NodeRows
	err := m.db.SelectContext(ctx, &rows, database.SelectNodes+
		" WHERE n.folder_id = $1 ORDER BY n.block_id, n.position, n.priority DESC, n.node_id LIMIT $3 OFFSET $2",
		folderID, offset, count)
	if err != nil {
		return nil, err
	}
	return rows.Nodes()
}

func (m *Postgres) GetTotalFolderNodes(ctx context.Context, folderID int64) (int, error) {
	var total int
	err := m.db.GetContext(ctx, &total, "SELECT count(*) FROM engine_nodes WHERE folder_id = $1", folderID)
	return total, err
}

func (m *Postgres) GetBlockNodes(ctx context.Context, blockID int64, activeOnly bool) (node.NodeList, error) {
	query := database.SelectNodes + " WHERE n.block_id = $1"
	if activeOnly {
		query += " AND n.is_active"
	}
	var rows database.NodeRows
	if err := m.db.SelectContext(ctx, &rows, query+" ORDER BY n.position, n.priority DESC, n.node_id", blockID); err != nil {
		return nil, err
	}
	return rows.Nodes()
}

func (m *Postgres) AddNode(ctx context.Context, n *node.Node) (int64, error) {
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
	id, err := m.insert(ctx, `INSERT INTO engine_nodes (
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
		) RETURNING node_id`, row)
	if err != nil {
		return 0, err
	}
	return id, n.AssignID(id)
}

func (m *Postgres) EditNode(ctx context.Context, n *node.Node) error {
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

func (m *Postgres) DeleteNode(ctx context.Context, nodeID int64) error {
	res, err := m.db.ExecContext(ctx, "DELETE FROM engine_nodes WHERE node_id = $1", nodeID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *Postgres) Close() error {
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
