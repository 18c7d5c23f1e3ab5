// Package datasource provides a local SQLite-backed implementation of the
// remote.Store interface. It serves offline/local projects and the test
// suite: the same editor code drives either a pengraph server or a local
// database file.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pengraph/pengraph/pkg/model"
	"github.com/pengraph/pengraph/pkg/remote"
)

// duplicateOffset is added to both coordinates of a duplicated node so the
// copy does not land exactly on the original.
const duplicateOffset = 50.0

// SQLiteStore persists project graphs in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) a local project database.
func Open(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// SQLite allows a single writer; funnel everything through one
	// connection to avoid SQLITE_BUSY under concurrent bulk deletes.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT,
			status      TEXT NOT NULL DEFAULT 'NOT_STARTED',
			x_pos       REAL NOT NULL DEFAULT 0,
			y_pos       REAL NOT NULL DEFAULT 0,
			tags        TEXT,
			created_at  TIMESTAMP,
			updated_at  TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id)`,
		`CREATE TABLE IF NOT EXISTS links (
			project_id TEXT NOT NULL,
			source_id  TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			target_id  TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			PRIMARY KEY (source_id, target_id)
		)`,
		`CREATE TABLE IF NOT EXISTS commands (
			id          TEXT PRIMARY KEY,
			node_id     TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			command     TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id      TEXT PRIMARY KEY,
			node_id TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			date    TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// FetchGraph implements remote.Store.
func (s *SQLiteStore) FetchGraph(ctx context.Context, projectID string) (remote.GraphData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, x_pos, y_pos, tags, created_at, updated_at
		FROM nodes WHERE project_id = ?
		ORDER BY y_pos, x_pos`, projectID)
	if err != nil {
		return remote.GraphData{}, fmt.Errorf("fetch nodes: %w", err)
	}
	defer rows.Close()

	var data remote.GraphData
	byID := make(map[string]int)
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return remote.GraphData{}, err
		}
		byID[n.ID] = len(data.Nodes)
		data.Nodes = append(data.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return remote.GraphData{}, fmt.Errorf("fetch nodes: %w", err)
	}

	if err := s.attachSubEntities(ctx, projectID, data.Nodes, byID); err != nil {
		return remote.GraphData{}, err
	}

	linkRows, err := s.db.QueryContext(ctx,
		`SELECT source_id, target_id FROM links WHERE project_id = ?`, projectID)
	if err != nil {
		return remote.GraphData{}, fmt.Errorf("fetch links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var src, dst string
		if err := linkRows.Scan(&src, &dst); err != nil {
			return remote.GraphData{}, fmt.Errorf("fetch links: %w", err)
		}
		data.Links = append(data.Links, model.NewEdge(src, dst))
		if i, ok := byID[dst]; ok {
			data.Nodes[i].ParentIDs = append(data.Nodes[i].ParentIDs, src)
		}
		if i, ok := byID[src]; ok {
			data.Nodes[i].ChildIDs = append(data.Nodes[i].ChildIDs, dst)
		}
	}
	return data, linkRows.Err()
}

func (s *SQLiteStore) attachSubEntities(ctx context.Context, projectID string, nodes []model.Node, byID map[string]int) error {
	cmdRows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.node_id, c.title, c.command, COALESCE(c.description, '')
		FROM commands c JOIN nodes n ON n.id = c.node_id
		WHERE n.project_id = ? ORDER BY c.title`, projectID)
	if err != nil {
		return fmt.Errorf("fetch commands: %w", err)
	}
	defer cmdRows.Close()
	for cmdRows.Next() {
		var c model.Command
		var nodeID string
		if err := cmdRows.Scan(&c.ID, &nodeID, &c.Title, &c.Command, &c.Description); err != nil {
			return fmt.Errorf("fetch commands: %w", err)
		}
		if i, ok := byID[nodeID]; ok {
			nodes[i].Commands = append(nodes[i].Commands, c)
		}
	}
	if err := cmdRows.Err(); err != nil {
		return err
	}

	findRows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.node_id, f.content, f.date
		FROM findings f JOIN nodes n ON n.id = f.node_id
		WHERE n.project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("fetch findings: %w", err)
	}
	defer findRows.Close()
	for findRows.Next() {
		var f model.Finding
		var nodeID string
		var date sql.NullTime
		if err := findRows.Scan(&f.ID, &nodeID, &f.Content, &date); err != nil {
			return fmt.Errorf("fetch findings: %w", err)
		}
		if date.Valid {
			f.Date = date.Time
		}
		if i, ok := byID[nodeID]; ok {
			fc := f
			nodes[i].Finding = &fc
		}
	}
	return findRows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNode(sc scanner) (model.Node, error) {
	var n model.Node
	var description, tagsJSON sql.NullString
	var status string
	var createdAt, updatedAt sql.NullTime
	err := sc.Scan(&n.ID, &n.Title, &description, &status,
		&n.Position.X, &n.Position.Y, &tagsJSON, &createdAt, &updatedAt)
	if err != nil {
		return model.Node{}, fmt.Errorf("scan node: %w", err)
	}
	n.Description = description.String
	n.Status = model.Status(status)
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &n.Tags); err != nil {
			return model.Node{}, fmt.Errorf("scan node %s: bad tags: %w", n.ID, err)
		}
	}
	if createdAt.Valid {
		n.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		n.UpdatedAt = updatedAt.Time
	}
	return n, nil
}

// CreateNode implements remote.Store.
func (s *SQLiteStore) CreateNode(ctx context.Context, projectID string, fields model.NodeFields) (model.Node, error) {
	if err := fields.Validate(); err != nil {
		return model.Node{}, fmt.Errorf("create node: %w: %w", remote.ErrValidation, err)
	}
	status := fields.Status
	if status == "" {
		status = model.StatusNotStarted
	}
	now := time.Now().UTC()
	n := model.Node{
		ID:          uuid.NewString(),
		Title:       fields.Title,
		Description: fields.Description,
		Status:      status,
		Position:    fields.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, project_id, title, description, status, x_pos, y_pos, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, projectID, n.Title, n.Description, string(n.Status),
		n.Position.X, n.Position.Y, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return model.Node{}, fmt.Errorf("create node: %w", err)
	}
	return n, nil
}

// DeleteNode implements remote.Store. Incident links, commands and findings
// cascade via foreign keys.
func (s *SQLiteStore) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE id = ? AND project_id = ?`, nodeID, projectID)
	if err != nil {
		return fmt.Errorf("delete node %s: %w", nodeID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("delete node %s: %w", nodeID, remote.ErrNotFound)
	}
	return nil
}

// LinkNodes implements remote.Store. Linking an already-linked pair is a
// no-op, matching the server's MERGE semantics.
func (s *SQLiteStore) LinkNodes(ctx context.Context, projectID, sourceID, targetID string) error {
	if err := s.requireNodes(ctx, projectID, sourceID, targetID); err != nil {
		return fmt.Errorf("link %s→%s: %w", sourceID, targetID, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (project_id, source_id, target_id) VALUES (?, ?, ?)
		ON CONFLICT (source_id, target_id) DO NOTHING`,
		projectID, sourceID, targetID)
	if err != nil {
		return fmt.Errorf("link %s→%s: %w", sourceID, targetID, err)
	}
	return s.touch(ctx, sourceID, targetID)
}

// UnlinkNodes implements remote.Store.
func (s *SQLiteStore) UnlinkNodes(ctx context.Context, projectID, sourceID, targetID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM links WHERE project_id = ? AND source_id = ? AND target_id = ?`,
		projectID, sourceID, targetID)
	if err != nil {
		return fmt.Errorf("unlink %s→%s: %w", sourceID, targetID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("unlink %s→%s: %w", sourceID, targetID, remote.ErrNotFound)
	}
	return s.touch(ctx, sourceID, targetID)
}

// UpdateNodePosition implements remote.Store.
func (s *SQLiteStore) UpdateNodePosition(ctx context.Context, projectID, nodeID string, pos model.Position) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE nodes SET x_pos = ?, y_pos = ?, updated_at = ?
		WHERE id = ? AND project_id = ?`,
		pos.X, pos.Y, time.Now().UTC(), nodeID, projectID)
	if err != nil {
		return fmt.Errorf("update position of %s: %w", nodeID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update position of %s: %w", nodeID, remote.ErrNotFound)
	}
	return nil
}

// DuplicateNode implements remote.Store: a deep copy of the node including
// tags, commands and findings, offset on the canvas and titled "(Copy)".
func (s *SQLiteStore) DuplicateNode(ctx context.Context, projectID, nodeID string) (model.Node, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Node{}, fmt.Errorf("duplicate node %s: %w", nodeID, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, title, description, status, x_pos, y_pos, tags, created_at, updated_at
		FROM nodes WHERE id = ? AND project_id = ?`, nodeID, projectID)
	orig, err := scanNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Node{}, fmt.Errorf("duplicate node %s: %w", nodeID, remote.ErrNotFound)
		}
		return model.Node{}, fmt.Errorf("duplicate node %s: %w", nodeID, err)
	}

	now := time.Now().UTC()
	dup := orig.Clone()
	dup.ID = uuid.NewString()
	dup.Title = orig.Title + " (Copy)"
	dup.Position.X += duplicateOffset
	dup.Position.Y += duplicateOffset
	dup.CreatedAt = now
	dup.UpdatedAt = now

	var tagsJSON any
	if len(dup.Tags) > 0 {
		raw, err := json.Marshal(dup.Tags)
		if err != nil {
			return model.Node{}, fmt.Errorf("duplicate node %s: %w", nodeID, err)
		}
		tagsJSON = string(raw)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (id, project_id, title, description, status, x_pos, y_pos, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dup.ID, projectID, dup.Title, dup.Description, string(dup.Status),
		dup.Position.X, dup.Position.Y, tagsJSON, dup.CreatedAt, dup.UpdatedAt)
	if err != nil {
		return model.Node{}, fmt.Errorf("duplicate node %s: %w", nodeID, err)
	}

	// Drain the cursor before inserting: the tx owns a single connection.
	cmdRows, err := tx.QueryContext(ctx,
		`SELECT title, command, COALESCE(description, '') FROM commands WHERE node_id = ? ORDER BY title`, nodeID)
	if err != nil {
		return model.Node{}, fmt.Errorf("duplicate commands: %w", err)
	}
	var cmds []model.Command
	for cmdRows.Next() {
		var c model.Command
		if err := cmdRows.Scan(&c.Title, &c.Command, &c.Description); err != nil {
			cmdRows.Close()
			return model.Node{}, fmt.Errorf("duplicate commands: %w", err)
		}
		cmds = append(cmds, c)
	}
	if err := cmdRows.Close(); err != nil {
		return model.Node{}, fmt.Errorf("duplicate commands: %w", err)
	}
	for _, c := range cmds {
		c.ID = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO commands (id, node_id, title, command, description) VALUES (?, ?, ?, ?, ?)`,
			c.ID, dup.ID, c.Title, c.Command, c.Description); err != nil {
			return model.Node{}, fmt.Errorf("duplicate commands: %w", err)
		}
		dup.Commands = append(dup.Commands, c)
	}

	var f model.Finding
	var date sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT content, date FROM findings WHERE node_id = ?`, nodeID).Scan(&f.Content, &date)
	switch err {
	case nil:
		f.ID = uuid.NewString()
		if date.Valid {
			f.Date = date.Time
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO findings (id, node_id, content, date) VALUES (?, ?, ?, ?)`,
			f.ID, dup.ID, f.Content, f.Date); err != nil {
			return model.Node{}, fmt.Errorf("duplicate finding: %w", err)
		}
		dup.Finding = &f
	case sql.ErrNoRows:
		// no finding to copy
	default:
		return model.Node{}, fmt.Errorf("duplicate finding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Node{}, fmt.Errorf("duplicate node %s: %w", nodeID, err)
	}
	return dup, nil
}

// BulkDeleteNodes implements remote.Store as a single transaction.
func (s *SQLiteStore) BulkDeleteNodes(ctx context.Context, projectID string, nodeIDs []string) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bulk delete: %w", err)
	}
	defer tx.Rollback()

	for _, id := range nodeIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM nodes WHERE id = ? AND project_id = ?`, id, projectID); err != nil {
			return fmt.Errorf("bulk delete %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// AddCommand attaches a command to a node. Used by import and by tests that
// need populated sub-entities.
func (s *SQLiteStore) AddCommand(ctx context.Context, nodeID string, c model.Command) (model.Command, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (id, node_id, title, command, description) VALUES (?, ?, ?, ?, ?)`,
		c.ID, nodeID, c.Title, c.Command, c.Description)
	if err != nil {
		return model.Command{}, fmt.Errorf("add command: %w", err)
	}
	return c, nil
}

// SetFinding attaches (or replaces) a node's finding.
func (s *SQLiteStore) SetFinding(ctx context.Context, nodeID string, f model.Finding) (model.Finding, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM findings WHERE node_id = ?`, nodeID); err != nil {
		return model.Finding{}, fmt.Errorf("set finding: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO findings (id, node_id, content, date) VALUES (?, ?, ?, ?)`,
		f.ID, nodeID, f.Content, f.Date)
	if err != nil {
		return model.Finding{}, fmt.Errorf("set finding: %w", err)
	}
	return f, nil
}

// requireNodes verifies that every id exists within the project.
func (s *SQLiteStore) requireNodes(ctx context.Context, projectID string, ids ...string) error {
	for _, id := range ids {
		var one int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM nodes WHERE id = ? AND project_id = ?`, id, projectID).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("node %s: %w", id, remote.ErrNotFound)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// touch bumps updated_at on the given nodes.
func (s *SQLiteStore) touch(ctx context.Context, ids ...string) error {
	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE nodes SET updated_at = ? WHERE id = ?`, now, id); err != nil {
			return err
		}
	}
	return nil
}
