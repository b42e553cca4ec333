//go:build cgo

package evolution

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/reconcile/internal/contenthash"
	"github.com/dusk-indust/reconcile/internal/semantic"
)

// KuzuStore implements the Store interface using KuzuDB as the history
// backend, so evolution history survives across sessions. It requires CGO
// because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself for new
// databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Evolution(
		key STRING,
		path STRING,
		baseline_commit STRING,
		baseline_content STRING,
		baseline_hash STRING,
		PRIMARY KEY(key)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Snapshot(
		id STRING,
		task_id STRING,
		task_intent STRING,
		started_at STRING,
		completed_at STRING,
		hash_before STRING,
		hash_after STRING,
		changes STRING,
		seq INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS TOUCHED(FROM Snapshot TO Evolution)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// PutEvolution inserts or replaces the evolution row for a file. Snapshots
// attached to an existing row are preserved.
func (s *KuzuStore) PutEvolution(_ context.Context, ev *FileEvolution) error {
	key := contenthash.StorageKey(ev.FilePath)
	if err := s.exec(
		"MATCH (e:Evolution {key: $key}) DETACH DELETE e",
		map[string]any{"key": key},
	); err != nil {
		return err
	}
	if err := s.exec(
		`CREATE (e:Evolution {
			key: $key,
			path: $path,
			baseline_commit: $commit,
			baseline_content: $content,
			baseline_hash: $hash
		})`,
		map[string]any{
			"key":     key,
			"path":    ev.FilePath,
			"commit":  ev.BaselineCommit,
			"content": ev.BaselineContent,
			"hash":    ev.BaselineHash,
		},
	); err != nil {
		return err
	}
	for i, snap := range ev.Snapshots() {
		if err := s.createSnapshot(key, snap, int64(i)); err != nil {
			return err
		}
	}
	return nil
}

// PutSnapshot inserts or replaces a task snapshot under the file's
// evolution, preserving the original insertion position on replacement.
func (s *KuzuStore) PutSnapshot(_ context.Context, filePath string, snap *TaskSnapshot) error {
	key := contenthash.StorageKey(filePath)
	id := snapshotID(key, snap.TaskID)

	rows, err := s.query(
		"MATCH (n:Snapshot {id: $id}) RETURN n.seq",
		map[string]any{"id": id},
	)
	if err != nil {
		return err
	}

	var seq int64
	if len(rows) > 0 {
		seq = int64(toInt(rows[0][0]))
		if err := s.exec(
			"MATCH (n:Snapshot {id: $id}) DETACH DELETE n",
			map[string]any{"id": id},
		); err != nil {
			return err
		}
	} else {
		countRows, err := s.query(
			"MATCH (n:Snapshot)-[:TOUCHED]->(e:Evolution {key: $key}) RETURN count(n)",
			map[string]any{"key": key},
		)
		if err != nil {
			return err
		}
		if len(countRows) > 0 && len(countRows[0]) > 0 {
			seq = int64(toInt(countRows[0][0]))
		}
	}

	return s.createSnapshot(key, snap, seq)
}

func (s *KuzuStore) createSnapshot(key string, snap *TaskSnapshot, seq int64) error {
	changes, err := json.Marshal(snap.Changes)
	if err != nil {
		return fmt.Errorf("kuzu: marshal changes: %w", err)
	}
	completed := ""
	if snap.CompletedAt != nil {
		completed = snap.CompletedAt.Format(time.RFC3339Nano)
	}
	if err := s.exec(
		`CREATE (n:Snapshot {
			id: $id,
			task_id: $task,
			task_intent: $intent,
			started_at: $started,
			completed_at: $completed,
			hash_before: $before,
			hash_after: $after,
			changes: $changes,
			seq: $seq
		})`,
		map[string]any{
			"id":        snapshotID(key, snap.TaskID),
			"task":      snap.TaskID,
			"intent":    snap.TaskIntent,
			"started":   snap.StartedAt.Format(time.RFC3339Nano),
			"completed": completed,
			"before":    snap.ContentHashBefore,
			"after":     snap.ContentHashAfter,
			"changes":   string(changes),
			"seq":       seq,
		},
	); err != nil {
		return err
	}
	return s.exec(
		`MATCH (n:Snapshot {id: $id}), (e:Evolution {key: $key})
		 CREATE (n)-[:TOUCHED]->(e)`,
		map[string]any{
			"id":  snapshotID(key, snap.TaskID),
			"key": key,
		},
	)
}

// RemoveTask deletes the task's snapshots from every evolution.
func (s *KuzuStore) RemoveTask(_ context.Context, taskID string) error {
	return s.exec(
		"MATCH (n:Snapshot {task_id: $task}) DETACH DELETE n",
		map[string]any{"task": taskID},
	)
}

// RemoveEvolution discards an evolution, its baseline content, and any
// snapshots still attached.
func (s *KuzuStore) RemoveEvolution(_ context.Context, filePath string) error {
	key := contenthash.StorageKey(filePath)
	if err := s.exec(
		"MATCH (n:Snapshot)-[:TOUCHED]->(e:Evolution {key: $key}) DETACH DELETE n",
		map[string]any{"key": key},
	); err != nil {
		return err
	}
	return s.exec(
		"MATCH (e:Evolution {key: $key}) DETACH DELETE e",
		map[string]any{"key": key},
	)
}

// ---------- Read operations ----------

// GetEvolution returns the evolution for the given path with its snapshots
// in insertion order, or nil if the file is not tracked.
func (s *KuzuStore) GetEvolution(_ context.Context, filePath string) (*FileEvolution, error) {
	key := contenthash.StorageKey(filePath)
	rows, err := s.query(
		`MATCH (e:Evolution {key: $key})
		 RETURN e.path, e.baseline_commit, e.baseline_content, e.baseline_hash`,
		map[string]any{"key": key},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	ev := NewFileEvolution(toString(r[0]), toString(r[1]), toString(r[2]), toString(r[3]))

	snapRows, err := s.query(
		`MATCH (n:Snapshot)-[:TOUCHED]->(e:Evolution {key: $key})
		 RETURN n.task_id, n.task_intent, n.started_at, n.completed_at,
		        n.hash_before, n.hash_after, n.changes, n.seq`,
		map[string]any{"key": key},
	)
	if err != nil {
		return nil, err
	}
	sort.Slice(snapRows, func(i, j int) bool {
		return toInt(snapRows[i][7]) < toInt(snapRows[j][7])
	})
	for _, sr := range snapRows {
		snap, err := rowToSnapshot(sr)
		if err != nil {
			return nil, err
		}
		ev.SetSnapshot(snap)
	}
	return ev, nil
}

// ListEvolutions returns all tracked evolutions ordered by file path.
func (s *KuzuStore) ListEvolutions(ctx context.Context) ([]*FileEvolution, error) {
	rows, err := s.query("MATCH (e:Evolution) RETURN e.path", nil)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(rows))
	for _, r := range rows {
		paths = append(paths, toString(r[0]))
	}
	sort.Strings(paths)

	out := make([]*FileEvolution, 0, len(paths))
	for _, p := range paths {
		ev, err := s.GetEvolution(ctx, p)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

// ---------- Helpers ----------

// snapshotID produces a deterministic identifier for a snapshot row.
func snapshotID(evolutionKey, taskID string) string {
	return evolutionKey + "|" + taskID
}

// rowToSnapshot converts an 8-column result row into a TaskSnapshot.
// Column order: task_id, task_intent, started_at, completed_at, hash_before,
// hash_after, changes, seq.
func rowToSnapshot(r []any) (*TaskSnapshot, error) {
	started, err := time.Parse(time.RFC3339Nano, toString(r[2]))
	if err != nil {
		return nil, fmt.Errorf("kuzu: parse started_at: %w", err)
	}
	snap := &TaskSnapshot{
		TaskID:            toString(r[0]),
		TaskIntent:        toString(r[1]),
		StartedAt:         started,
		ContentHashBefore: toString(r[4]),
		ContentHashAfter:  toString(r[5]),
	}
	if raw := toString(r[3]); raw != "" {
		completed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("kuzu: parse completed_at: %w", err)
		}
		snap.CompletedAt = &completed
	}
	if raw := toString(r[6]); raw != "" && raw != "null" {
		var changes []semantic.Change
		if err := json.Unmarshal([]byte(raw), &changes); err != nil {
			return nil, fmt.Errorf("kuzu: unmarshal changes: %w", err)
		}
		snap.Changes = changes
	}
	return snap, nil
}

func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
