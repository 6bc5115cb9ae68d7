package stats

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder 把统计行写入本地 SQLite 文件
type SQLiteRecorder struct {
	db *sql.DB
}

// OpenSQLite 打开（必要时创建）数据库并建表
func OpenSQLite(dbPath string) (*SQLiteRecorder, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("建表失败: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS model_steps (
			run INTEGER NOT NULL,
			step INTEGER NOT NULL,
			fire_cells INTEGER NOT NULL,
			smoke_cells INTEGER NOT NULL,
			rescued_pois INTEGER NOT NULL,
			active_pois INTEGER NOT NULL,
			intact_walls INTEGER NOT NULL,
			explosions INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			PRIMARY KEY (run, step)
		);`,
		`CREATE TABLE IF NOT EXISTS agent_steps (
			run INTEGER NOT NULL,
			step INTEGER NOT NULL,
			firefighter_id INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			role TEXT NOT NULL,
			action_points INTEGER NOT NULL,
			carrying BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (run, step, firefighter_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_agent_steps_run ON agent_steps(run);`,
	}
	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Record 在一个事务内写入一步的数据
func (r *SQLiteRecorder) Record(ctx context.Context, model ModelRow, agents []AgentRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO model_steps
			(run, step, fire_cells, smoke_cells, rescued_pois, active_pois, intact_walls, explosions, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		model.Run, model.Step, model.FireCells, model.SmokeCells, model.RescuedPOIs,
		model.ActivePOIs, model.IntactWalls, model.Explosions, model.Outcome,
	)
	if err != nil {
		return fmt.Errorf("写入模型数据失败: %w", err)
	}

	for _, a := range agents {
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO agent_steps
				(run, step, firefighter_id, x, y, role, action_points, carrying)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.Run, a.Step, a.FirefighterID, a.X, a.Y, a.Role, a.ActionPoints, a.Carrying,
		)
		if err != nil {
			return fmt.Errorf("写入消防员数据失败: %w", err)
		}
	}
	return tx.Commit()
}

// ModelRows 按步数顺序读取某次运行的模型数据
func (r *SQLiteRecorder) ModelRows(ctx context.Context, run int) ([]ModelRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run, step, fire_cells, smoke_cells, rescued_pois, active_pois, intact_walls, explosions, outcome
		FROM model_steps
		WHERE run = ?
		ORDER BY step ASC`, run)
	if err != nil {
		return nil, fmt.Errorf("查询模型数据失败: %w", err)
	}
	defer rows.Close()

	var out []ModelRow
	for rows.Next() {
		var m ModelRow
		if err := rows.Scan(&m.Run, &m.Step, &m.FireCells, &m.SmokeCells, &m.RescuedPOIs,
			&m.ActivePOIs, &m.IntactWalls, &m.Explosions, &m.Outcome); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AgentCount 某次运行记录的消防员行数
func (r *SQLiteRecorder) AgentCount(ctx context.Context, run int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_steps WHERE run = ?`, run).Scan(&n)
	return n, err
}

// NextRun 返回一个尚未使用的运行编号
func (r *SQLiteRecorder) NextRun(ctx context.Context) (int, error) {
	var n sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(run) FROM model_steps`).Scan(&n); err != nil {
		return 0, err
	}
	if !n.Valid {
		return 1, nil
	}
	return int(n.Int64) + 1, nil
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
