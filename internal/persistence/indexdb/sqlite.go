package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	world "apocalypse.sim/internal/sim/world"
)

var ErrUnknownRun = errors.New("indexdb: unknown run")

// NewRunID returns a fresh random run id.
func NewRunID() string { return uuid.NewString() }

// SQLiteIndex is a queryable secondary index of runs. Tick rows are written
// by a background goroutine; the JSONL tick log stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan world.TickLogEntry
	wg   sync.WaitGroup
	once sync.Once

	closed        atomic.Bool
	dropTickTotal atomic.Uint64
}

// Run describes one simulation run.
type Run struct {
	ID       string
	Scenario string
	Seed     int64
	Width    int
	Height   int
	// Tuning is stored as canonical JSON with its sha256 digest.
	Tuning    any
	StartedAt time.Time
}

type RunRow struct {
	ID           string
	Scenario     string
	Seed         int64
	Width        int
	Height       int
	TuningDigest string
	TuningJSON   string
	StartedAt    string
	EndedAt      string
	FinalTick    uint64
	Status       string
}

type TickRow struct {
	Tick   uint64
	Agents int
	Stats  world.PopulationStats
}

type Stats struct {
	DropTickTotal uint64
	QueueDepth    int
	QueueCapacity int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan world.TickLogEntry, queue)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			tuning_digest TEXT NOT NULL,
			tuning_json TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT '',
			final_tick INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running'
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			tick INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			susceptible INTEGER NOT NULL,
			infected INTEGER NOT NULL,
			carrier INTEGER NOT NULL,
			recovered INTEGER NOT NULL,
			escaped INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS lifecycle (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			agent_id INTEGER NOT NULL,
			agent_kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			reason TEXT,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_agent ON lifecycle(run_id, agent_id);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		DropTickTotal: s.dropTickTotal.Load(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
	}
}

// RecordRun inserts the run row. It must precede the run's first tick.
func (s *SQLiteIndex) RecordRun(ctx context.Context, r Run) error {
	b, err := json.Marshal(r.Tuning)
	if err != nil {
		return fmt.Errorf("tuning json: %w", err)
	}
	sum := sha256.Sum256(b)
	started := r.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id,scenario,seed,width,height,tuning_digest,tuning_json,started_at) VALUES(?,?,?,?,?,?,?,?)`,
		r.ID, r.Scenario, r.Seed, r.Width, r.Height, hex.EncodeToString(sum[:]), string(b),
		started.UTC().Format(time.RFC3339Nano))
	return err
}

// FinishRun stamps the end of a run with its last tick and a status such as
// "finished", "stopped" or "failed".
func (s *SQLiteIndex) FinishRun(ctx context.Context, runID string, finalTick uint64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at=?, final_tick=?, status=? WHERE run_id=?`,
		time.Now().UTC().Format(time.RFC3339Nano), int64(finalTick), status, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

// WriteTick queues a tick for the writer goroutine. It never blocks the
// world loop: when the queue is full the tick is dropped and counted.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- entry:
	default:
		s.dropTickTotal.Add(1)
	}
	return nil
}

const runColumns = `run_id,scenario,seed,width,height,tuning_digest,tuning_json,started_at,ended_at,final_tick,status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (RunRow, error) {
	var r RunRow
	var final int64
	err := sc.Scan(&r.ID, &r.Scenario, &r.Seed, &r.Width, &r.Height, &r.TuningDigest, &r.TuningJSON, &r.StartedAt, &r.EndedAt, &final, &r.Status)
	r.FinalTick = uint64(final)
	return r, err
}

// Runs lists all runs, newest first.
func (s *SQLiteIndex) Runs(ctx context.Context) ([]RunRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns one run row, or ErrUnknownRun.
func (s *SQLiteIndex) Run(ctx context.Context, runID string) (RunRow, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id=?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return RunRow{}, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return r, err
}

// Ticks returns the indexed counters of a run in tick order.
func (s *SQLiteIndex) Ticks(ctx context.Context, runID string) ([]TickRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick,agents,susceptible,infected,carrier,recovered,escaped FROM ticks WHERE run_id=? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TickRow
	for rows.Next() {
		var r TickRow
		var tick int64
		st := &r.Stats
		if err := rows.Scan(&tick, &r.Agents, &st.Susceptible, &st.Infected, &st.Carrier, &st.Recovered, &st.Escaped); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LifecycleCounts counts a run's lifecycle events by "kind/reason".
func (s *SQLiteIndex) LifecycleCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COALESCE(reason,''), COUNT(*) FROM lifecycle WHERE run_id=? GROUP BY kind, reason`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var kind, reason string
		var n int
		if err := rows.Scan(&kind, &reason, &n); err != nil {
			return nil, err
		}
		out[kind+"/"+reason] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,agents,susceptible,infected,carrier,recovered,escaped) VALUES(?,?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO lifecycle(run_id,tick,seq,kind,agent_id,agent_kind,x,y,reason) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for e := range s.ch {
		begin()
		if tx == nil || insertTick == nil || insertEvent == nil {
			continue
		}
		st := e.Stats
		if _, err := tx.Stmt(insertTick).Exec(e.RunID, int64(e.Tick), e.Agents,
			st.Susceptible, st.Infected, st.Carrier, st.Recovered, st.Escaped); err != nil {
			rollback()
			continue
		}
		opCount++
		for i, ev := range e.Events {
			if _, err := tx.Stmt(insertEvent).Exec(e.RunID, int64(e.Tick), i, string(ev.Kind), int64(ev.AgentID),
				string(ev.AgentKind), ev.Pos.X, ev.Pos.Y, ev.Reason); err != nil {
				rollback()
				break
			}
			opCount++
		}
		// Commit once the backlog is drained so readers sharing the single
		// connection never wait on an idle transaction.
		if tx != nil && (len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
