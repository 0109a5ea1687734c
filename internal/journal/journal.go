package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ctenopool/labeler/internal/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	mode       TEXT NOT NULL,
	username   TEXT NOT NULL,
	blob_paths TEXT NOT NULL,
	choice     TEXT NOT NULL,
	correct    INTEGER,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_username ON submissions(username, created_at);
`

// Journal keeps a local record of every finalized submission
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// sqlite has a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one submission.
func (j *Journal) Record(ctx context.Context, rec models.LabelRecord) error {
	paths, err := json.Marshal(rec.BlobPaths)
	if err != nil {
		return fmt.Errorf("failed to encode blob paths: %w", err)
	}
	var correct sql.NullBool
	if rec.Correct != nil {
		correct = sql.NullBool{Bool: *rec.Correct, Valid: true}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const q = `
INSERT INTO submissions (session_id, mode, username, blob_paths, choice, correct, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, q,
		rec.SessionID, rec.Mode, rec.Username, string(paths), rec.Choice, correct, createdAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// Recent returns the newest submissions for username, newest first.
func (j *Journal) Recent(ctx context.Context, username string, limit int) ([]models.LabelRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, session_id, mode, username, blob_paths, choice, correct, created_at
FROM submissions
WHERE username = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`
	rows, err := j.db.QueryContext(ctx, q, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []models.LabelRecord
	for rows.Next() {
		var (
			rec     models.LabelRecord
			paths   string
			correct sql.NullBool
			ts      int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Mode, &rec.Username, &paths, &rec.Choice, &correct, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		if err := json.Unmarshal([]byte(paths), &rec.BlobPaths); err != nil {
			return nil, fmt.Errorf("failed to decode blob paths: %w", err)
		}
		if correct.Valid {
			b := correct.Bool
			rec.Correct = &b
		}
		rec.CreatedAt = time.UnixMilli(ts).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Tally is the per-user, per-mode aggregate of the journal
type Tally struct {
	Username string `json:"username"`
	Mode     string `json:"mode"`
	Total    int    `json:"total"`
	Correct  int    `json:"correct"`
	Wrong    int    `json:"wrong"`
}

// Accuracy is Correct over the submissions that were graded.
func (t Tally) Accuracy() float64 {
	graded := t.Correct + t.Wrong
	if graded == 0 {
		return 0
	}
	return float64(t.Correct) / float64(graded)
}

// Summarize tallies every submission since the given time, grouped by
// username and mode.
func (j *Journal) Summarize(ctx context.Context, since time.Time) ([]Tally, error) {
	const q = `
SELECT username, mode, COUNT(*),
       COALESCE(SUM(CASE WHEN correct = 1 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN correct = 0 THEN 1 ELSE 0 END), 0)
FROM submissions
WHERE created_at >= ?
GROUP BY username, mode
ORDER BY username, mode`
	rows, err := j.db.QueryContext(ctx, q, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize submissions: %w", err)
	}
	defer rows.Close()

	var out []Tally
	for rows.Next() {
		var t Tally
		if err := rows.Scan(&t.Username, &t.Mode, &t.Total, &t.Correct, &t.Wrong); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
