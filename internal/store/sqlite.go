package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/stemsi/exstem-client/internal/model"
)

// SQLiteStore is the default AttemptStore: a local file, so answers survive
// a client crash or reload without any network dependency.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the attempt database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "attempts.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			exam_id TEXT NOT NULL,
			student_ref TEXT NOT NULL,
			started_at_unix INTEGER NOT NULL,
			PRIMARY KEY (exam_id, student_ref)
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_answers (
			exam_id TEXT NOT NULL,
			student_ref TEXT NOT NULL,
			question_id TEXT NOT NULL,
			answer_json TEXT NOT NULL,
			updated_at_unix INTEGER NOT NULL,
			PRIMARY KEY (exam_id, student_ref, question_id)
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveStartedAt(ctx context.Context, key AttemptKey, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO attempts (exam_id, student_ref, started_at_unix) VALUES (?, ?, ?)`,
		key.ExamID.String(), key.StudentRef, startedAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) SaveAnswer(ctx context.Context, key AttemptKey, questionID uuid.UUID, answer model.Answer) error {
	raw, err := encodeAnswer(answer)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempt_answers (exam_id, student_ref, question_id, answer_json, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (exam_id, student_ref, question_id) DO UPDATE
		 SET answer_json = excluded.answer_json, updated_at_unix = excluded.updated_at_unix`,
		key.ExamID.String(), key.StudentRef, questionID.String(), string(raw), time.Now().Unix(),
	)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, key AttemptKey) (*Attempt, error) {
	var startedUnix int64
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at_unix FROM attempts WHERE exam_id = ? AND student_ref = ?`,
		key.ExamID.String(), key.StudentRef,
	).Scan(&startedUnix)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	attempt := &Attempt{
		StartedAt: time.Unix(startedUnix, 0),
		Answers:   make(map[uuid.UUID]model.Answer),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, answer_json FROM attempt_answers WHERE exam_id = ? AND student_ref = ?`,
		key.ExamID.String(), key.StudentRef,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var qidRaw, answerRaw string
		if err := rows.Scan(&qidRaw, &answerRaw); err != nil {
			return nil, err
		}
		qid, err := uuid.Parse(qidRaw)
		if err != nil {
			continue // skip corrupt rows rather than losing the whole attempt
		}
		answer, err := decodeAnswer([]byte(answerRaw))
		if err != nil {
			continue
		}
		attempt.Answers[qid] = answer
	}
	return attempt, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context, key AttemptKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM attempt_answers WHERE exam_id = ? AND student_ref = ?`,
		key.ExamID.String(), key.StudentRef,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM attempts WHERE exam_id = ? AND student_ref = ?`,
		key.ExamID.String(), key.StudentRef,
	); err != nil {
		return err
	}
	return tx.Commit()
}
