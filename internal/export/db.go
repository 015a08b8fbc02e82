package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// schemaSQL uses only TEXT and INTEGER columns so the same statement
// runs on sqlite, postgres and libsql. Structured question fields are
// stored as JSON text.
const schemaSQL = `CREATE TABLE IF NOT EXISTS questions (
	content_hash       TEXT PRIMARY KEY,
	batch_id           TEXT NOT NULL,
	language           TEXT NOT NULL,
	level              TEXT NOT NULL,
	question_type      TEXT NOT NULL,
	target_skill       TEXT NOT NULL,
	topic              TEXT NOT NULL,
	question           TEXT NOT NULL,
	passage            TEXT NOT NULL,
	options            TEXT NOT NULL,
	correct_answer     TEXT NOT NULL,
	acceptable_answers TEXT NOT NULL,
	translations       TEXT NOT NULL,
	points             INTEGER NOT NULL,
	grammar_tags       TEXT NOT NULL,
	vocabulary_tags    TEXT NOT NULL,
	topic_tags         TEXT NOT NULL,
	exported_at        TEXT NOT NULL
)`

// The $n placeholders bind positionally on all three drivers, and
// excluded.col in the conflict clause is shared sqlite/postgres syntax.
const upsertSQL = `INSERT INTO questions (
	content_hash, batch_id, language, level, question_type, target_skill,
	topic, question, passage, options, correct_answer, acceptable_answers,
	translations, points, grammar_tags, vocabulary_tags, topic_tags, exported_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (content_hash) DO UPDATE SET
	batch_id = excluded.batch_id,
	language = excluded.language,
	level = excluded.level,
	question_type = excluded.question_type,
	target_skill = excluded.target_skill,
	topic = excluded.topic,
	question = excluded.question,
	passage = excluded.passage,
	options = excluded.options,
	correct_answer = excluded.correct_answer,
	acceptable_answers = excluded.acceptable_answers,
	translations = excluded.translations,
	points = excluded.points,
	grammar_tags = excluded.grammar_tags,
	vocabulary_tags = excluded.vocabulary_tags,
	topic_tags = excluded.topic_tags,
	exported_at = excluded.exported_at`

// driverFor maps a DSN to the registered database/sql driver and the
// source string that driver expects.
func driverFor(dsn string) (driver, source string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn
	case strings.HasPrefix(dsn, "libsql://"):
		return "libsql", dsn
	case strings.HasPrefix(dsn, "sqlite:"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite:")
	default:
		return "sqlite", dsn
	}
}

// OpenDB opens the export target selected by the DSN scheme:
// postgres:// and postgresql:// use the pgx driver, libsql:// the
// libsql driver, and sqlite:<path> or a bare path an embedded sqlite
// file.
func OpenDB(dsn string) (*sql.DB, error) {
	driver, source := driverFor(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure sqlite database: %w", err)
		}
	}
	return db, nil
}

// ToDB upserts the rows into the questions table, creating it when
// missing. The whole export runs in one transaction keyed on content
// hash, so re-exporting refreshes existing rows instead of duplicating
// them.
func ToDB(ctx context.Context, db *sql.DB, rows []Row) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create questions table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin export transaction: %w", err)
	}
	defer tx.Rollback()

	exportedAt := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		q := r.Question
		_, err := tx.ExecContext(ctx, upsertSQL,
			r.Hash,
			r.BatchID,
			r.Language,
			string(r.Level),
			string(q.Type),
			string(q.TargetSkill),
			r.Topic,
			q.Question,
			q.PassageText,
			jsonText(q.Options),
			q.CorrectAnswer,
			jsonText(q.AcceptableAnswers),
			jsonText(q.Translations),
			q.Points,
			jsonText(q.GrammarTags),
			jsonText(q.VocabularyTags),
			jsonText(q.TopicTags),
			exportedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert question %s: %w", shortHash(r.Hash), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	return nil
}

func jsonText(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}
