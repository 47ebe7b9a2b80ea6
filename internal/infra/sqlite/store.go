// Package sqlite provides a single-file SQLite implementation of app.Store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists the board in SQLite. Inside a transaction db is nil and q is the *sql.Tx.
type Store struct {
	db *sql.DB
	q  querier
}

// New wraps an existing handle. The schema is expected to exist.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Open opens (or creates) the database file at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer keeps transactions and plain calls from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return New(db), nil
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, icon FROM topics ORDER BY id`)
	if err != nil {
		return nil, domain.Internal("list topics", err)
	}
	defer rows.Close()

	topics := make([]domain.Topic, 0)
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Icon); err != nil {
			return nil, domain.Internal("scan topic", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("list topics", err)
	}
	return topics, nil
}

func (s *Store) GetTopic(ctx context.Context, id int64) (domain.Topic, error) {
	var t domain.Topic
	err := s.q.QueryRowContext(ctx, `SELECT id, name, icon FROM topics WHERE id = ?`, id).Scan(&t.ID, &t.Name, &t.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.Topic{}, domain.Internal("get topic", err)
	}
	return t, nil
}

func (s *Store) CreateTopic(ctx context.Context, name, icon string) (domain.Topic, error) {
	if err := domain.ValidateTopic(name, icon); err != nil {
		return domain.Topic{}, err
	}
	t := domain.Topic{Name: name, Icon: icon}
	err := s.q.QueryRowContext(ctx, `INSERT INTO topics (name, icon) VALUES (?, ?) RETURNING id`, name, icon).Scan(&t.ID)
	if err != nil {
		return domain.Topic{}, domain.Internal("create topic", err)
	}
	return t, nil
}

// DeleteTopic removes the topic's questions and then the topic in one transaction.
func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *Store) error {
		if _, err := tx.GetTopic(ctx, id); err != nil {
			return err
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM questions WHERE topic_id = ?`, id); err != nil {
			return domain.Internal("delete topic questions", err)
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id); err != nil {
			return domain.Internal("delete topic", err)
		}
		return nil
	})
}

func (s *Store) ListQuestions(ctx context.Context, topicID *int64) ([]domain.Question, error) {
	query := `SELECT id, topic_id, points, question, answer, used FROM questions`
	var args []any
	if topicID != nil {
		query += ` WHERE topic_id = ?`
		args = append(args, *topicID)
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal("list questions", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, domain.Internal("scan question", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("list questions", err)
	}
	return questions, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id, topic_id, points, question, answer, used FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, domain.Internal("get question", err)
	}
	return q, nil
}

func (s *Store) CreateQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	if err := domain.ValidateQuestion(in); err != nil {
		return domain.Question{}, err
	}
	if _, err := s.GetTopic(ctx, in.TopicID); err != nil {
		return domain.Question{}, err
	}
	q := domain.Question{TopicID: in.TopicID, Points: in.Points, Question: in.Question, Answer: in.Answer}
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO questions (topic_id, points, question, answer) VALUES (?, ?, ?, ?) RETURNING id`,
		in.TopicID, in.Points, in.Question, in.Answer,
	).Scan(&q.ID)
	if err != nil {
		return domain.Question{}, domain.Internal("create question", err)
	}
	return q, nil
}

func (s *Store) MarkQuestionUsed(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE questions SET used = 1 WHERE id = ?`, id)
	if err != nil {
		return domain.Internal("mark question used", err)
	}
	return expectOne(res, domain.ErrQuestionNotFound)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return domain.Internal("delete question", err)
	}
	return expectOne(res, domain.ErrQuestionNotFound)
}

func (s *Store) ClearQuestions(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return domain.Internal("clear questions", err)
	}
	return nil
}

func (s *Store) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, score FROM teams ORDER BY id`)
	if err != nil {
		return nil, domain.Internal("list teams", err)
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Score); err != nil {
			return nil, domain.Internal("scan team", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("list teams", err)
	}
	return teams, nil
}

func (s *Store) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	var t domain.Team
	err := s.q.QueryRowContext(ctx, `SELECT id, name, score FROM teams WHERE id = ?`, id).Scan(&t.ID, &t.Name, &t.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, domain.Internal("get team", err)
	}
	return t, nil
}

func (s *Store) CreateTeam(ctx context.Context, name string) (domain.Team, error) {
	if err := domain.ValidateTeam(name); err != nil {
		return domain.Team{}, err
	}
	t := domain.Team{Name: name}
	if err := s.q.QueryRowContext(ctx, `INSERT INTO teams (name, score) VALUES (?, 0) RETURNING id`, name).Scan(&t.ID); err != nil {
		return domain.Team{}, domain.Internal("create team", err)
	}
	return t, nil
}

func (s *Store) UpdateTeamScore(ctx context.Context, id int64, score int) (domain.Team, error) {
	var t domain.Team
	err := s.q.QueryRowContext(ctx,
		`UPDATE teams SET score = ? WHERE id = ? RETURNING id, name, score`, score, id,
	).Scan(&t.ID, &t.Name, &t.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, domain.Internal("update team score", err)
	}
	return t, nil
}

func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return domain.Internal("delete team", err)
	}
	return expectOne(res, domain.ErrTeamNotFound)
}

func (s *Store) ResetGame(ctx context.Context) error {
	return s.withTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx, `UPDATE questions SET used = 0`); err != nil {
			return domain.Internal("reset questions", err)
		}
		if _, err := tx.q.ExecContext(ctx, `UPDATE teams SET score = 0`); err != nil {
			return domain.Internal("reset scores", err)
		}
		return nil
	})
}

// Atomically runs fn inside a SQLite transaction.
func (s *Store) Atomically(ctx context.Context, fn func(tx app.Store) error) error {
	return s.withTx(ctx, func(tx *Store) error { return fn(tx) })
}

func (s *Store) withTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Internal("begin tx", err)
	}
	if err := fn(&Store{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.Internal("commit tx", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.TopicID, &q.Points, &q.Question, &q.Answer, &q.Used)
	return q, err
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Internal("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
