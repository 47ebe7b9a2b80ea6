package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store keeps the board in Postgres. Tables come from the bun migrations in
// the migrations package; questions cascade on topic deletion via the FK.
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, icon FROM topics ORDER BY id`)
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
	return topics, domain.Internal("list topics", rows.Err())
}

func (s *Store) GetTopic(ctx context.Context, id int64) (domain.Topic, error) {
	var t domain.Topic
	err := s.q.QueryRow(ctx, `SELECT id, name, icon FROM topics WHERE id=$1`, id).Scan(&t.ID, &t.Name, &t.Icon)
	if errors.Is(err, pgx.ErrNoRows) {
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
	err := s.q.QueryRow(ctx, `INSERT INTO topics (name, icon) VALUES ($1, $2) RETURNING id`, name, icon).Scan(&t.ID)
	if err != nil {
		return domain.Topic{}, domain.Internal("create topic", err)
	}
	return t, nil
}

func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM topics WHERE id=$1`, id)
	if err != nil {
		return domain.Internal("delete topic", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context, topicID *int64) ([]domain.Question, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if topicID == nil {
		rows, err = s.q.Query(ctx, `SELECT id, topic_id, points, question, answer, used FROM questions ORDER BY id`)
	} else {
		rows, err = s.q.Query(ctx, `SELECT id, topic_id, points, question, answer, used FROM questions WHERE topic_id=$1 ORDER BY id`, *topicID)
	}
	if err != nil {
		return nil, domain.Internal("list questions", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.TopicID, &q.Points, &q.Question, &q.Answer, &q.Used); err != nil {
			return nil, domain.Internal("scan question", err)
		}
		questions = append(questions, q)
	}
	return questions, domain.Internal("list questions", rows.Err())
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var q domain.Question
	err := s.q.QueryRow(ctx,
		`SELECT id, topic_id, points, question, answer, used FROM questions WHERE id=$1`, id,
	).Scan(&q.ID, &q.TopicID, &q.Points, &q.Question, &q.Answer, &q.Used)
	if errors.Is(err, pgx.ErrNoRows) {
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
	q := domain.Question{TopicID: in.TopicID, Points: in.Points, Question: in.Question, Answer: in.Answer}
	err := s.q.QueryRow(ctx,
		`INSERT INTO questions (topic_id, points, question, answer) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.TopicID, in.Points, in.Question, in.Answer,
	).Scan(&q.ID)
	if isForeignKeyViolation(err) {
		return domain.Question{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.Question{}, domain.Internal("create question", err)
	}
	return q, nil
}

func (s *Store) MarkQuestionUsed(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `UPDATE questions SET used=TRUE WHERE id=$1`, id)
	if err != nil {
		return domain.Internal("mark question used", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return domain.Internal("delete question", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) ClearQuestions(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM questions`); err != nil {
		return domain.Internal("clear questions", err)
	}
	return nil
}

func (s *Store) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, score FROM teams ORDER BY id`)
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
	return teams, domain.Internal("list teams", rows.Err())
}

func (s *Store) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	var t domain.Team
	err := s.q.QueryRow(ctx, `SELECT id, name, score FROM teams WHERE id=$1`, id).Scan(&t.ID, &t.Name, &t.Score)
	if errors.Is(err, pgx.ErrNoRows) {
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
	if err := s.q.QueryRow(ctx, `INSERT INTO teams (name, score) VALUES ($1, 0) RETURNING id`, name).Scan(&t.ID); err != nil {
		return domain.Team{}, domain.Internal("create team", err)
	}
	return t, nil
}

func (s *Store) UpdateTeamScore(ctx context.Context, id int64, score int) (domain.Team, error) {
	var t domain.Team
	err := s.q.QueryRow(ctx,
		`UPDATE teams SET score=$1 WHERE id=$2 RETURNING id, name, score`, score, id,
	).Scan(&t.ID, &t.Name, &t.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, domain.Internal("update team score", err)
	}
	return t, nil
}

func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM teams WHERE id=$1`, id)
	if err != nil {
		return domain.Internal("delete team", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (s *Store) ResetGame(ctx context.Context) error {
	return s.Atomically(ctx, func(tx app.Store) error {
		inner := tx.(*Store)
		if _, err := inner.q.Exec(ctx, `UPDATE questions SET used=FALSE`); err != nil {
			return domain.Internal("reset questions", err)
		}
		if _, err := inner.q.Exec(ctx, `UPDATE teams SET score=0`); err != nil {
			return domain.Internal("reset scores", err)
		}
		return nil
	})
}

// Atomically runs fn in a pgx transaction. Nested calls reuse the open transaction.
func (s *Store) Atomically(ctx context.Context, fn func(tx app.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		return fn(&Store{q: tx})
	})
	return domain.Internal("transaction", err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
