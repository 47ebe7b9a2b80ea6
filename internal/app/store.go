package app

import (
	"context"

	"trivia-board-service/internal/domain"
)

// TopicStore reads and writes topics.
type TopicStore interface {
	ListTopics(ctx context.Context) ([]domain.Topic, error)
	GetTopic(ctx context.Context, id int64) (domain.Topic, error)
	CreateTopic(ctx context.Context, name, icon string) (domain.Topic, error)
	// DeleteTopic removes the topic and every question that references it.
	DeleteTopic(ctx context.Context, id int64) error
}

// QuestionStore reads and writes questions.
type QuestionStore interface {
	// ListQuestions returns the questions of a topic, or all questions when topicID is nil.
	ListQuestions(ctx context.Context, topicID *int64) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	CreateQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error)
	// MarkQuestionUsed is idempotent.
	MarkQuestionUsed(ctx context.Context, id int64) error
	DeleteQuestion(ctx context.Context, id int64) error
	ClearQuestions(ctx context.Context) error
}

// TeamStore reads and writes teams.
type TeamStore interface {
	ListTeams(ctx context.Context) ([]domain.Team, error)
	GetTeam(ctx context.Context, id int64) (domain.Team, error)
	CreateTeam(ctx context.Context, name string) (domain.Team, error)
	UpdateTeamScore(ctx context.Context, id int64, score int) (domain.Team, error)
	DeleteTeam(ctx context.Context, id int64) error
}

// Store abstracts where game entities live (in-memory, Postgres, SQLite, cached).
type Store interface {
	TopicStore
	QuestionStore
	TeamStore

	// ResetGame marks every question unused and zeroes every score.
	ResetGame(ctx context.Context) error

	// Atomically runs fn against a transactional view of the store. When fn
	// returns an error none of its writes are kept.
	Atomically(ctx context.Context, fn func(tx Store) error) error
}
