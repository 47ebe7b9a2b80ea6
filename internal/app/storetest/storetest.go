// Package storetest holds the behavior every app.Store implementation must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/domain"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) app.Store

// Run exercises the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndListTopics", func(t *testing.T) { testCreateAndListTopics(t, newStore(t)) })
	t.Run("CreateTopicRejectsBlankFields", func(t *testing.T) { testCreateTopicValidation(t, newStore(t)) })
	t.Run("DeleteTopicCascades", func(t *testing.T) { testDeleteTopicCascades(t, newStore(t)) })
	t.Run("DeleteUnknownTopic", func(t *testing.T) { testDeleteUnknownTopic(t, newStore(t)) })
	t.Run("QuestionLifecycle", func(t *testing.T) { testQuestionLifecycle(t, newStore(t)) })
	t.Run("CreateQuestionUnknownTopic", func(t *testing.T) { testCreateQuestionUnknownTopic(t, newStore(t)) })
	t.Run("ListQuestionsFiltersByTopic", func(t *testing.T) { testListQuestionsFilter(t, newStore(t)) })
	t.Run("DeleteAndClearQuestions", func(t *testing.T) { testDeleteAndClearQuestions(t, newStore(t)) })
	t.Run("TeamScoreRoundTrip", func(t *testing.T) { testTeamScoreRoundTrip(t, newStore(t)) })
	t.Run("ScoresBeyondInt32", func(t *testing.T) { testScoresBeyondInt32(t, newStore(t)) })
	t.Run("UpdateUnknownTeam", func(t *testing.T) { testUpdateUnknownTeam(t, newStore(t)) })
	t.Run("DeleteTeam", func(t *testing.T) { testDeleteTeam(t, newStore(t)) })
	t.Run("ResetGameIsIdempotent", func(t *testing.T) { testResetGame(t, newStore(t)) })
	t.Run("AtomicallyCommits", func(t *testing.T) { testAtomicallyCommits(t, newStore(t)) })
	t.Run("AtomicallyRollsBack", func(t *testing.T) { testAtomicallyRollsBack(t, newStore(t)) })
}

func testCreateAndListTopics(t *testing.T, s app.Store) {
	ctx := context.Background()
	history, err := s.CreateTopic(ctx, "History", "🏛️")
	require.NoError(t, err)
	science, err := s.CreateTopic(ctx, "Science", "🔬")
	require.NoError(t, err)
	assert.NotEqual(t, history.ID, science.ID)

	topics, err := s.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Contains(t, topics, domain.Topic{ID: history.ID, Name: "History", Icon: "🏛️"})

	got, err := s.GetTopic(ctx, science.ID)
	require.NoError(t, err)
	assert.Equal(t, science, got)
}

func testCreateTopicValidation(t *testing.T, s app.Store) {
	ctx := context.Background()
	_, err := s.CreateTopic(ctx, "", "🏛️")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = s.CreateTopic(ctx, "History", " ")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	topics, err := s.ListTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func testDeleteTopicCascades(t *testing.T, s app.Store) {
	ctx := context.Background()
	topic := mustTopic(t, s, "History")
	other := mustTopic(t, s, "Art")
	mustQuestion(t, s, topic.ID, 200)
	mustQuestion(t, s, topic.ID, 400)
	kept := mustQuestion(t, s, other.ID, 200)

	require.NoError(t, s.DeleteTopic(ctx, topic.ID))

	remaining, err := s.ListQuestions(ctx, &topic.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	all, err := s.ListQuestions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept.ID, all[0].ID)

	_, err = s.GetTopic(ctx, topic.ID)
	assert.True(t, errors.Is(err, domain.ErrTopicNotFound))
}

func testDeleteUnknownTopic(t *testing.T, s app.Store) {
	err := s.DeleteTopic(context.Background(), 9999)
	assert.True(t, errors.Is(err, domain.ErrTopicNotFound), "got %v", err)
}

func testQuestionLifecycle(t *testing.T, s app.Store) {
	ctx := context.Background()
	topic := mustTopic(t, s, "History")
	q := mustQuestion(t, s, topic.ID, 200)
	assert.False(t, q.Used)
	assert.Equal(t, topic.ID, q.TopicID)

	require.NoError(t, s.MarkQuestionUsed(ctx, q.ID))
	require.NoError(t, s.MarkQuestionUsed(ctx, q.ID), "marking twice must not fail")

	got, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, got.Used)

	err = s.MarkQuestionUsed(ctx, q.ID+1000)
	assert.True(t, errors.Is(err, domain.ErrQuestionNotFound))

	_, err = s.GetQuestion(ctx, q.ID+1000)
	assert.True(t, errors.Is(err, domain.ErrQuestionNotFound))
}

func testCreateQuestionUnknownTopic(t *testing.T, s app.Store) {
	ctx := context.Background()
	topic := mustTopic(t, s, "History")
	mustQuestion(t, s, topic.ID, 200)

	_, err := s.CreateQuestion(ctx, domain.NewQuestion{TopicID: topic.ID + 1000, Points: 200, Question: "Q", Answer: "A"})
	assert.True(t, errors.Is(err, domain.ErrTopicNotFound), "got %v", err)

	all, err := s.ListQuestions(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testListQuestionsFilter(t *testing.T, s app.Store) {
	ctx := context.Background()
	a := mustTopic(t, s, "A")
	b := mustTopic(t, s, "B")
	mustQuestion(t, s, a.ID, 200)
	mustQuestion(t, s, a.ID, 400)
	mustQuestion(t, s, b.ID, 200)

	forA, err := s.ListQuestions(ctx, &a.ID)
	require.NoError(t, err)
	assert.Len(t, forA, 2)
	for _, q := range forA {
		assert.Equal(t, a.ID, q.TopicID)
	}

	all, err := s.ListQuestions(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testDeleteAndClearQuestions(t *testing.T, s app.Store) {
	ctx := context.Background()
	topic := mustTopic(t, s, "History")
	first := mustQuestion(t, s, topic.ID, 200)
	mustQuestion(t, s, topic.ID, 400)

	require.NoError(t, s.DeleteQuestion(ctx, first.ID))
	assert.True(t, errors.Is(s.DeleteQuestion(ctx, first.ID), domain.ErrQuestionNotFound))

	require.NoError(t, s.ClearQuestions(ctx))
	require.NoError(t, s.ClearQuestions(ctx))
	all, err := s.ListQuestions(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	next := mustQuestion(t, s, topic.ID, 600)
	assert.Greater(t, next.ID, first.ID, "question ids must not be reused")
}

func testTeamScoreRoundTrip(t *testing.T, s app.Store) {
	ctx := context.Background()
	alpha, err := s.CreateTeam(ctx, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, 0, alpha.Score)

	updated, err := s.UpdateTeamScore(ctx, alpha.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.Score)

	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	matches := 0
	for _, team := range teams {
		if team.Name == "Alpha" {
			matches++
			assert.Equal(t, 50, team.Score)
		}
	}
	assert.Equal(t, 1, matches)

	negative, err := s.UpdateTeamScore(ctx, alpha.ID, -400)
	require.NoError(t, err)
	assert.Equal(t, -400, negative.Score)

	_, err = s.CreateTeam(ctx, "  ")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func testScoresBeyondInt32(t *testing.T, s app.Store) {
	ctx := context.Background()
	team, err := s.CreateTeam(ctx, "Alpha")
	require.NoError(t, err)

	for _, score := range []int{1 << 40, -(1 << 40)} {
		updated, err := s.UpdateTeamScore(ctx, team.ID, score)
		require.NoError(t, err)
		assert.Equal(t, score, updated.Score)

		got, err := s.GetTeam(ctx, team.ID)
		require.NoError(t, err)
		assert.Equal(t, score, got.Score)
	}
}

func testUpdateUnknownTeam(t *testing.T, s app.Store) {
	ctx := context.Background()
	_, err := s.UpdateTeamScore(ctx, 4242, 10)
	assert.True(t, errors.Is(err, domain.ErrTeamNotFound), "got %v", err)

	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func testDeleteTeam(t *testing.T, s app.Store) {
	ctx := context.Background()
	team, err := s.CreateTeam(ctx, "Reds")
	require.NoError(t, err)
	require.NoError(t, s.DeleteTeam(ctx, team.ID))
	assert.True(t, errors.Is(s.DeleteTeam(ctx, team.ID), domain.ErrTeamNotFound))
	_, err = s.GetTeam(ctx, team.ID)
	assert.True(t, errors.Is(err, domain.ErrTeamNotFound))
}

func testResetGame(t *testing.T, s app.Store) {
	ctx := context.Background()
	topic := mustTopic(t, s, "History")
	q1 := mustQuestion(t, s, topic.ID, 200)
	mustQuestion(t, s, topic.ID, 400)
	require.NoError(t, s.MarkQuestionUsed(ctx, q1.ID))
	team, err := s.CreateTeam(ctx, "Reds")
	require.NoError(t, err)
	_, err = s.UpdateTeamScore(ctx, team.ID, 600)
	require.NoError(t, err)

	require.NoError(t, s.ResetGame(ctx))
	once := snapshot(t, s)
	require.NoError(t, s.ResetGame(ctx))
	twice := snapshot(t, s)
	assert.Equal(t, once, twice)

	for _, q := range twice.questions {
		assert.False(t, q.Used)
	}
	for _, team := range twice.teams {
		assert.Zero(t, team.Score)
	}
	assert.Len(t, twice.topics, 1)
}

func testAtomicallyCommits(t *testing.T, s app.Store) {
	ctx := context.Background()
	topic := mustTopic(t, s, "History")
	q := mustQuestion(t, s, topic.ID, 200)
	team, err := s.CreateTeam(ctx, "Reds")
	require.NoError(t, err)

	err = s.Atomically(ctx, func(tx app.Store) error {
		if _, err := tx.UpdateTeamScore(ctx, team.ID, 200); err != nil {
			return err
		}
		return tx.MarkQuestionUsed(ctx, q.ID)
	})
	require.NoError(t, err)

	gotTeam, err := s.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, gotTeam.Score)
	gotQ, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, gotQ.Used)
}

func testAtomicallyRollsBack(t *testing.T, s app.Store) {
	ctx := context.Background()
	team, err := s.CreateTeam(ctx, "Reds")
	require.NoError(t, err)

	err = s.Atomically(ctx, func(tx app.Store) error {
		if _, err := tx.UpdateTeamScore(ctx, team.ID, 200); err != nil {
			return err
		}
		return tx.MarkQuestionUsed(ctx, 9999)
	})
	assert.True(t, errors.Is(err, domain.ErrQuestionNotFound), "got %v", err)

	got, err := s.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Score, "score update must be rolled back")
}

type state struct {
	topics    []domain.Topic
	questions []domain.Question
	teams     []domain.Team
}

func snapshot(t *testing.T, s app.Store) state {
	t.Helper()
	ctx := context.Background()
	topics, err := s.ListTopics(ctx)
	require.NoError(t, err)
	questions, err := s.ListQuestions(ctx, nil)
	require.NoError(t, err)
	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	return state{topics: topics, questions: questions, teams: teams}
}

func mustTopic(t *testing.T, s app.Store, name string) domain.Topic {
	t.Helper()
	topic, err := s.CreateTopic(context.Background(), name, "❓")
	require.NoError(t, err)
	return topic
}

func mustQuestion(t *testing.T, s app.Store, topicID int64, points int) domain.Question {
	t.Helper()
	q, err := s.CreateQuestion(context.Background(), domain.NewQuestion{
		TopicID:  topicID,
		Points:   points,
		Question: "What?",
		Answer:   "That.",
	})
	require.NoError(t, err)
	return q
}
