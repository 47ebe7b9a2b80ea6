package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/app/storetest"
	"trivia-board-service/internal/domain"
	"trivia-board-service/internal/infra/memory"
)

func TestCachedStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) app.Store {
		mr := miniredis.RunT(t)
		return NewCachedStore(memory.NewStore(), newClient(t, mr), time.Minute, nil)
	})
}

func TestListTopicsServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingStore{Store: memory.NewStore()}
	store := NewCachedStore(inner, newClient(t, mr), time.Minute, nil)
	ctx := context.Background()

	_, err := store.CreateTopic(ctx, "History", "🏛️")
	require.NoError(t, err)

	first, err := store.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, inner.topicLists)
	assert.True(t, mr.Exists(topicsKey))

	second, err := store.ListTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.topicLists, "second read should hit the cache")

	ttl := mr.TTL(topicsKey)
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, time.Minute+6*time.Second)
}

func TestListQuestionsCachedPerTopic(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingStore{Store: memory.NewStore()}
	store := NewCachedStore(inner, newClient(t, mr), time.Minute, nil)
	ctx := context.Background()

	topic, err := store.CreateTopic(ctx, "History", "🏛️")
	require.NoError(t, err)
	_, err = store.CreateQuestion(ctx, domain.NewQuestion{TopicID: topic.ID, Points: 200, Question: "Q1", Answer: "A1"})
	require.NoError(t, err)

	_, err = store.ListQuestions(ctx, &topic.ID)
	require.NoError(t, err)
	_, err = store.ListQuestions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.questionLists)

	_, err = store.ListQuestions(ctx, &topic.ID)
	require.NoError(t, err)
	_, err = store.ListQuestions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.questionLists)

	fields, err := mr.HKeys(questionsKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", allQuestions}, fields)
}

func TestMutationsInvalidateBoardCache(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewCachedStore(memory.NewStore(), newClient(t, mr), time.Minute, nil)
	ctx := context.Background()

	topic, err := store.CreateTopic(ctx, "History", "🏛️")
	require.NoError(t, err)
	q, err := store.CreateQuestion(ctx, domain.NewQuestion{TopicID: topic.ID, Points: 200, Question: "Q1", Answer: "A1"})
	require.NoError(t, err)

	questions, err := store.ListQuestions(ctx, nil)
	require.NoError(t, err)
	require.False(t, questions[0].Used)
	require.True(t, mr.Exists(questionsKey))

	require.NoError(t, store.Atomically(ctx, func(tx app.Store) error {
		return tx.MarkQuestionUsed(ctx, q.ID)
	}))
	assert.False(t, mr.Exists(questionsKey))

	questions, err = store.ListQuestions(ctx, nil)
	require.NoError(t, err)
	assert.True(t, questions[0].Used, "cached list must not hide the used flag")

	_, err = store.ListTopics(ctx)
	require.NoError(t, err)
	require.NoError(t, store.DeleteTopic(ctx, topic.ID))
	topics, err := store.ListTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestFailedAtomicKeepsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewCachedStore(memory.NewStore(), newClient(t, mr), time.Minute, nil)
	ctx := context.Background()

	_, err := store.CreateTopic(ctx, "History", "🏛️")
	require.NoError(t, err)
	_, err = store.ListTopics(ctx)
	require.NoError(t, err)

	err = store.Atomically(ctx, func(tx app.Store) error { return domain.ErrTeamNotFound })
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)
	assert.True(t, mr.Exists(topicsKey))
}

func TestRedisOutageFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewCachedStore(memory.NewStore(), newClient(t, mr), time.Minute, nil)
	ctx := context.Background()

	_, err := store.CreateTopic(ctx, "History", "🏛️")
	require.NoError(t, err)
	mr.Close()

	topics, err := store.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "History", topics[0].Name)

	_, err = store.CreateTeam(ctx, "Reds")
	require.NoError(t, err)
}

func TestMutationDuringMissIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &pausingStore{Store: memory.NewStore(), entered: make(chan struct{}), release: make(chan struct{})}
	store := NewCachedStore(inner, newClient(t, mr), time.Minute, nil)
	service := app.NewGameService(store)
	ctx := context.Background()

	topic, err := store.CreateTopic(ctx, "History", "🏛️")
	require.NoError(t, err)
	q, err := store.CreateQuestion(ctx, domain.NewQuestion{TopicID: topic.ID, Points: 200, Question: "Q1", Answer: "A1"})
	require.NoError(t, err)

	inner.armed = true
	slow := make(chan []domain.Question, 1)
	go func() {
		questions, err := store.ListQuestions(ctx, &topic.ID)
		assert.NoError(t, err)
		slow <- questions
	}()

	// the slow read holds a snapshot taken before the question was used
	<-inner.entered
	require.NoError(t, store.MarkQuestionUsed(ctx, q.ID))

	// a read started after the commit must not wait on the older load
	questions, err := store.ListQuestions(ctx, &topic.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.True(t, questions[0].Used)

	close(inner.release)
	stale := <-slow
	require.Len(t, stale, 1)
	assert.False(t, stale[0].Used)

	questions, err = store.ListQuestions(ctx, &topic.ID)
	require.NoError(t, err)
	assert.True(t, questions[0].Used, "stale snapshot was written back to the cache")

	_, err = service.AvailableQuestion(ctx, topic.ID, 200)
	assert.ErrorIs(t, err, domain.ErrNoAvailableQuestion)
}

// pausingStore blocks the first armed ListQuestions after it has loaded its
// result, until release is closed.
type pausingStore struct {
	app.Store
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	armed bool
}

func (s *pausingStore) ListQuestions(ctx context.Context, topicID *int64) ([]domain.Question, error) {
	questions, err := s.Store.ListQuestions(ctx, topicID)
	s.mu.Lock()
	pause := s.armed
	s.armed = false
	s.mu.Unlock()
	if pause {
		close(s.entered)
		<-s.release
	}
	return questions, err
}

type countingStore struct {
	app.Store
	topicLists    int
	questionLists int
}

func (s *countingStore) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	s.topicLists++
	return s.Store.ListTopics(ctx)
}

func (s *countingStore) ListQuestions(ctx context.Context, topicID *int64) ([]domain.Question, error) {
	s.questionLists++
	return s.Store.ListQuestions(ctx, topicID)
}

func newClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}
