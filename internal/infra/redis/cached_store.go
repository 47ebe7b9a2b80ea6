package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/domain"
)

const (
	topicsKey    = "board:topics"
	questionsKey = "board:questions"
	allQuestions = "all"
)

// CachedStore caches board reads (topics and question lists) in Redis and
// falls back to the wrapped store on a miss. Team reads are never cached.
// Layout:
//
//	SET  board:topics    <json []Topic>
//	HSET board:questions <topicID|all> <json []Question>
//
// Every board mutation drops both keys. Redis failures degrade to the
// wrapped store.
//
// A miss only writes its snapshot back if no mutation committed while it
// was loading. gen counts invalidations; fillMu orders a fill's generation
// check and write against an invalidation's bump and delete.
type CachedStore struct {
	app.Store

	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	log    logrus.FieldLogger

	gen    atomic.Uint64
	fillMu sync.Mutex
}

// NewCachedStore wraps inner. A nil logger discards cache warnings.
func NewCachedStore(inner app.Store, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedStore {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	return &CachedStore{Store: inner, client: client, ttl: ttl, log: log}
}

func (c *CachedStore) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	var cached []domain.Topic
	if c.readJSON(c.client.Get(ctx, topicsKey).Bytes, &cached) {
		return cached, nil
	}

	gen := c.gen.Load()
	result, err, _ := c.sf.Do(flightKey(topicsKey, gen), func() (interface{}, error) {
		topics, err := c.Store.ListTopics(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(topics)
		if err != nil {
			return topics, nil
		}
		c.fill(gen, func() error {
			return c.client.Set(ctx, topicsKey, data, c.ttlWithJitter()).Err()
		}, "cache topics")
		return topics, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Topic), nil
}

func (c *CachedStore) ListQuestions(ctx context.Context, topicID *int64) ([]domain.Question, error) {
	field := allQuestions
	if topicID != nil {
		field = strconv.FormatInt(*topicID, 10)
	}

	var cached []domain.Question
	if c.readJSON(c.client.HGet(ctx, questionsKey, field).Bytes, &cached) {
		return cached, nil
	}

	gen := c.gen.Load()
	result, err, _ := c.sf.Do(flightKey(questionsKey+":"+field, gen), func() (interface{}, error) {
		questions, err := c.Store.ListQuestions(ctx, topicID)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(questions)
		if err != nil {
			return questions, nil
		}
		c.fill(gen, func() error {
			pipe := c.client.Pipeline()
			pipe.HSet(ctx, questionsKey, field, data)
			if ttl := c.ttlWithJitter(); ttl > 0 {
				pipe.Expire(ctx, questionsKey, ttl)
			}
			_, err := pipe.Exec(ctx)
			return err
		}, "cache questions")
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CachedStore) CreateTopic(ctx context.Context, name, icon string) (domain.Topic, error) {
	topic, err := c.Store.CreateTopic(ctx, name, icon)
	if err == nil {
		c.invalidate(ctx)
	}
	return topic, err
}

func (c *CachedStore) DeleteTopic(ctx context.Context, id int64) error {
	return c.afterWrite(ctx, c.Store.DeleteTopic(ctx, id))
}

func (c *CachedStore) CreateQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	q, err := c.Store.CreateQuestion(ctx, in)
	if err == nil {
		c.invalidate(ctx)
	}
	return q, err
}

func (c *CachedStore) MarkQuestionUsed(ctx context.Context, id int64) error {
	return c.afterWrite(ctx, c.Store.MarkQuestionUsed(ctx, id))
}

func (c *CachedStore) DeleteQuestion(ctx context.Context, id int64) error {
	return c.afterWrite(ctx, c.Store.DeleteQuestion(ctx, id))
}

func (c *CachedStore) ClearQuestions(ctx context.Context) error {
	return c.afterWrite(ctx, c.Store.ClearQuestions(ctx))
}

func (c *CachedStore) ResetGame(ctx context.Context) error {
	return c.afterWrite(ctx, c.Store.ResetGame(ctx))
}

// Atomically runs fn on the wrapped store's transaction and drops the cache
// once it commits.
func (c *CachedStore) Atomically(ctx context.Context, fn func(tx app.Store) error) error {
	return c.afterWrite(ctx, c.Store.Atomically(ctx, fn))
}

func (c *CachedStore) afterWrite(ctx context.Context, err error) error {
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedStore) invalidate(ctx context.Context) {
	c.fillMu.Lock()
	defer c.fillMu.Unlock()
	c.gen.Add(1)
	if err := c.client.Del(ctx, topicsKey, questionsKey).Err(); err != nil {
		c.log.WithError(err).Error("board cache invalidation failed; reads may be stale until ttl")
	}
}

// fill writes a loaded snapshot unless an invalidation happened after gen
// was read. A snapshot loaded before a commit is dropped rather than cached.
func (c *CachedStore) fill(gen uint64, write func() error, what string) {
	c.fillMu.Lock()
	defer c.fillMu.Unlock()
	if c.gen.Load() != gen {
		return
	}
	if err := write(); err != nil {
		c.log.WithError(err).Warn(what)
	}
}

// flightKey scopes singleflight calls to one generation so a read that
// starts after a mutation never joins a load that began before it.
func flightKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

// readJSON decodes a cache hit into dst. Misses and Redis errors return false.
func (c *CachedStore) readJSON(get func() ([]byte, error), dst interface{}) bool {
	data, err := get()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).Warn("board cache read failed")
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *CachedStore) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
