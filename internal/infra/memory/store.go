package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. Ids come from
// per-entity counters that are never rewound.
type Store struct {
	mu    sync.Mutex
	state state
}

type state struct {
	topics    map[int64]domain.Topic
	questions map[int64]domain.Question
	teams     map[int64]domain.Team

	nextTopicID    int64
	nextQuestionID int64
	nextTeamID     int64
}

func NewStore() *Store {
	return &Store{state: state{
		topics:    make(map[int64]domain.Topic),
		questions: make(map[int64]domain.Question),
		teams:     make(map[int64]domain.Team),
	}}
}

func (s *Store) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listTopics(), nil
}

func (s *Store) GetTopic(ctx context.Context, id int64) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getTopic(id)
}

func (s *Store) CreateTopic(ctx context.Context, name, icon string) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createTopic(name, icon)
}

func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.deleteTopic(id)
}

func (s *Store) ListQuestions(ctx context.Context, topicID *int64) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listQuestions(topicID), nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getQuestion(id)
}

func (s *Store) CreateQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createQuestion(in)
}

func (s *Store) MarkQuestionUsed(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.markQuestionUsed(id)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.deleteQuestion(id)
}

func (s *Store) ClearQuestions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.questions = make(map[int64]domain.Question)
	return nil
}

func (s *Store) ListTeams(ctx context.Context) ([]domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listTeams(), nil
}

func (s *Store) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getTeam(id)
}

func (s *Store) CreateTeam(ctx context.Context, name string) (domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createTeam(name)
}

func (s *Store) UpdateTeamScore(ctx context.Context, id int64, score int) (domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.updateTeamScore(id, score)
}

func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.deleteTeam(id)
}

func (s *Store) ResetGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.reset()
	return nil
}

// Atomically holds the store lock for the whole of fn and restores the
// previous state if fn fails.
func (s *Store) Atomically(ctx context.Context, fn func(tx app.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&txStore{st: &s.state}); err != nil {
		// counters stay where fn left them so rolled back ids are not handed out again
		snapshot.nextTopicID = s.state.nextTopicID
		snapshot.nextQuestionID = s.state.nextQuestionID
		snapshot.nextTeamID = s.state.nextTeamID
		s.state = snapshot
		return err
	}
	return nil
}

// txStore operates on state the caller already holds the lock for.
type txStore struct {
	st *state
}

func (t *txStore) ListTopics(context.Context) ([]domain.Topic, error) { return t.st.listTopics(), nil }
func (t *txStore) GetTopic(_ context.Context, id int64) (domain.Topic, error) {
	return t.st.getTopic(id)
}
func (t *txStore) CreateTopic(_ context.Context, name, icon string) (domain.Topic, error) {
	return t.st.createTopic(name, icon)
}
func (t *txStore) DeleteTopic(_ context.Context, id int64) error { return t.st.deleteTopic(id) }
func (t *txStore) ListQuestions(_ context.Context, topicID *int64) ([]domain.Question, error) {
	return t.st.listQuestions(topicID), nil
}
func (t *txStore) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	return t.st.getQuestion(id)
}
func (t *txStore) CreateQuestion(_ context.Context, in domain.NewQuestion) (domain.Question, error) {
	return t.st.createQuestion(in)
}
func (t *txStore) MarkQuestionUsed(_ context.Context, id int64) error {
	return t.st.markQuestionUsed(id)
}
func (t *txStore) DeleteQuestion(_ context.Context, id int64) error { return t.st.deleteQuestion(id) }
func (t *txStore) ClearQuestions(context.Context) error {
	t.st.questions = make(map[int64]domain.Question)
	return nil
}
func (t *txStore) ListTeams(context.Context) ([]domain.Team, error) { return t.st.listTeams(), nil }
func (t *txStore) GetTeam(_ context.Context, id int64) (domain.Team, error) {
	return t.st.getTeam(id)
}
func (t *txStore) CreateTeam(_ context.Context, name string) (domain.Team, error) {
	return t.st.createTeam(name)
}
func (t *txStore) UpdateTeamScore(_ context.Context, id int64, score int) (domain.Team, error) {
	return t.st.updateTeamScore(id, score)
}
func (t *txStore) DeleteTeam(_ context.Context, id int64) error { return t.st.deleteTeam(id) }
func (t *txStore) ResetGame(context.Context) error {
	t.st.reset()
	return nil
}

// Atomically on an open transaction just runs fn in it.
func (t *txStore) Atomically(_ context.Context, fn func(tx app.Store) error) error {
	return fn(t)
}

func (st *state) listTopics() []domain.Topic {
	out := make([]domain.Topic, 0, len(st.topics))
	for _, t := range st.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) getTopic(id int64) (domain.Topic, error) {
	t, ok := st.topics[id]
	if !ok {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	return t, nil
}

func (st *state) createTopic(name, icon string) (domain.Topic, error) {
	if err := domain.ValidateTopic(name, icon); err != nil {
		return domain.Topic{}, err
	}
	st.nextTopicID++
	t := domain.Topic{ID: st.nextTopicID, Name: name, Icon: icon}
	st.topics[t.ID] = t
	return t, nil
}

func (st *state) deleteTopic(id int64) error {
	if _, ok := st.topics[id]; !ok {
		return domain.ErrTopicNotFound
	}
	delete(st.topics, id)
	for qid, q := range st.questions {
		if q.TopicID == id {
			delete(st.questions, qid)
		}
	}
	return nil
}

func (st *state) listQuestions(topicID *int64) []domain.Question {
	out := make([]domain.Question, 0)
	for _, q := range st.questions {
		if topicID != nil && q.TopicID != *topicID {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) getQuestion(id int64) (domain.Question, error) {
	q, ok := st.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (st *state) createQuestion(in domain.NewQuestion) (domain.Question, error) {
	if err := domain.ValidateQuestion(in); err != nil {
		return domain.Question{}, err
	}
	if _, ok := st.topics[in.TopicID]; !ok {
		return domain.Question{}, domain.ErrTopicNotFound
	}
	st.nextQuestionID++
	q := domain.Question{
		ID:       st.nextQuestionID,
		TopicID:  in.TopicID,
		Points:   in.Points,
		Question: in.Question,
		Answer:   in.Answer,
	}
	st.questions[q.ID] = q
	return q, nil
}

func (st *state) markQuestionUsed(id int64) error {
	q, ok := st.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.Used = true
	st.questions[id] = q
	return nil
}

func (st *state) deleteQuestion(id int64) error {
	if _, ok := st.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(st.questions, id)
	return nil
}

func (st *state) listTeams() []domain.Team {
	out := make([]domain.Team, 0, len(st.teams))
	for _, t := range st.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) getTeam(id int64) (domain.Team, error) {
	t, ok := st.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return t, nil
}

func (st *state) createTeam(name string) (domain.Team, error) {
	if err := domain.ValidateTeam(name); err != nil {
		return domain.Team{}, err
	}
	st.nextTeamID++
	t := domain.Team{ID: st.nextTeamID, Name: name}
	st.teams[t.ID] = t
	return t, nil
}

func (st *state) updateTeamScore(id int64, score int) (domain.Team, error) {
	t, ok := st.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	t.Score = score
	st.teams[id] = t
	return t, nil
}

func (st *state) deleteTeam(id int64) error {
	if _, ok := st.teams[id]; !ok {
		return domain.ErrTeamNotFound
	}
	delete(st.teams, id)
	return nil
}

func (st *state) reset() {
	for id, q := range st.questions {
		q.Used = false
		st.questions[id] = q
	}
	for id, t := range st.teams {
		t.Score = 0
		st.teams[id] = t
	}
}

func (st *state) clone() state {
	c := state{
		topics:         make(map[int64]domain.Topic, len(st.topics)),
		questions:      make(map[int64]domain.Question, len(st.questions)),
		teams:          make(map[int64]domain.Team, len(st.teams)),
		nextTopicID:    st.nextTopicID,
		nextQuestionID: st.nextQuestionID,
		nextTeamID:     st.nextTeamID,
	}
	for k, v := range st.topics {
		c.topics[k] = v
	}
	for k, v := range st.questions {
		c.questions[k] = v
	}
	for k, v := range st.teams {
		c.teams[k] = v
	}
	return c
}
