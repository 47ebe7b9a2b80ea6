package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"trivia-board-service/internal/domain"
)

// Rules are the per-deployment game settings.
type Rules struct {
	// PointTiers lists the accepted question values. Empty accepts any positive value.
	PointTiers []int
	// MaxQuestionsPerTier caps questions per topic and tier. Zero means unlimited.
	MaxQuestionsPerTier int
	// IncorrectPenalty deducts a question's points from a team that answers wrong.
	IncorrectPenalty bool
}

// DefaultRules returns the classic five-tier board without penalties.
func DefaultRules() Rules {
	return Rules{PointTiers: []int{200, 400, 600, 800, 1000}}
}

func (r Rules) allowsPoints(points int) bool {
	if len(r.PointTiers) == 0 {
		return true
	}
	for _, p := range r.PointTiers {
		if p == points {
			return true
		}
	}
	return false
}

// scoreDelta is the change applied to the answering team for an outcome.
func (r Rules) scoreDelta(outcome domain.Outcome, points int) int {
	switch outcome {
	case domain.OutcomeCorrect:
		return points
	case domain.OutcomeIncorrect:
		if r.IncorrectPenalty {
			return -points
		}
	}
	return 0
}

// Option configures a GameService.
type Option func(*GameService)

// WithRules overrides DefaultRules.
func WithRules(rules Rules) Option {
	return func(s *GameService) { s.rules = rules }
}

// WithLogger sets the logger used for gameplay events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *GameService) { s.log = log }
}

// WithScoreboard shares a scoreboard with other components.
func WithScoreboard(board *Scoreboard) Option {
	return func(s *GameService) { s.scoreboard = board }
}

// WithResolutionObserver registers a callback invoked after each successful resolution.
func WithResolutionObserver(fn func(domain.Outcome)) Option {
	return func(s *GameService) { s.observe = fn }
}

// GameService contains the admin and gameplay use cases.
type GameService struct {
	store      Store
	rules      Rules
	log        logrus.FieldLogger
	scoreboard *Scoreboard
	observe    func(domain.Outcome)
}

func NewGameService(store Store, opts ...Option) *GameService {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	s := &GameService{
		store: store,
		rules: DefaultRules(),
		log:   quiet,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scoreboard == nil {
		s.scoreboard = NewScoreboard()
	}
	return s
}

// Rules returns the active game rules.
func (s *GameService) Rules() Rules { return s.rules }

// Scoreboard exposes the live standings feed.
func (s *GameService) Scoreboard() *Scoreboard { return s.scoreboard }

// Topics

func (s *GameService) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	return s.store.ListTopics(ctx)
}

func (s *GameService) GetTopic(ctx context.Context, id int64) (domain.Topic, error) {
	return s.store.GetTopic(ctx, id)
}

func (s *GameService) CreateTopic(ctx context.Context, name, icon string) (domain.Topic, error) {
	name, icon = strings.TrimSpace(name), strings.TrimSpace(icon)
	if err := domain.ValidateTopic(name, icon); err != nil {
		return domain.Topic{}, err
	}
	return s.store.CreateTopic(ctx, name, icon)
}

// DeleteTopic removes a topic together with its questions.
func (s *GameService) DeleteTopic(ctx context.Context, id int64) error {
	if err := s.store.DeleteTopic(ctx, id); err != nil {
		return err
	}
	s.log.WithField("topic_id", id).Info("topic deleted")
	return nil
}

// Questions

func (s *GameService) ListQuestions(ctx context.Context, topicID *int64) ([]domain.Question, error) {
	return s.store.ListQuestions(ctx, topicID)
}

func (s *GameService) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	return s.store.GetQuestion(ctx, id)
}

// CreateQuestion validates the tier rules before storing the question.
func (s *GameService) CreateQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	in.Question, in.Answer = strings.TrimSpace(in.Question), strings.TrimSpace(in.Answer)
	if err := domain.ValidateQuestion(in); err != nil {
		return domain.Question{}, err
	}
	if !s.rules.allowsPoints(in.Points) {
		return domain.Question{}, domain.Validation("points must be one of %v", s.rules.PointTiers)
	}
	if s.rules.MaxQuestionsPerTier > 0 {
		existing, err := s.store.ListQuestions(ctx, &in.TopicID)
		if err != nil {
			return domain.Question{}, err
		}
		inTier := 0
		for _, q := range existing {
			if q.Points == in.Points {
				inTier++
			}
		}
		if inTier >= s.rules.MaxQuestionsPerTier {
			return domain.Question{}, domain.ErrTierFull
		}
	}
	return s.store.CreateQuestion(ctx, in)
}

func (s *GameService) MarkQuestionUsed(ctx context.Context, id int64) error {
	return s.store.MarkQuestionUsed(ctx, id)
}

func (s *GameService) DeleteQuestion(ctx context.Context, id int64) error {
	return s.store.DeleteQuestion(ctx, id)
}

func (s *GameService) ClearQuestions(ctx context.Context) error {
	if err := s.store.ClearQuestions(ctx); err != nil {
		return err
	}
	s.log.Info("all questions cleared")
	return nil
}

// Teams

func (s *GameService) ListTeams(ctx context.Context) ([]domain.Team, error) {
	return s.store.ListTeams(ctx)
}

func (s *GameService) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	return s.store.GetTeam(ctx, id)
}

func (s *GameService) CreateTeam(ctx context.Context, name string) (domain.Team, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateTeam(name); err != nil {
		return domain.Team{}, err
	}
	team, err := s.store.CreateTeam(ctx, name)
	if err != nil {
		return domain.Team{}, err
	}
	s.publishScores(ctx)
	return team, nil
}

// UpdateTeamScore sets a team's score to an absolute value.
func (s *GameService) UpdateTeamScore(ctx context.Context, id int64, score int) (domain.Team, error) {
	team, err := s.store.UpdateTeamScore(ctx, id, score)
	if err != nil {
		return domain.Team{}, err
	}
	s.publishScores(ctx)
	return team, nil
}

func (s *GameService) DeleteTeam(ctx context.Context, id int64) error {
	if err := s.store.DeleteTeam(ctx, id); err != nil {
		return err
	}
	s.publishScores(ctx)
	return nil
}

// ResetGame starts a fresh round without deleting entities.
func (s *GameService) ResetGame(ctx context.Context) error {
	if err := s.store.ResetGame(ctx); err != nil {
		return err
	}
	s.log.Info("game reset")
	s.publishScores(ctx)
	return nil
}

// Standings ranks the current teams and refreshes live subscribers.
func (s *GameService) Standings(ctx context.Context) (domain.Scoreboard, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return domain.Scoreboard{}, err
	}
	return s.scoreboard.Publish(teams), nil
}

func (s *GameService) publishScores(ctx context.Context) {
	if _, err := s.Standings(ctx); err != nil {
		s.log.WithError(err).Warn("scoreboard refresh failed")
	}
}

// Gameplay

// AvailableQuestion returns the lowest-id unused question of a topic tier.
func (s *GameService) AvailableQuestion(ctx context.Context, topicID int64, points int) (domain.Question, error) {
	if _, err := s.store.GetTopic(ctx, topicID); err != nil {
		return domain.Question{}, err
	}
	questions, err := s.store.ListQuestions(ctx, &topicID)
	if err != nil {
		return domain.Question{}, err
	}
	var pick *domain.Question
	for i := range questions {
		q := questions[i]
		if q.Used || q.Points != points {
			continue
		}
		if pick == nil || q.ID < pick.ID {
			pick = &q
		}
	}
	if pick == nil {
		return domain.Question{}, domain.ErrNoAvailableQuestion
	}
	return *pick, nil
}

// SelectQuestion displays the next unused question of a topic tier for the
// turn's active team.
func (s *GameService) SelectQuestion(ctx context.Context, turn *Turn, topicID int64, points int) (domain.QuestionPrompt, error) {
	if err := s.checkSelectable(ctx, turn); err != nil {
		return domain.QuestionPrompt{}, err
	}
	q, err := s.AvailableQuestion(ctx, topicID, points)
	if err != nil {
		return domain.QuestionPrompt{}, err
	}
	turn.display(q)
	return q.Prompt(), nil
}

// SelectQuestionByID displays a specific board cell for the turn's active team.
func (s *GameService) SelectQuestionByID(ctx context.Context, turn *Turn, questionID int64) (domain.QuestionPrompt, error) {
	if err := s.checkSelectable(ctx, turn); err != nil {
		return domain.QuestionPrompt{}, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.QuestionPrompt{}, err
	}
	if q.Used {
		return domain.QuestionPrompt{}, domain.ErrQuestionAlreadyUsed
	}
	turn.display(q)
	return q.Prompt(), nil
}

func (s *GameService) checkSelectable(ctx context.Context, turn *Turn) error {
	teamID, ok := turn.ActiveTeam()
	if !ok {
		return domain.ErrNoActiveTeam
	}
	if _, shown := turn.Displayed(); shown {
		return domain.ErrQuestionInProgress
	}
	_, err := s.store.GetTeam(ctx, teamID)
	return err
}

// Reveal returns a question with its answer. It never mutates state.
func (s *GameService) Reveal(ctx context.Context, questionID int64) (domain.Question, error) {
	return s.store.GetQuestion(ctx, questionID)
}

// Resolve settles the turn's displayed question and clears the turn on success.
func (s *GameService) Resolve(ctx context.Context, turn *Turn, outcome domain.Outcome) (domain.Resolution, error) {
	if turn.question == nil {
		return domain.Resolution{}, domain.ErrNoQuestionDisplayed
	}
	res, err := s.ResolveQuestion(ctx, turn.teamID, turn.question.ID, outcome)
	if err != nil {
		return domain.Resolution{}, err
	}
	turn.reset()
	return res, nil
}

// ResolveQuestion applies an outcome to a question: the score change first,
// then the used mark, inside one store transaction. Nothing is written when
// the question or team is missing or the question was already played.
func (s *GameService) ResolveQuestion(ctx context.Context, teamID *int64, questionID int64, outcome domain.Outcome) (domain.Resolution, error) {
	if !outcome.Valid() {
		return domain.Resolution{}, domain.ErrInvalidOutcome
	}
	if outcome == domain.OutcomeCorrect && teamID == nil {
		return domain.Resolution{}, domain.ErrNoActiveTeam
	}

	var res domain.Resolution
	err := s.store.Atomically(ctx, func(tx Store) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if q.Used {
			return domain.ErrQuestionAlreadyUsed
		}

		var team *domain.Team
		if teamID != nil {
			t, err := tx.GetTeam(ctx, *teamID)
			if err != nil {
				return err
			}
			team = &t
		}

		awarded := 0
		if team != nil {
			awarded = s.rules.scoreDelta(outcome, q.Points)
		}
		if awarded != 0 {
			updated, err := tx.UpdateTeamScore(ctx, team.ID, team.Score+awarded)
			if err != nil {
				return fmt.Errorf("update team score: %w", err)
			}
			team = &updated
		}

		if err := tx.MarkQuestionUsed(ctx, q.ID); err != nil {
			return fmt.Errorf("mark question used: %w", err)
		}
		q.Used = true

		res = domain.Resolution{Outcome: outcome, Question: q, Team: team, Awarded: awarded}
		return nil
	})
	if err != nil {
		return domain.Resolution{}, err
	}

	fields := logrus.Fields{
		"question_id": questionID,
		"outcome":     outcome,
		"awarded":     res.Awarded,
	}
	if res.Team != nil {
		fields["team_id"] = res.Team.ID
		fields["score"] = res.Team.Score
	}
	s.log.WithFields(fields).Info("question resolved")

	if s.observe != nil {
		s.observe(outcome)
	}
	if res.Awarded != 0 {
		s.publishScores(ctx)
	}
	return res, nil
}

// Board lays out every topic with its point tiers. Configured tiers are
// always present, even when empty.
func (s *GameService) Board(ctx context.Context) ([]domain.BoardTopic, error) {
	topics, err := s.store.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.ListQuestions(ctx, nil)
	if err != nil {
		return nil, err
	}

	byTopic := make(map[int64][]domain.Question, len(topics))
	for _, q := range questions {
		byTopic[q.TopicID] = append(byTopic[q.TopicID], q)
	}

	board := make([]domain.BoardTopic, 0, len(topics))
	for _, topic := range topics {
		tiers := make(map[int]*domain.BoardTier)
		for _, p := range s.rules.PointTiers {
			tiers[p] = &domain.BoardTier{Points: p, Slots: []domain.BoardSlot{}}
		}
		for _, q := range byTopic[topic.ID] {
			tier, ok := tiers[q.Points]
			if !ok {
				tier = &domain.BoardTier{Points: q.Points, Slots: []domain.BoardSlot{}}
				tiers[q.Points] = tier
			}
			tier.Slots = append(tier.Slots, domain.BoardSlot{QuestionID: q.ID, Used: q.Used})
			if !q.Used {
				tier.Remaining++
			}
		}

		ordered := make([]domain.BoardTier, 0, len(tiers))
		for _, tier := range tiers {
			sort.Slice(tier.Slots, func(i, j int) bool { return tier.Slots[i].QuestionID < tier.Slots[j].QuestionID })
			ordered = append(ordered, *tier)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].Points < ordered[j].Points })
		board = append(board, domain.BoardTopic{Topic: topic, Tiers: ordered})
	}
	return board, nil
}
