package domain

import "time"

// Topic groups questions on the board under a display icon.
type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Question is a point-valued clue that belongs to one topic.
type Question struct {
	ID       int64  `json:"id"`
	TopicID  int64  `json:"topicId"`
	Points   int    `json:"points"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Used     bool   `json:"used"`
}

// Prompt returns the question without its answer, as shown before a reveal.
func (q Question) Prompt() QuestionPrompt {
	return QuestionPrompt{
		ID:       q.ID,
		TopicID:  q.TopicID,
		Points:   q.Points,
		Question: q.Question,
	}
}

// QuestionPrompt is the displayed form of a question.
type QuestionPrompt struct {
	ID       int64  `json:"id"`
	TopicID  int64  `json:"topicId"`
	Points   int    `json:"points"`
	Question string `json:"question"`
}

// NewQuestion carries the fields an admin supplies when creating a question.
type NewQuestion struct {
	TopicID  int64  `json:"topicId" yaml:"topic_id"`
	Points   int    `json:"points" yaml:"points"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Team is a group of players sharing a score. Scores may go negative.
type Team struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Outcome is how a displayed question was settled.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeSkip      Outcome = "skip"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCorrect, OutcomeIncorrect, OutcomeSkip:
		return true
	}
	return false
}

// Resolution summarizes a settled question.
type Resolution struct {
	Outcome  Outcome  `json:"outcome"`
	Question Question `json:"question"`
	Team     *Team    `json:"team,omitempty"`
	Awarded  int      `json:"awarded"`
}

// BoardSlot is one question cell on the board.
type BoardSlot struct {
	QuestionID int64 `json:"questionId"`
	Used       bool  `json:"used"`
}

// BoardTier groups a topic's questions of the same point value.
type BoardTier struct {
	Points    int         `json:"points"`
	Remaining int         `json:"remaining"`
	Slots     []BoardSlot `json:"slots"`
}

// BoardTopic is a topic column with its tiers in ascending point order.
type BoardTopic struct {
	Topic Topic       `json:"topic"`
	Tiers []BoardTier `json:"tiers"`
}

// Standing is a team's position on the scoreboard.
type Standing struct {
	TeamID int64  `json:"teamId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
}

// Scoreboard captures the ordered team standings.
type Scoreboard struct {
	Standings []Standing `json:"standings"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
