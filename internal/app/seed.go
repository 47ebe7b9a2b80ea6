package app

import (
	"context"
	"fmt"

	"trivia-board-service/internal/domain"
)

// SeedData describes a board to load in bulk, typically from a YAML file.
type SeedData struct {
	Topics []SeedTopic `yaml:"topics"`
	Teams  []string    `yaml:"teams"`
}

// SeedTopic is a topic with the questions to create under it.
type SeedTopic struct {
	Name      string         `yaml:"name"`
	Icon      string         `yaml:"icon"`
	Questions []SeedQuestion `yaml:"questions"`
}

// SeedQuestion is a question without its topic reference.
type SeedQuestion struct {
	Points   int    `yaml:"points"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Topics    int
	Questions int
	Teams     int
}

// Seed creates the topics, questions and teams in data through the regular
// validation path. It stops at the first failure; entities created before it
// are kept.
func (s *GameService) Seed(ctx context.Context, data SeedData) (SeedResult, error) {
	var res SeedResult
	for _, st := range data.Topics {
		topic, err := s.CreateTopic(ctx, st.Name, st.Icon)
		if err != nil {
			return res, fmt.Errorf("seed topic %q: %w", st.Name, err)
		}
		res.Topics++
		for _, sq := range st.Questions {
			if _, err := s.CreateQuestion(ctx, domain.NewQuestion{
				TopicID:  topic.ID,
				Points:   sq.Points,
				Question: sq.Question,
				Answer:   sq.Answer,
			}); err != nil {
				return res, fmt.Errorf("seed question %q: %w", sq.Question, err)
			}
			res.Questions++
		}
	}
	for _, name := range data.Teams {
		if _, err := s.CreateTeam(ctx, name); err != nil {
			return res, fmt.Errorf("seed team %q: %w", name, err)
		}
		res.Teams++
	}
	s.log.WithField("topics", res.Topics).WithField("questions", res.Questions).WithField("teams", res.Teams).Info("board seeded")
	return res, nil
}
