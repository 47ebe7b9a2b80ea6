package domain

import "strings"

// ValidateTopic checks the fields required to create a topic.
func ValidateTopic(name, icon string) error {
	if strings.TrimSpace(name) == "" {
		return Validation("topic name is required")
	}
	if strings.TrimSpace(icon) == "" {
		return Validation("topic icon is required")
	}
	return nil
}

// ValidateQuestion checks the fields required to create a question.
// Topic existence is checked by the store.
func ValidateQuestion(in NewQuestion) error {
	if in.Points <= 0 {
		return Validation("points must be positive")
	}
	if strings.TrimSpace(in.Question) == "" {
		return Validation("question text is required")
	}
	if strings.TrimSpace(in.Answer) == "" {
		return Validation("answer is required")
	}
	return nil
}

// ValidateTeam checks the fields required to create a team.
func ValidateTeam(name string) error {
	if strings.TrimSpace(name) == "" {
		return Validation("team name is required")
	}
	return nil
}
