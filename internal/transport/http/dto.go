package http

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"trivia-board-service/internal/domain"
)

type createTopicRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
	Icon string `json:"icon" validate:"notblank,max=32"`
}

type createQuestionRequest struct {
	TopicID  *int64 `json:"topicId" validate:"required,gt=0"`
	Points   *int   `json:"points" validate:"required,gt=0"`
	Question string `json:"question" validate:"notblank"`
	Answer   string `json:"answer" validate:"notblank"`
}

type createTeamRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

type updateScoreRequest struct {
	Score *int `json:"score" validate:"required"`
}

type selectRequest struct {
	TeamID     *int64 `json:"teamId" validate:"required,gt=0"`
	TopicID    *int64 `json:"topicId" validate:"omitempty,gt=0"`
	Points     *int   `json:"points" validate:"omitempty,gt=0"`
	QuestionID *int64 `json:"questionId" validate:"omitempty,gt=0"`
}

type resolveRequest struct {
	TeamID  *int64         `json:"teamId" validate:"omitempty,gt=0"`
	Outcome domain.Outcome `json:"outcome" validate:"outcome"`
}

type answerResponse struct {
	ID     int64  `json:"id"`
	Answer string `json:"answer"`
}

// newValidator registers the request rules and reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("outcome", func(fl validator.FieldLevel) bool {
		return domain.Outcome(fl.Field().String()).Valid()
	})
	return v
}

// validationError flattens validator output into a single ValidationError.
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.Validation("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return domain.Validation("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "notblank":
		return fe.Field() + " must not be blank"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "outcome":
		return "outcome must be one of correct, incorrect, skip"
	}
	return fe.Field() + " is invalid"
}
