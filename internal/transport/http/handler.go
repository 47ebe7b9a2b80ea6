package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/domain"
)

// Handler serves the game boundary API over JSON.
type Handler struct {
	service  *app.GameService
	validate *validator.Validate
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewHandler(service *app.GameService, log logrus.FieldLogger) *Handler {
	return &Handler{
		service:  service,
		validate: newValidator(),
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register mounts every game route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /topics", h.listTopics)
	mux.HandleFunc("POST /topics", h.createTopic)
	mux.HandleFunc("GET /topics/{id}", h.getTopic)
	mux.HandleFunc("DELETE /topics/{id}", h.deleteTopic)
	mux.HandleFunc("GET /topics/{id}/questions", h.listTopicQuestions)

	mux.HandleFunc("GET /questions", h.listQuestions)
	mux.HandleFunc("POST /questions", h.createQuestion)
	mux.HandleFunc("POST /questions/clear", h.clearQuestions)
	mux.HandleFunc("GET /questions/{id}", h.getQuestion)
	mux.HandleFunc("DELETE /questions/{id}", h.deleteQuestion)
	mux.HandleFunc("POST /questions/{id}/used", h.markQuestionUsed)
	mux.HandleFunc("GET /questions/{id}/answer", h.revealAnswer)
	mux.HandleFunc("POST /questions/{id}/resolve", h.resolveQuestion)

	mux.HandleFunc("GET /teams", h.listTeams)
	mux.HandleFunc("POST /teams", h.createTeam)
	mux.HandleFunc("GET /teams/{id}", h.getTeam)
	mux.HandleFunc("DELETE /teams/{id}", h.deleteTeam)
	mux.HandleFunc("PATCH /teams/{id}/score", h.updateTeamScore)
	mux.HandleFunc("PUT /teams/{id}/score", h.updateTeamScore)

	mux.HandleFunc("GET /board", h.board)
	mux.HandleFunc("POST /game/select", h.selectQuestion)
	mux.HandleFunc("POST /game/reset", h.resetGame)
	mux.HandleFunc("GET /scoreboard", h.scoreboard)
	mux.HandleFunc("GET /ws/scoreboard", h.ServeScoreboardWS)
}

// bind decodes the body into dst and runs its validation tags.
func (h *Handler) bind(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// Topics

func (h *Handler) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.service.ListTopics(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (h *Handler) createTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	topic, err := h.service.CreateTopic(r.Context(), req.Name, req.Icon)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (h *Handler) getTopic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	topic, err := h.service.GetTopic(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (h *Handler) deleteTopic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.DeleteTopic(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

// listTopicQuestions accepts "null" as the id to list every question.
func (h *Handler) listTopicQuestions(w http.ResponseWriter, r *http.Request) {
	var topicID *int64
	if r.PathValue("id") != "null" {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		topicID = &id
	}
	h.writeQuestions(w, r, topicID)
}

// Questions

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	h.writeQuestions(w, r, nil)
}

func (h *Handler) writeQuestions(w http.ResponseWriter, r *http.Request, topicID *int64) {
	questions, err := h.service.ListQuestions(r.Context(), topicID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q, err := h.service.CreateQuestion(r.Context(), domain.NewQuestion{
		TopicID:  *req.TopicID,
		Points:   *req.Points,
		Question: req.Question,
		Answer:   req.Answer,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q, err := h.service.GetQuestion(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) markQuestionUsed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.MarkQuestionUsed(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (h *Handler) clearQuestions(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearQuestions(r.Context()); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (h *Handler) revealAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q, err := h.service.Reveal(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{ID: q.ID, Answer: q.Answer})
}

func (h *Handler) resolveQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req resolveRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.service.ResolveQuestion(r.Context(), req.TeamID, id, req.Outcome)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Teams

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.ListTeams(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	team, err := h.service.CreateTeam(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) getTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	team, err := h.service.GetTeam(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) updateTeamScore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req updateScoreRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	team, err := h.service.UpdateTeamScore(r.Context(), id, *req.Score)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) deleteTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.DeleteTeam(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

// Game

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Board(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// selectQuestion displays a question for a team, either the next one of a
// topic tier or a specific board cell. The caller keeps the resulting turn.
func (h *Handler) selectQuestion(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	turn := app.NewTurn()
	turn.ChooseTeam(*req.TeamID)

	var (
		prompt domain.QuestionPrompt
		err    error
	)
	switch {
	case req.QuestionID != nil:
		prompt, err = h.service.SelectQuestionByID(r.Context(), turn, *req.QuestionID)
	case req.TopicID != nil && req.Points != nil:
		prompt, err = h.service.SelectQuestion(r.Context(), turn, *req.TopicID, *req.Points)
	default:
		err = domain.Validation("questionId or topicId with points is required")
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

func (h *Handler) resetGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetGame(r.Context()); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (h *Handler) scoreboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Standings(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
