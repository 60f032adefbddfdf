package localquiz

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abhisek/kbquiz/internal/quiz"
)

// Server serves a Library over the same HTTP API the backend client
// speaks, for demos and local development.
type Server struct {
	lib   *Library
	token string
}

// NewServer returns a server for lib. When token is non-empty every
// request must carry it as a bearer token.
func NewServer(lib *Library, token string) *Server {
	return &Server{lib: lib, token: token}
}

// Handler returns the router with middleware attached.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requireToken)
	s.Routes(r)
	return r
}

// Routes registers the quiz API routes.
func (s *Server) Routes(r chi.Router) {
	r.Get("/api/quizzes", s.handleList)
	r.Get("/api/quizzes/{quizID}", s.handleFetch)
	r.Post("/api/quizzes/{quizID}/submit", s.handleSubmit)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"quizzes": s.lib.IDs()})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	q, err := s.lib.Fetch(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeQuizError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answers := make(map[int]string, len(body.Answers))
	for k, v := range body.Answers {
		n, err := strconv.Atoi(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, "answer keys must be question numbers")
			return
		}
		answers[n] = strings.ToUpper(v)
	}

	res, err := s.lib.Submit(r.Context(), chi.URLParam(r, "quizID"), answers)
	if err != nil {
		writeQuizError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeQuizError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quiz.ErrInvalidAnswers):
		status = http.StatusUnprocessableEntity
	}
	slog.Debug("quiz request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"status", status,
		"error", err,
	)
	var apiErr *quiz.APIError
	msg := err.Error()
	if errors.As(err, &apiErr) && apiErr.Err != nil {
		msg = apiErr.Err.Error()
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
