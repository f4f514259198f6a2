package http

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"codegaming-service/internal/app"
	"codegaming-service/internal/auth"
	"codegaming-service/internal/domain"
	"codegaming-service/internal/game"
	"github.com/gorilla/mux"
)

// Handler exposes the play-session use cases over REST.
type Handler struct {
	service  *app.SessionService
	auth     *auth.Service
	pageSize int
}

func NewHandler(service *app.SessionService, authService *auth.Service, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Handler{service: service, auth: authService, pageSize: pageSize}
}

// Routes registers every endpoint on the router. Auth token parsing is
// optional on all routes so guests share the same surface.
func (h *Handler) Routes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.auth.OptionalIdentity)

	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost, http.MethodOptions)

	api.HandleFunc("/guest-session", h.registerGuest).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/guest-session/check", h.checkNickname).Methods(http.MethodGet)

	api.HandleFunc("/sessions", h.startSession).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sessions/{id}", h.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.endSession).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/answer", h.submitAnswer).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/skip", h.skip).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/restart", h.restart).Methods(http.MethodPost, http.MethodOptions)

	api.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", h.submitScore).Methods(http.MethodPost, http.MethodOptions)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if errors.Is(err, domain.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": user})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

type guestSessionRequest struct {
	Nickname    string `json:"nickname"`
	ClientToken string `json:"client_token"`
	UserAgent   string `json:"user_agent"`
}

func (h *Handler) registerGuest(w http.ResponseWriter, r *http.Request) {
	var req guestSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}
	guest, err := h.service.RegisterGuest(r.Context(), req.Nickname, req.ClientToken, userAgent, clientIP(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":          true,
		"guest_session_id": guest.ID,
		"nickname":         guest.Nickname,
	})
}

func (h *Handler) checkNickname(w http.ResponseWriter, r *http.Request) {
	available, err := h.service.CheckNickname(r.Context(), r.URL.Query().Get("nickname"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": available})
}

type startSessionRequest struct {
	GameType   string `json:"game_type"`
	Difficulty string `json:"difficulty"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	identity, ok := h.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "login or register a guest session first")
		return
	}
	snap, err := h.service.StartSession(r.Context(), game.GameType(req.GameType), req.Difficulty, identity)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "session": snap})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": snap})
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	h.service.EndSession(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	ChoiceID   string `json:"choice_id"`
	Answer     string `json:"answer"`
	TimeTaken  int    `json:"time_taken"`
	Timeout    bool   `json:"timeout"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	feedback, snap, err := h.service.SubmitAnswer(r.Context(), mux.Vars(r)["id"], domain.Answer{
		QuestionID: req.QuestionID,
		ChoiceID:   req.ChoiceID,
		Text:       req.Answer,
		TimeTaken:  req.TimeTaken,
		Timeout:    req.Timeout,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "feedback": feedback, "session": snap})
}

func (h *Handler) skip(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Skip(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": snap})
}

func (h *Handler) restart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Restart(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": snap})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	scope, ok := domain.ParseScope(query.Get("scope"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown scope")
		return
	}
	gameType := query.Get("game_type")
	if gameType == "" {
		gameType = string(game.TypeQuiz)
	}
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 {
		pageSize = h.pageSize
	}

	viewer := ""
	if identity, ok := h.identity(r); ok {
		viewer = identity.DisplayName
	}

	lb, err := h.service.Leaderboard(r.Context(), scope, gameType, page, pageSize, viewer)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "leaderboard": lb.Entries, "pagination": lb.Pagination, "scope": lb.Scope, "game_type": lb.GameType})
}

type submitScoreRequest struct {
	GameType       string `json:"game_type"`
	Score          int    `json:"score"`
	MaxScore       int    `json:"max_score"`
	TotalQuestions int    `json:"total_questions"`
	CorrectCount   int    `json:"correct_count"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

// submitScore accepts an explicit leaderboard submission. The response is an
// acknowledgement only; callers ignore the body.
func (h *Handler) submitScore(w http.ResponseWriter, r *http.Request) {
	var req submitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	identity, ok := h.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "login or register a guest session first")
		return
	}
	percentage := 0
	if req.MaxScore > 0 {
		percentage = (req.Score*100 + req.MaxScore/2) / req.MaxScore
	}
	err := h.service.SubmitScore(r.Context(), domain.SessionResult{
		Identity:       identity,
		GameType:       req.GameType,
		Score:          req.Score,
		MaxScore:       req.MaxScore,
		Percentage:     percentage,
		Tier:           domain.TierFor(percentage),
		TotalQuestions: req.TotalQuestions,
		CorrectCount:   req.CorrectCount,
		ElapsedSeconds: req.ElapsedSeconds,
		PlayedAt:       time.Now(),
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// identity resolves the caller: JWT user first, then a registered guest via
// the X-Guest-Session header.
func (h *Handler) identity(r *http.Request) (domain.Identity, bool) {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		return identity, true
	}
	guestID := r.Header.Get("X-Guest-Session")
	if guestID == "" {
		return domain.Identity{}, false
	}
	guest, err := h.service.Guest(r.Context(), guestID)
	if err != nil {
		return domain.Identity{}, false
	}
	return domain.NewGuestIdentity(guest.ID, guest.Nickname), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrGuestNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNicknameTaken),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrSessionEnded),
		errors.Is(err, domain.ErrNotPresenting):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNicknameTooShort),
		errors.Is(err, domain.ErrEmptyAnswer),
		errors.Is(err, domain.ErrQuestionMismatch),
		errors.Is(err, domain.ErrUnknownGameType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoQuestions):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
