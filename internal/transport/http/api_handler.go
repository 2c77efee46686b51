package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"onepercent-quiz-service/internal/app"
	"onepercent-quiz-service/internal/domain"
)

// maxBodyBytes caps request bodies; typed answers end up in the grading prompt.
const maxBodyBytes = 4 << 10

// APIHandler serves catalog browsing, the read-only episode listing and
// standalone answer checks.
type APIHandler struct {
	service *app.QuizService
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/countries", h.ListCountries)
	mux.HandleFunc("GET /api/countries/{country}/seasons", h.ListSeasons)
	mux.HandleFunc("GET /api/countries/{country}/seasons/{season}/episodes", h.ListEpisodes)
	mux.HandleFunc("GET /api/countries/{country}/seasons/{season}/episodes/{episode}", h.GetEpisode)
	mux.HandleFunc("POST /api/check-answer", h.CheckAnswer)
}

func (h *APIHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.service.Countries(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list countries failed")
		writeError(w, http.StatusInternalServerError, "failed to list countries")
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (h *APIHandler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	country := strings.ToLower(r.PathValue("country"))
	seasons, err := h.service.Seasons(r.Context(), country)
	if errors.Is(err, domain.ErrCountryNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("country", country).Msg("list seasons failed")
		writeError(w, http.StatusInternalServerError, "failed to list seasons")
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

func (h *APIHandler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	season, err := strconv.Atoi(r.PathValue("season"))
	if err != nil || season < 1 {
		writeError(w, http.StatusBadRequest, "invalid season")
		return
	}
	country := strings.ToLower(r.PathValue("country"))

	episodes, err := h.service.Episodes(r.Context(), country, season)
	if errors.Is(err, domain.ErrCountryNotFound) || errors.Is(err, domain.ErrSeasonNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("country", country).Int("season", season).Msg("list episodes failed")
		writeError(w, http.StatusInternalServerError, "failed to list episodes")
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (h *APIHandler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	season, errSeason := strconv.Atoi(r.PathValue("season"))
	episode, errEpisode := strconv.Atoi(r.PathValue("episode"))
	if errSeason != nil || errEpisode != nil || season < 1 || episode < 1 {
		writeError(w, http.StatusBadRequest, "invalid season or episode")
		return
	}
	key := domain.EpisodeKey{
		Country: strings.ToLower(r.PathValue("country")),
		Season:  season,
		Episode: episode,
	}

	ep, err := h.service.Episode(r.Context(), key)
	if errors.Is(err, domain.ErrEpisodeNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("episode", key.String()).Msg("load episode failed")
		writeError(w, http.StatusInternalServerError, "failed to load episode")
		return
	}
	writeJSON(w, http.StatusOK, app.NewEpisodeView(ep))
}

type checkAnswerRequest struct {
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

type checkAnswerResponse struct {
	Correct bool `json:"correct"`
}

func (h *APIHandler) CheckAnswer(w http.ResponseWriter, r *http.Request) {
	var req checkAnswerRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CorrectAnswer) == "" {
		writeError(w, http.StatusBadRequest, "correctAnswer is required")
		return
	}
	correct := h.service.CheckAnswer(r.Context(), req.UserAnswer, req.CorrectAnswer, req.Explanation)
	writeJSON(w, http.StatusOK, checkAnswerResponse{Correct: correct})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
