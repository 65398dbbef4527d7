package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hocbai-backend/internal/middleware"
	"hocbai-backend/internal/models"
	"hocbai-backend/internal/repository"
)

type PracticeHandler struct {
	practiceRepo *repository.PracticeRepo
	jobRepo      *repository.JobRepo
	redis        *redis.Client
}

func NewPracticeHandler(practiceRepo *repository.PracticeRepo, jobRepo *repository.JobRepo, redisClient *redis.Client) *PracticeHandler {
	return &PracticeHandler{
		practiceRepo: practiceRepo,
		jobRepo:      jobRepo,
		redis:        redisClient,
	}
}

// Generate creates a pending practice set and enqueues its generation job.
// Generation runs in the worker pool; the client follows progress over the
// websocket or by polling the job.
func (h *PracticeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GeneratePracticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.NumQuestions < 1 {
		req.NumQuestions = 5
	}
	if req.NumQuestions > 20 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "At most 20 questions per set", r))
		return
	}
	switch req.Difficulty {
	case "":
		req.Difficulty = "medium"
	case "easy", "medium", "hard":
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Difficulty must be easy, medium or hard", r))
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	configBytes, _ := json.Marshal(req)

	set := &models.PracticeSet{
		SessionID:  sessionID,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		ConfigJSON: configBytes,
	}
	if err := h.practiceRepo.Create(r.Context(), set); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create practice set", r))
		return
	}

	job := &models.Job{
		SessionID:   sessionID,
		Type:        "practice-generation",
		ReferenceID: set.ID,
		ConfigJSON:  configBytes,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:practice-generation", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"set_id": set.ID,
	})
}

func (h *PracticeHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	sets, err := h.practiceRepo.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch practice sets", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"practice_sets": sets})
}

func (h *PracticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid practice set ID", r))
		return
	}

	set, err := h.practiceRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Practice set not found", r))
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	if set.SessionID != sessionID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, set)
}
