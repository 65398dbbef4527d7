package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"hocbai-backend/internal/middleware"
	"hocbai-backend/internal/models"
	"hocbai-backend/internal/render"
)

// Collaborator contracts. The handler only needs these slices of the Gemini
// service and repositories, which keeps it testable with fakes.

type modelClient interface {
	Chat(ctx context.Context, history []models.ChatTurn, message string) (string, error)
}

type ocrClient interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

type fileExtractor interface {
	ExtractText(filename string, data []byte) (string, error)
}

type messageStore interface {
	Append(ctx context.Context, m *models.Message) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error)
}

type ChatHandler struct {
	messages  messageStore
	ai        modelClient
	ocr       ocrClient
	files     fileExtractor
	maxUpload int64
}

func NewChatHandler(messages messageStore, ai modelClient, ocr ocrClient, files fileExtractor, maxUploadMB int) *ChatHandler {
	return &ChatHandler{
		messages:  messages,
		ai:        ai,
		ocr:       ocr,
		files:     files,
		maxUpload: int64(maxUploadMB) << 20,
	}
}

// Ask handles a plain text question with optional history.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	h.answer(w, r, req.Message, req.History)
}

// AskWithPhoto handles a multipart upload: a homework photo (or PDF/text
// file) plus an optional note. Extracted text and note together form the
// question.
func (h *ChatHandler) AskWithPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Image file is required", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload))
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not read uploaded file", r))
		return
	}

	var extracted string
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf", ".txt":
		extracted, err = h.files.ExtractText(header.Filename, data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not extract text from file", r))
			return
		}
	default:
		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		// OCR is best-effort and may come back empty.
		extracted, err = h.ocr.ExtractText(r.Context(), data, mimeType)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("AI_ERROR", "Failed to read the image", r))
			return
		}
	}

	note := strings.TrimSpace(r.FormValue("message"))
	if extracted == "" && note == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not find any text in the upload", r))
		return
	}

	question := extracted
	if note != "" {
		question = note
		if extracted != "" {
			question = note + "\n\n" + extracted
		}
	}

	h.answer(w, r, question, nil)
}

// answer runs the shared tail of both chat endpoints: model call, rendering,
// append-only log writes, response.
func (h *ChatHandler) answer(w http.ResponseWriter, r *http.Request, question string, history []models.ChatTurn) {
	sessionID := middleware.GetSessionID(r.Context())

	reply, err := h.ai.Chat(r.Context(), history, question)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("AI_ERROR", "Failed to get AI response", r))
		return
	}

	replyHTML := render.Render(reply)

	userMsg := &models.Message{
		SessionID: sessionID,
		Role:      "user",
		Content:   question,
	}
	if err := h.messages.Append(r.Context(), userMsg); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save message", r))
		return
	}

	assistantMsg := &models.Message{
		SessionID:   sessionID,
		Role:        "assistant",
		Content:     reply,
		ContentHTML: &replyHTML,
	}
	if err := h.messages.Append(r.Context(), assistantMsg); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save message", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Reply:     reply,
		ReplyHTML: replyHTML,
		MessageID: assistantMsg.ID,
	})
}
