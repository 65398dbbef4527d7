package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"hocbai-backend/internal/middleware"
	"hocbai-backend/internal/models"
)

// ─── Fakes ───

type fakeModel struct {
	reply string
	err   error
	// last arguments seen, for assertions
	gotHistory []models.ChatTurn
	gotMessage string
}

func (f *fakeModel) Chat(_ context.Context, history []models.ChatTurn, message string) (string, error) {
	f.gotHistory = history
	f.gotMessage = message
	return f.reply, f.err
}

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) ExtractText(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

type fakeFiles struct {
	text string
	err  error
}

func (f *fakeFiles) ExtractText(_ string, _ []byte) (string, error) {
	return f.text, f.err
}

type fakeStore struct {
	appended []*models.Message
	listErr  error
}

func (f *fakeStore) Append(_ context.Context, m *models.Message) error {
	m.ID = uuid.New()
	f.appended = append(f.appended, m)
	return nil
}

func (f *fakeStore) ListBySession(_ context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Message
	for _, m := range f.appended {
		if m.SessionID == sessionID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func authedRequest(method, target string, body *bytes.Reader, sessionID uuid.UUID) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), middleware.SessionIDKey, sessionID)
	return req.WithContext(ctx)
}

// ─── Chat Handler Tests ───

func TestChatAsk_ValidMessage(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{reply: "Đạo hàm của $x^2$ là $2x$."}
	h := NewChatHandler(store, model, &fakeOCR{}, &fakeFiles{}, 10)

	sessionID := uuid.New()
	body, _ := json.Marshal(models.ChatRequest{Message: "Đạo hàm của x^2 là gì?"})

	req := authedRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body), sessionID)
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Reply != model.reply {
		t.Errorf("Expected raw reply %q, got %q", model.reply, resp.Reply)
	}
	if !strings.Contains(resp.ReplyHTML, `\(x^2\)`) {
		t.Errorf("Expected rendered HTML to contain \\(x^2\\), got %q", resp.ReplyHTML)
	}
	if !strings.Contains(resp.ReplyHTML, "<p>") {
		t.Errorf("Expected rendered HTML to be wrapped in <p>, got %q", resp.ReplyHTML)
	}

	// Both sides of the exchange are logged, user first.
	if len(store.appended) != 2 {
		t.Fatalf("Expected 2 appended messages, got %d", len(store.appended))
	}
	if store.appended[0].Role != "user" || store.appended[1].Role != "assistant" {
		t.Errorf("Expected roles user, assistant; got %s, %s", store.appended[0].Role, store.appended[1].Role)
	}
	if store.appended[0].SessionID != sessionID {
		t.Errorf("Message logged under wrong session")
	}
	if store.appended[1].ContentHTML == nil {
		t.Error("Assistant message should carry rendered HTML")
	}
}

func TestChatAsk_PassesHistory(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	h := NewChatHandler(&fakeStore{}, model, &fakeOCR{}, &fakeFiles{}, 10)

	body, _ := json.Marshal(models.ChatRequest{
		Message: "Còn x^3 thì sao?",
		History: []models.ChatTurn{
			{Role: "user", Content: "Đạo hàm của x^2?"},
			{Role: "assistant", Content: "2x"},
		},
	})

	req := authedRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body), uuid.New())
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if len(model.gotHistory) != 2 {
		t.Errorf("Expected 2 history turns passed through, got %d", len(model.gotHistory))
	}
	if model.gotMessage != "Còn x^3 thì sao?" {
		t.Errorf("Wrong message passed to model: %q", model.gotMessage)
	}
}

func TestChatAsk_EmptyMessage(t *testing.T) {
	h := NewChatHandler(&fakeStore{}, &fakeModel{}, &fakeOCR{}, &fakeFiles{}, 10)

	tests := []struct {
		name string
		body string
	}{
		{"blank message", `{"message": "   "}`},
		{"missing message", `{}`},
		{"invalid json", `{not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte(tc.body)), uuid.New())
			rr := httptest.NewRecorder()

			h.Ask(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestChatAsk_ModelError(t *testing.T) {
	store := &fakeStore{}
	h := NewChatHandler(store, &fakeModel{err: errors.New("quota exceeded")}, &fakeOCR{}, &fakeFiles{}, 10)

	body, _ := json.Marshal(models.ChatRequest{Message: "hi"})
	req := authedRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body), uuid.New())
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
	// Failed exchanges are not logged.
	if len(store.appended) != 0 {
		t.Errorf("Expected no messages appended on model error, got %d", len(store.appended))
	}
}

func TestChatAskWithPhoto_TextFile(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{reply: "ok"}
	files := &fakeFiles{text: "Giải phương trình x + 1 = 2"}
	h := NewChatHandler(store, model, &fakeOCR{}, files, 10)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "baitap.txt")
	fw.Write([]byte("Giải phương trình x + 1 = 2"))
	mw.WriteField("message", "Giúp em bài này")
	mw.Close()

	req := authedRequest(http.MethodPost, "/api/v1/chat/photo", bytes.NewReader(buf.Bytes()), uuid.New())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	h.AskWithPhoto(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// Note comes first, then the extracted text.
	want := "Giúp em bài này\n\nGiải phương trình x + 1 = 2"
	if model.gotMessage != want {
		t.Errorf("Question sent to model = %q, want %q", model.gotMessage, want)
	}
}

func TestChatAskWithPhoto_ImageUsesOCR(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	ocr := &fakeOCR{text: "2x + 3 = 7"}
	h := NewChatHandler(&fakeStore{}, model, ocr, &fakeFiles{}, 10)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "photo.jpg")
	fw.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	mw.Close()

	req := authedRequest(http.MethodPost, "/api/v1/chat/photo", bytes.NewReader(buf.Bytes()), uuid.New())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	h.AskWithPhoto(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if model.gotMessage != "2x + 3 = 7" {
		t.Errorf("Question sent to model = %q, want OCR text", model.gotMessage)
	}
}

func TestChatAskWithPhoto_NothingExtracted(t *testing.T) {
	h := NewChatHandler(&fakeStore{}, &fakeModel{}, &fakeOCR{text: ""}, &fakeFiles{}, 10)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "blank.png")
	fw.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	mw.Close()

	req := authedRequest(http.MethodPost, "/api/v1/chat/photo", bytes.NewReader(buf.Bytes()), uuid.New())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	h.AskWithPhoto(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 when no text found anywhere, got %d", rr.Code)
	}
}

// ─── Message Handler Tests ───

func TestMessagesList(t *testing.T) {
	store := &fakeStore{}
	sessionID := uuid.New()
	store.Append(context.Background(), &models.Message{SessionID: sessionID, Role: "user", Content: "hi"})
	store.Append(context.Background(), &models.Message{SessionID: sessionID, Role: "assistant", Content: "hello"})
	store.Append(context.Background(), &models.Message{SessionID: uuid.New(), Role: "user", Content: "other session"})

	h := NewMessageHandler(store)

	req := authedRequest(http.MethodGet, "/api/v1/messages", nil, sessionID)
	rr := httptest.NewRecorder()

	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp struct {
		Messages []*models.Message `json:"messages"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(resp.Messages) != 2 {
		t.Errorf("Expected 2 messages for this session, got %d", len(resp.Messages))
	}
}

func TestMessagesList_InvalidLimit(t *testing.T) {
	h := NewMessageHandler(&fakeStore{})

	tests := []string{"abc", "0", "-5", "9999"}
	for _, limit := range tests {
		t.Run(limit, func(t *testing.T) {
			req := authedRequest(http.MethodGet, "/api/v1/messages?limit="+limit, nil, uuid.New())
			rr := httptest.NewRecorder()

			h.List(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 for limit %q, got %d", limit, rr.Code)
			}
		})
	}
}

// ─── Session Handler Tests ───

func TestSessionCreate(t *testing.T) {
	auth := middleware.NewSessionAuth("test-secret")
	h := NewSessionHandler(auth)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rr.Code)
	}

	var resp struct {
		SessionID uuid.UUID `json:"session_id"`
		Token     string    `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.SessionID == uuid.Nil {
		t.Error("Expected non-nil session ID")
	}
	if resp.Token == "" {
		t.Error("Expected a session token")
	}

	// The minted token must pass the auth middleware and carry the same
	// session ID.
	var gotSession uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = middleware.GetSessionID(r.Context())
	})

	authedReq := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	authedReq.Header.Set("Authorization", "Bearer "+resp.Token)
	auth.Middleware(next).ServeHTTP(httptest.NewRecorder(), authedReq)

	if gotSession != resp.SessionID {
		t.Errorf("Token round-trip produced session %s, want %s", gotSession, resp.SessionID)
	}
}
