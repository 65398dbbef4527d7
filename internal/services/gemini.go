package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"hocbai-backend/internal/models"
)

const geminiModelName = "gemini-3-flash-preview"

// tutorSystemPrompt steers every chat turn. The output conventions ($-math,
// * bullets) are what the render pipeline expects to normalize.
const tutorSystemPrompt = `Bạn là một gia sư thân thiện giúp học sinh Việt Nam hiểu bài tập.
Luôn trả lời bằng tiếng Việt, giải thích từng bước, ngắn gọn và dễ hiểu.
Viết công thức toán giữa dấu $...$ (trong dòng) hoặc $$...$$ (cả dòng).
Dùng dấu * ở đầu dòng cho danh sách các bước.
Không bao giờ làm hộ bài kiểm tra; hãy hướng dẫn cách tự giải.`

const ocrPrompt = `Đọc và chép lại toàn bộ chữ và công thức trong ảnh bài tập này.
Viết công thức toán giữa dấu $...$. Chỉ trả về văn bản, không giải thích gì thêm.`

// GeminiService is the single process-scoped model client. One text model
// with the tutor system instruction, one vision model for OCR, and a token
// bucket capping concurrent API calls.
type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	vision   *genai.GenerativeModel
	redis    *redis.Client
	rateChan chan struct{}
}

func NewGeminiService(apiKey string, concurrentReqs int, redisClient *redis.Client) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(geminiModelName)
	model.SetTemperature(0.4)
	model.SetTopP(0.95)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(tutorSystemPrompt)},
	}

	vision := client.GenerativeModel(geminiModelName)
	vision.SetTemperature(0)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		vision:   vision,
		redis:    redisClient,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *GeminiService) PublishUpdate(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("session_updates:%s", sessionID.String()), string(data))
}

// Chat sends one question with its conversation history. History is passed by
// value per call; the service keeps no session state.
func (s *GeminiService) Chat(ctx context.Context, history []models.ChatTurn, message string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	cs := s.model.StartChat()
	for _, turn := range history {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty response")
	}

	return text, nil
}

// ExtractText runs OCR on an uploaded homework photo. Best-effort: an empty
// string is a valid result. Results are cached by content hash because
// students frequently re-send the same photo.
func (s *GeminiService) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("image payload is empty")
	}

	cacheKey := fmt.Sprintf("ocr:%x", sha256.Sum256(image))
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			return cached, nil
		}
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.vision.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(ocrPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("Gemini OCR error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if s.redis != nil && text != "" {
		s.redis.Set(ctx, cacheKey, text, 24*time.Hour)
	}

	return text, nil
}

// GeneratePractice asks the model for a JSON array of exercises and returns
// the raw response text. Structured extraction is the caller's job.
func (s *GeminiService) GeneratePractice(ctx context.Context, req models.GeneratePracticeRequest, source string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	prompt := buildPracticePrompt(req, source)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return extractText(resp), nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// imageFormat maps a mime type to the format string genai expects.
func imageFormat(mimeType string) string {
	if format, ok := strings.CutPrefix(mimeType, "image/"); ok {
		return format
	}
	return "jpeg"
}

func buildPracticePrompt(req models.GeneratePracticeRequest, source string) string {
	var b strings.Builder

	b.WriteString("You are an expert tutor creating practice exercises for a Vietnamese student.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")

	count := req.NumQuestions
	if count < 1 {
		count = 5
	}
	b.WriteString(fmt.Sprintf("Generate exactly %d questions", count))
	if req.Topic != "" {
		b.WriteString(fmt.Sprintf(" about: %s", req.Topic))
	}
	b.WriteString(".\n")

	switch req.Difficulty {
	case "easy":
		b.WriteString("Difficulty: easy = direct application of one rule.\n")
	case "hard":
		b.WriteString("Difficulty: hard = multi-step reasoning or combining concepts.\n")
	default:
		b.WriteString("Difficulty: medium = applying a concept in a small variation.\n")
	}

	b.WriteString(`
JSON schema per question:
{"question": "string", "answer": "string", "explanation": "string"}

Write question, answer and explanation in Vietnamese. Use $...$ delimiters for math.
`)

	if source != "" {
		b.WriteString("\nBase the questions on this material:\n---NỘI DUNG---\n")
		b.WriteString(source)
		b.WriteString("\n---HẾT---\n")
	}

	return b.String()
}
