package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"hocbai-backend/internal/models"
	"hocbai-backend/internal/practice"
	"hocbai-backend/internal/render"
	"hocbai-backend/internal/repository"
	"hocbai-backend/internal/services"
)

const practiceQueue = "queue:practice-generation"

type Pool struct {
	redis        *redis.Client
	gemini       *services.GeminiService
	messageRepo  *repository.MessageRepo
	practiceRepo *repository.PracticeRepo
	jobRepo      *repository.JobRepo
	workerCount  int
	stopChan     chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	messageRepo *repository.MessageRepo,
	practiceRepo *repository.PracticeRepo,
	jobRepo *repository.JobRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:        redisClient,
		gemini:       gemini,
		messageRepo:  messageRepo,
		practiceRepo: practiceRepo,
		jobRepo:      jobRepo,
		workerCount:  workerCount,
		stopChan:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, 30*time.Second, practiceQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// One worker per job, even with several pool replicas.
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		p.gemini.PublishUpdate(ctx, job.SessionID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:    job.ID,
				Step:     1,
				StepName: "Generating practice questions",
			},
		})

		var processErr error
		switch job.Type {
		case "practice-generation":
			processErr = p.processPractice(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processPractice(ctx context.Context, job *models.Job) error {
	set, err := p.practiceRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get practice set: %w", err)
	}

	var req models.GeneratePracticeRequest
	if err := json.Unmarshal(job.ConfigJSON, &req); err != nil {
		return fmt.Errorf("failed to parse job config: %w", err)
	}

	// When the set is anchored to a chat message, that message's content
	// becomes the source material for question generation.
	source := ""
	if req.SourceMessageID != nil {
		msg, err := p.messageRepo.GetByID(ctx, *req.SourceMessageID)
		if err != nil {
			return fmt.Errorf("failed to get source message: %w", err)
		}
		if msg.SessionID != job.SessionID {
			return fmt.Errorf("source message belongs to a different session")
		}
		source = msg.Content
	}

	raw, err := p.gemini.GeneratePractice(ctx, req, source)
	if err != nil {
		return fmt.Errorf("failed to generate practice questions: %w", err)
	}

	questions, err := practice.ExtractQuestions(raw)
	if err != nil {
		var unparseable *practice.UnparseableError
		if errors.As(err, &unparseable) {
			// Keep the raw text for diagnostics, then let the retry
			// loop ask the model again.
			p.practiceRepo.SaveRawResponse(ctx, set.ID, unparseable.Raw)
		}
		return fmt.Errorf("failed to extract questions: %w", err)
	}

	// Question text may carry LaTeX and markdown bullets just like chat
	// replies, so it goes through the same rendering pipeline.
	for i := range questions {
		questions[i].Question = render.Render(questions[i].Question)
		if questions[i].Answer != "" {
			questions[i].Answer = render.Render(questions[i].Answer)
		}
		if questions[i].Explanation != "" {
			questions[i].Explanation = render.Render(questions[i].Explanation)
		}
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	if err := p.practiceRepo.UpdateQuestions(ctx, set.ID, questionsJSON, len(questions)); err != nil {
		return fmt.Errorf("failed to save questions: %w", err)
	}

	return nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.gemini.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ReferenceID,
			ResultType: "practice_set",
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < job.MaxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), practiceQueue, string(jobBytes))
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
	p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
	p.practiceRepo.MarkFailed(ctx, job.ReferenceID)

	p.gemini.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}
