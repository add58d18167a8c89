package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fe1_prep_backend/internal/config"
	"fe1_prep_backend/internal/util"
	"fe1_prep_backend/pkg/monitoring"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// GradeInput carries everything the grading collaborator needs about one essay.
type GradeInput struct {
	QuestionText string
	AnswerText   string
	Subject      string
}

// GradeResult is the structured verdict for one essay. Score is 0-100.
type GradeResult struct {
	Score        int      `json:"score"`
	Band         string   `json:"band"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	SampleAnswer string   `json:"sampleAnswer"`
	TokensUsed   int      `json:"tokensUsed"`
}

// EssayGrader is the external grading collaborator. Implementations must be
// safe for concurrent use; finish grades five essays at once.
type EssayGrader interface {
	GradeEssay(ctx context.Context, input GradeInput) (*GradeResult, error)
}

// GraderService talks to an OpenAI-compatible chat-completions endpoint.
type GraderService struct {
	mu     sync.RWMutex
	config config.GraderConfig
	client *http.Client
}

func NewGraderService(cfg config.GraderConfig) *GraderService {
	return &GraderService{
		config: cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// UpdateConfig swaps the grader endpoint settings on a config reload. In-flight
// requests keep the client they started with.
func (s *GraderService) UpdateConfig(cfg config.GraderConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	s.client = &http.Client{Timeout: cfg.RequestTimeout}
}

type graderChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []graderChatMessage `json:"messages"`
	ResponseFormat map[string]string   `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message graderChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const gradingSystemPrompt = "You are an experienced FE-1 (Irish Law Society entrance exam) examiner. " +
	"Grade the student's essay answer against the question on a 0-100 scale, the way a real " +
	"FE-1 marker would: legal accuracy, authority cited, structure and application to the facts. " +
	"Respond with a single JSON object and nothing else, using exactly these keys: " +
	`{"score": <integer 0-100>, "band": "<one of: Fail, Borderline, Pass, Good, Excellent>", ` +
	`"feedback": "<2-3 paragraph overall assessment>", "strengths": ["..."], ` +
	`"improvements": ["..."], "sampleAnswer": "<concise model answer outline>"}`

func (s *GraderService) GradeEssay(ctx context.Context, input GradeInput) (*GradeResult, error) {
	start := time.Now()
	result, err := s.gradeEssay(ctx, input)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	monitoring.GradingDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if result != nil {
		monitoring.GradingTokens.Add(float64(result.TokensUsed))
	}
	return result, err
}

func (s *GraderService) gradeEssay(ctx context.Context, input GradeInput) (*GradeResult, error) {
	s.mu.RLock()
	cfg := s.config
	client := s.client
	s.mu.RUnlock()

	userPrompt := fmt.Sprintf("Subject: %s\n\nQuestion:\n%s\n\nStudent answer:\n%s",
		input.Subject, input.QuestionText, input.AnswerText)

	reqBody := chatCompletionRequest{
		Model: cfg.Model,
		Messages: []graderChatMessage{
			{Role: "system", Content: gradingSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGradingFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGradingFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGradingFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: grader API status %d: %s", util.ErrGradingFailed, resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGradingFailed, err)
	}
	if completion.Error != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrGradingFailed, completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: grader returned no choices", util.ErrGradingFailed)
	}

	result, err := parseGradeResult(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	result.TokensUsed = completion.Usage.TotalTokens
	return result, nil
}

// parseGradeResult parses the model's JSON verdict. Malformed output is a hard
// failure; a half-parsed grade must never be persisted.
func parseGradeResult(content string) (*GradeResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result GradeResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("%w: unparseable grader output: %v", util.ErrGradingFailed, err)
	}
	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("%w: grader score %d out of range", util.ErrGradingFailed, result.Score)
	}
	return &result, nil
}
