package service

import (
	"context"
	"encoding/json"
	"errors"

	"fe1_prep_backend/internal/model"
	"fe1_prep_backend/internal/repository"
	"fe1_prep_backend/internal/util"

	"gorm.io/gorm"
)

// EssayService handles standalone practice answers outside a simulation.
// Unlike the mock exam, a practice answer is graded immediately and the same
// question can be attempted any number of times.
type EssayService struct {
	SimulationRepo *repository.SimulationRepository
	QuestionRepo   *repository.QuestionRepository
	Grader         EssayGrader
}

func NewEssayService(
	simulationRepo *repository.SimulationRepository,
	questionRepo *repository.QuestionRepository,
	grader EssayGrader,
) *EssayService {
	return &EssayService{
		SimulationRepo: simulationRepo,
		QuestionRepo:   questionRepo,
		Grader:         grader,
	}
}

type PracticeRequest struct {
	QuestionID       uint   `json:"questionId" binding:"required"`
	AnswerText       string `json:"answerText" binding:"required"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

type PracticeResult struct {
	AttemptID    uint     `json:"attemptId"`
	Score        int      `json:"score"`
	Band         string   `json:"band"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	SampleAnswer string   `json:"sampleAnswer"`
	WordCount    int      `json:"wordCount"`
}

// SubmitPractice grades a single answer synchronously and stores the attempt
// with its verdict. Nothing is persisted if the grader fails.
func (s *EssayService) SubmitPractice(ctx context.Context, userID uint, req PracticeRequest) (*PracticeResult, error) {
	question, err := s.QuestionRepo.FindByID(req.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	grade, err := s.Grader.GradeEssay(ctx, GradeInput{
		QuestionText: question.QuestionText,
		AnswerText:   req.AnswerText,
		Subject:      question.Subject.Name,
	})
	if err != nil {
		return nil, err
	}

	strengths, _ := json.Marshal(grade.Strengths)
	improvements, _ := json.Marshal(grade.Improvements)
	attempt := &model.EssayAttempt{
		UserID:           userID,
		QuestionID:       req.QuestionID,
		IsSimulation:     false,
		AnswerText:       req.AnswerText,
		WordCount:        util.CountWords(req.AnswerText),
		TimeTakenSeconds: req.TimeTakenSeconds,
		AIScore:          &grade.Score,
		Band:             grade.Band,
		Feedback:         grade.Feedback,
		Strengths:        string(strengths),
		Improvements:     string(improvements),
		SampleAnswer:     grade.SampleAnswer,
		TokensUsed:       grade.TokensUsed,
	}
	if err := s.SimulationRepo.CreateAttempt(attempt); err != nil {
		return nil, err
	}

	return &PracticeResult{
		AttemptID:    attempt.ID,
		Score:        grade.Score,
		Band:         grade.Band,
		Feedback:     grade.Feedback,
		Strengths:    grade.Strengths,
		Improvements: grade.Improvements,
		SampleAnswer: grade.SampleAnswer,
		WordCount:    attempt.WordCount,
	}, nil
}

func (s *EssayService) ListPracticeAttempts(userID uint) ([]model.EssayAttempt, error) {
	return s.SimulationRepo.ListPracticeAttempts(userID)
}
