package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"time"

	"fe1_prep_backend/internal/model"
	"fe1_prep_backend/internal/repository"
	"fe1_prep_backend/internal/util"
	"fe1_prep_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// SimulationService runs the timed five-question mock exam:
//
//	start --(submit, <5 attempts)--> in progress
//	in progress --(5th answer + finish)--> COMPLETED (terminal)
//	in progress --(abandon)--> FAILED (terminal)
//
// Grading happens only in Finish, fanned out over all five answers, and is
// all-or-nothing: one grader failure leaves every attempt ungraded and the
// simulation retryable.
type SimulationService struct {
	SimulationRepo *repository.SimulationRepository
	QuestionRepo   *repository.QuestionRepository
	Grader         EssayGrader
	DB             *gorm.DB
}

func NewSimulationService(
	simulationRepo *repository.SimulationRepository,
	questionRepo *repository.QuestionRepository,
	grader EssayGrader,
	db *gorm.DB,
) *SimulationService {
	return &SimulationService{
		SimulationRepo: simulationRepo,
		QuestionRepo:   questionRepo,
		Grader:         grader,
		DB:             db,
	}
}

type QuestionPayload struct {
	QuestionID   uint   `json:"questionId"`
	QuestionText string `json:"questionText"`
	Subject      string `json:"subject"`
	Year         *int   `json:"year,omitempty"`
}

type StartSimulationResult struct {
	SimulationID      uint            `json:"simulationId"`
	TotalQuestions    int             `json:"totalQuestions"`
	TimeBudgetSeconds int             `json:"timeBudgetSeconds"`
	FirstQuestion     QuestionPayload `json:"firstQuestion"`
	TimerID           string          `json:"timerId"`
}

type SubmitAnswerRequest struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	TimerID    string `json:"timerId" binding:"required"`
	AnswerText string `json:"answerText" binding:"required"`
	// Advisory client position; the next question is derived from the stored
	// attempts, not from this value.
	CurrentQuestionIndex int `json:"currentQuestionIndex"`
}

type SubmitAnswerResult struct {
	WordCount        int    `json:"wordCount"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
	HasNext          bool   `json:"hasNext"`
	NextIndex        int    `json:"nextIndex,omitempty"`
	NextQuestionID   uint   `json:"nextQuestionId,omitempty"`
	NextTimerID      string `json:"nextTimerId,omitempty"`
}

type GetQuestionResult struct {
	Question       QuestionPayload `json:"question"`
	QuestionIndex  int             `json:"questionIndex"`
	PriorAnswer    string          `json:"priorAnswer,omitempty"`
	CanEdit        bool            `json:"canEdit"`
	IsLastQuestion bool            `json:"isLastQuestion"`
	NextQuestionID uint            `json:"nextQuestionId,omitempty"`
}

type AttemptResultPayload struct {
	QuestionID       uint     `json:"questionId"`
	Score            int      `json:"score"`
	Band             string   `json:"band"`
	Feedback         string   `json:"feedback"`
	Strengths        []string `json:"strengths"`
	Improvements     []string `json:"improvements"`
	WordCount        int      `json:"wordCount"`
	TimeTakenSeconds int      `json:"timeTakenSeconds"`
}

type FinishSimulationResult struct {
	OverallScore           int                    `json:"overallScore"`
	Passed                 bool                   `json:"passed"`
	PassThreshold          int                    `json:"passThreshold"`
	AppPassThreshold       int                    `json:"appPassThreshold"`
	TotalTimeSeconds       int                    `json:"totalTimeSeconds"`
	AverageTimePerQuestion int                    `json:"averageTimePerQuestion"`
	Results                []AttemptResultPayload `json:"results"`
}

// Start selects five distinct past-paper questions uniformly at random,
// freezes their order for the simulation's lifetime and opens the first
// question's timer.
func (s *SimulationService) Start(userID uint) (*StartSimulationResult, error) {
	eligible, err := s.QuestionRepo.ListEligibleIDs()
	if err != nil {
		return nil, err
	}
	if len(eligible) < util.SimulationQuestionCount {
		return nil, util.ErrQuestionPoolTooSmall
	}

	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	questionIDs := eligible[:util.SimulationQuestionCount]

	idsJSON, err := json.Marshal(questionIDs)
	if err != nil {
		return nil, err
	}

	sim := &model.Simulation{
		UserID:      userID,
		Status:      model.SimulationInProgress,
		QuestionIDs: string(idsJSON),
		StartedAt:   time.Now(),
	}
	if err := s.SimulationRepo.Create(sim); err != nil {
		return nil, err
	}

	first, err := s.QuestionRepo.FindByID(questionIDs[0])
	if err != nil {
		return nil, err
	}

	timer, err := s.startTimer(userID, sim.ID, first.ID)
	if err != nil {
		return nil, err
	}

	return &StartSimulationResult{
		SimulationID:      sim.ID,
		TotalQuestions:    util.SimulationQuestionCount,
		TimeBudgetSeconds: util.SimulationTimeBudgetSeconds,
		FirstQuestion:     questionPayload(first),
		TimerID:           timer.PublicID,
	}, nil
}

// SubmitAnswer records one answer. Grading is deferred entirely to Finish.
// The (simulation, question) unique index backs up the duplicate pre-check,
// so a racing double submission still comes back as a conflict.
func (s *SimulationService) SubmitAnswer(userID, simulationID uint, req SubmitAnswerRequest) (*SubmitAnswerResult, error) {
	sim, err := s.loadRunning(userID, simulationID)
	if err != nil {
		return nil, err
	}

	questionIDs, err := decodeQuestionIDs(sim)
	if err != nil {
		return nil, err
	}
	if !containsID(questionIDs, req.QuestionID) {
		return nil, util.ErrQuestionNotInExam
	}

	if _, err := s.SimulationRepo.FindAttempt(simulationID, req.QuestionID); err == nil {
		return nil, util.ErrDuplicateAttempt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	timer, err := s.SimulationRepo.FindTimerForUser(req.TimerID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTimerNotFound
		}
		return nil, err
	}
	// A timer only measures the question it was minted for; one from another
	// simulation or question would persist a bogus interval.
	if timer.SimulationID != simulationID || timer.QuestionID != req.QuestionID {
		return nil, util.ErrTimerNotFound
	}

	now := time.Now()
	timeTaken := 0
	if timer.EndedAt == nil {
		timer.EndedAt = &now
		if err := s.SimulationRepo.SaveTimer(timer); err != nil {
			return nil, err
		}
	}
	timeTaken = int(timer.EndedAt.Sub(timer.StartedAt).Seconds())

	attempt := &model.EssayAttempt{
		UserID:           userID,
		SimulationID:     &sim.ID,
		QuestionID:       req.QuestionID,
		IsSimulation:     true,
		AnswerText:       req.AnswerText,
		WordCount:        util.CountWords(req.AnswerText),
		TimeTakenSeconds: timeTaken,
	}
	if err := s.SimulationRepo.CreateAttempt(attempt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrDuplicateAttempt
		}
		return nil, err
	}

	count, err := s.SimulationRepo.CountAttempts(simulationID)
	if err != nil {
		return nil, err
	}

	result := &SubmitAnswerResult{
		WordCount:        attempt.WordCount,
		TimeTakenSeconds: timeTaken,
		HasNext:          count < util.SimulationQuestionCount,
	}

	if result.HasNext {
		existing, err := s.SimulationRepo.ListAttempts(simulationID)
		if err != nil {
			return nil, err
		}
		answered := make(map[uint]bool, len(existing))
		for _, a := range existing {
			answered[a.QuestionID] = true
		}
		// The next question is the first unanswered entry of the frozen list,
		// so out-of-order submissions still resume correctly.
		for i, id := range questionIDs {
			if answered[id] {
				continue
			}
			nextTimer, err := s.startTimer(userID, sim.ID, id)
			if err != nil {
				return nil, err
			}
			result.NextIndex = i
			result.NextQuestionID = id
			result.NextTimerID = nextTimer.PublicID
			break
		}
	}

	return result, nil
}

// GetQuestion serves navigation and resume. Everything is derived from the
// frozen question list and the given index; no randomness at this point.
func (s *SimulationService) GetQuestion(userID, simulationID, questionID uint, questionIndex int) (*GetQuestionResult, error) {
	sim, err := s.SimulationRepo.FindForUser(simulationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSimulationNotFound
		}
		return nil, err
	}

	questionIDs, err := decodeQuestionIDs(sim)
	if err != nil {
		return nil, err
	}
	if questionIndex < 0 || questionIndex >= len(questionIDs) || questionIDs[questionIndex] != questionID {
		return nil, util.ErrQuestionNotInExam
	}

	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	result := &GetQuestionResult{
		Question:       questionPayload(question),
		QuestionIndex:  questionIndex,
		CanEdit:        sim.EndedAt == nil,
		IsLastQuestion: questionIndex == len(questionIDs)-1,
	}
	if !result.IsLastQuestion {
		result.NextQuestionID = questionIDs[questionIndex+1]
	}

	attempt, err := s.SimulationRepo.FindAttempt(simulationID, questionID)
	if err == nil {
		result.PriorAnswer = attempt.AnswerText
		result.CanEdit = false
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return result, nil
}

// Finish grades all five answers concurrently and closes the simulation.
// Results are gathered all-or-nothing: any grader failure aborts the whole
// operation before a single row is updated, leaving the simulation running.
func (s *SimulationService) Finish(ctx context.Context, userID, simulationID uint) (*FinishSimulationResult, error) {
	sim, err := s.loadRunning(userID, simulationID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.SimulationRepo.ListAttempts(simulationID)
	if err != nil {
		return nil, err
	}
	if len(attempts) != util.SimulationQuestionCount {
		return nil, util.ErrSimulationIncomplete
	}

	questionIDs := make([]uint, len(attempts))
	for i, a := range attempts {
		questionIDs[i] = a.QuestionID
	}
	questions, err := s.QuestionRepo.FindByIDs(questionIDs)
	if err != nil {
		return nil, err
	}
	questionByID := make(map[uint]model.EssayQuestion, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}

	grades := make([]*GradeResult, len(attempts))
	g, gctx := errgroup.WithContext(ctx)
	for i, attempt := range attempts {
		i, attempt := i, attempt
		question, ok := questionByID[attempt.QuestionID]
		if !ok {
			return nil, util.ErrQuestionNotFound
		}
		g.Go(func() error {
			grade, err := s.Grader.GradeEssay(gctx, GradeInput{
				QuestionText: question.QuestionText,
				AnswerText:   attempt.AnswerText,
				Subject:      question.Subject.Name,
			})
			if err != nil {
				return err
			}
			grades[i] = grade
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Log.Error("simulation grading aborted",
			zap.Uint("simulationId", simulationID), zap.Error(err))
		return nil, err
	}

	scoreSum := 0
	timeSum := 0
	for i := range attempts {
		scoreSum += grades[i].Score
		timeSum += attempts[i].TimeTakenSeconds
	}
	overall := int(math.Round(float64(scoreSum) / float64(len(attempts))))
	passed := overall >= util.PassThreshold
	now := time.Now()

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range attempts {
			grade := grades[i]
			strengths, _ := json.Marshal(grade.Strengths)
			improvements, _ := json.Marshal(grade.Improvements)
			updates := map[string]interface{}{
				"ai_score":      grade.Score,
				"band":          grade.Band,
				"feedback":      grade.Feedback,
				"strengths":     string(strengths),
				"improvements":  string(improvements),
				"sample_answer": grade.SampleAnswer,
				"tokens_used":   grade.TokensUsed,
			}
			if err := tx.Model(&model.EssayAttempt{}).Where("id = ?", attempts[i].ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.Simulation{}).Where("id = ?", sim.ID).Updates(map[string]interface{}{
			"status":             model.SimulationCompleted,
			"ended_at":           now,
			"overall_score":      overall,
			"passed":             passed,
			"total_time_seconds": timeSum,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	results := make([]AttemptResultPayload, len(attempts))
	for i := range attempts {
		results[i] = AttemptResultPayload{
			QuestionID:       attempts[i].QuestionID,
			Score:            grades[i].Score,
			Band:             grades[i].Band,
			Feedback:         grades[i].Feedback,
			Strengths:        grades[i].Strengths,
			Improvements:     grades[i].Improvements,
			WordCount:        attempts[i].WordCount,
			TimeTakenSeconds: attempts[i].TimeTakenSeconds,
		}
	}

	return &FinishSimulationResult{
		OverallScore:           overall,
		Passed:                 passed,
		PassThreshold:          util.PassThreshold,
		AppPassThreshold:       util.AppPassThreshold,
		TotalTimeSeconds:       timeSum,
		AverageTimePerQuestion: timeSum / util.SimulationQuestionCount,
		Results:                results,
	}, nil
}

// Fail abandons the simulation. The grader is never consulted and the score
// is zeroed unconditionally, however many answers were already in.
func (s *SimulationService) Fail(userID, simulationID uint, reason string) error {
	sim, err := s.loadRunning(userID, simulationID)
	if err != nil {
		return err
	}

	now := time.Now()
	zero := 0
	failed := false
	sim.Status = model.SimulationFailed
	sim.EndedAt = &now
	sim.OverallScore = &zero
	sim.Passed = &failed
	sim.FailReason = reason
	return s.SimulationRepo.Save(sim)
}

func (s *SimulationService) History(userID uint) ([]model.Simulation, error) {
	return s.SimulationRepo.ListByUser(userID)
}

// loadRunning fetches a caller-owned simulation that has not ended yet.
func (s *SimulationService) loadRunning(userID, simulationID uint) (*model.Simulation, error) {
	sim, err := s.SimulationRepo.FindForUser(simulationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSimulationNotFound
		}
		return nil, err
	}
	if sim.EndedAt != nil {
		return nil, util.ErrSimulationEnded
	}
	return sim, nil
}

func (s *SimulationService) startTimer(userID, simulationID, questionID uint) (*model.QuestionTimer, error) {
	timer := &model.QuestionTimer{
		PublicID:     uuid.New().String(),
		UserID:       userID,
		SimulationID: simulationID,
		QuestionID:   questionID,
		StartedAt:    time.Now(),
	}
	if err := s.SimulationRepo.CreateTimer(timer); err != nil {
		return nil, err
	}
	return timer, nil
}

func questionPayload(q *model.EssayQuestion) QuestionPayload {
	return QuestionPayload{
		QuestionID:   q.ID,
		QuestionText: q.QuestionText,
		Subject:      q.Subject.Name,
		Year:         q.Year,
	}
}

func decodeQuestionIDs(sim *model.Simulation) ([]uint, error) {
	var ids []uint
	if err := json.Unmarshal([]byte(sim.QuestionIDs), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
