package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"fe1_prep_backend/internal/model"
	"fe1_prep_backend/internal/repository"
	"fe1_prep_backend/internal/util"

	"gorm.io/gorm"
)

func newSimulationService(db *gorm.DB, grader EssayGrader) *SimulationService {
	return NewSimulationService(
		repository.NewSimulationRepository(db),
		repository.NewQuestionRepository(db),
		grader,
		db,
	)
}

// answerAll drives a started simulation through all five submissions, following
// the timer chain the service hands back.
func answerAll(t *testing.T, svc *SimulationService, userID uint, start *StartSimulationResult, answerFor func(questionID uint) string) {
	t.Helper()

	questionID := start.FirstQuestion.QuestionID
	timerID := start.TimerID
	for {
		result, err := svc.SubmitAnswer(userID, start.SimulationID, SubmitAnswerRequest{
			QuestionID: questionID,
			TimerID:    timerID,
			AnswerText: answerFor(questionID),
		})
		if err != nil {
			t.Fatalf("SubmitAnswer question %d: %v", questionID, err)
		}
		if !result.HasNext {
			return
		}
		questionID = result.NextQuestionID
		timerID = result.NextTimerID
	}
}

func TestStartRequiresFiveEligibleQuestions(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 4)

	// A question without a year must not rescue the pool.
	undated := model.EssayQuestion{SubjectID: subject.ID, QuestionText: "Practice only."}
	if err := db.Create(&undated).Error; err != nil {
		t.Fatalf("seed undated question: %v", err)
	}

	svc := newSimulationService(db, &fakeGrader{fallback: 60})
	_, err := svc.Start(user.ID)
	if !errors.Is(err, util.ErrQuestionPoolTooSmall) {
		t.Fatalf("err = %v, want ErrQuestionPoolTooSmall", err)
	}
}

func TestStartFreezesFiveDistinctQuestions(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 8)

	svc := newSimulationService(db, &fakeGrader{fallback: 60})
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if start.TotalQuestions != util.SimulationQuestionCount {
		t.Fatalf("totalQuestions = %d, want %d", start.TotalQuestions, util.SimulationQuestionCount)
	}
	if start.TimeBudgetSeconds != util.SimulationTimeBudgetSeconds {
		t.Fatalf("timeBudget = %d, want %d", start.TimeBudgetSeconds, util.SimulationTimeBudgetSeconds)
	}
	if start.TimerID == "" {
		t.Fatal("first question timer missing")
	}

	sim, err := svc.SimulationRepo.FindForUser(start.SimulationID, user.ID)
	if err != nil {
		t.Fatalf("FindForUser: %v", err)
	}
	if sim.Status != model.SimulationInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", sim.Status)
	}

	var ids []uint
	if err := json.Unmarshal([]byte(sim.QuestionIDs), &ids); err != nil {
		t.Fatalf("decode frozen question list: %v", err)
	}
	if len(ids) != util.SimulationQuestionCount {
		t.Fatalf("frozen list has %d questions, want %d", len(ids), util.SimulationQuestionCount)
	}
	seen := map[uint]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("question %d selected twice", id)
		}
		seen[id] = true
	}
	if ids[0] != start.FirstQuestion.QuestionID {
		t.Fatalf("first question %d does not match frozen list head %d", start.FirstQuestion.QuestionID, ids[0])
	}
}

func TestSubmitAnswerRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	svc := newSimulationService(db, &fakeGrader{fallback: 60})
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	first, err := svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: start.FirstQuestion.QuestionID,
		TimerID:    start.TimerID,
		AnswerText: "The postal rule applies where acceptance by post is contemplated.",
	})
	if err != nil {
		t.Fatalf("first SubmitAnswer: %v", err)
	}
	if first.WordCount != 10 {
		t.Fatalf("wordCount = %d, want 10", first.WordCount)
	}

	_, err = svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: start.FirstQuestion.QuestionID,
		TimerID:    start.TimerID,
		AnswerText: "A different second answer.",
	})
	if !errors.Is(err, util.ErrDuplicateAttempt) {
		t.Fatalf("err = %v, want ErrDuplicateAttempt", err)
	}

	var rows int64
	db.Model(&model.EssayAttempt{}).Where("simulation_id = ?", start.SimulationID).Count(&rows)
	if rows != 1 {
		t.Fatalf("attempt rows = %d, want 1", rows)
	}
}

func TestSubmitAnswerRejectsForeignQuestion(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	questions := seedQuestions(t, db, subject.ID, 6)

	svc := newSimulationService(db, &fakeGrader{fallback: 60})
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sim, _ := svc.SimulationRepo.FindForUser(start.SimulationID, user.ID)
	var frozen []uint
	json.Unmarshal([]byte(sim.QuestionIDs), &frozen)
	inExam := map[uint]bool{}
	for _, id := range frozen {
		inExam[id] = true
	}
	var outsider uint
	for _, q := range questions {
		if !inExam[q.ID] {
			outsider = q.ID
			break
		}
	}
	if outsider == 0 {
		t.Fatal("expected one question outside the exam")
	}

	_, err = svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: outsider,
		TimerID:    start.TimerID,
		AnswerText: "irrelevant",
	})
	if !errors.Is(err, util.ErrQuestionNotInExam) {
		t.Fatalf("err = %v, want ErrQuestionNotInExam", err)
	}
}

func TestSubmitAnswerRejectsForeignTimer(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	svc := newSimulationService(db, &fakeGrader{fallback: 60})
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sim, _ := svc.SimulationRepo.FindForUser(start.SimulationID, user.ID)
	var frozen []uint
	json.Unmarshal([]byte(sim.QuestionIDs), &frozen)

	// A closed timer from another simulation; accepting it would persist the
	// stale interval as the attempt's time.
	ended := time.Now()
	stale := &model.QuestionTimer{
		PublicID:     "stale-foreign-timer",
		UserID:       user.ID,
		SimulationID: start.SimulationID + 100,
		QuestionID:   8888,
		StartedAt:    ended.Add(-time.Second),
		EndedAt:      &ended,
	}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("seed stale timer: %v", err)
	}

	_, err = svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: frozen[0],
		TimerID:    stale.PublicID,
		AnswerText: "an answer timed against the wrong clock",
	})
	if !errors.Is(err, util.ErrTimerNotFound) {
		t.Fatalf("foreign-simulation timer err = %v, want ErrTimerNotFound", err)
	}

	// Same simulation, wrong question: also refused.
	crossed, err := svc.startTimer(user.ID, start.SimulationID, frozen[1])
	if err != nil {
		t.Fatalf("startTimer: %v", err)
	}
	_, err = svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: frozen[0],
		TimerID:    crossed.PublicID,
		AnswerText: "an answer timed against another question's clock",
	})
	if !errors.Is(err, util.ErrTimerNotFound) {
		t.Fatalf("cross-question timer err = %v, want ErrTimerNotFound", err)
	}

	var rows int64
	db.Model(&model.EssayAttempt{}).Where("simulation_id = ?", start.SimulationID).Count(&rows)
	if rows != 0 {
		t.Fatalf("attempt rows = %d, want 0", rows)
	}

	// The timer the simulation actually handed out still works.
	if _, err := svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: frozen[0],
		TimerID:    start.TimerID,
		AnswerText: "the properly timed answer",
	}); err != nil {
		t.Fatalf("SubmitAnswer with own timer: %v", err)
	}
}

func TestSubmitAnswerNextSkipsAnsweredQuestions(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	svc := newSimulationService(db, &fakeGrader{fallback: 60})
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sim, _ := svc.SimulationRepo.FindForUser(start.SimulationID, user.ID)
	var frozen []uint
	json.Unmarshal([]byte(sim.QuestionIDs), &frozen)

	// Answer the second question first.
	timer, err := svc.startTimer(user.ID, start.SimulationID, frozen[1])
	if err != nil {
		t.Fatalf("startTimer: %v", err)
	}
	result, err := svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: frozen[1],
		TimerID:    timer.PublicID,
		AnswerText: "answered out of turn",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if result.NextIndex != 0 || result.NextQuestionID != frozen[0] {
		t.Fatalf("next = %d/%d, want the skipped first question %d/%d",
			result.NextIndex, result.NextQuestionID, 0, frozen[0])
	}

	// Answering the first must then jump over the already answered second.
	result, err = svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: frozen[0],
		TimerID:    result.NextTimerID,
		AnswerText: "back to the start",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if result.NextIndex != 2 || result.NextQuestionID != frozen[2] {
		t.Fatalf("next = %d/%d, want %d/%d", result.NextIndex, result.NextQuestionID, 2, frozen[2])
	}
}

func TestSimulationOwnershipCollapsesToNotFound(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db)
	other := &model.User{Name: "Other", Email: "other@example.com", Role: model.Student}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("seed other user: %v", err)
	}
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	svc := newSimulationService(db, &fakeGrader{fallback: 60})
	start, err := svc.Start(owner.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = svc.SubmitAnswer(other.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: start.FirstQuestion.QuestionID,
		TimerID:    start.TimerID,
		AnswerText: "hijack",
	})
	if !errors.Is(err, util.ErrSimulationNotFound) {
		t.Fatalf("err = %v, want ErrSimulationNotFound", err)
	}

	if _, err := svc.GetQuestion(other.ID, start.SimulationID, start.FirstQuestion.QuestionID, 0); !errors.Is(err, util.ErrSimulationNotFound) {
		t.Fatalf("GetQuestion err = %v, want ErrSimulationNotFound", err)
	}
}

func TestFinishRequiresAllAnswers(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	grader := &fakeGrader{fallback: 60}
	svc := newSimulationService(db, grader)
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: start.FirstQuestion.QuestionID,
		TimerID:    start.TimerID,
		AnswerText: "only one answer",
	}); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	_, err = svc.Finish(context.Background(), user.ID, start.SimulationID)
	if !errors.Is(err, util.ErrSimulationIncomplete) {
		t.Fatalf("err = %v, want ErrSimulationIncomplete", err)
	}
	if grader.callCount() != 0 {
		t.Fatalf("grader called %d times before all answers were in", grader.callCount())
	}
}

func TestFinishGradesAndCloses(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	// Scores 70 60 55 40 52 → mean 55.4 → rounds to 55, a pass.
	scores := []int{70, 60, 55, 40, 52}
	grader := &fakeGrader{scoresByText: map[string]int{}}
	for i, s := range scores {
		grader.scoresByText[fmt.Sprintf("answer %d", i)] = s
	}

	svc := newSimulationService(db, grader)
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	i := 0
	answered := map[uint]string{}
	answerAll(t, svc, user.ID, start, func(questionID uint) string {
		text := fmt.Sprintf("answer %d", i)
		answered[questionID] = text
		i++
		return text
	})

	result, err := svc.Finish(context.Background(), user.ID, start.SimulationID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if result.OverallScore != 55 {
		t.Fatalf("overall = %d, want 55", result.OverallScore)
	}
	if !result.Passed {
		t.Fatal("55 is at or above the pass bar, want passed=true")
	}
	if result.PassThreshold != util.PassThreshold || result.AppPassThreshold != util.AppPassThreshold {
		t.Fatalf("thresholds = %d/%d, want %d/%d",
			result.PassThreshold, result.AppPassThreshold, util.PassThreshold, util.AppPassThreshold)
	}
	if len(result.Results) != util.SimulationQuestionCount {
		t.Fatalf("results = %d, want %d", len(result.Results), util.SimulationQuestionCount)
	}
	if grader.callCount() != util.SimulationQuestionCount {
		t.Fatalf("grader called %d times, want %d", grader.callCount(), util.SimulationQuestionCount)
	}

	sim, err := svc.SimulationRepo.FindForUser(start.SimulationID, user.ID)
	if err != nil {
		t.Fatalf("FindForUser: %v", err)
	}
	if sim.Status != model.SimulationCompleted || sim.EndedAt == nil {
		t.Fatalf("simulation not terminal: %+v", sim)
	}
	if sim.OverallScore == nil || *sim.OverallScore != 55 {
		t.Fatalf("persisted overall = %v, want 55", sim.OverallScore)
	}
	if sim.Passed == nil || !*sim.Passed {
		t.Fatal("persisted passed should be true")
	}

	attempts, err := svc.SimulationRepo.ListAttempts(start.SimulationID)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	for _, a := range attempts {
		if a.AIScore == nil {
			t.Fatalf("attempt %d left ungraded", a.ID)
		}
		if want := grader.scoresByText[answered[a.QuestionID]]; *a.AIScore != want {
			t.Fatalf("attempt for question %d scored %d, want %d", a.QuestionID, *a.AIScore, want)
		}
	}

	// The simulation is terminal: no more submissions, no second finish.
	_, err = svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: start.FirstQuestion.QuestionID,
		TimerID:    start.TimerID,
		AnswerText: "late",
	})
	if !errors.Is(err, util.ErrSimulationEnded) {
		t.Fatalf("post-finish submit err = %v, want ErrSimulationEnded", err)
	}
	if _, err := svc.Finish(context.Background(), user.ID, start.SimulationID); !errors.Is(err, util.ErrSimulationEnded) {
		t.Fatalf("second finish err = %v, want ErrSimulationEnded", err)
	}
}

func TestFinishFailingScoreDoesNotPass(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	grader := &fakeGrader{fallback: 42}
	svc := newSimulationService(db, grader)
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	answerAll(t, svc, user.ID, start, func(uint) string { return "a weak answer" })

	result, err := svc.Finish(context.Background(), user.ID, start.SimulationID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if result.OverallScore != 42 || result.Passed {
		t.Fatalf("result = %d/%v, want 42/false", result.OverallScore, result.Passed)
	}
}

func TestFinishGradingFailureLeavesSimulationOpen(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	grader := &fakeGrader{
		fallback:   60,
		errForText: map[string]error{"poisoned": fmt.Errorf("%w: upstream timeout", util.ErrGradingFailed)},
	}
	svc := newSimulationService(db, grader)
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	i := 0
	answerAll(t, svc, user.ID, start, func(uint) string {
		i++
		if i == 3 {
			return "poisoned"
		}
		return fmt.Sprintf("fine answer %d", i)
	})

	_, err = svc.Finish(context.Background(), user.ID, start.SimulationID)
	if !errors.Is(err, util.ErrGradingFailed) {
		t.Fatalf("err = %v, want ErrGradingFailed", err)
	}

	// All-or-nothing: nothing persisted, simulation still running and retryable.
	sim, _ := svc.SimulationRepo.FindForUser(start.SimulationID, user.ID)
	if sim.Status != model.SimulationInProgress || sim.EndedAt != nil {
		t.Fatalf("simulation closed despite grading failure: %+v", sim)
	}
	attempts, _ := svc.SimulationRepo.ListAttempts(start.SimulationID)
	for _, a := range attempts {
		if a.AIScore != nil {
			t.Fatalf("attempt %d partially graded", a.ID)
		}
	}

	// A retry with a healthy grader succeeds on the same simulation.
	svc.Grader = &fakeGrader{fallback: 58}
	result, err := svc.Finish(context.Background(), user.ID, start.SimulationID)
	if err != nil {
		t.Fatalf("retry Finish: %v", err)
	}
	if result.OverallScore != 58 {
		t.Fatalf("retry overall = %d, want 58", result.OverallScore)
	}
}

func TestFailZeroesScore(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	grader := &fakeGrader{fallback: 90}
	svc := newSimulationService(db, grader)
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: start.FirstQuestion.QuestionID,
		TimerID:    start.TimerID,
		AnswerText: "a strong answer that will never be graded",
	}); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if err := svc.Fail(user.ID, start.SimulationID, "time expired"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if grader.callCount() != 0 {
		t.Fatalf("grader consulted %d times on abandon", grader.callCount())
	}

	sim, _ := svc.SimulationRepo.FindForUser(start.SimulationID, user.ID)
	if sim.Status != model.SimulationFailed || sim.EndedAt == nil {
		t.Fatalf("simulation not failed-terminal: %+v", sim)
	}
	if sim.OverallScore == nil || *sim.OverallScore != 0 {
		t.Fatalf("abandoned score = %v, want 0", sim.OverallScore)
	}
	if sim.Passed == nil || *sim.Passed {
		t.Fatal("abandoned simulation must not pass")
	}
	if sim.FailReason != "time expired" {
		t.Fatalf("failReason = %q", sim.FailReason)
	}

	if err := svc.Fail(user.ID, start.SimulationID, "again"); !errors.Is(err, util.ErrSimulationEnded) {
		t.Fatalf("second fail err = %v, want ErrSimulationEnded", err)
	}
}

func TestGetQuestionNavigation(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	seedQuestions(t, db, subject.ID, 5)

	svc := newSimulationService(db, &fakeGrader{fallback: 60})
	start, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sim, _ := svc.SimulationRepo.FindForUser(start.SimulationID, user.ID)
	var frozen []uint
	json.Unmarshal([]byte(sim.QuestionIDs), &frozen)

	first, err := svc.GetQuestion(user.ID, start.SimulationID, frozen[0], 0)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if !first.CanEdit || first.PriorAnswer != "" {
		t.Fatalf("unanswered question should be editable and blank: %+v", first)
	}
	if first.IsLastQuestion || first.NextQuestionID != frozen[1] {
		t.Fatalf("navigation wrong for first question: %+v", first)
	}

	last, err := svc.GetQuestion(user.ID, start.SimulationID, frozen[4], 4)
	if err != nil {
		t.Fatalf("GetQuestion last: %v", err)
	}
	if !last.IsLastQuestion || last.NextQuestionID != 0 {
		t.Fatalf("last question navigation wrong: %+v", last)
	}

	// Index and id must agree with the frozen order.
	if _, err := svc.GetQuestion(user.ID, start.SimulationID, frozen[0], 1); !errors.Is(err, util.ErrQuestionNotInExam) {
		t.Fatalf("mismatched index err = %v, want ErrQuestionNotInExam", err)
	}

	if _, err := svc.SubmitAnswer(user.ID, start.SimulationID, SubmitAnswerRequest{
		QuestionID: frozen[0],
		TimerID:    start.TimerID,
		AnswerText: "the answer of record",
	}); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	again, err := svc.GetQuestion(user.ID, start.SimulationID, frozen[0], 0)
	if err != nil {
		t.Fatalf("GetQuestion after answer: %v", err)
	}
	if again.CanEdit {
		t.Fatal("answered question must be read-only")
	}
	if again.PriorAnswer != "the answer of record" {
		t.Fatalf("priorAnswer = %q", again.PriorAnswer)
	}
}
