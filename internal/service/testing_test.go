package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"fe1_prep_backend/internal/model"
	"fe1_prep_backend/internal/repository"
	"fe1_prep_backend/pkg/database"
	"fe1_prep_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

// newTestDB opens an in-memory sqlite database with the real schema. sqlite
// :memory: lives per connection, so the pool is pinned to a single one.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{Name: "Test Student", Email: "student@example.com", Role: model.Student}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// seedSubjectTree creates one published subject with the given module shapes,
// where each entry is the number of published lessons in that module.
func seedSubjectTree(t *testing.T, db *gorm.DB, lessonsPerModule ...int) (*model.Subject, []model.CourseModule, [][]model.Lesson) {
	t.Helper()

	subject := &model.Subject{Name: "Contract Law", IsPublished: true}
	if err := db.Create(subject).Error; err != nil {
		t.Fatalf("seed subject: %v", err)
	}

	modules := make([]model.CourseModule, 0, len(lessonsPerModule))
	lessons := make([][]model.Lesson, 0, len(lessonsPerModule))
	for i, count := range lessonsPerModule {
		module := model.CourseModule{
			SubjectID:   subject.ID,
			Title:       fmt.Sprintf("Module %d", i+1),
			Order:       i,
			IsPublished: true,
		}
		if err := db.Create(&module).Error; err != nil {
			t.Fatalf("seed module: %v", err)
		}

		moduleLessons := make([]model.Lesson, 0, count)
		for j := 0; j < count; j++ {
			duration := 600
			lesson := model.Lesson{
				ModuleID:             module.ID,
				Title:                fmt.Sprintf("Lesson %d.%d", i+1, j+1),
				VideoDurationSeconds: &duration,
				Order:                j,
				IsPublished:          true,
			}
			if err := db.Create(&lesson).Error; err != nil {
				t.Fatalf("seed lesson: %v", err)
			}
			moduleLessons = append(moduleLessons, lesson)
		}
		modules = append(modules, module)
		lessons = append(lessons, moduleLessons)
	}
	return subject, modules, lessons
}

func seedQuestions(t *testing.T, db *gorm.DB, subjectID uint, count int) []model.EssayQuestion {
	t.Helper()

	questions := make([]model.EssayQuestion, 0, count)
	for i := 0; i < count; i++ {
		year := 2020 + i
		q := model.EssayQuestion{
			SubjectID:    subjectID,
			QuestionText: fmt.Sprintf("Discuss topic %d with reference to case law.", i+1),
			Year:         &year,
			PaperNumber:  1,
		}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("seed question: %v", err)
		}
		questions = append(questions, q)
	}
	return questions
}

func newProgressService(db *gorm.DB) *ProgressService {
	return NewProgressService(
		repository.NewProgressRepository(db),
		repository.NewLessonRepository(db),
		repository.NewSubjectRepository(db),
		nil,
	)
}

// fakeGrader returns canned verdicts keyed by answer text, with a fallback
// score for everything else. It records how many times it was called.
type fakeGrader struct {
	mu           sync.Mutex
	calls        int
	fallback     int
	scoresByText map[string]int
	errForText   map[string]error
}

func (g *fakeGrader) GradeEssay(ctx context.Context, input GradeInput) (*GradeResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if err, ok := g.errForText[input.AnswerText]; ok {
		return nil, err
	}

	score := g.fallback
	if s, ok := g.scoresByText[input.AnswerText]; ok {
		score = s
	}
	return &GradeResult{
		Score:        score,
		Band:         "Pass",
		Feedback:     "Sound treatment of the main authorities.",
		Strengths:    []string{"structure"},
		Improvements: []string{"cite more recent cases"},
		SampleAnswer: "Outline of the expected answer.",
		TokensUsed:   400,
	}, nil
}

func (g *fakeGrader) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
