package service

import (
	"errors"
	"testing"

	"fe1_prep_backend/internal/model"
	"fe1_prep_backend/internal/util"
)

func TestRecordVideoProgressBelowThreshold(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	_, _, lessons := seedSubjectTree(t, db, 2)
	svc := newProgressService(db)

	lesson := lessons[0][0] // 600s video, completes at 540s

	result, err := svc.RecordVideoProgress(user.ID, lesson.ID, VideoProgressRequest{
		CurrentTimeSeconds: 300,
		TimeSpentSeconds:   300,
	})
	if err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}
	if result.IsCompleted || result.JustCompleted {
		t.Fatalf("lesson should not complete at 50%% watched, got %+v", result)
	}

	lp, err := svc.ProgressRepo.GetLessonProgress(user.ID, lesson.ID)
	if err != nil {
		t.Fatalf("GetLessonProgress: %v", err)
	}
	if lp.IsCompleted {
		t.Fatal("stored progress should not be completed")
	}
	if lp.VideoWatchedSeconds != 300 {
		t.Fatalf("watched seconds = %d, want 300", lp.VideoWatchedSeconds)
	}

	// One second shy of the 90% mark is still below the threshold.
	result, err = svc.RecordVideoProgress(user.ID, lesson.ID, VideoProgressRequest{
		CurrentTimeSeconds: 539,
		TimeSpentSeconds:   239,
	})
	if err != nil {
		t.Fatalf("RecordVideoProgress at 539s: %v", err)
	}
	if result.IsCompleted || result.JustCompleted {
		t.Fatalf("539 of 600 seconds must not complete, got %+v", result)
	}
}

func TestRecordVideoProgressCompletionCascades(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, modules, lessons := seedSubjectTree(t, db, 2, 1)
	svc := newProgressService(db)

	// Complete one of the first module's two lessons: 540s is the 90% mark.
	result, err := svc.RecordVideoProgress(user.ID, lessons[0][0].ID, VideoProgressRequest{
		CurrentTimeSeconds: 540,
		TimeSpentSeconds:   540,
	})
	if err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}
	if !result.JustCompleted {
		t.Fatal("expected completion at the 90% mark")
	}

	mp, err := svc.ProgressRepo.GetModuleProgress(user.ID, modules[0].ID)
	if err != nil {
		t.Fatalf("GetModuleProgress: %v", err)
	}
	if mp.CompletedLessons != 1 || mp.TotalLessons != 2 {
		t.Fatalf("module counts = %d/%d, want 1/2", mp.CompletedLessons, mp.TotalLessons)
	}
	if mp.ProgressPercent != 50 {
		t.Fatalf("module percent = %v, want 50", mp.ProgressPercent)
	}
	if mp.Status != model.StatusInProgress {
		t.Fatalf("module status = %s, want IN_PROGRESS", mp.Status)
	}

	// Subject percent is the unweighted mean: (50 + 0) / 2 modules.
	sp, err := svc.ProgressRepo.GetSubjectProgress(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("GetSubjectProgress: %v", err)
	}
	if sp.ProgressPercent != 25 {
		t.Fatalf("subject percent = %v, want 25", sp.ProgressPercent)
	}
	if sp.Status != model.StatusInProgress {
		t.Fatalf("subject status = %s, want IN_PROGRESS", sp.Status)
	}
	if sp.TotalTimeSeconds != 540 {
		t.Fatalf("subject total time = %d, want 540", sp.TotalTimeSeconds)
	}
}

func TestSubjectPercentIsUnweightedModuleMean(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, lessons := seedSubjectTree(t, db, 1, 2, 1)
	svc := newProgressService(db)

	// Module percents 100, 50 and 0. Lesson counts differ on purpose: the
	// subject averages module percentages, not lessons.
	if _, err := svc.RecordVideoProgress(user.ID, lessons[0][0].ID, VideoProgressRequest{
		CurrentTimeSeconds: 600, TimeSpentSeconds: 600,
	}); err != nil {
		t.Fatalf("RecordVideoProgress module 1: %v", err)
	}
	if _, err := svc.RecordVideoProgress(user.ID, lessons[1][0].ID, VideoProgressRequest{
		CurrentTimeSeconds: 600, TimeSpentSeconds: 600,
	}); err != nil {
		t.Fatalf("RecordVideoProgress module 2: %v", err)
	}

	sp, err := svc.ProgressRepo.GetSubjectProgress(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("GetSubjectProgress: %v", err)
	}
	if sp.ProgressPercent != 50 {
		t.Fatalf("subject percent = %v, want (100+50+0)/3 = 50", sp.ProgressPercent)
	}
	if sp.Status != model.StatusInProgress {
		t.Fatalf("subject status = %s, want IN_PROGRESS", sp.Status)
	}
}

func TestRecordVideoProgressFullCompletion(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, modules, lessons := seedSubjectTree(t, db, 1, 1)
	svc := newProgressService(db)

	for _, moduleLessons := range lessons {
		for _, lesson := range moduleLessons {
			if _, err := svc.RecordVideoProgress(user.ID, lesson.ID, VideoProgressRequest{
				CurrentTimeSeconds: 600,
				TimeSpentSeconds:   600,
			}); err != nil {
				t.Fatalf("RecordVideoProgress: %v", err)
			}
		}
	}

	for _, module := range modules {
		mp, err := svc.ProgressRepo.GetModuleProgress(user.ID, module.ID)
		if err != nil {
			t.Fatalf("GetModuleProgress: %v", err)
		}
		if mp.Status != model.StatusCompleted || mp.ProgressPercent != 100 {
			t.Fatalf("module %d not completed: %+v", module.ID, mp)
		}
	}

	sp, err := svc.ProgressRepo.GetSubjectProgress(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("GetSubjectProgress: %v", err)
	}
	if sp.Status != model.StatusCompleted || sp.ProgressPercent != 100 {
		t.Fatalf("subject not completed: %+v", sp)
	}
}

func TestRecordVideoProgressCompletionIsMonotonic(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	_, _, lessons := seedSubjectTree(t, db, 1)
	svc := newProgressService(db)

	lesson := lessons[0][0]
	if _, err := svc.RecordVideoProgress(user.ID, lesson.ID, VideoProgressRequest{
		CurrentTimeSeconds: 600, TimeSpentSeconds: 600,
	}); err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}

	// Rewind to the start: completion must survive.
	result, err := svc.RecordVideoProgress(user.ID, lesson.ID, VideoProgressRequest{
		CurrentTimeSeconds: 10, TimeSpentSeconds: 10,
	})
	if err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}
	if !result.IsCompleted {
		t.Fatal("completion should not be reverted by a lower watch position")
	}
	if result.JustCompleted {
		t.Fatal("a repeat ping must not report a fresh completion")
	}

	lp, err := svc.ProgressRepo.GetLessonProgress(user.ID, lesson.ID)
	if err != nil {
		t.Fatalf("GetLessonProgress: %v", err)
	}
	if !lp.IsCompleted || lp.CompletedAt == nil {
		t.Fatalf("stored completion lost: %+v", lp)
	}
	if lp.TimeSpentSeconds != 610 {
		t.Fatalf("time spent = %d, want accumulated 610", lp.TimeSpentSeconds)
	}
}

func TestRecordVideoProgressNullDurationNeverCompletes(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	_, modules, _ := seedSubjectTree(t, db, 0)
	svc := newProgressService(db)

	lesson := model.Lesson{ModuleID: modules[0].ID, Title: "Unprobed", IsPublished: true}
	if err := db.Create(&lesson).Error; err != nil {
		t.Fatalf("seed lesson: %v", err)
	}

	result, err := svc.RecordVideoProgress(user.ID, lesson.ID, VideoProgressRequest{
		CurrentTimeSeconds: 999999,
		TimeSpentSeconds:   100,
	})
	if err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}
	if result.IsCompleted || result.JustCompleted {
		t.Fatal("lesson with unknown duration must never auto-complete")
	}
}

func TestRecordVideoProgressRejectsNegativeTime(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	_, _, lessons := seedSubjectTree(t, db, 1)
	svc := newProgressService(db)

	_, err := svc.RecordVideoProgress(user.ID, lessons[0][0].ID, VideoProgressRequest{
		CurrentTimeSeconds: -5,
	})
	if !errors.Is(err, util.ErrInvalidWatchTime) {
		t.Fatalf("err = %v, want ErrInvalidWatchTime", err)
	}
}

func TestRecordVideoProgressUnknownLesson(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	svc := newProgressService(db)

	_, err := svc.RecordVideoProgress(user.ID, 9999, VideoProgressRequest{CurrentTimeSeconds: 10})
	if !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("err = %v, want ErrLessonNotFound", err)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, modules, lessons := seedSubjectTree(t, db, 2)
	svc := newProgressService(db)

	if _, err := svc.RecordVideoProgress(user.ID, lessons[0][0].ID, VideoProgressRequest{
		CurrentTimeSeconds: 600, TimeSpentSeconds: 600,
	}); err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.RecalculateModuleProgress(user.ID, modules[0].ID); err != nil {
			t.Fatalf("RecalculateModuleProgress: %v", err)
		}
		if err := svc.RecalculateSubjectProgress(user.ID, subject.ID); err != nil {
			t.Fatalf("RecalculateSubjectProgress: %v", err)
		}
	}

	mp, err := svc.ProgressRepo.GetModuleProgress(user.ID, modules[0].ID)
	if err != nil {
		t.Fatalf("GetModuleProgress: %v", err)
	}
	if mp.CompletedLessons != 1 || mp.ProgressPercent != 50 {
		t.Fatalf("repeated recompute drifted: %+v", mp)
	}

	var moduleRows, subjectRows int64
	db.Model(&model.ModuleProgress{}).Where("user_id = ?", user.ID).Count(&moduleRows)
	db.Model(&model.SubjectProgress{}).Where("user_id = ?", user.ID).Count(&subjectRows)
	if moduleRows != 1 || subjectRows != 1 {
		t.Fatalf("recompute created duplicate rows: modules=%d subjects=%d", moduleRows, subjectRows)
	}
}

func TestRecordLessonAccessTouchesAncestors(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, modules, lessons := seedSubjectTree(t, db, 1)
	svc := newProgressService(db)

	if err := svc.RecordLessonAccess(user.ID, lessons[0][0].ID); err != nil {
		t.Fatalf("RecordLessonAccess: %v", err)
	}

	mp, err := svc.ProgressRepo.GetModuleProgress(user.ID, modules[0].ID)
	if err != nil {
		t.Fatalf("GetModuleProgress: %v", err)
	}
	if mp.LastAccessedAt == nil {
		t.Fatal("module lastAccessedAt not set")
	}
	if mp.Status != model.StatusNotStarted {
		t.Fatalf("access alone must not advance status, got %s", mp.Status)
	}

	sp, err := svc.ProgressRepo.GetSubjectProgress(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("GetSubjectProgress: %v", err)
	}
	if sp.LastAccessedAt == nil {
		t.Fatal("subject lastAccessedAt not set")
	}
	if sp.ProgressPercent != 0 {
		t.Fatalf("access alone must not advance percent, got %v", sp.ProgressPercent)
	}

	// Repeat access is a no-op for progress rows.
	if err := svc.RecordLessonAccess(user.ID, lessons[0][0].ID); err != nil {
		t.Fatalf("repeat RecordLessonAccess: %v", err)
	}
	var rows int64
	db.Model(&model.LessonProgress{}).Where("user_id = ?", user.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("lesson progress rows = %d, want 1", rows)
	}
}

func TestGetSubjectProgressZeroState(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	subject, _, _ := seedSubjectTree(t, db, 1)
	svc := newProgressService(db)

	sp, err := svc.GetSubjectProgress(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("GetSubjectProgress: %v", err)
	}
	if sp.Status != model.StatusNotStarted || sp.ProgressPercent != 0 {
		t.Fatalf("zero state = %+v, want NOT_STARTED/0", sp)
	}

	if _, err := svc.GetSubjectProgress(user.ID, 9999); !errors.Is(err, util.ErrSubjectNotFound) {
		t.Fatalf("unknown subject err = %v, want ErrSubjectNotFound", err)
	}
}
