package repository

import (
	"time"

	"fe1_prep_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) GetLessonProgress(userID, lessonID uint) (*model.LessonProgress, error) {
	var lp model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&lp).Error
	if err != nil {
		return nil, err
	}
	return &lp, nil
}

// EnsureLessonProgress creates the row on first lesson view. Repeat calls are
// a no-op thanks to the (user_id, lesson_id) unique index.
func (r *ProgressRepository) EnsureLessonProgress(userID, lessonID uint) error {
	lp := model.LessonProgress{UserID: userID, LessonID: lessonID}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoNothing: true,
	}).Create(&lp).Error
}

// UpsertVideoProgress writes the new watch position in a single conditional
// write. Completion only ever flips false→true here; a lower watch time never
// clears is_completed or completed_at.
func (r *ProgressRepository) UpsertVideoProgress(userID, lessonID uint, watchedSeconds, timeSpentDelta int, completed bool, now time.Time) error {
	assignments := map[string]interface{}{
		"video_watched_seconds": watchedSeconds,
		"time_spent_seconds":    gorm.Expr("time_spent_seconds + ?", timeSpentDelta),
		"updated_at":            now,
	}
	if completed {
		assignments["is_completed"] = true
		assignments["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", now)
	}

	lp := model.LessonProgress{
		UserID:              userID,
		LessonID:            lessonID,
		VideoWatchedSeconds: watchedSeconds,
		TimeSpentSeconds:    timeSpentDelta,
		IsCompleted:         completed,
	}
	if completed {
		lp.CompletedAt = &now
	}

	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&lp).Error
}

func (r *ProgressRepository) CountCompletedLessons(userID, moduleID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.user_id = ? AND lessons.module_id = ? AND lesson_progresses.is_completed = ?",
			userID, moduleID, true).
		Count(&count).Error
	return count, err
}

// CountStartedLessons counts lessons with any progress signal at all; it feeds
// the IN_PROGRESS status decision.
func (r *ProgressRepository) CountStartedLessons(userID, moduleID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.user_id = ? AND lessons.module_id = ?", userID, moduleID).
		Where("lesson_progresses.video_watched_seconds > 0 OR lesson_progresses.is_completed = ?", true).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) UpsertModuleProgress(mp *model.ModuleProgress) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed_lessons", "total_lessons", "progress_percent", "status", "updated_at",
		}),
	}).Create(mp).Error
}

func (r *ProgressRepository) GetModuleProgress(userID, moduleID uint) (*model.ModuleProgress, error) {
	var mp model.ModuleProgress
	err := r.DB.Where("user_id = ? AND module_id = ?", userID, moduleID).First(&mp).Error
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

func (r *ProgressRepository) GetModuleProgressMap(userID uint, moduleIDs []uint) (map[uint]model.ModuleProgress, error) {
	var rows []model.ModuleProgress
	err := r.DB.Where("user_id = ? AND module_id IN ?", userID, moduleIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]model.ModuleProgress, len(rows))
	for _, row := range rows {
		out[row.ModuleID] = row
	}
	return out, nil
}

func (r *ProgressRepository) TouchModuleLastAccessed(userID, moduleID uint, now time.Time) error {
	mp := model.ModuleProgress{UserID: userID, ModuleID: moduleID, LastAccessedAt: &now}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_accessed_at": now}),
	}).Create(&mp).Error
}

func (r *ProgressRepository) UpsertSubjectProgress(sp *model.SubjectProgress) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"progress_percent", "status", "total_time_seconds", "updated_at",
		}),
	}).Create(sp).Error
}

func (r *ProgressRepository) GetSubjectProgress(userID, subjectID uint) (*model.SubjectProgress, error) {
	var sp model.SubjectProgress
	err := r.DB.Where("user_id = ? AND subject_id = ?", userID, subjectID).First(&sp).Error
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *ProgressRepository) TouchSubjectLastAccessed(userID, subjectID uint, now time.Time) error {
	sp := model.SubjectProgress{UserID: userID, SubjectID: subjectID, LastAccessedAt: &now}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "subject_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_accessed_at": now}),
	}).Create(&sp).Error
}

// SumLessonTime totals the user's time across every lesson in the subject.
func (r *ProgressRepository) SumLessonTime(userID, subjectID uint) (int64, error) {
	var total int64
	err := r.DB.Model(&model.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id").
		Where("lesson_progresses.user_id = ? AND course_modules.subject_id = ?", userID, subjectID).
		Select("COALESCE(SUM(lesson_progresses.time_spent_seconds), 0)").
		Scan(&total).Error
	return total, err
}
