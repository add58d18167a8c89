package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"fe1_prep_backend/internal/model"
	"fe1_prep_backend/internal/repository"
	"fe1_prep_backend/internal/util"
	"fe1_prep_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService owns the lesson → module → subject rollup. Every recompute
// re-reads current child state rather than incrementing, so repeated or
// interleaved cascades converge on the same result.
type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	LessonRepo   *repository.LessonRepository
	SubjectRepo  *repository.SubjectRepository
	Redis        *redis.Client
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	lessonRepo *repository.LessonRepository,
	subjectRepo *repository.SubjectRepository,
	rdb *redis.Client,
) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		LessonRepo:   lessonRepo,
		SubjectRepo:  subjectRepo,
		Redis:        rdb,
	}
}

type VideoProgressRequest struct {
	CurrentTimeSeconds int `json:"currentTimeSeconds" binding:"min=0"`
	TimeSpentSeconds   int `json:"timeSpentSeconds"`
}

type VideoProgressResult struct {
	IsCompleted    bool `json:"isCompleted"`
	JustCompleted  bool `json:"justCompleted"`
	WatchedSeconds int  `json:"watchedSeconds"`
}

// RecordLessonAccess marks a lesson as visited: it creates the LessonProgress
// row if absent and touches the ancestors' lastAccessedAt. Percentages are
// untouched. Safe to call on every lesson view.
func (s *ProgressService) RecordLessonAccess(userID, lessonID uint) error {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrLessonNotFound
		}
		return err
	}

	module, err := s.SubjectRepo.FindModuleByID(lesson.ModuleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrModuleNotFound
		}
		return err
	}

	if err := s.ProgressRepo.EnsureLessonProgress(userID, lessonID); err != nil {
		return err
	}

	now := time.Now()
	if err := s.ProgressRepo.TouchModuleLastAccessed(userID, module.ID, now); err != nil {
		return err
	}
	return s.ProgressRepo.TouchSubjectLastAccessed(userID, module.SubjectID, now)
}

// RecordVideoProgress stores a watch-position ping. A lesson completes when
// 90% of the video has been watched; a lesson with no known duration never
// auto-completes. Only a false→true completion transition cascades a module
// and subject recompute.
func (s *ProgressService) RecordVideoProgress(userID, lessonID uint, req VideoProgressRequest) (*VideoProgressResult, error) {
	if req.CurrentTimeSeconds < 0 {
		return nil, util.ErrInvalidWatchTime
	}

	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	completed := false
	if lesson.VideoDurationSeconds != nil {
		threshold := float64(*lesson.VideoDurationSeconds) * util.VideoCompletionRatio
		completed = float64(req.CurrentTimeSeconds) >= threshold
	}

	wasCompleted := false
	if existing, err := s.ProgressRepo.GetLessonProgress(userID, lessonID); err == nil {
		wasCompleted = existing.IsCompleted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	if err := s.ProgressRepo.UpsertVideoProgress(userID, lessonID, req.CurrentTimeSeconds, req.TimeSpentSeconds, completed, now); err != nil {
		return nil, err
	}

	justCompleted := completed && !wasCompleted
	if justCompleted {
		module, err := s.SubjectRepo.FindModuleByID(lesson.ModuleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrModuleNotFound
			}
			return nil, err
		}
		if err := s.RecalculateModuleProgress(userID, module.ID); err != nil {
			return nil, err
		}
		if err := s.RecalculateSubjectProgress(userID, module.SubjectID); err != nil {
			return nil, err
		}
	}

	return &VideoProgressResult{
		IsCompleted:    completed || wasCompleted,
		JustCompleted:  justCompleted,
		WatchedSeconds: req.CurrentTimeSeconds,
	}, nil
}

// RecalculateModuleProgress rebuilds the module row from its lessons. Idempotent:
// running it twice against unchanged lessons writes the same values.
func (s *ProgressService) RecalculateModuleProgress(userID, moduleID uint) error {
	if _, err := s.SubjectRepo.FindModuleByID(moduleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrModuleNotFound
		}
		return err
	}

	total, err := s.LessonRepo.CountPublishedByModule(moduleID)
	if err != nil {
		return err
	}
	completed, err := s.ProgressRepo.CountCompletedLessons(userID, moduleID)
	if err != nil {
		return err
	}
	started, err := s.ProgressRepo.CountStartedLessons(userID, moduleID)
	if err != nil {
		return err
	}

	percent := 0.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}

	mp := &model.ModuleProgress{
		UserID:           userID,
		ModuleID:         moduleID,
		CompletedLessons: int(completed),
		TotalLessons:     int(total),
		ProgressPercent:  percent,
		Status:           deriveStatus(total > 0 && completed == total, started > 0 || completed > 0),
	}
	return s.ProgressRepo.UpsertModuleProgress(mp)
}

// RecalculateSubjectProgress rebuilds the subject row from freshly read module
// progress. The percent is the unweighted mean of module percentages; modules
// with no progress row count as zero.
func (s *ProgressService) RecalculateSubjectProgress(userID, subjectID uint) error {
	if _, err := s.SubjectRepo.FindByID(subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrSubjectNotFound
		}
		return err
	}

	modules, err := s.SubjectRepo.ListModulesBySubject(subjectID)
	if err != nil {
		return err
	}

	moduleIDs := make([]uint, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
	}

	progressByModule := map[uint]model.ModuleProgress{}
	if len(moduleIDs) > 0 {
		progressByModule, err = s.ProgressRepo.GetModuleProgressMap(userID, moduleIDs)
		if err != nil {
			return err
		}
	}

	var percentSum float64
	completedCount := 0
	anyProgress := false
	for _, m := range modules {
		mp, ok := progressByModule[m.ID]
		if !ok {
			continue
		}
		percentSum += mp.ProgressPercent
		if mp.Status == model.StatusCompleted {
			completedCount++
		}
		if mp.ProgressPercent > 0 || mp.Status == model.StatusCompleted {
			anyProgress = true
		}
	}

	percent := 0.0
	if len(modules) > 0 {
		percent = percentSum / float64(len(modules))
	}

	totalTime, err := s.ProgressRepo.SumLessonTime(userID, subjectID)
	if err != nil {
		return err
	}

	sp := &model.SubjectProgress{
		UserID:           userID,
		SubjectID:        subjectID,
		ProgressPercent:  math.Round(percent*100) / 100,
		Status:           deriveStatus(len(modules) > 0 && completedCount == len(modules), anyProgress),
		TotalTimeSeconds: int(totalTime),
	}
	if err := s.ProgressRepo.UpsertSubjectProgress(sp); err != nil {
		return err
	}

	s.invalidateSubjectCache(userID, subjectID)
	return nil
}

// GetSubjectProgress reads through the redis snapshot cache.
func (s *ProgressService) GetSubjectProgress(userID, subjectID uint) (*model.SubjectProgress, error) {
	if _, err := s.SubjectRepo.FindByID(subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}

	ctx := context.Background()
	key := subjectProgressCacheKey(userID, subjectID)

	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var sp model.SubjectProgress
			if err := json.Unmarshal([]byte(cached), &sp); err == nil {
				return &sp, nil
			}
		}
	}

	sp, err := s.ProgressRepo.GetSubjectProgress(userID, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No progress yet is a valid zero state, not an error.
			return &model.SubjectProgress{
				UserID:    userID,
				SubjectID: subjectID,
				Status:    model.StatusNotStarted,
			}, nil
		}
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(sp); err == nil {
			s.Redis.Set(ctx, key, data, util.ProgressCacheTTL)
		}
	}
	return sp, nil
}

func (s *ProgressService) invalidateSubjectCache(userID, subjectID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), subjectProgressCacheKey(userID, subjectID)).Err(); err != nil {
		logger.Log.Warn("failed to invalidate subject progress cache",
			zap.Uint("userId", userID), zap.Uint("subjectId", subjectID), zap.Error(err))
	}
}

func subjectProgressCacheKey(userID, subjectID uint) string {
	return fmt.Sprintf("progress:subject:%d:%d", userID, subjectID)
}

// deriveStatus applies the shared rollup status rule: COMPLETED iff all
// children complete and there is at least one; IN_PROGRESS iff anything has
// moved; otherwise NOT_STARTED.
func deriveStatus(allCompleted, anyProgress bool) model.ProgressStatus {
	switch {
	case allCompleted:
		return model.StatusCompleted
	case anyProgress:
		return model.StatusInProgress
	default:
		return model.StatusNotStarted
	}
}
