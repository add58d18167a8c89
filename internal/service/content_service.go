package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fe1_prep_backend/internal/model"
	"fe1_prep_backend/internal/repository"
	"fe1_prep_backend/internal/util"
	"fe1_prep_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const subjectListCacheKey = "content:subjects"

// ContentService serves the published catalogue (subjects, modules, lessons,
// podcasts, past-paper questions) and handles the admin side: creating content
// and attaching uploaded media.
type ContentService struct {
	SubjectRepo  *repository.SubjectRepository
	LessonRepo   *repository.LessonRepository
	PodcastRepo  *repository.PodcastRepository
	QuestionRepo *repository.QuestionRepository
	Storage      *StorageService
	Redis        *redis.Client
}

func NewContentService(
	subjectRepo *repository.SubjectRepository,
	lessonRepo *repository.LessonRepository,
	podcastRepo *repository.PodcastRepository,
	questionRepo *repository.QuestionRepository,
	storage *StorageService,
	rdb *redis.Client,
) *ContentService {
	return &ContentService{
		SubjectRepo:  subjectRepo,
		LessonRepo:   lessonRepo,
		PodcastRepo:  podcastRepo,
		QuestionRepo: questionRepo,
		Storage:      storage,
		Redis:        rdb,
	}
}

// ListSubjects returns the published subject list through a short redis cache.
// The catalogue changes rarely; staleness of a few minutes is acceptable.
func (s *ContentService) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, subjectListCacheKey).Result(); err == nil {
			var subjects []model.Subject
			if err := json.Unmarshal([]byte(cached), &subjects); err == nil {
				return subjects, nil
			}
		}
	}

	subjects, err := s.SubjectRepo.ListPublished()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(subjects); err == nil {
			s.Redis.Set(ctx, subjectListCacheKey, data, util.SubjectCacheTTL)
		}
	}
	return subjects, nil
}

func (s *ContentService) GetSubject(id uint) (*model.Subject, error) {
	subject, err := s.SubjectRepo.FindByIDWithContent(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}
	if !subject.IsPublished {
		return nil, util.ErrSubjectNotFound
	}
	return subject, nil
}

func (s *ContentService) GetLesson(id uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	if !lesson.IsPublished {
		return nil, util.ErrLessonNotFound
	}
	return lesson, nil
}

type PodcastPayload struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationSeconds int    `json:"durationSeconds"`
	AudioURL        string `json:"audioUrl"`
}

// ListPodcasts returns the subject's published episodes with playback URLs.
// On minio storage the URL is presigned and short-lived; an episode whose URL
// cannot be signed is skipped rather than failing the whole list.
func (s *ContentService) ListPodcasts(ctx context.Context, subjectID uint) ([]PodcastPayload, error) {
	if _, err := s.SubjectRepo.FindByID(subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}

	podcasts, err := s.PodcastRepo.ListPublishedBySubject(subjectID)
	if err != nil {
		return nil, err
	}

	payloads := make([]PodcastPayload, 0, len(podcasts))
	for _, p := range podcasts {
		audioURL, err := s.Storage.GetURL(ctx, p.AudioKey, time.Hour)
		if err != nil {
			logger.Log.Warn("failed to sign podcast audio URL",
				zap.Uint("podcastId", p.ID), zap.Error(err))
			continue
		}
		payloads = append(payloads, PodcastPayload{
			ID:              p.ID,
			Title:           p.Title,
			Description:     p.Description,
			DurationSeconds: p.DurationSeconds,
			AudioURL:        audioURL,
		})
	}
	return payloads, nil
}

func (s *ContentService) ListQuestionsBySubject(subjectID uint) ([]model.EssayQuestion, error) {
	if _, err := s.SubjectRepo.FindByID(subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}
	return s.QuestionRepo.ListBySubject(subjectID)
}

type CreateSubjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	IsPublished bool   `json:"isPublished"`
}

func (s *ContentService) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*model.Subject, error) {
	subject := &model.Subject{
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
		IsPublished: req.IsPublished,
	}
	if err := s.SubjectRepo.Create(subject); err != nil {
		return nil, err
	}
	s.invalidateSubjectListCache(ctx)
	return subject, nil
}

type CreateModuleRequest struct {
	SubjectID   uint   `json:"subjectId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	IsPublished bool   `json:"isPublished"`
}

func (s *ContentService) CreateModule(req CreateModuleRequest) (*model.CourseModule, error) {
	if _, err := s.SubjectRepo.FindByID(req.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}
	module := &model.CourseModule{
		SubjectID:   req.SubjectID,
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
		IsPublished: req.IsPublished,
	}
	if err := s.SubjectRepo.CreateModule(module); err != nil {
		return nil, err
	}
	return module, nil
}

type CreateLessonRequest struct {
	ModuleID    uint   `json:"moduleId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content"`
	Order       int    `json:"order"`
	IsPublished bool   `json:"isPublished"`
}

func (s *ContentService) CreateLesson(req CreateLessonRequest) (*model.Lesson, error) {
	if _, err := s.SubjectRepo.FindModuleByID(req.ModuleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrModuleNotFound
		}
		return nil, err
	}
	lesson := &model.Lesson{
		ModuleID:    req.ModuleID,
		Title:       req.Title,
		Content:     req.Content,
		Order:       req.Order,
		IsPublished: req.IsPublished,
	}
	if err := s.LessonRepo.Create(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

type CreateQuestionRequest struct {
	SubjectID    uint   `json:"subjectId" binding:"required"`
	QuestionText string `json:"questionText" binding:"required"`
	Year         *int   `json:"year"`
	PaperNumber  int    `json:"paperNumber"`
}

func (s *ContentService) CreateQuestion(req CreateQuestionRequest) (*model.EssayQuestion, error) {
	if _, err := s.SubjectRepo.FindByID(req.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}
	question := &model.EssayQuestion{
		SubjectID:    req.SubjectID,
		QuestionText: req.QuestionText,
		Year:         req.Year,
		PaperNumber:  req.PaperNumber,
	}
	if err := s.QuestionRepo.Create(question); err != nil {
		return nil, err
	}
	return question, nil
}

// UploadLessonVideo stores the video, probes its duration and attaches both to
// the lesson. A failed probe keeps the upload but leaves the duration null, so
// the lesson stays ineligible for watch-time completion.
func (s *ContentService) UploadLessonVideo(ctx context.Context, lessonID uint, file *multipart.FileHeader) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !containsString(util.AllowedVideoExtensions, ext) {
		return nil, fmt.Errorf("unsupported video format %q", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// Probing needs a local path, so spool to a temp file first.
	tmp, err := os.CreateTemp("", "lesson-video-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("videos/%s%s", uuid.New().String(), ext)
	videoURL, err := s.Storage.Upload(ctx, filename, tmp, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	lesson.VideoURL = videoURL
	if info, err := util.ProbeMediaDuration(tmp.Name()); err != nil {
		logger.Log.Warn("video duration probe failed, leaving duration unset",
			zap.Uint("lessonId", lessonID), zap.Error(err))
		lesson.VideoDurationSeconds = nil
	} else {
		lesson.VideoDurationSeconds = &info.DurationSeconds
	}

	if err := s.LessonRepo.Save(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

type CreatePodcastRequest struct {
	SubjectID   uint
	Title       string
	Description string
	IsPublished bool
}

// UploadPodcast stores the episode audio and creates the podcast row with the
// probed duration.
func (s *ContentService) UploadPodcast(ctx context.Context, req CreatePodcastRequest, file *multipart.FileHeader) (*model.Podcast, error) {
	if _, err := s.SubjectRepo.FindByID(req.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !containsString(util.AllowedAudioExtensions, ext) {
		return nil, fmt.Errorf("unsupported audio format %q", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "podcast-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	audioKey := fmt.Sprintf("podcasts/%s%s", uuid.New().String(), ext)
	if _, err := s.Storage.Upload(ctx, audioKey, tmp, file.Size, file.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	duration := 0
	if info, err := util.ProbeMediaDuration(tmp.Name()); err != nil {
		logger.Log.Warn("podcast duration probe failed",
			zap.String("audioKey", audioKey), zap.Error(err))
	} else {
		duration = info.DurationSeconds
	}

	podcast := &model.Podcast{
		SubjectID:       req.SubjectID,
		Title:           req.Title,
		Description:     req.Description,
		AudioKey:        audioKey,
		DurationSeconds: duration,
		IsPublished:     req.IsPublished,
	}
	if err := s.PodcastRepo.Create(podcast); err != nil {
		return nil, err
	}
	return podcast, nil
}

func (s *ContentService) invalidateSubjectListCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, subjectListCacheKey).Err(); err != nil {
		logger.Log.Warn("failed to invalidate subject list cache", zap.Error(err))
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
