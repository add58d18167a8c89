package controller

import (
	"fe1_prep_backend/internal/service"
	"fe1_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService  *service.ContentService
	ProgressService *service.ProgressService
}

func NewContentController(contentService *service.ContentService, progressService *service.ProgressService) *ContentController {
	return &ContentController{
		ContentService:  contentService,
		ProgressService: progressService,
	}
}

// ListSubjects godoc
// @Summary List published subjects
// @Tags content
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Subject}
// @Router /api/subjects [get]
func (c *ContentController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.ContentService.ListSubjects(ctx.Request.Context())
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// GetSubject godoc
// @Summary Get a subject with its published modules and lessons
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path int true "subject id"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response "subject not found"
// @Router /api/subjects/{id} [get]
func (c *ContentController) GetSubject(ctx *gin.Context) {
	subjectID := util.MustParseUint(ctx.Param("id"))
	if subjectID == 0 {
		util.BadRequest(ctx, "invalid subject id")
		return
	}

	subject, err := c.ContentService.GetSubject(subjectID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	progress, err := c.ProgressService.GetSubjectProgress(claims.UserID, subjectID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"subject":  subject,
		"progress": progress,
	})
}

// GetSubjectProgress godoc
// @Summary Get the caller's rolled-up progress for a subject
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "subject id"
// @Success 200 {object} util.Response{data=model.SubjectProgress}
// @Router /api/subjects/{id}/progress [get]
func (c *ContentController) GetSubjectProgress(ctx *gin.Context) {
	subjectID := util.MustParseUint(ctx.Param("id"))
	if subjectID == 0 {
		util.BadRequest(ctx, "invalid subject id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	progress, err := c.ProgressService.GetSubjectProgress(claims.UserID, subjectID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// GetLesson godoc
// @Summary Get a lesson and record the visit
// @Description Fetching a lesson marks it accessed, which creates the progress
// @Description row and touches the module and subject lastAccessedAt.
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson id"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 404 {object} util.Response "lesson not found"
// @Router /api/lessons/{id} [get]
func (c *ContentController) GetLesson(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))
	if lessonID == 0 {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	lesson, err := c.ContentService.GetLesson(lessonID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.ProgressService.RecordLessonAccess(claims.UserID, lessonID); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// ListPodcasts godoc
// @Summary List a subject's published podcast episodes with playback URLs
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path int true "subject id"
// @Success 200 {object} util.Response{data=[]service.PodcastPayload}
// @Router /api/subjects/{id}/podcasts [get]
func (c *ContentController) ListPodcasts(ctx *gin.Context) {
	subjectID := util.MustParseUint(ctx.Param("id"))
	if subjectID == 0 {
		util.BadRequest(ctx, "invalid subject id")
		return
	}

	podcasts, err := c.ContentService.ListPodcasts(ctx.Request.Context(), subjectID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, podcasts)
}

// ListQuestions godoc
// @Summary List a subject's past-paper essay questions
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path int true "subject id"
// @Success 200 {object} util.Response{data=[]model.EssayQuestion}
// @Router /api/subjects/{id}/questions [get]
func (c *ContentController) ListQuestions(ctx *gin.Context) {
	subjectID := util.MustParseUint(ctx.Param("id"))
	if subjectID == 0 {
		util.BadRequest(ctx, "invalid subject id")
		return
	}

	questions, err := c.ContentService.ListQuestionsBySubject(subjectID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}
