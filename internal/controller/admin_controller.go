package controller

import (
	"fe1_prep_backend/internal/service"
	"fe1_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController owns the content-authoring surface. Every route behind it
// requires the admin role.
type AdminController struct {
	ContentService *service.ContentService
}

func NewAdminController(contentService *service.ContentService) *AdminController {
	return &AdminController{ContentService: contentService}
}

// CreateSubject godoc
// @Summary Create a subject
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateSubjectRequest true "subject"
// @Success 201 {object} util.Response{data=model.Subject}
// @Router /api/admin/subjects [post]
func (c *AdminController) CreateSubject(ctx *gin.Context) {
	var req service.CreateSubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	subject, err := c.ContentService.CreateSubject(ctx.Request.Context(), req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// CreateModule godoc
// @Summary Create a module under a subject
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateModuleRequest true "module"
// @Success 201 {object} util.Response{data=model.CourseModule}
// @Router /api/admin/modules [post]
func (c *AdminController) CreateModule(ctx *gin.Context) {
	var req service.CreateModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.ContentService.CreateModule(req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// CreateLesson godoc
// @Summary Create a lesson under a module
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateLessonRequest true "lesson"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/admin/lessons [post]
func (c *AdminController) CreateLesson(ctx *gin.Context) {
	var req service.CreateLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.ContentService.CreateLesson(req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// CreateQuestion godoc
// @Summary Create a past-paper essay question
// @Description Questions without a year are practice-only; they never enter
// @Description the mock exam pool.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateQuestionRequest true "question"
// @Success 201 {object} util.Response{data=model.EssayQuestion}
// @Router /api/admin/questions [post]
func (c *AdminController) CreateQuestion(ctx *gin.Context) {
	var req service.CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.ContentService.CreateQuestion(req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// UploadLessonVideo godoc
// @Summary Upload a lesson video
// @Description Stores the file and probes its duration with ffprobe. If the
// @Description probe fails the video is kept but the duration stays null.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson id"
// @Param video formData file true "video file"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/admin/lessons/{id}/video [post]
func (c *AdminController) UploadLessonVideo(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))
	if lessonID == 0 {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	file, err := ctx.FormFile("video")
	if err != nil {
		util.BadRequest(ctx, "video file is required")
		return
	}

	lesson, err := c.ContentService.UploadLessonVideo(ctx.Request.Context(), lessonID, file)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// UploadPodcast godoc
// @Summary Upload a podcast episode
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param subjectId formData int true "subject id"
// @Param title formData string true "episode title"
// @Param description formData string false "episode description"
// @Param published formData bool false "publish immediately"
// @Param audio formData file true "audio file"
// @Success 201 {object} util.Response{data=model.Podcast}
// @Router /api/admin/podcasts [post]
func (c *AdminController) UploadPodcast(ctx *gin.Context) {
	subjectID := util.MustParseUint(ctx.PostForm("subjectId"))
	title := ctx.PostForm("title")
	if subjectID == 0 || title == "" {
		util.BadRequest(ctx, "subjectId and title are required")
		return
	}

	file, err := ctx.FormFile("audio")
	if err != nil {
		util.BadRequest(ctx, "audio file is required")
		return
	}

	req := service.CreatePodcastRequest{
		SubjectID:   subjectID,
		Title:       title,
		Description: ctx.PostForm("description"),
		IsPublished: ctx.PostForm("published") == "true",
	}

	podcast, err := c.ContentService.UploadPodcast(ctx.Request.Context(), req, file)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, podcast)
}
