package controller

import (
	"fe1_prep_backend/internal/service"
	"fe1_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// RecordVideoProgress godoc
// @Summary Record a video watch-position ping for a lesson
// @Description Crossing 90% of the video marks the lesson completed and rolls
// @Description the completion up through its module and subject.
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson id"
// @Param body body service.VideoProgressRequest true "watch position"
// @Success 200 {object} util.Response{data=service.VideoProgressResult}
// @Failure 400 {object} util.Response "negative watch time"
// @Failure 404 {object} util.Response "lesson not found"
// @Router /api/lessons/{id}/video-progress [post]
func (c *ProgressController) RecordVideoProgress(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))
	if lessonID == 0 {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	var req service.VideoProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.ProgressService.RecordVideoProgress(claims.UserID, lessonID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// RecordLessonAccess godoc
// @Summary Mark a lesson as visited
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/access [post]
func (c *ProgressController) RecordLessonAccess(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))
	if lessonID == 0 {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.ProgressService.RecordLessonAccess(claims.UserID, lessonID); err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
