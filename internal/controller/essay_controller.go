package controller

import (
	"fe1_prep_backend/internal/service"
	"fe1_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EssayController struct {
	EssayService *service.EssayService
}

func NewEssayController(essayService *service.EssayService) *EssayController {
	return &EssayController{EssayService: essayService}
}

// SubmitPractice godoc
// @Summary Submit a practice essay for immediate grading
// @Tags essays
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.PracticeRequest true "practice answer"
// @Success 200 {object} util.Response{data=service.PracticeResult}
// @Failure 502 {object} util.Response "grading failed"
// @Router /api/essays/practice [post]
func (c *EssayController) SubmitPractice(ctx *gin.Context) {
	var req service.PracticeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.EssayService.SubmitPractice(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ListPracticeAttempts godoc
// @Summary List the caller's past practice attempts
// @Tags essays
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.EssayAttempt}
// @Router /api/essays/practice [get]
func (c *EssayController) ListPracticeAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	attempts, err := c.EssayService.ListPracticeAttempts(claims.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
