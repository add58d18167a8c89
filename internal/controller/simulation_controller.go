package controller

import (
	"fe1_prep_backend/internal/service"
	"fe1_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SimulationController struct {
	SimulationService *service.SimulationService
}

func NewSimulationController(simulationService *service.SimulationService) *SimulationController {
	return &SimulationController{SimulationService: simulationService}
}

// Start godoc
// @Summary Start a new five-question mock exam
// @Tags simulation
// @Produce json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=service.StartSimulationResult}
// @Failure 409 {object} util.Response "question pool too small"
// @Router /api/simulations [post]
func (c *SimulationController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	result, err := c.SimulationService.Start(claims.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// GetQuestion godoc
// @Summary Fetch one question of a running or finished simulation
// @Tags simulation
// @Produce json
// @Security BearerAuth
// @Param id path int true "simulation id"
// @Param questionId path int true "question id"
// @Param index query int true "question index within the exam"
// @Success 200 {object} util.Response{data=service.GetQuestionResult}
// @Failure 404 {object} util.Response "simulation not found"
// @Router /api/simulations/{id}/questions/{questionId} [get]
func (c *SimulationController) GetQuestion(ctx *gin.Context) {
	simulationID := util.MustParseUint(ctx.Param("id"))
	questionID := util.MustParseUint(ctx.Param("questionId"))
	if simulationID == 0 || questionID == 0 {
		util.BadRequest(ctx, "invalid id")
		return
	}
	index := int(util.MustParseUint(ctx.DefaultQuery("index", "0")))

	claims := util.GetUserFromContext(ctx)
	result, err := c.SimulationService.GetQuestion(claims.UserID, simulationID, questionID, index)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// SubmitAnswer godoc
// @Summary Submit the answer for one question
// @Description Each question accepts exactly one answer; resubmitting returns 409.
// @Tags simulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "simulation id"
// @Param body body service.SubmitAnswerRequest true "answer"
// @Success 200 {object} util.Response{data=service.SubmitAnswerResult}
// @Failure 409 {object} util.Response "answer already submitted"
// @Router /api/simulations/{id}/answers [post]
func (c *SimulationController) SubmitAnswer(ctx *gin.Context) {
	simulationID := util.MustParseUint(ctx.Param("id"))
	if simulationID == 0 {
		util.BadRequest(ctx, "invalid simulation id")
		return
	}

	var req service.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.SimulationService.SubmitAnswer(claims.UserID, simulationID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Finish godoc
// @Summary Grade all five answers and close the simulation
// @Tags simulation
// @Produce json
// @Security BearerAuth
// @Param id path int true "simulation id"
// @Success 200 {object} util.Response{data=service.FinishSimulationResult}
// @Failure 409 {object} util.Response "not all questions answered"
// @Failure 502 {object} util.Response "grading failed, simulation still open"
// @Router /api/simulations/{id}/finish [post]
func (c *SimulationController) Finish(ctx *gin.Context) {
	simulationID := util.MustParseUint(ctx.Param("id"))
	if simulationID == 0 {
		util.BadRequest(ctx, "invalid simulation id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.SimulationService.Finish(ctx.Request.Context(), claims.UserID, simulationID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type failRequest struct {
	Reason string `json:"reason"`
}

// Fail godoc
// @Summary Abandon a running simulation
// @Tags simulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "simulation id"
// @Param body body failRequest false "abandon reason"
// @Success 200 {object} util.Response
// @Router /api/simulations/{id}/fail [post]
func (c *SimulationController) Fail(ctx *gin.Context) {
	simulationID := util.MustParseUint(ctx.Param("id"))
	if simulationID == 0 {
		util.BadRequest(ctx, "invalid simulation id")
		return
	}

	var req failRequest
	ctx.ShouldBindJSON(&req)

	claims := util.GetUserFromContext(ctx)
	if err := c.SimulationService.Fail(claims.UserID, simulationID, req.Reason); err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// History godoc
// @Summary List the caller's past simulations
// @Tags simulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Simulation}
// @Router /api/simulations [get]
func (c *SimulationController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	sims, err := c.SimulationService.History(claims.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, sims)
}
