package controller

import (
	"errors"
	"net/http"
	"time"

	"studybuddy_backend/internal/service"
	"studybuddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// StudyBuddyController 活动上报与推荐
type StudyBuddyController struct {
	ReportService         *service.ReportService
	RecommendationService *service.RecommendationService
}

func NewStudyBuddyController(reportService *service.ReportService, recommendationService *service.RecommendationService) *StudyBuddyController {
	return &StudyBuddyController{
		ReportService:         reportService,
		RecommendationService: recommendationService,
	}
}

// Report godoc
// @Summary 上报活动完成情况
// @Description 记录得分与用时，更新技能掌握度并返回下一个推荐活动
// @Tags StudyBuddy
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body object true "activity_id, score, time_spent_sec, metadata, completed_at"
// @Success 200 {object} model.ReportResult
// @Failure 400 {object} util.ErrorResponse
// @Failure 404 {object} util.ErrorResponse
// @Failure 500 {object} util.ErrorResponse
// @Router /api/studybuddy/report [post]
func (ctrl *StudyBuddyController) Report(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	body, ok := readBody(c, util.MaxReportBodyBytes)
	if !ok {
		return
	}
	input, err := service.ParseReport(body, time.Now())
	if err != nil {
		util.RespondError(c, err)
		return
	}

	result, err := ctrl.ReportService.Submit(c.Request.Context(), claims.UserID(), input)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.Success(c, result)
}

// Hydrate godoc
// @Summary 获取入门活动
// @Description 会话开始时返回一个快速上手的活动，优先使用缓存
// @Tags StudyBuddy
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} model.HydrateResult
// @Failure 404 {object} util.ErrorResponse
// @Router /api/studybuddy/hydrate [get]
func (ctrl *StudyBuddyController) Hydrate(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	result, err := ctrl.RecommendationService.Hydrate(c.Request.Context(), claims.UserID())
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.Success(c, result)
}

// Next godoc
// @Summary 获取下一个推荐活动
// @Tags StudyBuddy
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} model.NextActivity
// @Failure 404 {object} util.ErrorResponse
// @Router /api/studybuddy/next [get]
func (ctrl *StudyBuddyController) Next(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	result, err := ctrl.RecommendationService.Next(c.Request.Context(), claims.UserID())
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.Success(c, result)
}

// readBody 读取有上限的请求体，超限返回 413，其余读取错误返回 400
func readBody(c *gin.Context, limit int64) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	body, err := c.GetRawData()
	if err == nil {
		return body, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		util.Error(c, http.StatusRequestEntityTooLarge, "Request body too large")
		return nil, false
	}
	util.BadRequest(c, "Invalid request body")
	return nil, false
}
