package controller

import (
	"studybuddy_backend/internal/service"
	"studybuddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	GapService      *service.GapService
	InsightsService *service.InsightsService
}

func NewAnalyticsController(gapService *service.GapService, insightsService *service.InsightsService) *AnalyticsController {
	return &AnalyticsController{GapService: gapService, InsightsService: insightsService}
}

// GapDetector godoc
// @Summary 学习者差距分析
// @Description 默认分析本人；教师或管理员可通过 learner_id 查看其他学习者
// @Tags 分析
// @Produce json
// @Security ApiKeyAuth
// @Param learner_id query string false "学习者ID"
// @Success 200 {object} model.GapAnalysis
// @Failure 403 {object} util.ErrorResponse
// @Router /api/gap-detector [get]
func (ctrl *AnalyticsController) GapDetector(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	result, err := ctrl.GapService.Analyze(c.Request.Context(), claims.UserID(), c.Query("learner_id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.Success(c, result)
}

// TeacherInsights godoc
// @Summary 教师班级看板
// @Tags 分析
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} model.ClassInsights
// @Failure 403 {object} util.ErrorResponse
// @Router /api/teacher/insights [get]
func (ctrl *AnalyticsController) TeacherInsights(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	result, err := ctrl.InsightsService.Class(c.Request.Context(), claims.UserID())
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.Success(c, result)
}
