package service

import (
	"context"
	"testing"
	"time"

	"studybuddy_backend/internal/model"
	"studybuddy_backend/internal/testutil"
	"studybuddy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsightsService_RequiresTeacher(t *testing.T) {
	env := newTestEnv(t)
	student := model.GenerateUUID()
	testutil.CreateRole(t, env.DB, student, model.RoleStudent)

	_, err := env.Insights.Class(context.Background(), student)
	require.Error(t, err)
	assert.Equal(t, "Teacher access required", util.AsAppError(err).Message)
	assert.Equal(t, 403, util.AsAppError(err).Status())
}

func TestInsightsService_Class(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := model.GenerateUUID()
	testutil.CreateRole(t, env.DB, admin, model.RoleAdmin)

	u1, u2 := model.GenerateUUID(), model.GenerateUUID()
	math := testutil.CreateActivity(t, env.DB, "math", 0.5)
	testutil.CreateSkill(t, env.DB, u1, "math", 0.3)
	testutil.CreateSkill(t, env.DB, u2, "math", 0.5)
	testutil.CreateSkill(t, env.DB, u1, "english", 0.9)

	now := time.Now()
	for i, age := range []time.Duration{time.Hour, 2 * time.Hour, 3 * 24 * time.Hour, 9 * 24 * time.Hour} {
		userID := u1
		if i%2 == 1 {
			userID = u2
		}
		testutil.CreateReport(t, env.DB, userID, math.ID, 0.5, now.Add(-age))
	}

	insights, err := env.Insights.Class(ctx, admin)
	require.NoError(t, err)

	assert.Equal(t, 2, insights.TotalLearners)
	assert.Equal(t, 3, insights.ActivitiesLastWeek)
	// round(3 / (2*7) * 100) = 21
	assert.Equal(t, 21, insights.EngagementRate)

	require.Len(t, insights.LowProficiencyTopics, 2)
	top := insights.LowProficiencyTopics[0]
	assert.Equal(t, "math", top.SkillCode)
	assert.Equal(t, "math practice", top.SkillTitle)
	assert.Equal(t, 40, top.AvgProficiency)
	assert.Equal(t, 30, top.MinProficiency)
	assert.Equal(t, 50, top.MaxProficiency)
	assert.Equal(t, 2, top.LearnerCount)
	assert.Equal(t, "critical", top.Status)

	assert.Equal(t, "english", insights.LowProficiencyTopics[1].SkillTitle)
	assert.Equal(t, "developing", insights.LowProficiencyTopics[1].Status)
}

func TestEngagementRate(t *testing.T) {
	assert.Equal(t, 0, EngagementRate(10, 0))
	assert.Equal(t, 0, EngagementRate(0, 5))
	assert.Equal(t, 100, EngagementRate(70, 1))
	assert.Equal(t, 100, EngagementRate(500, 2))
	assert.Equal(t, 14, EngagementRate(1, 1))
}
