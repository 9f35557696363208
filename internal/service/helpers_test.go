package service

import (
	"math/rand"
	"testing"
	"time"

	"studybuddy_backend/internal/cache"
	"studybuddy_backend/internal/learning"
	"studybuddy_backend/internal/model"
	"studybuddy_backend/internal/repository"
	"studybuddy_backend/internal/testutil"

	"gorm.io/gorm"
)

type testEnv struct {
	DB             *gorm.DB
	Activities     *repository.ActivityRepository
	Reports        *repository.ReportRepository
	Skills         *repository.SkillRepository
	Roles          *repository.RoleRepository
	Hydration      *cache.MemoryHydrationStore
	Recommendation *RecommendationService
	Report         *ReportService
	Gap            *GapService
	Insights       *InsightsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)

	env := &testEnv{
		DB:         db,
		Activities: repository.NewActivityRepository(db, model.DefaultLocale),
		Reports:    repository.NewReportRepository(db),
		Skills:     repository.NewSkillRepository(db),
		Roles:      repository.NewRoleRepository(db),
		Hydration:  cache.NewMemoryHydrationStore(time.Hour, 0),
	}
	t.Cleanup(func() { env.Hydration.Close() })

	selector := learning.NewSelector(env.Activities, rand.New(rand.NewSource(1)))
	env.Recommendation = NewRecommendationService(env.Activities, env.Skills, env.Reports, env.Hydration, selector, 3)
	env.Report = NewReportService(env.Activities, env.Reports, env.Hydration, env.Recommendation)
	env.Gap = NewGapService(env.Skills, env.Activities, env.Roles)
	env.Insights = NewInsightsService(env.Skills, env.Reports, env.Activities, env.Roles)
	return env
}
