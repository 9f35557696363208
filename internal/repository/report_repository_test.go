package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"studybuddy_backend/internal/model"
	"studybuddy_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRepository_LastCompletedSkill(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewReportRepository(db)
	ctx := context.Background()
	userID := model.GenerateUUID()

	skill, err := repo.LastCompletedSkill(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, skill)

	older := testutil.CreateActivity(t, db, "math.addition", 0.5)
	newer := testutil.CreateActivity(t, db, "english.reading", 0.5)
	now := time.Now()

	testutil.CreateReport(t, db, userID, older.ID, 0.5, now.Add(-time.Hour))
	testutil.CreateReport(t, db, userID, newer.ID, 0.5, now)

	skill, err = repo.LastCompletedSkill(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "english.reading", skill)
}

func TestReportRepository_CountSince(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewReportRepository(db)
	ctx := context.Background()
	a := testutil.CreateActivity(t, db, "math.addition", 0.5)
	now := time.Now()

	for _, age := range []time.Duration{time.Hour, 48 * time.Hour, 10 * 24 * time.Hour} {
		testutil.CreateReport(t, db, model.GenerateUUID(), a.ID, 1, now.Add(-age))
	}

	count, err := repo.CountSince(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReportRepository_RecordCreatesThenUpdates(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewReportRepository(db)
	skills := NewSkillRepository(db)
	ctx := context.Background()
	userID := model.GenerateUUID()
	a := testutil.CreateActivity(t, db, "math.addition", 0.5)

	report := &model.ActivityReport{UserID: userID, ActivityID: a.ID, Score: 0.7, TimeSpentSec: 40}
	old, updated, err := repo.Record(ctx, report, a.SkillCode, 0.5, func(p float64) (float64, error) {
		return p + 0.09, nil
	})
	require.NoError(t, err)
	assert.True(t, model.IsUUID(report.ID))
	assert.False(t, report.CompletedAt.IsZero())
	assert.Equal(t, 0.5, old)
	assert.InDelta(t, 0.59, updated, 1e-9)

	old, updated, err = repo.Record(ctx, &model.ActivityReport{UserID: userID, ActivityID: a.ID, Score: 0.2, TimeSpentSec: 40},
		a.SkillCode, 0.5, func(p float64) (float64, error) {
			return p - 0.1, nil
		})
	require.NoError(t, err)
	assert.InDelta(t, 0.59, old, 1e-9)
	assert.InDelta(t, 0.49, updated, 1e-9)

	var count int64
	require.NoError(t, db.Model(&model.LearnerSkill{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.Model(&model.ActivityReport{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	skill, err := skills.FindByUserAndSkill(ctx, userID, "math.addition")
	require.NoError(t, err)
	require.NotNil(t, skill)
	assert.InDelta(t, 0.49, skill.Proficiency, 1e-9)
	assert.NotNil(t, skill.LastPracticedAt)
}

func TestReportRepository_RecordRollsBackReportOnSkillFailure(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewReportRepository(db)
	skills := NewSkillRepository(db)
	ctx := context.Background()
	userID := model.GenerateUUID()
	a := testutil.CreateActivity(t, db, "math.addition", 0.5)
	boom := errors.New("boom")

	_, _, err := repo.Record(ctx, &model.ActivityReport{UserID: userID, ActivityID: a.ID, Score: 0.5, TimeSpentSec: 10},
		a.SkillCode, 0.5, func(float64) (float64, error) {
			return 0, boom
		})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&model.ActivityReport{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Zero(t, count)

	skill, err := skills.FindByUserAndSkill(ctx, userID, "math.addition")
	require.NoError(t, err)
	assert.Nil(t, skill)
}
