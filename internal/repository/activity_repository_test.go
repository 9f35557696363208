package repository

import (
	"context"
	"testing"

	"studybuddy_backend/internal/model"
	"studybuddy_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_InDifficultyRange(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db, model.DefaultLocale)
	ctx := context.Background()

	in := testutil.CreateActivity(t, db, "math.addition", 0.45)
	testutil.CreateActivity(t, db, "math.addition", 0.9)
	testutil.CreateActivity(t, db, "english.reading", 0.45)

	got, err := repo.InDifficultyRange(ctx, "math.addition", 0.3, 0.6)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in.ID, got[0].ID)
}

func TestActivityRepository_LocaleScope(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()

	testutil.CreateActivity(t, db, "math.addition", 0.4)
	other := testutil.CreateActivity(t, db, "math.addition", 0.4)
	require.NoError(t, db.Model(&other).Update("locale", "ug").Error)

	repo := NewActivityRepository(db, "")
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	bySkill, err := repo.BySkill(ctx, "math.addition")
	require.NoError(t, err)
	assert.Len(t, bySkill, 1)
}

func TestActivityRepository_At(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db, model.DefaultLocale)
	ctx := context.Background()

	testutil.CreateActivity(t, db, "a", 0.1)
	testutil.CreateActivity(t, db, "b", 0.2)

	first, err := repo.At(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := repo.At(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	none, err := repo.At(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestActivityRepository_EasiestAndEasy(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db, model.DefaultLocale)
	ctx := context.Background()

	testutil.CreateActivity(t, db, "math.addition", 0.6)
	easiest := testutil.CreateActivity(t, db, "math.addition", 0.2)
	testutil.CreateActivity(t, db, "science.matter", 0.8)

	got, err := repo.EasiestForSkill(ctx, "math.addition")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, easiest.ID, got.ID)

	missing, err := repo.EasiestForSkill(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	easy, err := repo.Easy(ctx, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, easy, 1)
	assert.Equal(t, easiest.ID, easy[0].ID)
}

func TestActivityRepository_FindByID(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db, model.DefaultLocale)
	ctx := context.Background()

	a := testutil.CreateActivity(t, db, "math.addition", 0.5)

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "math.addition", got.SkillCode)

	missing, err := repo.FindByID(ctx, model.GenerateUUID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestActivityRepository_TitlesForSkills(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db, model.DefaultLocale)

	testutil.CreateActivity(t, db, "math.addition", 0.5)

	titles, err := repo.TitlesForSkills(context.Background(), []string{"math.addition", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, "math.addition practice", titles["math.addition"])
	_, ok := titles["unknown"]
	assert.False(t, ok)
}
