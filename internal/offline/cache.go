package offline

import (
	"context"
	"math/rand"
	"time"

	"studybuddy_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxCachedActivities = 20
	CacheExpiry         = 3 * 24 * time.Hour
)

// ActivityCache 保留最近 MaxCachedActivities 个活动，读取时淘汰超过 CacheExpiry 的条目
type ActivityCache struct {
	db  *gorm.DB
	now func() time.Time
}

func NewActivityCache(db *gorm.DB) *ActivityCache {
	return &ActivityCache{db: db, now: time.Now}
}

func FromNext(a *model.NextActivity) CachedActivity {
	return CachedActivity{
		ActivityID:       a.ActivityID,
		SkillCode:        a.Payload.SkillCode,
		Type:             a.Type,
		Title:            a.Payload.Title,
		Description:      a.Payload.Description,
		Content:          a.Payload.Content,
		EstimatedTimeSec: a.EstimatedTimeSec,
		Difficulty:       a.Difficulty,
	}
}

func FromHydrate(h *model.HydrateResult) CachedActivity {
	return CachedActivity{
		ActivityID:       h.ActivityID,
		SkillCode:        h.Payload.SkillCode,
		Type:             h.Type,
		Title:            h.Payload.Title,
		Description:      h.Payload.Description,
		Content:          h.Payload.Content,
		EstimatedTimeSec: h.EstimatedTimeSec,
	}
}

func FromSummary(s *model.NextActivitySummary) CachedActivity {
	return CachedActivity{
		ActivityID:       s.ActivityID,
		Title:            s.Title,
		Description:      s.Description,
		EstimatedTimeSec: s.EstimatedTimeSec,
	}
}

// Cache 写入或刷新一个活动，并裁剪到最近的 MaxCachedActivities 个
func (c *ActivityCache) Cache(ctx context.Context, activity CachedActivity) error {
	activity.CachedAt = c.now()

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "activity_id"}},
			UpdateAll: true,
		}).Create(&activity).Error
		if err != nil {
			return err
		}

		var ids []string
		err = tx.Model(&CachedActivity{}).
			Order("cached_at DESC").
			Pluck("activity_id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) <= MaxCachedActivities {
			return nil
		}
		return tx.Where("activity_id IN ?", ids[MaxCachedActivities:]).Delete(&CachedActivity{}).Error
	})
}

// List 返回未过期的活动，最新的在前
func (c *ActivityCache) List(ctx context.Context) ([]CachedActivity, error) {
	db := c.db.WithContext(ctx)
	if err := db.Where("cached_at < ?", c.now().Add(-CacheExpiry)).Delete(&CachedActivity{}).Error; err != nil {
		return nil, err
	}

	var activities []CachedActivity
	err := db.Order("cached_at DESC").Limit(MaxCachedActivities).Find(&activities).Error
	return activities, err
}

// Random 离线时随机挑一个缓存的活动；缓存为空返回 nil
func (c *ActivityCache) Random(ctx context.Context, rng *rand.Rand) (*CachedActivity, error) {
	activities, err := c.List(ctx)
	if err != nil || len(activities) == 0 {
		return nil, err
	}
	a := activities[rng.Intn(len(activities))]
	return &a, nil
}

func (c *ActivityCache) Clear(ctx context.Context) error {
	return c.db.WithContext(ctx).Where("1 = 1").Delete(&CachedActivity{}).Error
}
