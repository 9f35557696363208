package database

import (
	"fmt"
	"math/rand"
	"time"

	"studybuddy_backend/internal/model"
	"studybuddy_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 固定命名空间，保证种子数据的 ID 在多次启动间保持一致
var seedNamespace = uuid.MustParse("6f1d7c52-3f0e-4b8e-9a57-2c6a1f0d9b11")

type seedSkill struct {
	Code    string
	Title   string
	Subject string
}

var defaultSkills = []seedSkill{
	{"math.arithmetic.addition", "Addition", "Mathematics"},
	{"math.arithmetic.subtraction", "Subtraction", "Mathematics"},
	{"math.geometry.shapes", "Shapes and Angles", "Mathematics"},
	{"science.living.animals", "Animals Around Us", "Science & Technology"},
	{"science.physical.matter", "States of Matter", "Science & Technology"},
	{"science.earth.water-cycle", "The Water Cycle", "Science & Technology"},
	{"english.reading.comprehension", "Reading Comprehension", "English"},
	{"english.writing.composition", "Letter Writing", "English"},
	{"english.grammar.punctuation", "Punctuation", "English"},
	{"kiswahili.kusoma", "Kusoma", "Kiswahili"},
	{"kiswahili.kuandika", "Kuandika", "Kiswahili"},
	{"kiswahili.sarufi", "Sarufi", "Kiswahili"},
	{"social.kenya.geography", "Kenya Geography", "Social Studies"},
	{"social.kenya.history", "Kenya History", "Social Studies"},
	{"social.economics", "Economic Activities", "Social Studies"},
}

// 每个技能生成的难度梯度
var seedDifficulties = []float64{0.2, 0.45, 0.7}

func seedID(parts ...string) string {
	name := fmt.Sprint(parts)
	return uuid.NewSHA1(seedNamespace, []byte(name)).String()
}

// DefaultActivities 默认的CBC活动目录
func DefaultActivities() []model.Activity {
	var out []model.Activity
	for _, s := range defaultSkills {
		for i, d := range seedDifficulties {
			out = append(out, model.Activity{
				UUIDBase:         model.UUIDBase{ID: seedID(s.Code, fmt.Sprint(i))},
				SkillCode:        s.Code,
				Title:            fmt.Sprintf("%s: level %d", s.Title, i+1),
				Description:      fmt.Sprintf("Practice %s with Kenyan examples.", s.Title),
				Content:          datatypes.JSONMap{"questions": 5, "format": "multiple_choice"},
				ActivityType:     "quiz",
				Difficulty:       d,
				EstimatedTimeSec: 45 + i*30,
				Locale:           model.DefaultLocale,
				Subject:          s.Subject,
			})
		}
	}
	return out
}

// SeedActivities 活动表为空时写入默认目录
func SeedActivities(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Activity{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	activities := DefaultActivities()
	if err := db.CreateInBatches(activities, 50).Error; err != nil {
		return err
	}
	logger.Log.Info("Seeded default activities", zap.Int("count", len(activities)))
	return nil
}

type demoLearner struct {
	Email string
	Name  string
}

var demoLearners = []demoLearner{
	{"amina.mohamed@demo.com", "Amina Mohamed"},
	{"james.kamau@demo.com", "James Kamau"},
	{"faith.wanjiru@demo.com", "Faith Wanjiru"},
	{"brian.ochieng@demo.com", "Brian Ochieng"},
	{"grace.muthoni@demo.com", "Grace Muthoni"},
	{"david.kimani@demo.com", "David Kimani"},
}

const demoTeacherEmail = "teacher@demo.com"

// DemoUserID 演示用户的稳定 ID，用于签发测试令牌
func DemoUserID(email string) string {
	return seedID("user", email)
}

// SeedDemo 生成演示学习者的技能掌握度和活动记录，可重复执行
func SeedDemo(db *gorm.DB, rng *rand.Rand) error {
	if err := SeedActivities(db); err != nil {
		return err
	}

	var activities []model.Activity
	if err := db.Find(&activities).Error; err != nil {
		return err
	}
	if len(activities) == 0 {
		return fmt.Errorf("no activities to build demo reports from")
	}

	now := time.Now()
	return db.Transaction(func(tx *gorm.DB) error {
		teacher := model.UserRole{UserID: DemoUserID(demoTeacherEmail), Role: model.RoleTeacher}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&teacher).Error; err != nil {
			return err
		}

		for _, learner := range demoLearners {
			userID := DemoUserID(learner.Email)
			role := model.UserRole{UserID: userID, Role: model.RoleStudent}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
				return err
			}

			numSkills := rng.Intn(8) + 5
			perm := rng.Perm(len(defaultSkills))
			for _, idx := range perm[:numSkills] {
				practiced := now.Add(-time.Duration(rng.Intn(30)) * 24 * time.Hour)
				skill := model.LearnerSkill{
					UserID:          userID,
					SkillCode:       defaultSkills[idx].Code,
					Proficiency:     rng.Float64()*0.5 + 0.3,
					LastPracticedAt: &practiced,
				}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_id"}, {Name: "skill_code"}},
					DoUpdates: clause.AssignmentColumns([]string{"proficiency", "last_practiced_at", "updated_at"}),
				}).Create(&skill).Error
				if err != nil {
					return err
				}
			}

			numReports := rng.Intn(15) + 5
			for i := 0; i < numReports; i++ {
				a := activities[rng.Intn(len(activities))]
				report := model.ActivityReport{
					ID:           uuid.New().String(),
					UserID:       userID,
					ActivityID:   a.ID,
					Score:        rng.Float64()*0.4 + 0.5,
					TimeSpentSec: rng.Intn(300) + 60,
					Metadata:     datatypes.JSONMap{"difficulty": a.Difficulty, "attempts": rng.Intn(3) + 1},
					CompletedAt:  now.Add(-time.Duration(rng.Intn(45)) * 24 * time.Hour),
				}
				if err := tx.Create(&report).Error; err != nil {
					return err
				}
			}
		}

		logger.Log.Info("Seeded demo learners", zap.Int("learners", len(demoLearners)))
		return nil
	})
}
