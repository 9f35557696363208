package database

import (
	"fmt"
	"os"
	"path/filepath"

	"studybuddy_backend/internal/config"
	"studybuddy_backend/internal/model"
	"studybuddy_backend/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 仅建立连接，不做迁移
func Open(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	if debug {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	default:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return gorm.Open(mysql.Open(dsn), gormCfg)
	}
}

// Models 所有需要迁移的表
func Models() []interface{} {
	return []interface{}{
		&model.Activity{},
		&model.ActivityReport{},
		&model.LearnerSkill{},
		&model.UserRole{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established", zap.String("driver", cfg.Database.Driver))

	// sqlite 或显式要求时执行迁移，release 模式下默认跳过
	if cfg.ForceMigrate || cfg.Server.Mode != "release" || cfg.Database.Driver == "sqlite" {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		logger.Log.Info("Database migration completed")
	}

	if err := SeedActivities(db); err != nil {
		return nil, err
	}

	return db, nil
}
