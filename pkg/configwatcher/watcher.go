package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"studybuddy_backend/internal/config"
	"studybuddy_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigReloader 收到校验通过的新配置
type ConfigReloader func(cfg *config.Config)

// Debounce 连续写入合并为一次重载
var Debounce = time.Second

// WatchConfig 监听 configPath 所在目录，文件变化后重新加载并回调，ctx 取消时返回。
// 编辑器常以重命名方式保存，所以监听目录而不是文件本身。
func WatchConfig(ctx context.Context, configPath string, reloader ConfigReloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	dirPath := filepath.Dir(absPath)

	if err := watcher.Add(dirPath); err != nil {
		return err
	}
	logger.Log.Info("Watching config file", zap.String("path", absPath))

	timer := time.NewTimer(Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				// 防抖处理
				timer.Reset(Debounce)
			}
		case <-timer.C:
			newCfg, err := config.LoadConfig(dirPath)
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("path", absPath))
			reloader(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
