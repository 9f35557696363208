// buddyctl 是 StudyBuddy 的命令行客户端：离线上报队列、同步和最近活动缓存。
package main

import (
	"context"
	"fmt"
	"os"

	"studybuddy_backend/pkg/logger"
)

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	logger.Log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
