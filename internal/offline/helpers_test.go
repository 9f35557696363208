package offline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"studybuddy_backend/internal/client"
	"studybuddy_backend/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errNetwork = errors.New("dial tcp: connection refused")

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []string
	// 按 activity_id 返回的错误
	fail map[string]error
	hook func(ctx context.Context, report *client.Report) error
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{fail: map[string]error{}}
}

func (f *fakeSubmitter) SubmitReport(ctx context.Context, report *client.Report) (*model.ReportResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, report.ActivityID)
	err := f.fail[report.ActivityID]
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		if hookErr := hook(ctx, report); hookErr != nil {
			return nil, hookErr
		}
	}
	if err != nil {
		return nil, err
	}
	return &model.ReportResult{Success: true, SkillCode: "s"}, nil
}

func (f *fakeSubmitter) setFail(activityID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, activityID)
		return
	}
	f.fail[activityID] = err
}

func (f *fakeSubmitter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSubmitter) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func openTestStore(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func report(activityID string, score float64) *client.Report {
	return &client.Report{ActivityID: activityID, Score: score, TimeSpentSec: 60}
}

// 固定步进的时钟
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var serverDown = &client.APIError{StatusCode: http.StatusServiceUnavailable, Message: "unavailable"}
