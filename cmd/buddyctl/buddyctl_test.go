package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"studybuddy_backend/internal/util"
	"studybuddy_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReportQueuesWhileOfflineThenSyncs(t *testing.T) {
	var up atomic.Bool
	var accepted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"Service temporarily unavailable. Please try again"}`))
			return
		}
		accepted.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"skill_code":"math.add","old_proficiency":0.5,"new_proficiency":0.6,"next_activity":null}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	common := []string{"--config", dir, "--api-url", srv.URL, "--queue", filepath.Join(dir, "offline.db")}

	out, err := run(t, append(common, "report",
		"--activity", "6f1d7c52-3f0e-4b8e-9a57-2c6a1f0d9b11",
		"--score", "0.8", "--time", "60", "--skill", "math.add", "--meta", "attempts=2")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 report(s) waiting to sync")
	assert.Zero(t, accepted.Load())

	out, err = run(t, append(common, "queue", "list", "--json")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"skill_code": "math.add"`)

	up.Store(true)
	out, err = run(t, append(common, "sync")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 1 activity report(s)")
	assert.EqualValues(t, 1, accepted.Load())

	out, err = run(t, append(common, "queue", "drain")...)
	require.NoError(t, err)
	assert.Contains(t, out, "All caught up!")
}

func TestTokenMintsDemoUser(t *testing.T) {
	secret := "buddyctl-test-secret-0123456789abcdef"
	t.Setenv("JWT_SECRET", secret)

	out, err := run(t, "--config", t.TempDir(), "token", "--email", "james.kamau@demo.com")
	require.NoError(t, err)

	claims, err := util.ParseJWT(strings.TrimSpace(out), secret)
	require.NoError(t, err)
	assert.Equal(t, database.DemoUserID("james.kamau@demo.com"), claims.UserID())
}

func TestParseScalar(t *testing.T) {
	assert.Equal(t, true, parseScalar("true"))
	assert.Equal(t, 2.5, parseScalar("2.5"))
	assert.Equal(t, 1.0, parseScalar("1"))
	assert.Equal(t, "fast", parseScalar("fast"))
}

func TestQueueShowsAndClearsRejectedReports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Activity not found"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	common := []string{"--config", dir, "--api-url", srv.URL, "--queue", filepath.Join(dir, "offline.db")}
	activity := "0b7e4c1a-9d2f-4e6b-8a31-5c9f2e7d1a44"

	_, err := run(t, append(common, "queue", "add", "--activity", activity, "--score", "0.4", "--time", "30", "--skill", "math.sub")...)
	require.NoError(t, err)

	out, err := run(t, append(common, "queue", "drain")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 rejected by the server")

	out, err = run(t, append(common, "queue", "list", "--json=false")...)
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "Activity not found")

	_, err = run(t, append(common, "queue", "clear", "--rejected")...)
	require.NoError(t, err)
	out, err = run(t, append(common, "queue", "list", "--json=false")...)
	require.NoError(t, err)
	assert.NotContains(t, out, activity)
}
