package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studybuddy_backend/internal/cache"
	"studybuddy_backend/internal/config"
	"studybuddy_backend/internal/learning"
	"studybuddy_backend/internal/middleware"
	"studybuddy_backend/internal/model"
	"studybuddy_backend/internal/repository"
	"studybuddy_backend/internal/service"
	"studybuddy_backend/internal/testutil"
	"studybuddy_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "controller-test-secret-32-characters!"

type harness struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	gateway *httptest.Server
	handler http.HandlerFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenTestDB(t)
	h := &harness{t: t, db: db}

	h.gateway = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.handler(w, r)
	}))
	t.Cleanup(h.gateway.Close)

	activities := repository.NewActivityRepository(db, model.DefaultLocale)
	reports := repository.NewReportRepository(db)
	skills := repository.NewSkillRepository(db)
	roles := repository.NewRoleRepository(db)
	hydration := cache.NewMemoryHydrationStore(time.Hour, 0)
	t.Cleanup(func() { hydration.Close() })

	selector := learning.NewSelector(activities, rand.New(rand.NewSource(7)))
	recommendation := service.NewRecommendationService(activities, skills, reports, hydration, selector, 3)
	report := service.NewReportService(activities, reports, hydration, recommendation)
	chat := service.NewChatService(config.AIConfig{
		BaseURL: h.gateway.URL, APIKey: "k", Model: "m", MaxRetries: 3, TimeoutSeconds: 5,
	})
	chat.RetryInitial = time.Millisecond
	chat.RetryMax = time.Millisecond

	studyBuddy := NewStudyBuddyController(report, recommendation)
	analytics := NewAnalyticsController(service.NewGapService(skills, activities, roles), service.NewInsightsService(skills, reports, activities, roles))
	chatCtrl := NewChatController(chat)
	health := NewHealthController(db, nil)

	r := gin.New()
	r.GET("/api/health", health.HealthCheck)
	api := r.Group("/api", middleware.AuthMiddleware(testSecret))
	api.POST("/studybuddy/report", studyBuddy.Report)
	api.GET("/studybuddy/hydrate", studyBuddy.Hydrate)
	api.GET("/studybuddy/next", studyBuddy.Next)
	api.GET("/gap-detector", analytics.GapDetector)
	api.GET("/teacher/insights", analytics.TeacherInsights)
	api.POST("/chat", chatCtrl.Chat)
	h.router = r
	return h
}

func (h *harness) do(method, path, userID, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		token, err := util.GenerateJWT(userID, "", testSecret, time.Hour)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestRequiresAuth(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/studybuddy/hydrate", "/api/studybuddy/next", "/api/gap-detector", "/api/teacher/insights"} {
		w := h.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestReportFlow(t *testing.T) {
	h := newHarness(t)
	userID := model.GenerateUUID()
	a := testutil.CreateActivity(t, h.db, "math.addition", 0.5)

	w := h.do(http.MethodPost, "/api/studybuddy/report", userID,
		`{"activity_id":"`+a.ID+`","score":0.8,"time_spent_sec":90,"metadata":{"attempts":1}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "math.addition", body["skill_code"])
	assert.Equal(t, 0.5, body["old_proficiency"])
	assert.InDelta(t, 0.59, body["new_proficiency"], 1e-9)
	next, ok := body["next_activity"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, a.ID, next["activity_id"])
}

func TestReportValidation(t *testing.T) {
	h := newHarness(t)
	userID := model.GenerateUUID()

	w := h.do(http.MethodPost, "/api/studybuddy/report", userID, `{"activity_id":"not-a-uuid","score":0.5,"time_spent_sec":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid activity ID format"}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/studybuddy/report", userID,
		`{"activity_id":"`+model.GenerateUUID()+`","score":0.5,"time_spent_sec":10}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Activity not found"}`, w.Body.String())
}

func TestHydrateAndNext(t *testing.T) {
	h := newHarness(t)
	userID := model.GenerateUUID()

	w := h.do(http.MethodGet, "/api/studybuddy/hydrate", userID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No activities available"}`, w.Body.String())

	a := testutil.CreateActivity(t, h.db, "english.reading", 0.3)

	w = h.do(http.MethodGet, "/api/studybuddy/hydrate", userID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, a.ID, body["activity_id"])
	assert.Equal(t, "Quick win to get started!", body["reason"])
	assert.Contains(t, body, "latency_ms")
	payload := body["payload"].(map[string]interface{})
	assert.Equal(t, "english.reading", payload["skill_code"])

	w = h.do(http.MethodGet, "/api/studybuddy/next", userID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, a.ID, body["activity_id"])
	assert.Equal(t, "Try something new!", body["why"])
	assert.Equal(t, 0.3, body["difficulty"])
}

func TestGapDetector(t *testing.T) {
	h := newHarness(t)
	student := model.GenerateUUID()
	teacher := model.GenerateUUID()
	testutil.CreateRole(t, h.db, teacher, model.RoleTeacher)
	testutil.CreateSkill(t, h.db, student, "math", 0.35)

	w := h.do(http.MethodGet, "/api/gap-detector", student, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, student, body["learner_id"])
	assert.Equal(t, "Developing", body["overall_mastery"])
	assert.Equal(t, float64(35), body["avg_proficiency_percent"])
	assert.Len(t, body["low_proficiency_topics"], 1)

	w = h.do(http.MethodGet, "/api/gap-detector?learner_id="+teacher, student, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Insufficient permissions"}`, w.Body.String())

	w = h.do(http.MethodGet, "/api/gap-detector?learner_id="+student, teacher, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/api/gap-detector", teacher, "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Not assessed", body["overall_mastery"])
	assert.Equal(t, []interface{}{}, body["low_proficiency_topics"])
	assert.NotContains(t, body, "avg_proficiency_percent")
}

func TestTeacherInsights(t *testing.T) {
	h := newHarness(t)
	student := model.GenerateUUID()
	teacher := model.GenerateUUID()
	testutil.CreateRole(t, h.db, teacher, model.RoleTeacher)
	testutil.CreateSkill(t, h.db, student, "math", 0.6)

	w := h.do(http.MethodGet, "/api/teacher/insights", student, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Teacher access required"}`, w.Body.String())

	w = h.do(http.MethodGet, "/api/teacher/insights", teacher, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total_learners"])
	topics := body["low_proficiency_topics"].([]interface{})
	require.Len(t, topics, 1)
	assert.Equal(t, "needs_attention", topics[0].(map[string]interface{})["status"])
}

func TestChatStreamsEvents(t *testing.T) {
	h := newHarness(t)
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"Hongera!\"}}]}\n\ndata: [DONE]\n\n"
	h.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, stream)
	}

	w := h.do(http.MethodPost, "/api/chat", model.GenerateUUID(), `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, stream, w.Body.String())
}

func TestChatErrors(t *testing.T) {
	h := newHarness(t)
	h.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}
	userID := model.GenerateUUID()

	w := h.do(http.MethodPost, "/api/chat", userID, `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Messages array cannot be empty"}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/chat", userID, `{"messages":[{"role":"user","content":"`+strings.Repeat("x", 10)+`"}]}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.JSONEq(t, `{"error":"AI service unavailable. Please contact support."}`, w.Body.String())
}

func TestOversizedBodies(t *testing.T) {
	h := newHarness(t)
	called := false
	h.handler = func(w http.ResponseWriter, r *http.Request) { called = true }
	userID := model.GenerateUUID()
	a := testutil.CreateActivity(t, h.db, "math.addition", 0.5)

	pad := strings.Repeat("x", util.MaxReportBodyBytes)
	w := h.do(http.MethodPost, "/api/studybuddy/report", userID,
		`{"activity_id":"`+a.ID+`","score":0.8,"time_spent_sec":90,"metadata":{"note":"`+pad+`"}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"Request body too large"}`, w.Body.String())

	var reports int64
	require.NoError(t, h.db.Model(&model.ActivityReport{}).Count(&reports).Error)
	assert.Zero(t, reports)

	pad = strings.Repeat("x", util.MaxChatBodyBytes)
	w = h.do(http.MethodPost, "/api/chat", userID, `{"messages":[{"role":"user","content":"`+pad+`"}]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, called)
}
