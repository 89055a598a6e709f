package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"realtime-sync/internal/alert"
	"realtime-sync/internal/models"
	"realtime-sync/internal/realtime"
	"realtime-sync/pkg/log"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Run(ctx context.Context) error                { return nil }
func (m *MockEngine) Shutdown(ctx context.Context) error           { return nil }
func (m *MockEngine) Connect(ctx context.Context) error            { return nil }
func (m *MockEngine) Logout(ctx context.Context) error             { return nil }
func (m *MockEngine) ClearUnread(ctx context.Context) error        { return nil }
func (m *MockEngine) UnreadCount(ctx context.Context) (int, error) { return 0, nil }

func (m *MockEngine) SetActiveConversation(ctx context.Context, id string) error { return nil }

func (m *MockEngine) SendMessage(ctx context.Context, ip realtime.SendMessageInput) (models.Message, error) {
	return models.Message{}, nil
}

func (m *MockEngine) PendingMessages(ctx context.Context) ([]models.Message, error) {
	return nil, nil
}

func (m *MockEngine) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	return nil, nil
}

func (m *MockEngine) Conversations(ctx context.Context) ([]models.Conversation, error) {
	return nil, nil
}

func (m *MockEngine) Stats(ctx context.Context) (realtime.Stats, error) {
	args := m.Called()
	return args.Get(0).(realtime.Stats), args.Error(1)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	tcs := map[string]struct {
		stats      realtime.Stats
		err        error
		wantCode   int
		wantStatus string
	}{
		"connected": {
			stats:      realtime.Stats{Status: "connected", Subscriptions: []string{"broadcast-support"}, Unread: 2},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		"reconnecting": {
			stats:      realtime.Stats{Status: "reconnecting"},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		"engine stopped": {
			err:        realtime.ErrStopped,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unavailable",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			engine := &MockEngine{}
			engine.On("Stats").Return(tc.stats, tc.err)
			s := New(Config{Mode: "test", Logger: log.NewNop(), Engine: engine, Gatherer: prometheus.NewRegistry()})

			rec := get(t, s, "/health")

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantStatus, gjson.Get(rec.Body.String(), "status").String())
			if tc.err == nil {
				assert.Equal(t, int64(tc.stats.Unread), gjson.Get(rec.Body.String(), "engine.unread").Int())
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "realtime_sync_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	engine := &MockEngine{}
	engine.On("Stats").Return(realtime.Stats{}, errors.New("unused"))
	s := New(Config{Mode: "test", Logger: log.NewNop(), Engine: engine, Gatherer: reg})

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "realtime_sync_test_total 1")
}

type MockAlerts struct {
	mock.Mock
}

func (m *MockAlerts) DispatchSecurityEvent(ctx context.Context, in alert.SecurityEventInput) error {
	return m.Called(in).Error(0)
}

func (m *MockAlerts) DispatchMisdelivery(ctx context.Context, in alert.MisdeliveryInput) error {
	return m.Called(in).Error(0)
}

func (m *MockAlerts) DispatchPanic(ctx context.Context, in alert.PanicInput) error {
	return m.Called(in).Error(0)
}

func TestRecovery_ReportsPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	alerts := new(MockAlerts)
	reported := make(chan alert.PanicInput, 1)
	alerts.On("DispatchPanic", mock.Anything).Run(func(args mock.Arguments) {
		reported <- args.Get(0).(alert.PanicInput)
	}).Return(nil)

	r := gin.New()
	r.Use(Recovery(log.NewNop(), alerts))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", gjson.Get(rec.Body.String(), "error").String())

	select {
	case in := <-reported:
		assert.Equal(t, "/boom", in.Path)
		assert.Equal(t, "kaboom", in.Value)
		assert.NotEmpty(t, in.Stack)
	case <-time.After(2 * time.Second):
		t.Fatal("panic was not reported")
	}
}

func TestRecovery_WithoutAlerts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(log.NewNop(), nil))
	r.GET("/boom", func(c *gin.Context) { panic(errors.New("kaboom")) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
