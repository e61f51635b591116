package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"medalert/internal/database"
	"medalert/internal/domain"
	"medalert/internal/modules/notification"
	"medalert/internal/pkg/expo"
	"medalert/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type E2ETestSuite struct {
	router   *gin.Engine
	users    *repository.UserRepository
	push     *fakePushProvider
	resolved map[string]expo.Receipt
}

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fakePushProvider accepts every message and resolves receipts from a
// shared map the test mutates.
type fakePushProvider struct {
	sent     []expo.Message
	resolved map[string]expo.Receipt
}

func (f *fakePushProvider) SendBatch(_ context.Context, messages []expo.Message) ([]expo.Ticket, error) {
	tickets := make([]expo.Ticket, 0, len(messages))
	for _, m := range messages {
		f.sent = append(f.sent, m)
		tickets = append(tickets, expo.Ticket{
			Status: expo.StatusOK,
			ID:     fmt.Sprintf("ticket-%d", len(f.sent)),
		})
	}
	return tickets, nil
}

func (f *fakePushProvider) GetReceipts(_ context.Context, ticketIDs []string) (map[string]expo.Receipt, error) {
	out := make(map[string]expo.Receipt)
	for _, id := range ticketIDs {
		if r, ok := f.resolved[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

type noopSender struct{}

func (noopSender) Send(context.Context, string, string, string) error { return nil }

func setupTestSuite(t *testing.T) *E2ETestSuite {
	db, err := database.Connect(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err, "Failed to connect to test database")

	userRepo := repository.NewUserRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	require.NoError(t, db.AutoMigrate(userRepo.Model(), notifRepo.Model()))

	resolved := make(map[string]expo.Receipt)
	push := &fakePushProvider{resolved: resolved}

	svc := notification.NewService(
		notifRepo,
		userRepo,
		push,
		noopSender{},
		noopSender{},
		nil,
		zerolog.Nop(),
		5*time.Second,
	)
	handler := notification.NewHandler(svc)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	handler.RegisterRoutes(v1)

	return &E2ETestSuite{router: r, users: userRepo, push: push, resolved: resolved}
}

func (s *E2ETestSuite) request(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, TestResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var res TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return w, res
}

func (s *E2ETestSuite) createRecipient(t *testing.T) *domain.User {
	t.Helper()

	u := &domain.User{
		Name:      "Sarah Johnson",
		Email:     "sarah@clinic.example",
		Phone:     "+15550100",
		Role:      domain.RoleEMO,
		PushToken: "ExponentPushToken[e2e-device]",
		Preferences: domain.NotificationPreferences{
			Push:  true,
			SMS:   true,
			Email: true,
		},
		IsAvailable: true,
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func TestNotificationLifecycle(t *testing.T) {
	s := setupTestSuite(t)
	recipient := s.createRecipient(t)

	// Dispatch a notification.
	w, res := s.request(t, http.MethodPost, "/api/v1/notifications", gin.H{
		"user_id":  recipient.ID,
		"alert_id": "ALERT-42",
		"type":     "alert_assigned",
		"title":    "New alert assigned",
		"message":  "Patient P-100 requires review",
		"priority": "high",
		"data": gin.H{
			"alert_id":     "ALERT-42",
			"patient_name": "John Smith",
			"severity":     "critical",
			"stage":        "assigned",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, res.Success)

	created := res.Data["notification"].(map[string]interface{})
	notifID := created["notification_id"].(string)
	require.NotEmpty(t, notifID)
	require.Len(t, s.push.sent, 1)
	assert.Equal(t, "ExponentPushToken[e2e-device]", s.push.sent[0].To)

	// List for the recipient.
	w, res = s.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/notifications?recipient_id=%d", recipient.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := res.Data["notifications"].([]interface{})
	require.Len(t, list, 1)

	item := list[0].(map[string]interface{})
	assert.Equal(t, notifID, item["notification_id"])
	assert.Equal(t, false, item["is_read"])

	// Mark as read.
	w, res = s.request(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/notifications/%s/read?recipient_id=%d", notifID, recipient.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	read := res.Data["notification"].(map[string]interface{})
	assert.Equal(t, true, read["is_read"])

	// Resolve the push receipt and reconcile.
	s.resolved["ticket-1"] = expo.Receipt{Status: expo.StatusOK}
	w, _ = s.request(t, http.MethodPost, "/api/v1/notifications/receipts/check", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Stats now reflect the delivered push.
	w, res = s.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/notifications/stats?recipient_id=%d", recipient.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := res.Data["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["total"])
	assert.Equal(t, float64(1), stats["sent"])
	assert.Equal(t, float64(1), stats["delivered"])
}

func TestDispatchValidation(t *testing.T) {
	s := setupTestSuite(t)
	recipient := s.createRecipient(t)

	cases := []struct {
		name    string
		payload gin.H
		code    string
	}{
		{
			name: "unknown recipient",
			payload: gin.H{
				"user_id": int64(99999), "alert_id": "ALERT-1",
				"type": "alert_assigned", "title": "t", "message": "m",
			},
			code: "RECIPIENT_NOT_FOUND",
		},
		{
			name: "missing title",
			payload: gin.H{
				"user_id": recipient.ID, "alert_id": "ALERT-1",
				"type": "alert_assigned", "message": "m",
			},
			code: "INVALID_REQUEST",
		},
		{
			name: "unknown type",
			payload: gin.H{
				"user_id": recipient.ID, "alert_id": "ALERT-1",
				"type": "pager_duty", "title": "t", "message": "m",
			},
			code: "VALIDATION_ERROR",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, res := s.request(t, http.MethodPost, "/api/v1/notifications", tc.payload)
			assert.GreaterOrEqual(t, w.Code, 400)
			require.NotNil(t, res.Error)
			assert.Equal(t, tc.code, res.Error.Code)
		})
	}
}

func TestMarkReadWrongRecipient(t *testing.T) {
	s := setupTestSuite(t)
	recipient := s.createRecipient(t)

	_, res := s.request(t, http.MethodPost, "/api/v1/notifications", gin.H{
		"user_id":  recipient.ID,
		"alert_id": "ALERT-42",
		"type":     "alert_assigned",
		"title":    "New alert assigned",
		"message":  "Patient requires review",
	})
	notifID := res.Data["notification"].(map[string]interface{})["notification_id"].(string)

	w, res := s.request(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/notifications/%s/read?recipient_id=%d", notifID, recipient.ID+1), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, res.Error)
	assert.Equal(t, "NOT_FOUND", res.Error.Code)
}
