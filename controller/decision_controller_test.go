// controller/decision_controller_test.go
package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sentinelworks/verdict/controller"
	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/model"
	test_mock "github.com/sentinelworks/verdict/test/mock"
)

func setupDecisionRouter(svc *test_mock.MockDecisionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/")
	controller.NewDecisionController(svc).RegisterRoutes(api)
	return r
}

func TestDecisionController(t *testing.T) {
	logger.InitLogger(t.TempDir())
	defer logger.Sync()

	t.Run("Evaluate_AllowVerdict", func(t *testing.T) {
		svc := new(test_mock.MockDecisionService)
		svc.On("Evaluate", mock.Anything, mock.Anything, []string{"documents"}).Return(model.DecisionResult{
			Verdict:           model.VerdictAllow,
			MatchedRules:      []model.MatchedRule{{PolicySetID: "documents", RuleID: "allow-reads"}},
			PolicySetVersions: map[string]int{"documents": 1},
			EvaluatedAt:       time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
			LatencyMicros:     85,
		})
		router := setupDecisionRouter(svc)

		body := strings.NewReader(`{
			"subject": {"id": "alice"},
			"resource": {"type": "document"},
			"action": "read",
			"environment": {},
			"policy_set_ids": ["documents"]
		}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp controller.EvaluateResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, model.VerdictAllow, resp.Verdict)
		assert.Equal(t, "2024-06-01T09:00:00Z", resp.EvaluatedAt)
		assert.Equal(t, int64(85), resp.LatencyMicros)
	})

	t.Run("Evaluate_DenyIsStillHTTP200", func(t *testing.T) {
		svc := new(test_mock.MockDecisionService)
		svc.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Return(model.DecisionResult{
			Verdict:           model.VerdictDeny,
			PolicySetVersions: map[string]int{},
		})
		router := setupDecisionRouter(svc)

		body := strings.NewReader(`{"action": "delete", "policy_set_ids": ["missing"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp controller.EvaluateResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, model.VerdictDeny, resp.Verdict)
	})

	t.Run("Evaluate_CallerCancellationReachesService", func(t *testing.T) {
		svc := new(test_mock.MockDecisionService)
		var captured context.Context
		svc.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(0).(context.Context)
			}).
			Return(model.DecisionResult{Verdict: model.VerdictDeny})
		router := setupDecisionRouter(svc)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		body := strings.NewReader(`{"action": "read", "policy_set_ids": ["documents"]}`)
		req, _ := http.NewRequestWithContext(ctx, "POST", "/evaluate", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// The service must see a cancellable context, and a disconnected
		// client must already read as cancelled on it.
		require.NotNil(t, captured)
		require.NotNil(t, captured.Done())
		assert.ErrorIs(t, captured.Err(), context.Canceled)
	})

	t.Run("Evaluate_MalformedBody", func(t *testing.T) {
		svc := new(test_mock.MockDecisionService)
		router := setupDecisionRouter(svc)

		body := strings.NewReader(`{"action": }`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Evaluate_MissingRequiredFields", func(t *testing.T) {
		svc := new(test_mock.MockDecisionService)
		router := setupDecisionRouter(svc)

		body := strings.NewReader(`{"subject": {"id": "alice"}}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
