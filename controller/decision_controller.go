// controller/decision_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinelworks/verdict/model"
	"github.com/sentinelworks/verdict/service"
	"github.com/sentinelworks/verdict/util"
)

// EvaluateRequest is the wire form of one authorization question.
type EvaluateRequest struct {
	Subject      model.AttributeMap `json:"subject"`
	Resource     model.AttributeMap `json:"resource"`
	Action       string             `json:"action" binding:"required"`
	Environment  model.AttributeMap `json:"environment"`
	PolicySetIDs []string           `json:"policy_set_ids" binding:"required"`
}

// EvaluateResponse mirrors the decision result. EvaluatedAt is RFC3339.
type EvaluateResponse struct {
	Verdict           model.Verdict       `json:"verdict"`
	MatchedRules      []model.MatchedRule `json:"matched_rules"`
	PolicySetVersions map[string]int      `json:"policy_set_versions"`
	EvaluatedAt       string              `json:"evaluated_at"`
	LatencyMicros     int64               `json:"latency_micros"`
}

type DecisionController struct {
	decisionService service.IDecisionService
}

func NewDecisionController(decisionService service.IDecisionService) *DecisionController {
	return &DecisionController{
		decisionService: decisionService,
	}
}

func (dc *DecisionController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/evaluate", dc.Evaluate)
}

// Evaluate answers one decision request. Evaluation problems never surface
// as HTTP errors; the fail-closed verdict in the body is the answer. Only a
// request that cannot be parsed at all is a 400.
func (dc *DecisionController) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid evaluate request", err)
		return
	}

	// The request's own context, not the gin wrapper: a client disconnect
	// must cancel in-flight store reads.
	result := dc.decisionService.Evaluate(c.Request.Context(), model.DecisionRequest{
		Subject:     req.Subject,
		Resource:    req.Resource,
		Action:      req.Action,
		Environment: req.Environment,
	}, req.PolicySetIDs)

	c.JSON(http.StatusOK, EvaluateResponse{
		Verdict:           result.Verdict,
		MatchedRules:      result.MatchedRules,
		PolicySetVersions: result.PolicySetVersions,
		EvaluatedAt:       result.EvaluatedAt.Format(time.RFC3339),
		LatencyMicros:     result.LatencyMicros,
	})
}
