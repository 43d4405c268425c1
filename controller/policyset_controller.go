// controller/policyset_controller.go
package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	verdict_errors "github.com/sentinelworks/verdict/errors"
	"github.com/sentinelworks/verdict/model"
	"github.com/sentinelworks/verdict/service"
	"github.com/sentinelworks/verdict/store"
	"github.com/sentinelworks/verdict/util"
	helper_util "github.com/sentinelworks/verdict/util/helper"
)

type PolicySetController struct {
	policySetService service.IPolicySetService
}

func NewPolicySetController(policySetService service.IPolicySetService) *PolicySetController {
	return &PolicySetController{
		policySetService: policySetService,
	}
}

// RegisterRoutes registers the administrative API routes
func (pc *PolicySetController) RegisterRoutes(r *gin.RouterGroup) {
	policySets := r.Group("/policy-sets")
	{
		policySets.PUT("/:id", pc.PutPolicySet)
		policySets.GET("/:id", pc.GetPolicySet)
		policySets.GET("/:id/versions", pc.ListVersions)
		policySets.GET("", pc.ListPolicySets)
	}
}

// PutPolicySet stores a new immutable version of a policy set
func (pc *PolicySetController) PutPolicySet(c *gin.Context) {
	var set model.PolicySet
	if err := c.ShouldBindJSON(&set); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy set definition", err)
		return
	}
	set.ID = c.Param("id")

	id, version, err := pc.policySetService.Put(c.Request.Context(), set)
	if err != nil {
		var validationErr *verdict_errors.ValidationError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Invalid policy set definition",
				"violations": validationErr.Violations,
			})
		case errors.Is(err, verdict_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to store policy set", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "version": version})
}

// GetPolicySet returns one version of a policy set, latest by default
func (pc *PolicySetController) GetPolicySet(c *gin.Context) {
	id := c.Param("id")
	version := store.LatestVersion
	if raw := c.Query("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid version parameter", err)
			return
		}
		version = v
	}

	set, err := pc.policySetService.Get(c.Request.Context(), id, version)
	if err != nil {
		if errors.Is(err, verdict_errors.ErrPolicySetNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy set not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve policy set", err)
		}
		return
	}

	c.JSON(http.StatusOK, set)
}

// ListVersions returns the ascending version numbers of a policy set
func (pc *PolicySetController) ListVersions(c *gin.Context) {
	id := c.Param("id")

	versions, err := pc.policySetService.ListVersions(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, verdict_errors.ErrPolicySetNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy set not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to list versions", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "versions": versions})
}

// ListPolicySets returns stored policy set ids, paginated
func (pc *PolicySetController) ListPolicySets(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	ids, err := pc.policySetService.ListIDs(c.Request.Context(), limit, offset)
	if err != nil {
		if errors.Is(err, verdict_errors.ErrInvalidPagination) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policy sets", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ids": ids})
}
