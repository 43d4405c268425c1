// controller/controllers.go
package controller

import "github.com/sentinelworks/verdict/service"

type Controllers struct {
	PolicySet *PolicySetController
	Decision  *DecisionController
}

func InitializeControllers(policySetService service.IPolicySetService, decisionService service.IDecisionService) *Controllers {
	return &Controllers{
		PolicySet: NewPolicySetController(policySetService),
		Decision:  NewDecisionController(decisionService),
	}
}
