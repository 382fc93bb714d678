package engine

import (
	"github.com/jmturner/cinnamon/internal/model"
)

// Auto-approval decision reasons.
const (
	ReasonApproved      = "approved"
	ReasonDisabled      = "disabled"
	ReasonLowConfidence = "low_confidence"
)

// AutoApprovalPolicy decides whether a prediction is strong enough to
// commit without human confirmation.
type AutoApprovalPolicy struct {
	ApproveTags []string // applied alongside an auto-approved category
	ManualTags  []string // applied on manual confirmation
	Threshold   float64  // 0 disables auto-approval entirely
}

// Decide returns whether the prediction is approved and the reason for
// the decision.
func (p AutoApprovalPolicy) Decide(pred *model.Prediction) (bool, string) {
	if pred == nil {
		return false, ReasonLowConfidence
	}
	if p.Threshold <= 0 {
		return false, ReasonDisabled
	}
	if pred.Confidence < p.Threshold {
		return false, ReasonLowConfidence
	}
	return true, ReasonApproved
}
