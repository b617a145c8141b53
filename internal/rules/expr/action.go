package expr

import (
	"encoding/json"
	"fmt"
)

// Action operations. Applied in document order; each records the field it
// touched for the execution log.
const (
	ActionCapApproved      = "cap_approved"
	ActionMultiplyApproved = "multiply_approved"
	ActionDeny             = "deny"
	ActionRequireReview    = "require_review"
	ActionAddNote          = "add_note"
)

// Action is one decision mutation.
type Action struct {
	Op     string  `json:"op"`
	Value  float64 `json:"value,omitempty"`
	Reason string  `json:"reason,omitempty"`
	Text   string  `json:"text,omitempty"`
}

// ParseActions decodes an action document (a JSON array).
func ParseActions(raw []byte) ([]Action, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var actions []Action
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, fmt.Errorf("parse actions: %w", err)
	}
	return actions, nil
}

// Outcome is the mutable slice of the decision an action may touch.
type Outcome struct {
	ApprovedAmount       float64
	DenialReasons        []string
	RequiresManualReview bool
	Notes                []string
}

// Apply runs one action against the outcome and returns the name of the
// modified field.
func Apply(action Action, outcome *Outcome) (string, error) {
	switch action.Op {
	case ActionCapApproved:
		if action.Value < 0 {
			return "", fmt.Errorf("cap_approved value must be non-negative")
		}
		if outcome.ApprovedAmount > action.Value {
			outcome.ApprovedAmount = action.Value
		}
		return "approvedAmount", nil
	case ActionMultiplyApproved:
		if action.Value < 0 || action.Value > 1 {
			return "", fmt.Errorf("multiply_approved value must be within [0,1]")
		}
		outcome.ApprovedAmount *= action.Value
		return "approvedAmount", nil
	case ActionDeny:
		outcome.ApprovedAmount = 0
		reason := action.Reason
		if reason == "" {
			reason = "denied by rule"
		}
		outcome.DenialReasons = append(outcome.DenialReasons, reason)
		return "denialReasons", nil
	case ActionRequireReview:
		outcome.RequiresManualReview = true
		if action.Reason != "" {
			outcome.Notes = append(outcome.Notes, action.Reason)
		}
		return "requiresManualReview", nil
	case ActionAddNote:
		outcome.Notes = append(outcome.Notes, action.Text)
		return "notes", nil
	default:
		return "", fmt.Errorf("unknown action %q", action.Op)
	}
}
