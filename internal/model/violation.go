package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ViolationType is a closed enumeration of proctoring rule breaches the
// client may report. Unknown types are rejected at the API boundary.
type ViolationType string

const (
	ViolationTabSwitch         ViolationType = "tab_switch"
	ViolationWindowBlur        ViolationType = "window_blur"
	ViolationDevTools          ViolationType = "dev_tools"
	ViolationClipboard         ViolationType = "clipboard"
	ViolationFullscreenExit    ViolationType = "fullscreen_exit"
	ViolationMultipleMonitors  ViolationType = "multiple_monitors"
	ViolationScreenShare       ViolationType = "screen_share"
	ViolationKeyboardShortcut  ViolationType = "keyboard_shortcut"
	ViolationRightClick        ViolationType = "right_click"
	ViolationNetworkDisconnect ViolationType = "network_disconnect"
	ViolationAutoSubmit        ViolationType = "auto_submit"
)

// ViolationSeverity orders violations by how strongly they indicate cheating.
type ViolationSeverity string

const (
	SeverityLow      ViolationSeverity = "low"
	SeverityMedium   ViolationSeverity = "medium"
	SeverityHigh     ViolationSeverity = "high"
	SeverityCritical ViolationSeverity = "critical"
)

// ViolationAction is what the client is told to do after the report.
type ViolationAction string

const (
	ActionLog  ViolationAction = "log"
	ActionWarn ViolationAction = "warn"
	ActionFlag ViolationAction = "flag"
)

// ViolationRule maps a violation type to its severity, security-score
// deduction, client action and description. Termination is never decided
// per-type; it falls out of the aggregate threshold rule on ExamSecurity.
type ViolationRule struct {
	Severity    ViolationSeverity `json:"severity"`
	Deduction   int               `json:"deduction"`
	Action      ViolationAction   `json:"action"`
	Description string            `json:"description"`
}

// violationRules is the fixed severity/action table.
var violationRules = map[ViolationType]ViolationRule{
	ViolationTabSwitch:         {SeverityCritical, 25, ActionFlag, "Switched to another browser tab"},
	ViolationWindowBlur:        {SeverityCritical, 25, ActionFlag, "Exam window lost focus"},
	ViolationDevTools:          {SeverityCritical, 25, ActionFlag, "Browser developer tools opened"},
	ViolationClipboard:         {SeverityHigh, 15, ActionWarn, "Clipboard copy/cut/paste detected"},
	ViolationFullscreenExit:    {SeverityHigh, 15, ActionWarn, "Left fullscreen mode"},
	ViolationMultipleMonitors:  {SeverityHigh, 15, ActionWarn, "Multiple displays detected"},
	ViolationScreenShare:       {SeverityHigh, 15, ActionWarn, "Screen sharing detected"},
	ViolationKeyboardShortcut:  {SeverityMedium, 10, ActionWarn, "Blocked keyboard shortcut used"},
	ViolationRightClick:        {SeverityLow, 5, ActionLog, "Context menu opened"},
	ViolationNetworkDisconnect: {SeverityMedium, 10, ActionLog, "Network connection dropped"},
	ViolationAutoSubmit:        {SeverityLow, 0, ActionLog, "Attempt was auto-submitted"},
}

// RuleFor returns the rule for a violation type, or false for unknown types.
func RuleFor(t ViolationType) (ViolationRule, bool) {
	r, ok := violationRules[t]
	return r, ok
}

// ValidViolationTypes returns the sorted list of accepted violation types,
// used in 400 responses so clients can self-correct.
func ValidViolationTypes() []string {
	types := make([]string, 0, len(violationRules))
	for t := range violationRules {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// ViolationEvent is one appended violation record on an attempt.
type ViolationEvent struct {
	ID         uuid.UUID         `json:"id"`
	AttemptID  uuid.UUID         `json:"attempt_id"`
	StudentID  int               `json:"student_id"`
	Type       ViolationType     `json:"type"`
	Severity   ViolationSeverity `json:"severity"`
	Deduction  int               `json:"deduction"`
	Details    string            `json:"details,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// ReportViolationRequest is the payload for POST /security/violations.
type ReportViolationRequest struct {
	AttemptID     uuid.UUID `json:"attempt_id" binding:"required"`
	ViolationType string    `json:"violation_type" binding:"required,min=1,max=64"`
	Details       string    `json:"details" binding:"omitempty,max=2048"`
}

// ViolationOutcome is returned to the client after a violation report.
type ViolationOutcome struct {
	Accepted        bool              `json:"accepted"`
	Severity        ViolationSeverity `json:"severity"`
	Action          ViolationAction   `json:"action"`
	SecurityScore   int               `json:"security_score"`
	Terminated      bool              `json:"terminated"`
	RemainingBudget RemainingBudget   `json:"remaining_budget"`
}

// RemainingBudget tells the client how many more violations of each class
// it can absorb before the attempt is terminated.
type RemainingBudget struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Score    int `json:"score_above_floor"`
}
