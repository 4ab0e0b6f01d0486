package model

import (
	"sort"
	"testing"
)

func TestRuleForKnownTypes(t *testing.T) {
	tests := []struct {
		vtype    ViolationType
		severity ViolationSeverity
		deduct   int
	}{
		{ViolationTabSwitch, SeverityCritical, 25},
		{ViolationWindowBlur, SeverityCritical, 25},
		{ViolationDevTools, SeverityCritical, 25},
		{ViolationClipboard, SeverityHigh, 15},
		{ViolationFullscreenExit, SeverityHigh, 15},
		{ViolationKeyboardShortcut, SeverityMedium, 10},
		{ViolationNetworkDisconnect, SeverityMedium, 10},
		{ViolationRightClick, SeverityLow, 5},
		{ViolationAutoSubmit, SeverityLow, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.vtype), func(t *testing.T) {
			rule, ok := RuleFor(tt.vtype)
			if !ok {
				t.Fatalf("RuleFor(%s) not found", tt.vtype)
			}
			if rule.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", rule.Severity, tt.severity)
			}
			if rule.Deduction != tt.deduct {
				t.Errorf("deduction = %d, want %d", rule.Deduction, tt.deduct)
			}
		})
	}
}

func TestRuleForUnknownType(t *testing.T) {
	if _, ok := RuleFor("made_up_violation"); ok {
		t.Error("RuleFor accepted an unknown type")
	}
	if _, ok := RuleFor(""); ok {
		t.Error("RuleFor accepted an empty type")
	}
}

func TestValidViolationTypesSorted(t *testing.T) {
	types := ValidViolationTypes()
	if len(types) != 11 {
		t.Fatalf("len = %d, want 11", len(types))
	}
	if !sort.StringsAreSorted(types) {
		t.Errorf("types not sorted: %v", types)
	}
	for _, typ := range types {
		if _, ok := RuleFor(ViolationType(typ)); !ok {
			t.Errorf("listed type %q has no rule", typ)
		}
	}
}
