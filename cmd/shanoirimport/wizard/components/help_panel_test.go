package components

import (
	"strings"
	"testing"
)

func TestHelpPanel_SourceVariant(t *testing.T) {
	h := NewHelpPanel()
	h.SetSize(120, 20)
	h.SetField("path")

	h.SetSource("archive")
	if view := h.View(); !strings.Contains(view, "ParaVision") {
		t.Errorf("Expected archive help, got:\n%s", view)
	}

	h.SetSource("importjob")
	if view := h.View(); !strings.Contains(view, "work folder") {
		t.Errorf("Expected import job help, got:\n%s", view)
	}
}

func TestHelpPanel_Checks(t *testing.T) {
	h := NewHelpPanel()
	h.SetSize(120, 20)
	h.SetField("output")
	h.SetChecks(Check{Level: CheckWarn, Text: "file exists and will be overwritten"})

	if view := h.View(); !strings.Contains(view, "will be overwritten") {
		t.Errorf("Expected check in view, got:\n%s", view)
	}

	// moving to another field drops the checks
	h.SetField("confirm")
	if len(h.Checks()) != 0 {
		t.Errorf("Expected checks to be cleared, got %v", h.Checks())
	}
	h.SetField("confirm")
	h.SetChecks(Check{Text: "ok"})
	h.SetField("confirm")
	if len(h.Checks()) != 1 {
		t.Errorf("Expected checks kept on the same field")
	}
}

func TestHelpPanel_UnknownField(t *testing.T) {
	h := NewHelpPanel()
	if view := h.View(); !strings.Contains(view, "Select a field") {
		t.Errorf("Expected placeholder, got:\n%s", view)
	}
}
