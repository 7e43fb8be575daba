package fhir

import (
	"encoding/json"
	"testing"
)

func TestNewOperationOutcome(t *testing.T) {
	oo := NewOperationOutcome("error", "processing", "something went wrong")

	if oo.ResourceType != "OperationOutcome" {
		t.Errorf("expected resourceType OperationOutcome, got %s", oo.ResourceType)
	}
	if len(oo.Issue) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(oo.Issue))
	}
	if oo.Issue[0].Severity != "error" || oo.Issue[0].Code != "processing" {
		t.Errorf("unexpected issue %+v", oo.Issue[0])
	}
	if oo.Issue[0].Diagnostics != "something went wrong" {
		t.Errorf("expected diagnostics 'something went wrong', got %s", oo.Issue[0].Diagnostics)
	}
}

func TestErrorOutcome(t *testing.T) {
	oo := ErrorOutcome("test error")
	if oo.Issue[0].Severity != IssueSeverityError || oo.Issue[0].Code != IssueTypeProcessing {
		t.Errorf("unexpected issue %+v", oo.Issue[0])
	}
}

func TestNotFoundOutcome(t *testing.T) {
	oo := NotFoundOutcome("Bundle", "abc")
	if oo.Issue[0].Code != IssueTypeNotFound {
		t.Errorf("expected not-found, got %s", oo.Issue[0].Code)
	}
	if oo.Issue[0].Diagnostics != "Bundle/abc not found" {
		t.Errorf("unexpected diagnostics %q", oo.Issue[0].Diagnostics)
	}
}

func TestRequiredOutcome(t *testing.T) {
	oo := RequiredOutcome("subject", "Composition has no subject")
	if oo.Issue[0].Code != IssueTypeRequired {
		t.Errorf("expected required, got %s", oo.Issue[0].Code)
	}
	if len(oo.Issue[0].Expression) != 1 || oo.Issue[0].Expression[0] != "subject" {
		t.Errorf("expected expression [subject], got %v", oo.Issue[0].Expression)
	}

	if oo := RequiredOutcome("", "missing"); oo.Issue[0].Expression != nil {
		t.Errorf("expected no expression without a location, got %v", oo.Issue[0].Expression)
	}
}

func TestExceptionOutcome(t *testing.T) {
	oo := ExceptionOutcome("copy contract violated")
	if oo.Issue[0].Severity != IssueSeverityFatal || oo.Issue[0].Code != IssueTypeException {
		t.Errorf("unexpected issue %+v", oo.Issue[0])
	}
}

func TestOperationOutcome_JSON(t *testing.T) {
	data, err := json.Marshal(RequiredOutcome("subject", "missing"))
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	issues := parsed["issue"].([]interface{})
	issue := issues[0].(map[string]interface{})
	if _, ok := issue["details"]; ok {
		t.Error("expected empty details to be omitted")
	}
	if issue["code"] != "required" {
		t.Errorf("expected code required, got %v", issue["code"])
	}
}
