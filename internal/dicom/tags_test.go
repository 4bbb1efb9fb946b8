package dicom

import (
	"strings"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestLookupField_Valid(t *testing.T) {
	tests := []struct {
		name          string
		expectedTag   tag.Tag
		expectedScope Scope
	}{
		// Patient level fields
		{"PatientName", tag.PatientName, ScopePatient},
		{"PatientID", tag.PatientID, ScopePatient},
		{"PatientWeight", tag.PatientWeight, ScopePatient},

		// Study level fields
		{"StudyDescription", tag.StudyDescription, ScopeStudy},
		{"InstitutionName", tag.InstitutionName, ScopeStudy},

		// Series level fields
		{"ProtocolName", tag.ProtocolName, ScopeSeries},
		{"Manufacturer", tag.Manufacturer, ScopeSeries},
		{"MagneticFieldStrength", tag.MagneticFieldStrength, ScopeSeries},

		// Image level fields
		{"InstanceNumber", tag.InstanceNumber, ScopeImage},
		{"EchoTime", tag.EchoTime, ScopeImage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			field, err := LookupField(tc.name)
			if err != nil {
				t.Fatalf("LookupField(%q) returned error: %v", tc.name, err)
			}
			if field.Tag != tc.expectedTag {
				t.Errorf("LookupField(%q).Tag = %v, want %v", tc.name, field.Tag, tc.expectedTag)
			}
			if field.Scope != tc.expectedScope {
				t.Errorf("LookupField(%q).Scope = %v, want %v", tc.name, field.Scope, tc.expectedScope)
			}
			if field.Name != tc.name {
				t.Errorf("LookupField(%q).Name = %q, want %q", tc.name, field.Name, tc.name)
			}
		})
	}
}

func TestLookupField_CaseInsensitive(t *testing.T) {
	for _, name := range []string{"protocolname", "PROTOCOLNAME", " ProtocolName "} {
		field, err := LookupField(name)
		if err != nil {
			t.Fatalf("LookupField(%q) returned error: %v", name, err)
		}
		if field.Name != "ProtocolName" {
			t.Errorf("LookupField(%q).Name = %q, want ProtocolName", name, field.Name)
		}
	}
}

func TestLookupField_Suggestion(t *testing.T) {
	_, err := LookupField("ProtocolNme")
	if err == nil {
		t.Fatal("Expected error for misspelled field")
	}
	if !strings.Contains(err.Error(), `did you mean "ProtocolName"`) {
		t.Errorf("Expected suggestion for ProtocolName, got %v", err)
	}

	_, err = LookupField("CompletelyUnrelatedAttributeName")
	if err == nil {
		t.Fatal("Expected error for unknown field")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("Expected no suggestion, got %v", err)
	}
}

func TestFieldsInScope(t *testing.T) {
	fields := FieldsInScope(ScopeSeries)
	if len(fields) == 0 {
		t.Fatal("Expected series fields")
	}
	for i, f := range fields {
		if f.Scope != ScopeSeries {
			t.Errorf("Field %s has scope %v", f.Name, f.Scope)
		}
		if i > 0 && fields[i-1].Name > f.Name {
			t.Errorf("Fields not sorted: %s before %s", fields[i-1].Name, f.Name)
		}
	}
}

func TestScopeString(t *testing.T) {
	if ScopeSeries.String() != "Series" {
		t.Errorf("ScopeSeries.String() = %q", ScopeSeries.String())
	}
	if Scope(42).String() != "Unknown" {
		t.Errorf("Scope(42).String() = %q", Scope(42).String())
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"protocolname", "protocolnme", 1},
	}
	for _, tc := range tests {
		if got := levenshteinDistance(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
