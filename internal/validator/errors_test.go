package validator

import (
	"encoding/json"
	"reflect"
	"testing"
)

func sampleTree() Errors {
	return Errors{
		"id": Message("Question ID is required"),
		"matchingDetails": Fields(Errors{
			"leftColumn": List([]*Node{nil, Message("Left column item is required")}),
		}),
		"options": List([]*Node{
			Fields(Errors{"text": Message("Option text is required")}),
		}),
	}
}

func TestErrors_Lookup(t *testing.T) {
	errs := sampleTree()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"id", "Question ID is required", true},
		{"matchingDetails.leftColumn.1", "Left column item is required", true},
		{"matchingDetails.leftColumn.0", "", false},
		{"matchingDetails.leftColumn.7", "", false},
		{"matchingDetails.leftColumn.x", "", false},
		{"matchingDetails", "", false},
		{"options.0.text", "Option text is required", true},
		{"id.nested", "", false},
		{"missing", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := errs.Lookup(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestErrors_Flatten(t *testing.T) {
	got := sampleTree().Flatten()
	want := map[string]string{
		"id":                           "Question ID is required",
		"matchingDetails.leftColumn.1": "Left column item is required",
		"options.0.text":               "Option text is required",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}

	paths := sampleTree().Paths()
	if len(paths) != 3 || paths[0] != "id" {
		t.Errorf("Paths() = %v", paths)
	}
}

func TestErrors_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(sampleTree())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["id"] != "Question ID is required" {
		t.Errorf("id = %v", got["id"])
	}
	left := got["matchingDetails"].(map[string]interface{})["leftColumn"].([]interface{})
	if left[0] != nil || left[1] != "Left column item is required" {
		t.Errorf("leftColumn = %v", left)
	}
}

func TestErrors_EmptyMarshalsToObject(t *testing.T) {
	raw, err := json.Marshal(Errors{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("Marshal(Errors{}) = %s, want {}", raw)
	}
}
