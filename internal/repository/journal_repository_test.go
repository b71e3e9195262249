package repository

import (
	"reflect"
	"testing"

	"github.com/stemsi/qbank-console/internal/model"
)

func TestJournalWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    model.JournalFilter
		wantWhere string
		wantArgs  []interface{}
	}{
		{"no filter", model.JournalFilter{}, "", nil},
		{"parent only", model.JournalFilter{ParentID: "p1"}, "WHERE parent_id = $1", []interface{}{"p1"}},
		{
			"all",
			model.JournalFilter{ParentID: "p1", SessionID: "s1", Status: model.SubmissionFailed},
			"WHERE parent_id = $1 AND session_id = $2 AND status = $3",
			[]interface{}{"p1", "s1", "failed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := journalWhere(tt.filter)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}
