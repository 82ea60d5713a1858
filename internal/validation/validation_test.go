package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	ThemeID  string `validate:"omitempty,uuid"`
	DaysBack int    `validate:"min=0,max=3650"`
	Order    string `validate:"required,oneof=mdy dmy"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantTag []string
	}{
		{"valid", sample{ThemeID: "2f1e5a56-6d4e-4c1d-9f3a-1c2b3d4e5f60", DaysBack: 30, Order: "mdy"}, nil},
		{"empty theme ok", sample{Order: "dmy"}, nil},
		{"bad uuid", sample{ThemeID: "nope", Order: "mdy"}, []string{"uuid"}},
		{"negative days and missing order", sample{DaysBack: -1}, []string{"min", "required"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantTag == nil {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("Struct() error = %v, want *Error", err)
			}
			if len(verr.Fields) != len(tt.wantTag) {
				t.Fatalf("got %d field errors, want %d: %v", len(verr.Fields), len(tt.wantTag), verr)
			}
			for i, tag := range tt.wantTag {
				if verr.Fields[i].Tag != tag {
					t.Errorf("field %d tag = %q, want %q", i, verr.Fields[i].Tag, tag)
				}
			}
		})
	}
}

func TestVar(t *testing.T) {
	if err := Var("themeId", "2f1e5a56-6d4e-4c1d-9f3a-1c2b3d4e5f60", "uuid"); err != nil {
		t.Errorf("Var() error = %v", err)
	}
	err := Var("themeId", "x", "uuid")
	if err == nil || !strings.Contains(err.Error(), "themeId must be a valid UUID") {
		t.Errorf("Var() error = %v", err)
	}
}
