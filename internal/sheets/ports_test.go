package sheets

import (
	"strings"
	"testing"

	"portfel/internal/core"
)

func TestSheetName(t *testing.T) {
	tests := []struct {
		name string
		in   core.Household
		want string
	}{
		{"plain", core.Household{ID: 3, Name: "Home"}, "3 Home"},
		{"trims", core.Household{ID: 3, Name: "  Home "}, "3 Home"},
		{"strips A1 metacharacters", core.Household{ID: 12, Name: "Ann's!Flat"}, "12 AnnsFlat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SheetName(tt.in); got != tt.want {
				t.Errorf("SheetName() = %q, want %q", got, tt.want)
			}
		})
	}

	long := SheetName(core.Household{ID: 1, Name: strings.Repeat("x", 200)})
	if len(long) != maxTitle {
		t.Errorf("long title length = %d, want %d", len(long), maxTitle)
	}
}
