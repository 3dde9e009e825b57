package address

import (
	"errors"
	"strings"
	"testing"

	"github.com/refdesk/refrank/internal/domain"
)

func TestNormalized_Components(t *testing.T) {
	tests := []struct {
		name                     string
		street, city, state, zip string
		want                     string
	}{
		{"full", "14350 Old Marlboro Pike", "Upper Marlboro", "MD", "20772",
			"14350 Old Marlboro Pike, Upper Marlboro, MD 20772"},
		{"no_street", "", "Washington", "DC", "20001", "Washington, DC 20001"},
		{"no_city", "1600 Pennsylvania Ave NW", "", "DC", "20500",
			"1600 Pennsylvania Ave NW, DC 20500"},
		{"state_only", "", "", "md", "", "MD"},
		{"zip_only", "", "", "", "20772", "20772"},
		{"inner_whitespace", "  14350   Old  Marlboro Pike ", " Upper  Marlboro ", " md ", " 20772 ",
			"14350 Old Marlboro Pike, Upper Marlboro, MD 20772"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.street, tt.city, tt.state, tt.zip)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := a.Normalized(); got != tt.want {
				t.Errorf("Normalized() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalized_NoCommaArtifacts(t *testing.T) {
	combos := []struct{ street, city, state, zip string }{
		{"", "Washington", "DC", "20001"},
		{"14350 Old Marlboro Pike", "", "", "20772"},
		{"", "", "MD", ""},
		{"1 Main St", "Annapolis", "", ""},
		{"", "Baltimore", "", "21201"},
	}
	for _, c := range combos {
		a, err := New(c.street, c.city, c.state, c.zip)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := a.Normalized()
		for _, bad := range []string{", ,", ",,", " ,"} {
			if strings.Contains(got, bad) {
				t.Errorf("Normalized() = %q contains artifact %q", got, bad)
			}
		}
		if got == "" {
			t.Error("Normalized() is empty for non-empty components")
		}
		if got[0] == ',' || got[len(got)-1] == ',' {
			t.Errorf("Normalized() = %q has leading/trailing comma", got)
		}
	}
}

func TestNormalized_DistinctInputs(t *testing.T) {
	a1, _ := New("14350 Old Marlboro Pike", "Upper Marlboro", "MD", "20772")
	a2, _ := New("14350 Old Marlboro Pike", "Upper Marlboro", "MD", "20773")
	a3, _ := New("", "Washington", "DC", "20001")

	if a1.Normalized() == a2.Normalized() {
		t.Errorf("distinct zips normalized to same string %q", a1.Normalized())
	}
	if a1.Normalized() == a3.Normalized() {
		t.Errorf("distinct addresses normalized to same string %q", a1.Normalized())
	}
}

func TestNewFreeform_CollapsesArtifacts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"14350 Old Marlboro Pike, Upper Marlboro, MD 20772",
			"14350 Old Marlboro Pike, Upper Marlboro, MD 20772"},
		{"14350 Old Marlboro Pike, , MD 20772", "14350 Old Marlboro Pike, MD 20772"},
		{", Washington, DC 20001,", "Washington, DC 20001"},
		{"  1 Main   St ,,, Annapolis ", "1 Main St, Annapolis"},
	}
	for _, tt := range tests {
		a, err := NewFreeform(tt.in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.in, err)
		}
		if got := a.Normalized(); got != tt.want {
			t.Errorf("Normalized(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_Empty(t *testing.T) {
	if _, err := New("", "  ", "", " "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewFreeform("  , , "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHasStreetNumber(t *testing.T) {
	tests := []struct {
		street string
		want   bool
	}{
		{"14350 Old Marlboro Pike", true},
		{"Old Marlboro Pike", false},
		{"", false},
	}
	for _, tt := range tests {
		a, err := New(tt.street, "Upper Marlboro", "MD", "20772")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := a.HasStreetNumber(); got != tt.want {
			t.Errorf("HasStreetNumber(%q) = %v, want %v", tt.street, got, tt.want)
		}
	}

	f, _ := NewFreeform("14350 Old Marlboro Pike, Upper Marlboro, MD")
	if !f.HasStreetNumber() {
		t.Error("expected street number in free-form address")
	}
	f2, _ := NewFreeform("Upper Marlboro, MD 20772")
	if f2.HasStreetNumber() {
		t.Error("city-level free-form address should not report a street number")
	}
}

func TestState_Getters(t *testing.T) {
	a, _ := New("14350 Old Marlboro Pike", "Upper Marlboro", "MD", "20772")
	if a.Street() != "14350 Old Marlboro Pike" || a.City() != "Upper Marlboro" ||
		a.State() != "MD" || a.Zip() != "20772" {
		t.Errorf("unexpected components: %q %q %q %q", a.Street(), a.City(), a.State(), a.Zip())
	}
	if a.IsFreeform() {
		t.Error("component address reported as free-form")
	}
}

func TestState_Uppercased(t *testing.T) {
	a, _ := New("", "Upper Marlboro", "md", "")
	if a.State() != "MD" {
		t.Errorf("State() = %q, want MD", a.State())
	}
}
