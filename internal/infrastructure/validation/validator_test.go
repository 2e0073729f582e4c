package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Name     string     `json:"name" validate:"required,notblank"`
	Alphabet string     `json:"alphabet" validate:"omitempty,keyalphabet"`
	Deadline *time.Time `json:"deadline,omitempty" validate:"omitempty,future"`
}

func TestValidate_CustomTags(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name      string
		in        sample
		wantField string
	}{
		{"valid", sample{Name: "x", Alphabet: "abc123", Deadline: &future}, ""},
		{"blank name", sample{Name: "   "}, "name"},
		{"alphabet with hash", sample{Name: "x", Alphabet: "ab#"}, "alphabet"},
		{"alphabet with newline", sample{Name: "x", Alphabet: "ab\n"}, "alphabet"},
		{"unicode alphabet", sample{Name: "x", Alphabet: "äöü"}, ""},
		{"deadline in the past", sample{Name: "x", Deadline: &past}, "deadline"},
		{"no deadline", sample{Name: "x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error = %v, want ValidationErrors", err)
			}
			if verrs[0].Field() != tt.wantField {
				t.Errorf("failed field = %q, want %q", verrs[0].Field(), tt.wantField)
			}
		})
	}
}

func TestGet_Singleton(t *testing.T) {
	if Get() != Get() {
		t.Error("Get() should return the same instance")
	}
}
