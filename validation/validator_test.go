package validation

import (
	"errors"
	"strings"
	"testing"
)

type signUp struct {
	Name    string  `json:"name" validate:"required,max=10"`
	Email   string  `json:"email" validate:"required,email"`
	Picture string  `json:"picture" validate:"omitempty,url"`
	Price   float64 `form:"price" validate:"gt=0"`
	Phone   string  `json:"phone,omitempty" validate:"omitempty,e164"`
}

func TestStructValid(t *testing.T) {
	in := signUp{Name: "Ana", Email: "ana@x.com", Price: 1, Phone: "+15555550100"}
	if err := Struct(&in); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestStructReportsFieldErrors(t *testing.T) {
	in := signUp{Name: "a name that is too long", Email: "nope", Picture: "::", Phone: "12"}
	err := Struct(in)

	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected Errors, got %T %v", err, err)
	}

	got := verrs.Map()
	want := map[string]string{
		"name":    "must be at most 10 characters",
		"email":   "must be a valid email address",
		"picture": "must be a valid URL",
		"price":   "must be greater than 0",
		"phone":   "must be a valid phone number",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Fatalf("field %s: expected %q, got %q", field, msg, got[field])
		}
	}
	if !strings.HasPrefix(err.Error(), "Invalid input data: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestStructRequired(t *testing.T) {
	err := Struct(signUp{Price: 3})
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected Errors, got %v", err)
	}
	m := verrs.Map()
	if m["name"] != "is required" || m["email"] != "is required" {
		t.Fatalf("unexpected violations %v", m)
	}
}

func TestStructRejectsNonStruct(t *testing.T) {
	err := Struct("a string")
	if err == nil {
		t.Fatal("expected error for non-struct input")
	}
	var verrs Errors
	if errors.As(err, &verrs) {
		t.Fatal("non-struct input must not produce field errors")
	}
}
