package validation

import (
	"testing"
)

func TestCheckoutRequest_Valid(t *testing.T) {
	v := New()

	req := CheckoutRequest{
		Items: []CartItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	}

	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCheckoutRequest_EmptyItems(t *testing.T) {
	v := New()

	req := CheckoutRequest{Items: []CartItem{}}

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for empty items, got nil")
	}
}

func TestCheckoutRequest_ZeroQuantity(t *testing.T) {
	v := New()

	req := CheckoutRequest{
		Items: []CartItem{{ProductID: 1, Quantity: 0}},
	}

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for zero quantity, got nil")
	}
}

func TestRegisterRequest_PhoneRule(t *testing.T) {
	v := New()

	base := RegisterRequest{
		Username:    "alice",
		FirstName:   "Alice",
		LastName:    "Doe",
		DateOfBirth: "1990-04-12",
		Email:       "alice@example.com",
		Password:    "longenoughpw",
	}

	cases := []struct {
		phone string
		ok    bool
	}{
		{"3001234567", true},
		{"300-123-4567", true},
		{"300 123 4567", true},
		{"2001234567", false},
		{"30012345", false},
		{"", false},
	}

	for _, tc := range cases {
		req := base
		req.Phone = tc.phone
		err := v.Struct(req)
		if tc.ok && err != nil {
			t.Errorf("phone %q: expected valid, got %v", tc.phone, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("phone %q: expected validation error, got nil", tc.phone)
		}
	}
}

func TestUserPatchRequest_OmittedFieldsSkipped(t *testing.T) {
	v := New()

	// only one field supplied; the rest must not trip "required"-style rules
	name := "bob"
	req := UserPatchRequest{Username: &name}

	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}

	bad := "not-a-date"
	req = UserPatchRequest{DateOfBirth: &bad}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for malformed date, got nil")
	}
}
