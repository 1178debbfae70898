// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package value_test

import (
	"testing"

	"github.com/braeun/eamon-interpreter/value"
)

func TestWideningPromotesIntToFloat(t *testing.T) {
	v, err := value.Add(value.NewInt(3), value.NewFloat(0.5))
	if err != nil {
		t.Fatalf("Add: %+v", err)
	}
	if v.Type() != value.Float || v.Float() != 3.5 {
		t.Errorf("got %s, want Float 3.5", v.GoString())
	}
}

func TestIntDivisionByZeroErrors(t *testing.T) {
	if _, err := value.Div(value.NewInt(1), value.NewInt(0)); err == nil {
		t.Fatal("expected an error")
	}
}

func TestFloatDivisionByZeroErrors(t *testing.T) {
	if _, err := value.Div(value.NewFloat(1), value.NewFloat(0)); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCastStringToIntParsesLeadingNumeric(t *testing.T) {
	s := value.NewString("42abc")
	got := s.Cast(value.Int)
	if got.Type() != value.Int || got.Int() != 42 {
		t.Errorf("got %s, want Int 42", got.GoString())
	}
}

func TestCastNonNumericStringToIntIsZero(t *testing.T) {
	s := value.NewString("hi")
	got := s.Cast(value.Int)
	if got.Type() != value.Int || got.Int() != 0 {
		t.Errorf("got %s, want Int 0", got.GoString())
	}
}

func TestCompareOrdersNumerically(t *testing.T) {
	if value.Compare(value.NewInt(1), value.NewInt(2)) >= 0 {
		t.Error("1 should compare less than 2")
	}
	if value.Compare(value.NewFloat(2), value.NewInt(2)) != 0 {
		t.Error("2.0 should compare equal to 2")
	}
}

func TestModFollowsIntDivisionSemantics(t *testing.T) {
	v, err := value.Mod(value.NewInt(7), value.NewInt(3))
	if err != nil {
		t.Fatalf("Mod: %+v", err)
	}
	if v.Int() != 1 {
		t.Errorf("7 MOD 3 = %d, want 1", v.Int())
	}
}
