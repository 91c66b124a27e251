package pheromone

import (
	"errors"
	"math"
	"testing"
)

func TestNewRejectsDecayOutsideOpenUnitInterval(t *testing.T) {
	for _, decay := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		if _, err := New(5, 5, 2, decay); !errors.Is(err, ErrInvalidField) {
			t.Fatalf("decay=%v: expected invalid field, got %v", decay, err)
		}
	}
}

func TestDecayLaw(t *testing.T) {
	f, err := New(10, 10, 2, 0.9)
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	const amount = 3.5
	f.Deposit(4, 6, 1, amount)
	for n := 0; n <= 25; n++ {
		want := amount * math.Pow(0.9, float64(n))
		if got := f.At(4, 6, 1); math.Abs(got-want) > 1e-9 {
			t.Fatalf("n=%d: got %v want %v", n, got, want)
		}
		f.Evaporate()
	}
	if f.At(4, 6, 0) != 0 {
		t.Fatal("deposit leaked into another type")
	}
}

func TestSingleDepositScenario(t *testing.T) {
	f, err := New(50, 50, 3, 0.95)
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	f.Deposit(25, 25, 0, 10)
	for i := 0; i < 10; i++ {
		f.Evaporate()
	}
	if got := f.At(25, 25, 0); math.Abs(got-5.987369392383788) > 1e-9 {
		t.Fatalf("expected ~5.987, got %v", got)
	}
}

func TestDepositOutOfBoundsIsNoop(t *testing.T) {
	f, _ := New(4, 4, 1, 0.5)
	f.Deposit(-1, 0, 0, 1)
	f.Deposit(4, 0, 0, 1)
	f.Deposit(0, 9, 0, 1)
	f.Deposit(0, 0, 3, 1)
	f.Deposit(0, 0, 0, -2)
	if total := f.Total(0); total != 0 {
		t.Fatalf("expected empty field, got total %v", total)
	}
}

func TestDepositIsUnboundedAndCommutative(t *testing.T) {
	a, _ := New(3, 3, 1, 0.5)
	b, _ := New(3, 3, 1, 0.5)
	a.Deposit(1, 1, 0, 1e6)
	a.Deposit(1, 1, 0, 2)
	b.Deposit(1, 1, 0, 2)
	b.Deposit(1, 1, 0, 1e6)
	if !a.Equal(b) {
		t.Fatal("deposit order changed the field")
	}
	if a.At(1, 1, 0) != 1e6+2 {
		t.Fatalf("unexpected clamped value %v", a.At(1, 1, 0))
	}
}

func TestSampleWindowClipsToBounds(t *testing.T) {
	f, _ := New(5, 5, 2, 0.5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			f.Deposit(x, y, 0, 1)
			f.Deposit(x, y, 1, 2)
		}
	}
	if got := f.SampleWindow(0, 0, 1, 0); got != 4 {
		t.Fatalf("corner window: got %v want 4", got)
	}
	if got := f.SampleWindow(2, 2, 1, 1); got != 18 {
		t.Fatalf("centre window: got %v want 18", got)
	}
	if got := f.SampleWindow(2, 2, 10, 0); got != 25 {
		t.Fatalf("oversized window: got %v want 25", got)
	}
	all := f.SampleAll(4, 4, 1)
	if all[0] != 4 || all[1] != 8 {
		t.Fatalf("sample all: got %v", all)
	}
	if got := f.SampleWindow(2, 2, 1, 7); got != 0 {
		t.Fatalf("unknown type: got %v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	f, _ := New(2, 2, 1, 0.5)
	f.Deposit(0, 0, 0, 1)
	c := f.Clone()
	f.Evaporate()
	if c.At(0, 0, 0) != 1 {
		t.Fatal("clone shares storage with original")
	}
}
