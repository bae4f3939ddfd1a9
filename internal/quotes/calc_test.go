package quotes

import (
	"errors"
	"testing"
)

func Test_Calculate_PinnedPrices(t *testing.T) {
	cases := []struct {
		name      string
		age       int
		carType   string
		coverage  string
		wantCents int64
	}{
		{"young suv full", 24, "suv", "full", 126000},     // 500+200=700, x1.5=1050, x1.2=1260.00
		{"base sedan basic", 30, "sedan", "basic", 50000}, // untouched 500.00
		{"sports basic", 40, "sports", "basic", 90000},    // 500+400
		{"sports full", 40, "sports", "full", 135000},     // 900 x1.5
		{"young sedan basic", 18, "sedan", "basic", 60000},
		{"unknown category passes through", 30, "hatchback", "basic", 50000},
		{"boundary age 25 no surcharge", 25, "sedan", "full", 75000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Calculate(tc.age, tc.carType, tc.coverage)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Cents != tc.wantCents {
				t.Fatalf("want %d cents, got %d", tc.wantCents, q.Cents)
			}
		})
	}
}

func Test_Calculate_Deterministic(t *testing.T) {
	a, err := Calculate(24, "SUV", "Full")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Calculate(24, "suv", "full")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("same inputs must give same output: %+v vs %+v", a, b)
	}
	if a.CarType != "suv" || a.Coverage != "full" {
		t.Fatalf("inputs should be normalized, got %+v", a)
	}
}

func Test_Calculate_Underage(t *testing.T) {
	for _, age := range []int{17, 1, 0} {
		if _, err := Calculate(age, "suv", "full"); !errors.Is(err, ErrUnderage) {
			t.Fatalf("age %d: want ErrUnderage, got %v", age, err)
		}
	}
}
