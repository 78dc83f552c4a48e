package domain

import (
	"errors"
	"testing"
)

func TestNormalizeLines_SortsByBookID(t *testing.T) {
	lines, err := NormalizeLines([]Line{
		{BookID: 7, Quantity: 1},
		{BookID: 2, Quantity: 3},
		{BookID: 5, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int64{2, 5, 7}
	for i, l := range lines {
		if l.BookID != want[i] {
			t.Errorf("position %d: expected book %d, got %d", i, want[i], l.BookID)
		}
	}
}

func TestNormalizeLines_MergesDuplicates(t *testing.T) {
	lines, err := NormalizeLines([]Line{
		{BookID: 3, Quantity: 2},
		{BookID: 3, Quantity: 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(lines) != 1 {
		t.Fatalf("expected 1 merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 6 {
		t.Errorf("expected merged quantity 6, got %d", lines[0].Quantity)
	}
}

func TestNormalizeLines_RejectsNonPositiveQuantity(t *testing.T) {
	_, err := NormalizeLines([]Line{{BookID: 1, Quantity: 0}})

	var invariant *InvariantError
	if !errors.As(err, &invariant) {
		t.Errorf("expected InvariantError, got: %v", err)
	}
}

func TestNormalizeLines_RejectsEmptyCart(t *testing.T) {
	_, err := NormalizeLines(nil)
	if !errors.Is(err, ErrEmptyReservation) {
		t.Errorf("expected ErrEmptyReservation, got: %v", err)
	}
}

func TestReservationState_Terminal(t *testing.T) {
	if ReservationPending.Terminal() {
		t.Error("PENDING must not be terminal")
	}
	if !ReservationConfirmed.Terminal() {
		t.Error("CONFIRMED must be terminal")
	}
	if !ReservationCancelled.Terminal() {
		t.Error("CANCELLED must be terminal")
	}
}
