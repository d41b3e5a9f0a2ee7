package models

import (
	"testing"
	"time"

	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
)

func validBar(minute int) Bar {
	return Bar{
		Symbol:    "005930",
		Timestamp: time.Date(2026, 8, 28, 9, minute, 0, 0, time.Local),
		Open:      10000, High: 10100, Low: 9900, Close: 10050,
		Volume: 1000,
	}
}

func TestWindowAppendRejectsMalformedBar(t *testing.T) {
	w := NewBarWindow("005930", time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local))

	bad := validBar(0)
	bad.Close = 0
	if err := w.Append(bad); !apperrors.Is(err, apperrors.ErrMalformedBar) {
		t.Errorf("err = %v, want ErrMalformedBar", err)
	}
	if w.Len() != 0 {
		t.Errorf("malformed bar was appended")
	}
}

func TestWindowAppendRejectsOutOfOrder(t *testing.T) {
	w := NewBarWindow("005930", time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local))

	if err := w.Append(validBar(1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append(validBar(0)); err == nil {
		t.Error("out-of-order bar accepted")
	}
	if err := w.Append(validBar(1)); err == nil {
		t.Error("duplicate timestamp accepted")
	}
	if w.Len() != 1 {
		t.Errorf("len = %d, want 1", w.Len())
	}
}

func TestWindowBefore(t *testing.T) {
	w := NewBarWindow("005930", time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local))
	for m := 0; m < 5; m++ {
		if err := w.Append(validBar(m)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	cutoff := time.Date(2026, 8, 28, 9, 3, 0, 0, time.Local)
	got := w.Before(cutoff)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, b := range got {
		if !b.Timestamp.Before(cutoff) {
			t.Errorf("bar at %s not before cutoff", b.Timestamp)
		}
	}
}
