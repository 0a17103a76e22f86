package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(1000); got != MaxLimit {
		t.Fatalf("expected max limit, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected buffered limit 11, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Now().UTC().Truncate(time.Millisecond), ID: uuid.New()}
	encoded := EncodeCursor(want)

	got, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if got == nil || !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("cursor mismatch: got %+v want %+v", got, want)
	}

	if cur, err := ParseCursor("  "); err != nil || cur != nil {
		t.Fatalf("blank cursor should return nil, got %v err %v", cur, err)
	}
	if _, err := ParseCursor("!!not-base64!!"); err == nil {
		t.Fatal("expected decode error")
	}
}
