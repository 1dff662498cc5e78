package pushback

import (
	"testing"
)

// TestGetNextByte checks that GetNextByte gets the next byte from the
// channel and reports exhaustion.
func TestGetNextByte(t *testing.T) {

	const want = 0x8b
	const wantError = "done"

	ch := make(chan byte, 1)
	bc := New(ch)

	// Put one byte on the channel and close it.
	ch <- want
	bc.Close()

	got, err := bc.GetNextByte()
	if err != nil {
		t.Error(err)
	}

	if want != got {
		t.Errorf("want 0x%x got 0x%x", want, got)
	}

	// The channel is now exhausted so GetNextByte should produce an
	// error.
	got2, gotError := bc.GetNextByte()
	if gotError == nil {
		t.Fatal("expected an error")
	}

	if got2 != 0 {
		t.Errorf("want 0 byte, got 0x%x", got2)
	}

	if wantError != gotError.Error() {
		t.Errorf("want %s got %s", wantError, gotError.Error())
	}
}

// TestGetNextByteWithNilChannel checks that GetNextByte returns the
// correct error when the channel is nil.
func TestGetNextByteWithNilChannel(t *testing.T) {

	const wantError = "channel is nil"

	bc := New(nil)

	gotByte, gotError := bc.GetNextByte()

	if gotByte != 0 {
		t.Errorf("want 0 byte, got 0x%x", gotByte)
	}

	if gotError == nil {
		t.Fatal("expected an error")
	}

	if wantError != gotError.Error() {
		t.Errorf("want %s got %s", wantError, gotError.Error())
	}
}

// TestPushBack checks that pushed back bytes are read before the
// channel, in the order that they were pushed.
func TestPushBack(t *testing.T) {
	const want = "\x8b\x23\x45\x67"

	buf := make([]byte, 0)
	ch := make(chan byte, 2)
	bc := New(ch)

	// Put bytes on the channel and close it.
	ch <- 0x45
	ch <- 0x67

	bc.Close()

	// Push back some bytes.
	bc.PushBack(0x8b)
	bc.PushBack(0x23)

	// Read until the channel is exhausted.
	for {
		b, err := bc.GetNextByte()
		if err != nil {
			break
		}
		buf = append(buf, b)
	}

	got := string(buf)

	if want != got {
		t.Errorf("want % x got % x", want, got)
	}
}
