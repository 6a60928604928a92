package audio

import (
	"io"
	"testing"
	"time"
)

func TestOtoSpeakerReadDrainsWrites(t *testing.T) {
	t.Parallel()

	s := newOtoSpeaker()
	if err := s.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	buf := make([]byte, 8)
	n, err := s.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("got n=%d err=%v, want 4 bytes", n, err)
	}
	if buf[0] != 1 || buf[3] != 4 {
		t.Fatalf("unexpected bytes: %v", buf[:n])
	}
}

func TestOtoSpeakerReadBlocksUntilWrite(t *testing.T) {
	t.Parallel()

	s := newOtoSpeaker()
	got := make(chan int, 1)
	go func() {
		buf := make([]byte, 4)
		n, _ := s.Read(buf)
		got <- n
	}()

	time.Sleep(10 * time.Millisecond)
	if err := s.Write([]byte{9, 9}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case n := <-got:
		if n != 2 {
			t.Fatalf("got %d bytes, want 2", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read never woke up")
	}
}

func TestOtoSpeakerFlushDiscardsBuffer(t *testing.T) {
	t.Parallel()

	s := newOtoSpeaker()
	if err := s.Write(make([]byte, 1024)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	s.Flush()
	s.mu.Lock()
	buffered := len(s.buf)
	s.mu.Unlock()
	if buffered != 0 {
		t.Fatalf("flush left %d buffered bytes", buffered)
	}
}

func TestOtoSpeakerCloseUnblocksReader(t *testing.T) {
	t.Parallel()

	s := newOtoSpeaker()
	done := make(chan error, 1)
	go func() {
		_, err := s.Read(make([]byte, 4))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	select {
	case err := <-done:
		if err != io.EOF {
			t.Fatalf("got %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader not released by close")
	}

	if err := s.Write([]byte{1}); err == nil {
		t.Fatal("write after close must fail")
	}
	// Closing twice is harmless.
	if err := s.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
