package ner

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestDecodeAllChunkedDelivery(t *testing.T) {
	const text = "Straße of naïve café dwellers — 日本語 text."

	// Single-byte dribble: multi-byte sequences split across reads must
	// be buffered, never rejected or miscounted.
	pr, pw := io.Pipe()
	go func() {
		for _, b := range []byte(text) {
			pw.Write([]byte{b})
			time.Sleep(time.Millisecond)
		}
		pw.Close()
	}()

	got, err := decodeAll(context.Background(), pr, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != text {
		t.Fatalf("decoded %q, want %q", got, text)
	}
}

func TestDecodeAllContentTooLargeBeforeStreamCloses(t *testing.T) {
	// 51 chars, cap 10, producer never closes its end. The cap must
	// trip during decode, not at end-of-stream.
	pr, pw := io.Pipe()
	go func() {
		pw.Write([]byte("This is some text that is more than 10 chars long."))
		// deliberately no Close
	}()
	t.Cleanup(func() { pw.Close() })

	done := make(chan error, 1)
	go func() {
		_, err := decodeAll(context.Background(), pr, 10)
		done <- err
	}()

	select {
	case err := <-done:
		if CodeOf(err) != CodeContentTooLarge {
			t.Fatalf("got %v, want CONTENT_TOO_LARGE", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("decode did not fail before end-of-stream")
	}
}

func TestDecodeAllCountsCharactersNotBytes(t *testing.T) {
	// Ten runes, far more than ten bytes.
	text := strings.Repeat("日", 10)
	got, err := decodeAll(context.Background(), strings.NewReader(text), 10)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != text {
		t.Fatalf("decoded %q, want %q", got, text)
	}

	_, err = decodeAll(context.Background(), strings.NewReader(text+"本"), 10)
	if CodeOf(err) != CodeContentTooLarge {
		t.Fatalf("got %v, want CONTENT_TOO_LARGE", err)
	}
}

type failingReader struct {
	data string
	read bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.read {
		f.read = true
		return copy(p, f.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestDecodeAllSurfacesIOError(t *testing.T) {
	_, err := decodeAll(context.Background(), &failingReader{data: "partial text"}, 0)
	if CodeOf(err) != CodeIOError {
		t.Fatalf("got %v, want IO_ERROR", err)
	}
}

func TestDecodeAllObservesDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	_, err := decodeAll(ctx, strings.NewReader("text"), 0)
	if CodeOf(err) != CodeTimeout {
		t.Fatalf("got %v, want TIMEOUT", err)
	}
}
