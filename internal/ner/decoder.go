package ner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// trackedReader remembers the last failure returned by the underlying
// stream, so a decode error can be attributed to transport rather than
// to the character encoding.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

// decodeAll drains stream into a UTF-8 string, detecting the encoding
// from its lead bytes. Bytes may arrive in arbitrarily small chunks with
// arbitrary delay; multi-byte sequences split across reads are buffered,
// never rejected. The decoded character count is checked after every
// increment: crossing maxChars fails immediately with CONTENT_TOO_LARGE,
// even if the producer never closes its end. The context is consulted at
// each read boundary so an expired deadline unwinds the loop instead of
// leaving it parked on a dead stream.
func decodeAll(ctx context.Context, stream io.Reader, maxChars int) (string, error) {
	src := &trackedReader{r: stream}
	br, enc, _, err := detectEncoding(src)
	if err != nil {
		return "", err
	}
	dec := transform.NewReader(br, enc.NewDecoder())

	var text bytes.Buffer
	counted := 0 // byte offset into text below which runes are tallied
	chars := 0
	buf := make([]byte, 4096)
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return "", wrapError(CodeTimeout, ctxErr, "decoding cancelled by deadline")
			}
			return "", ctxErr
		}

		n, readErr := dec.Read(buf)
		if n > 0 {
			text.Write(buf[:n])
			chars, counted = countRunes(text.Bytes(), counted, chars)
			if maxChars > 0 && chars > maxChars {
				return "", newError(CodeContentTooLarge, "decoded content exceeds %d characters", maxChars)
			}
		}
		if readErr == io.EOF {
			return text.String(), nil
		}
		if readErr != nil {
			if src.err != nil {
				return "", wrapError(CodeIOError, readErr, "reading stream")
			}
			return "", wrapError(CodeInvalidEncoding, readErr, "decoding stream")
		}
	}
}

// countRunes tallies complete runes in b starting at offset from. An
// incomplete trailing sequence is left uncounted until the rest of its
// bytes arrive.
func countRunes(b []byte, from, chars int) (int, int) {
	for from < len(b) {
		if !utf8.FullRune(b[from:]) {
			break
		}
		_, size := utf8.DecodeRune(b[from:])
		chars++
		from += size
	}
	return chars, from
}
