// Package redact keeps document content and personal data out of log
// lines. Every log statement in the service goes through these helpers.
package redact

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}\d`)
	cardRe  = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)
)

// String masks personal data patterns in free-form strings.
func String(s string) string {
	if s == "" {
		return s
	}
	out := s
	out = emailRe.ReplaceAllString(out, "[EMAIL]")
	out = cardRe.ReplaceAllString(out, "[CARD]")
	out = phoneRe.ReplaceAllString(out, "[PHONE]")
	return out
}

// Preview returns a masked, length-capped snippet of document text for
// log lines. The full text never reaches a log.
func Preview(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 48
	}
	if utf8.RuneCountInString(text) > maxChars {
		runes := []rune(text)
		text = string(runes[:maxChars]) + "..."
	}
	return String(strings.ReplaceAll(text, "\n", " "))
}

// Sprintf formats like fmt.Sprintf and masks the result.
func Sprintf(format string, args ...interface{}) string {
	return String(fmt.Sprintf(format, args...))
}

// Logf prints a masked log line.
func Logf(format string, args ...interface{}) {
	log.Print(Sprintf(format, args...))
}

// Fatalf prints a masked fatal log line.
func Fatalf(format string, args ...interface{}) {
	log.Fatal(Sprintf(format, args...))
}
