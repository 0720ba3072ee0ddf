package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

func TestWordPieceEncodeWithOffsets(t *testing.T) {
	vocab := []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "my", "name", "is", "sue", "jones", "."}
	tok, err := LoadWordPieceTokenizer(writeVocab(t, vocab))
	if err != nil {
		t.Fatalf("load tokenizer: %v", err)
	}

	text := "My name is Sue Jones."
	ids, attn, spans := tok.EncodeWithOffsets(text, 16)

	wantIDs := []int64{2, 4, 5, 6, 7, 8, 9, 3, 0, 0, 0, 0, 0, 0, 0, 0}
	if len(ids) != len(wantIDs) {
		t.Fatalf("got %d ids, want %d", len(ids), len(wantIDs))
	}
	for i := range wantIDs {
		if ids[i] != wantIDs[i] {
			t.Fatalf("ids[%d] = %d, want %d (ids=%v)", i, ids[i], wantIDs[i], ids)
		}
	}

	var active int64
	for _, a := range attn {
		active += a
	}
	if active != 8 {
		t.Fatalf("attention mask covers %d tokens, want 8", active)
	}

	// Every real token's span must map back onto its source word.
	wantWords := []string{"My", "name", "is", "Sue", "Jones", "."}
	j := 0
	for _, span := range spans {
		if span.Start < 0 {
			continue
		}
		if got := text[span.Start:span.End]; got != wantWords[j] {
			t.Fatalf("span %d maps to %q, want %q", j, got, wantWords[j])
		}
		j++
	}
	if j != len(wantWords) {
		t.Fatalf("mapped %d spans, want %d", j, len(wantWords))
	}
}

func TestWordPieceContinuationAndUnknown(t *testing.T) {
	vocab := []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "jo", "##nes"}
	tok, err := LoadWordPieceTokenizer(writeVocab(t, vocab))
	if err != nil {
		t.Fatalf("load tokenizer: %v", err)
	}

	text := "Jones zzz"
	ids, _, spans := tok.EncodeWithOffsets(text, 8)

	// "Jones" -> jo + ##nes, "zzz" -> [UNK]
	wantIDs := []int64{2, 4, 5, 1, 3, 0, 0, 0}
	for i := range wantIDs {
		if ids[i] != wantIDs[i] {
			t.Fatalf("ids = %v, want %v", ids, wantIDs)
		}
	}
	if got := text[spans[1].Start:spans[1].End]; got != "Jo" {
		t.Fatalf("first piece spans %q, want Jo", got)
	}
	if got := text[spans[2].Start:spans[2].End]; got != "nes" {
		t.Fatalf("continuation spans %q, want nes", got)
	}
	if got := text[spans[3].Start:spans[3].End]; got != "zzz" {
		t.Fatalf("unknown spans %q, want zzz", got)
	}
}

func TestMergeBIO(t *testing.T) {
	labels := []string{"", "B-PER", "I-PER", "O", "B-LOC", "", ""}
	spans := []Span{{-1, -1}, {0, 3}, {4, 9}, {10, 12}, {13, 19}, {-1, -1}, {-1, -1}}

	merged := mergeBIO(labels, spans)
	if len(merged) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(merged), merged)
	}
	if merged[0].label != "PER" || merged[0].start != 0 || merged[0].end != 9 {
		t.Fatalf("first span %+v", merged[0])
	}
	if merged[1].label != "LOC" || merged[1].start != 13 || merged[1].end != 19 {
		t.Fatalf("second span %+v", merged[1])
	}
}

func TestEntityTypeForLabel(t *testing.T) {
	cases := []struct {
		label string
		want  string
		ok    bool
	}{
		{"PER", "PERSON", true},
		{"person", "PERSON", true},
		{"ORG", "ORGANIZATION", true},
		{"GPE", "LOCATION", true},
		{"MONEY", "", false},
	}
	for _, tc := range cases {
		got, ok := entityTypeForLabel(tc.label)
		if ok != tc.ok || string(got) != tc.want {
			t.Fatalf("entityTypeForLabel(%q) = %q,%v", tc.label, got, ok)
		}
	}
}
