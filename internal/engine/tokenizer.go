package engine

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Span is a half-open byte range into the original text. Special and
// padding tokens carry a negative Start.
type Span struct {
	Start int
	End   int
}

// WordPieceTokenizer is a minimal BERT-style tokenizer that keeps byte
// offsets for every emitted piece, so token-level labels can be mapped
// back onto the source text.
type WordPieceTokenizer struct {
	vocab        map[string]int64
	lowerCase    bool
	continuation string
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
}

// LoadWordPieceTokenizer builds the tokenizer from a vocab.txt file, one
// token per line, line number = token id.
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var idx int64
	for sc.Scan() {
		token := strings.TrimSpace(sc.Text())
		if token == "" {
			continue
		}
		vocab[token] = idx
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}

	return &WordPieceTokenizer{
		vocab:        vocab,
		lowerCase:    true,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
	}, nil
}

type word struct {
	runes   []rune
	offsets []int // byte offset of each rune; len(offsets) == len(runes)+1
}

// EncodeWithOffsets produces input ids, an attention mask, and the byte
// span of every token, padded or truncated to seqLen. Layout is
// [CLS] pieces... [SEP] [PAD]...
func (t *WordPieceTokenizer) EncodeWithOffsets(text string, seqLen int) ([]int64, []int64, []Span) {
	ids := make([]int64, 0, seqLen)
	spans := make([]Span, 0, seqLen)

	ids = append(ids, t.clsID)
	spans = append(spans, Span{-1, -1})

	for _, w := range splitWords(text) {
		if len(ids) >= seqLen-1 {
			break
		}
		pieceIDs, pieceSpans := t.wordPieces(w)
		for i := range pieceIDs {
			if len(ids) >= seqLen-1 {
				break
			}
			ids = append(ids, pieceIDs[i])
			spans = append(spans, pieceSpans[i])
		}
	}

	ids = append(ids, t.sepID)
	spans = append(spans, Span{-1, -1})

	attn := make([]int64, seqLen)
	for i := range ids {
		attn[i] = 1
	}
	for len(ids) < seqLen {
		ids = append(ids, t.padID)
		spans = append(spans, Span{-1, -1})
	}
	return ids, attn, spans
}

// wordPieces greedily matches the longest vocab entry, preferring whole
// prefixes and falling back to [UNK] over the entire word when no piece
// matches at the cursor.
func (t *WordPieceTokenizer) wordPieces(w word) ([]int64, []Span) {
	var ids []int64
	var spans []Span

	start := 0
	for start < len(w.runes) {
		end := len(w.runes)
		var matchedID int64
		found := false
		for end > start {
			piece := t.normalize(w.runes[start:end])
			if start > 0 {
				piece = t.continuation + piece
			}
			if id, ok := t.vocab[piece]; ok {
				matchedID, found = id, true
				break
			}
			end--
		}
		if !found {
			return []int64{t.unkID}, []Span{{w.offsets[0], w.offsets[len(w.runes)]}}
		}
		ids = append(ids, matchedID)
		spans = append(spans, Span{w.offsets[start], w.offsets[end]})
		start = end
	}
	return ids, spans
}

func (t *WordPieceTokenizer) normalize(runes []rune) string {
	var b strings.Builder
	for _, r := range runes {
		if t.lowerCase {
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitWords breaks text into letter/digit runs and single punctuation
// tokens, keeping the byte offset of every rune so pieces can be mapped
// back to the source.
func splitWords(text string) []word {
	var words []word
	var cur word

	flush := func(end int) {
		if len(cur.runes) > 0 {
			cur.offsets = append(cur.offsets, end)
			words = append(words, cur)
			cur = word{}
		}
	}

	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush(i)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.runes = append(cur.runes, r)
			cur.offsets = append(cur.offsets, i)
		default:
			flush(i)
			words = append(words, word{
				runes:   []rune{r},
				offsets: []int{i, i + len(string(r))},
			})
		}
	}
	flush(len(text))
	return words
}
