// Package parse turns noisy transcribed Korean text into validated
// scripture references. Transcripts come straight from STT and carry
// substitution errors in both book names and numerals; matching is
// therefore fuzzy but bounded, and every extracted triple is checked
// against the corpus before it is returned.
package parse

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"voice-scripture-service/internal/fault"
	"voice-scripture-service/internal/verse"
)

// Reference is a resolved (book, chapter, verse) triple. Created per
// request and consumed immediately by the verse lookup; not persisted.
type Reference struct {
	Book     string `json:"book"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	VerseEnd int    `json:"verseEnd,omitempty"`
	// Confidence in [0,1]; callers re-prompt below their floor.
	Confidence float64 `json:"confidence"`
	// Raw is the input the reference was derived from.
	Raw string `json:"raw"`
}

// Confidence penalties. Explicit constants, not implicit behavior:
// each unit of book edit distance and each numeral that had to be
// read positionally (no 장/절/편 marker) lowers confidence, and an
// inferred verse (chapter-only request) lowers it further.
const (
	bookDistancePenalty  = 0.15
	unmarkedPenalty      = 0.10
	inferredVersePenalty = 0.20
)

// Parser converts transcripts into references against one corpus.
type Parser struct {
	corpus *verse.Corpus
}

// New creates a Parser bound to a loaded corpus.
func New(corpus *verse.Corpus) *Parser {
	return &Parser{corpus: corpus}
}

type marker int

const (
	markerNone marker = iota
	markerChapter
	markerVerse
)

type numToken struct {
	value  int
	marker marker
}

type bookMatch struct {
	index int // canonical book index
	start int // rune offset into normalized text
	end   int
	dist  int
}

// Parse extracts a Reference from transcribed text.
func (p *Parser) Parse(text string) (*Reference, error) {
	norm, offsets := normalizeForScan(text)
	if len(norm) == 0 {
		return nil, fault.New(fault.KindParse, "empty transcript")
	}

	match, err := p.findBook(norm)
	if err != nil {
		return nil, err
	}
	book := verse.BookName(match.index)

	// Numerals are read from the text after the book name; syllables
	// inside book names (사, 일, 이...) must not leak into numbers.
	after := text[byteOffset(text, offsets, match.end):]
	tokens := extractTokens(NormalizeNumbers(after))
	if len(tokens) == 0 {
		before := text[:offsets[match.start]]
		tokens = extractTokens(NormalizeNumbers(before))
	}
	if len(tokens) == 0 {
		return nil, fault.New(fault.KindParse, "no chapter numeral in %q", text)
	}

	chapter, verseNum, verseEnd, unmarked, inferred := assign(tokens)
	if chapter == 0 {
		return nil, fault.New(fault.KindParse, "no chapter numeral in %q", text)
	}

	chapters, err := p.corpus.ChapterCount(book)
	if err != nil {
		return nil, err
	}
	if chapter > chapters {
		return nil, fault.New(fault.KindRange, "%s에는 %d장이 없습니다 (총 %d장)", book, chapter, chapters)
	}
	verses, err := p.corpus.VerseCount(book, chapter)
	if err != nil {
		return nil, err
	}
	if verseNum > verses {
		return nil, fault.New(fault.KindRange, "%s %d장에는 %d절이 없습니다 (총 %d절)", book, chapter, verseNum, verses)
	}
	if verseEnd > verses {
		verseEnd = verses
	}
	if verseEnd <= verseNum {
		verseEnd = 0
	}

	conf := 1.0 - bookDistancePenalty*float64(match.dist) - unmarkedPenalty*float64(unmarked)
	if inferred {
		conf -= inferredVersePenalty
	}
	if conf < 0 {
		conf = 0
	}

	return &Reference{
		Book:       book,
		Chapter:    chapter,
		Verse:      verseNum,
		VerseEnd:   verseEnd,
		Confidence: conf,
		Raw:        text,
	}, nil
}

// normalizeForScan lowercases and strips spaces/punctuation, keeping
// a byte-offset map back into the original text.
func normalizeForScan(text string) ([]rune, []int) {
	norm := make([]rune, 0, len(text)/3)
	offsets := make([]int, 0, len(text)/3)
	for i, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		offsets = append(offsets, i)
	}
	return norm, offsets
}

// byteOffset maps a normalized rune index back to a byte offset in
// the original text. The end index maps to just past the last
// matched rune.
func byteOffset(text string, offsets []int, runeIdx int) int {
	if runeIdx >= len(offsets) {
		return len(text)
	}
	if runeIdx == 0 {
		return 0
	}
	last := offsets[runeIdx-1]
	_, size := utf8.DecodeRuneInString(text[last:])
	return last + size
}

// findBook scans for a book-name candidate, longest alias first.
// Exact substring matches win outright; otherwise every window of
// comparable width is scored by edit distance against every alias
// within its tolerance. Ties at the minimal distance across different
// books are ambiguous.
func (p *Parser) findBook(norm []rune) (bookMatch, error) {
	normStr := string(norm)
	entries := p.corpus.Aliases().Entries()

	for _, e := range entries {
		if idx := strings.Index(normStr, e.Norm); idx >= 0 {
			start := utf8.RuneCountInString(normStr[:idx])
			return bookMatch{index: e.BookIndex, start: start, end: start + e.RuneLen, dist: 0}, nil
		}
	}

	// Fuzzy pass: per alias, the best window within tolerance.
	// Candidates keep the longest-first, canonical-order entry order;
	// a stable sort then prefers smaller distance within each length.
	type candidate struct {
		match   bookMatch
		runeLen int
	}
	var cands []candidate
	for _, e := range entries {
		tol := verse.MaxDistance(e.RuneLen)
		if tol == 0 {
			continue
		}
		best := bookMatch{dist: -1}
		for width := e.RuneLen - 1; width <= e.RuneLen+1; width++ {
			if width < 1 || width > len(norm) {
				continue
			}
			for start := 0; start+width <= len(norm); start++ {
				d := levenshtein.ComputeDistance(string(norm[start:start+width]), e.Norm)
				if d <= tol && (best.dist == -1 || d < best.dist) {
					best = bookMatch{index: e.BookIndex, start: start, end: start + width, dist: d}
				}
			}
		}
		if best.dist != -1 {
			cands = append(cands, candidate{match: best, runeLen: e.RuneLen})
		}
	}

	if len(cands) == 0 {
		return bookMatch{}, fault.New(fault.KindParse, "no book name found in %q", normStr)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].runeLen != cands[j].runeLen {
			return cands[i].runeLen > cands[j].runeLen
		}
		return cands[i].match.dist < cands[j].match.dist
	})

	top := cands[0]
	for _, c := range cands[1:] {
		if c.runeLen != top.runeLen || c.match.dist != top.match.dist {
			break
		}
		if c.match.index != top.match.index {
			return bookMatch{}, fault.New(fault.KindAmbiguous, "%q matches more than one book at distance %d", normStr, top.match.dist)
		}
	}
	return top.match, nil
}

// extractTokens pulls digit runs and their trailing markers from
// number-normalized text. 장 marks a chapter, 절 a verse; 편 is the
// Psalms-style chapter marker, accepted for every book and normalized
// into the chapter slot.
func extractTokens(s string) []numToken {
	runes := []rune(s)
	var tokens []numToken
	for i := 0; i < len(runes); {
		if runes[i] < '0' || runes[i] > '9' {
			i++
			continue
		}
		value := 0
		for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
			value = value*10 + int(runes[i]-'0')
			i++
		}
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		m := markerNone
		if j < len(runes) {
			switch runes[j] {
			case '장', '편':
				m = markerChapter
				i = j + 1
			case '절':
				m = markerVerse
				i = j + 1
			}
		}
		tokens = append(tokens, numToken{value: value, marker: m})
	}
	return tokens
}

// assign distributes tokens into chapter/verse/verseEnd slots. Marked
// tokens claim their slot first; unmarked tokens then fill remaining
// slots in spoken order (chapter before verse before range end). A
// missing verse is inferred as 1.
func assign(tokens []numToken) (chapter, verseNum, verseEnd, unmarkedUsed int, inferred bool) {
	for _, t := range tokens {
		switch t.marker {
		case markerChapter:
			if chapter == 0 {
				chapter = t.value
			}
		case markerVerse:
			if verseNum == 0 {
				verseNum = t.value
			} else if verseEnd == 0 {
				verseEnd = t.value
			}
		}
	}
	for _, t := range tokens {
		if t.marker != markerNone {
			continue
		}
		switch {
		case chapter == 0:
			chapter = t.value
			unmarkedUsed++
		case verseNum == 0:
			verseNum = t.value
			unmarkedUsed++
		case verseEnd == 0:
			verseEnd = t.value
			unmarkedUsed++
		}
	}
	if chapter != 0 && verseNum == 0 {
		verseNum = 1
		inferred = true
	}
	return chapter, verseNum, verseEnd, unmarkedUsed, inferred
}
