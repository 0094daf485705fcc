// Package verse loads and indexes the scripture corpus.
//
// The corpus is a JSON array of 66 book objects, each holding an
// ordered array of chapters, each an ordered array of verse strings.
// Everything here is immutable after Load and safe for unsynchronized
// concurrent reads.
package verse

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"voice-scripture-service/internal/fault"
)

// Book is one corpus entry. Chapters are 0-indexed in storage,
// 1-indexed in every public lookup.
type Book struct {
	Abbrev   string     `json:"abbrev"`
	Name     string     `json:"book"`
	Chapters [][]string `json:"chapters"`
}

// Corpus is the loaded, validated scripture text.
type Corpus struct {
	books   []Book
	byName  map[string]int
	aliases *AliasCatalog
}

// MinBooks is the required book count. The corpus file is fetched from
// a remote source at deploy time and can be truncated by a failed
// download, so Load refuses to serve anything shorter.
const MinBooks = 66

// Load reads and validates the corpus file.
// Any failure is a DataError and must block serving.
func Load(path string) (*Corpus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(fault.KindData, err, "corpus file unreadable: %s", path)
	}

	var books []Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fault.Wrap(fault.KindData, err, "corpus is not a JSON book array: %s", path)
	}

	c, err := NewCorpus(books)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("path", path).
		Int("books", c.BookCount()).
		Msg("corpus loaded")
	return c, nil
}

// NewCorpus validates an in-memory book slice and builds the indexes.
func NewCorpus(books []Book) (*Corpus, error) {
	if len(books) < MinBooks {
		return nil, fault.New(fault.KindData, "corpus has %d books, need %d", len(books), MinBooks)
	}

	byName := make(map[string]int, MinBooks)
	for i := 0; i < MinBooks; i++ {
		if len(books[i].Chapters) == 0 {
			return nil, fault.New(fault.KindData, "book %d (%s) has no chapters", i, bookNames[i])
		}
		for j, ch := range books[i].Chapters {
			if len(ch) == 0 {
				return nil, fault.New(fault.KindData, "book %d (%s) chapter %d has no verses", i, bookNames[i], j+1)
			}
		}
		byName[bookNames[i]] = i
	}

	// Spot-check the first and a known mid-corpus verse to catch a
	// corpus that parsed but arrived truncated or hollow.
	if books[0].Chapters[0][0] == "" {
		return nil, fault.New(fault.KindData, "spot check failed: %s 1:1 is empty", bookNames[0])
	}
	john := byName["요한복음"]
	if len(books[john].Chapters) < 3 || len(books[john].Chapters[2]) < 16 {
		return nil, fault.New(fault.KindData, "spot check failed: 요한복음 3:16 missing")
	}

	aliases, err := newAliasCatalog()
	if err != nil {
		return nil, err
	}

	return &Corpus{books: books, byName: byName, aliases: aliases}, nil
}

// BookCount returns the number of loaded books.
func (c *Corpus) BookCount() int { return len(c.books) }

// Books returns the canonical book names in corpus order.
func (c *Corpus) Books() []string {
	out := make([]string, MinBooks)
	copy(out, bookNames[:])
	return out
}

// Aliases exposes the alias catalog for the reference parser.
func (c *Corpus) Aliases() *AliasCatalog { return c.aliases }

// ResolveAlias maps a spoken book name to its canonical form.
func (c *Corpus) ResolveAlias(name string) (string, error) {
	return c.aliases.Resolve(name)
}

func (c *Corpus) bookIndex(book string) (int, error) {
	i, ok := c.byName[book]
	if !ok {
		return 0, fault.New(fault.KindUnknownBook, "no book named %q", book)
	}
	return i, nil
}

// ChapterCount returns the number of chapters in a book.
func (c *Corpus) ChapterCount(book string) (int, error) {
	i, err := c.bookIndex(book)
	if err != nil {
		return 0, err
	}
	return len(c.books[i].Chapters), nil
}

// VerseCount returns the number of verses in a chapter.
func (c *Corpus) VerseCount(book string, chapter int) (int, error) {
	i, err := c.bookIndex(book)
	if err != nil {
		return 0, err
	}
	if chapter < 1 || chapter > len(c.books[i].Chapters) {
		return 0, fault.New(fault.KindNotFound, "%s has no chapter %d (%d chapters)", book, chapter, len(c.books[i].Chapters))
	}
	return len(c.books[i].Chapters[chapter-1]), nil
}

// Lookup returns the text of one verse. Out-of-range indexes are a
// NotFoundError: a validated Reference should never hit this, so a
// caller seeing it has a parser bug to report.
func (c *Corpus) Lookup(book string, chapter, verseNum int) (string, error) {
	i, err := c.bookIndex(book)
	if err != nil {
		return "", err
	}
	chapters := c.books[i].Chapters
	if chapter < 1 || chapter > len(chapters) {
		return "", fault.New(fault.KindNotFound, "%s has no chapter %d (%d chapters)", book, chapter, len(chapters))
	}
	verses := chapters[chapter-1]
	if verseNum < 1 || verseNum > len(verses) {
		return "", fault.New(fault.KindNotFound, "%s %d has no verse %d (%d verses)", book, chapter, verseNum, len(verses))
	}
	return verses[verseNum-1], nil
}

// LookupRange returns the texts of verses from..to inclusive.
// A to of 0 means a single verse.
func (c *Corpus) LookupRange(book string, chapter, from, to int) ([]string, error) {
	if to == 0 {
		to = from
	}
	if to < from {
		return nil, fault.New(fault.KindNotFound, "%s %d: verse range %d-%d is inverted", book, chapter, from, to)
	}
	out := make([]string, 0, to-from+1)
	for v := from; v <= to; v++ {
		text, err := c.Lookup(book, chapter, v)
		if err != nil {
			// The start verse must exist; trailing verses past the
			// chapter end are trimmed, matching spoken requests like
			// "1절에서 5절" in a 3-verse chapter.
			if v > from && fault.IsKind(err, fault.KindNotFound) {
				break
			}
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

// FormatRange renders a verse range as a single speakable string,
// prefixing each verse with its number when more than one is returned.
func FormatRange(book string, chapter, from int, texts []string) string {
	if len(texts) == 1 {
		return fmt.Sprintf("%s %d장 %d절. %s", book, chapter, from, texts[0])
	}
	s := fmt.Sprintf("%s %d장.", book, chapter)
	for i, t := range texts {
		s += fmt.Sprintf(" %d절. %s", from+i, t)
	}
	return s
}
