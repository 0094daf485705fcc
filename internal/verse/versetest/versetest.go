// Package versetest builds small in-memory corpora for tests.
package versetest

import "voice-scripture-service/internal/verse"

// Known fixture texts used in assertions across packages.
const (
	Genesis11 = "태초에 하나님이 천지를 창조하시니라"
	John316   = "하나님이 세상을 이처럼 사랑하사 독생자를 주셨으니"
	Psalm231  = "여호와는 나의 목자시니 내게 부족함이 없으리로다"
)

// Books returns a full 66-book corpus with synthetic verse texts and
// a handful of real ones pinned for lookups.
func Books() []verse.Book {
	books := make([]verse.Book, 66)
	for i := range books {
		name := verse.BookName(i)
		chapters := make([][]string, 3)
		for c := range chapters {
			verses := make([]string, 5)
			for v := range verses {
				verses[v] = name + " 본문"
			}
			chapters[c] = verses
		}
		books[i] = verse.Book{Name: name, Chapters: chapters}
	}

	// Genesis: pin 1:1.
	books[0].Chapters[0][0] = Genesis11

	// Psalms: 30 chapters so 시편 23편 resolves.
	psalms := make([][]string, 30)
	for c := range psalms {
		verses := make([]string, 6)
		for v := range verses {
			verses[v] = "시편 본문"
		}
		psalms[c] = verses
	}
	psalms[22][0] = Psalm231
	books[18].Chapters = psalms

	// John: 21 chapters, chapter 3 with 36 verses so 3:16 resolves.
	john := make([][]string, 21)
	for c := range john {
		verses := make([]string, 36)
		for v := range verses {
			verses[v] = "요한복음 본문"
		}
		john[c] = verses
	}
	john[2][15] = John316
	books[42].Chapters = john

	return books
}

// Corpus builds and validates the fixture corpus, panicking on
// failure since the fixture is static.
func Corpus() *verse.Corpus {
	c, err := verse.NewCorpus(Books())
	if err != nil {
		panic(err)
	}
	return c
}
