package chunker

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"docuchat/internal/domain"
)

// ErrInvalidConfig is returned when the chunk size or overlap cannot produce progress.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Default sizes in characters.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Recursive splits text into overlapping chunks, cutting at the largest
// natural boundary available: paragraph, then sentence, then whitespace,
// then a raw character position. Sizes are counted in runes.
type Recursive struct {
	size    int
	overlap int
}

// NewRecursive validates the sizes up front so a bad configuration never
// reaches the splitting loop.
func NewRecursive(size, overlap int) (*Recursive, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Recursive{size: size, overlap: overlap}, nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidConfig, size, overlap)
	}
	return nil
}

// Size returns the maximum chunk length in runes.
func (c *Recursive) Size() int { return c.size }

// Overlap returns the maximum overlap between consecutive chunks in runes.
func (c *Recursive) Overlap() int { return c.overlap }

// Chunk splits the document text and stamps each chunk with document and chunk ids.
func (c *Recursive) Chunk(document domain.Document) ([]domain.Chunk, error) {
	chunks, err := c.Split(document.Text)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].DocumentID = document.ID
		chunks[i].ChunkID = document.ID + ":" + strconv.Itoa(chunks[i].Index)
	}
	return chunks, nil
}

// Split returns the chunk spans of text in order. Empty text yields no chunks.
func (c *Recursive) Split(text string) ([]domain.Chunk, error) {
	if err := validate(c.size, c.overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	start := 0
	for {
		end := n
		if n-start > c.size {
			end = c.cut(runes, start)
		}
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == n {
			return chunks, nil
		}
		start = c.next(runes, end)
	}
}

type boundary func(runes []rune, p int) bool

// Ordered from the most to the least preferred cut.
var boundaries = []boundary{
	isParagraphEnd,
	isSentenceEnd,
	isWordEnd,
}

// cut picks the end of the chunk starting at start. Only positions more than
// overlap runes past start qualify, so the next chunk always starts later.
func (c *Recursive) cut(runes []rune, start int) int {
	hi := start + c.size
	lo := start + c.overlap + 1
	for _, at := range boundaries {
		for p := hi; p >= lo; p-- {
			if at(runes, p) {
				return p
			}
		}
	}
	return hi
}

// next returns the start of the chunk following a chunk ending at end: the
// first sentence start in [end-overlap, end], else the first word start,
// else end-overlap.
func (c *Recursive) next(runes []rune, end int) int {
	from := end - c.overlap
	for _, at := range []boundary{isSentenceStart, isWordStart} {
		for p := from; p <= end; p++ {
			if at(runes, p) {
				return p
			}
		}
	}
	return from
}

func isParagraphEnd(runes []rune, p int) bool {
	return p >= 2 && runes[p-1] == '\n' && runes[p-2] == '\n'
}

func isSentenceEnd(runes []rune, p int) bool {
	if p < 1 {
		return false
	}
	switch runes[p-1] {
	case '。', '！', '？':
		return true
	}
	if p < 2 || !unicode.IsSpace(runes[p-1]) {
		return false
	}
	switch runes[p-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

func isWordEnd(runes []rune, p int) bool {
	return p >= 1 && unicode.IsSpace(runes[p-1])
}

// isSentenceStart reports whether a sentence begins at p: the first
// non-space rune after a sentence ender or a paragraph break.
func isSentenceStart(runes []rune, p int) bool {
	if p >= len(runes) || unicode.IsSpace(runes[p]) {
		return false
	}
	q := p
	for q > 0 && unicode.IsSpace(runes[q-1]) {
		q--
	}
	if q == 0 || isParagraphEnd(runes, p) {
		return true
	}
	switch runes[q-1] {
	case '。', '！', '？':
		return true
	case '.', '!', '?':
		return q < p
	}
	return false
}

func isWordStart(runes []rune, p int) bool {
	if p >= len(runes) || unicode.IsSpace(runes[p]) {
		return false
	}
	return p == 0 || unicode.IsSpace(runes[p-1])
}

// Reassemble rebuilds the source text from chunks produced by Split or Chunk,
// dropping the overlapping prefix of every chunk after the first.
func Reassemble(chunks []domain.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}
	out := []rune(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		shared := prev.End - cur.Start
		text := []rune(cur.Text)
		if shared < 0 || shared > len(text) {
			return "", fmt.Errorf("chunk %d does not continue chunk %d", cur.Index, prev.Index)
		}
		out = append(out, text[shared:]...)
	}
	return string(out), nil
}
