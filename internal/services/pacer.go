package services

import "unicode/utf8"

// pacerChunkRunes is how many runes each canned delta carries. Small
// enough to look streamed, large enough to keep frame counts sane.
const pacerChunkRunes = 6

// pacer is a cursor over pre-written text, cut on rune boundaries so
// multi-byte characters never split across frames.
type pacer struct {
	text []rune
	pos  int
}

func newPacer(text string) *pacer {
	if !utf8.ValidString(text) {
		text = string([]rune(text))
	}
	return &pacer{text: []rune(text)}
}

// Next returns the next chunk and whether one was produced. After the
// first false, every call returns false.
func (p *pacer) Next() (string, bool) {
	if p.pos >= len(p.text) {
		return "", false
	}
	end := p.pos + pacerChunkRunes
	if end > len(p.text) {
		end = len(p.text)
	}
	chunk := string(p.text[p.pos:end])
	p.pos = end
	return chunk, true
}
