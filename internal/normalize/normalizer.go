// Package normalize defines the kana-normalization contract and a default,
// dictionary-free implementation. Full kanji-reading conversion needs a
// morphological analyzer or dictionary service, an external collaborator.
// The default Converter here only performs the deterministic part of the
// job — katakana and half-width-kana folding — so the service runs end to
// end without one.
package normalize

// Normalizer converts Japanese text to hiragana. Implementations must be
// pure and deterministic.
type Normalizer interface {
	ToHiragana(text string) string
}

// Converter folds katakana (full-width and half-width) to hiragana and
// passes everything else through unchanged, including kanji and existing
// hiragana. It is idempotent on hiragana-only input by construction: the
// fold only ever touches runes in the katakana ranges.
type Converter struct{}

// New returns the default Normalizer.
func New() *Converter { return &Converter{} }

// ToHiragana implements Normalizer.
func (c *Converter) ToHiragana(text string) string {
	runes := []rune(text)
	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		out = append(out, foldRune(r))
	}
	return string(out)
}

// foldRune maps one rune of full-width katakana to its hiragana equivalent,
// and half-width katakana to full-width hiragana. All other runes pass
// through unchanged.
func foldRune(r rune) rune {
	switch {
	case r >= 0x30A1 && r <= 0x30F6:
		// Full-width katakana block aligns with hiragana 0x60 lower.
		return r - 0x60
	default:
		if hw, ok := halfWidthToHiragana[r]; ok {
			return hw
		}
		return r
	}
}

// halfWidthToHiragana maps the half-width katakana block (U+FF66-FF9D) to
// their hiragana equivalents. Built once at init from an explicit list of
// half-width/hiragana pairs in JIS X 0201 order.
var halfWidthToHiragana = buildHalfWidthTable()

func buildHalfWidthTable() map[rune]rune {
	// Half-width forms with a separate voicing mark (ﾞ/ﾟ) are left
	// unfolded: composing them correctly needs lookahead this table
	// doesn't do, so dakuten/handakuten half-width kana pass through as-is
	// rather than risk a silently wrong fold.
	table := map[rune]rune{}
	pairs := [][2]rune{
		{0xFF71, 'あ'}, {0xFF72, 'い'}, {0xFF73, 'う'}, {0xFF74, 'え'}, {0xFF75, 'お'},
		{0xFF76, 'か'}, {0xFF77, 'き'}, {0xFF78, 'く'}, {0xFF79, 'け'}, {0xFF7A, 'こ'},
		{0xFF7B, 'さ'}, {0xFF7C, 'し'}, {0xFF7D, 'す'}, {0xFF7E, 'せ'}, {0xFF7F, 'そ'},
		{0xFF80, 'た'}, {0xFF81, 'ち'}, {0xFF82, 'つ'}, {0xFF83, 'て'}, {0xFF84, 'と'},
		{0xFF85, 'な'}, {0xFF86, 'に'}, {0xFF87, 'ぬ'}, {0xFF88, 'ね'}, {0xFF89, 'の'},
		{0xFF8A, 'は'}, {0xFF8B, 'ひ'}, {0xFF8C, 'ふ'}, {0xFF8D, 'へ'}, {0xFF8E, 'ほ'},
		{0xFF8F, 'ま'}, {0xFF90, 'み'}, {0xFF91, 'む'}, {0xFF92, 'め'}, {0xFF93, 'も'},
		{0xFF94, 'や'}, {0xFF95, 'ゆ'}, {0xFF96, 'よ'},
		{0xFF97, 'ら'}, {0xFF98, 'り'}, {0xFF99, 'る'}, {0xFF9A, 'れ'}, {0xFF9B, 'ろ'},
		{0xFF9C, 'わ'}, {0xFF9D, 'ん'},
		{0xFF66, 'を'}, {0xFF67, 'ぁ'}, {0xFF68, 'ぃ'}, {0xFF69, 'ぅ'}, {0xFF6A, 'ぇ'}, {0xFF6B, 'ぉ'},
		{0xFF6C, 'ゃ'}, {0xFF6D, 'ゅ'}, {0xFF6E, 'ょ'}, {0xFF6F, 'っ'},
	}
	for _, p := range pairs {
		table[p[0]] = p[1]
	}
	return table
}
