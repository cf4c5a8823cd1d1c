// Package textdiff stabilizes successive full-buffer transcripts into a
// confirmed prefix that never regresses and a tentative suffix that may
// still change, as overlapping recognition passes slide across the
// cumulative audio buffer.
package textdiff

import (
	"strings"
	"sync"
)

var sentenceTerminators = map[rune]bool{'。': true, '！': true, '？': true}

// Differ holds the confirmed/tentative split for one session.
type Differ struct {
	mu        sync.Mutex
	confirmed string
	tentative string
}

// New returns an empty Differ.
func New() *Differ {
	return &Differ{}
}

// Confirmed returns the current confirmed text.
func (d *Differ) Confirmed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.confirmed
}

// Tentative returns the current tentative text.
func (d *Differ) Tentative() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tentative
}

// Update folds a new full-buffer transcript into the differ's state and
// returns the resulting confirmed/tentative split.
//
// The candidate confirmed boundary is the end of the last *complete*
// sentence in the new text (run of text closed by 。！or？). That candidate
// is checked for consistency against the previously emitted
// confirmed+tentative (a longest-common-prefix safety net): if the new text
// diverges from history before reaching the candidate boundary, the
// boundary is pulled back to the last sentence break within the agreeing
// prefix. Finally the monotonicity guard applies: confirmed never shrinks
// below its previous value.
func (d *Differ) Update(fullText string) (confirmed, tentative string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.confirmed + d.tentative
	runes := []rune(fullText)

	candidateLen := lastSentenceBoundary(runes, len(runes))

	matchLen := lcpRuneLen(runes, []rune(prev))
	prevLen := len([]rune(prev))
	if matchLen < candidateLen && matchLen < prevLen {
		// The new pass disagrees with history inside the candidate span;
		// only trust the part that still agrees.
		candidateLen = lastSentenceBoundary(runes, matchLen)
	}

	candidate := string(runes[:candidateLen])

	prevConfirmedLen := len([]rune(d.confirmed))
	if candidateLen < prevConfirmedLen {
		// Never regress: keep the previous confirmed text.
		confirmed = d.confirmed
		if strings.HasPrefix(fullText, d.confirmed) {
			tentative = fullText[len(d.confirmed):]
		} else {
			tentative = fullText
		}
	} else {
		confirmed = candidate
		tentative = string(runes[candidateLen:])
	}

	d.confirmed = confirmed
	d.tentative = tentative
	return confirmed, tentative
}

// Finalize promotes all remaining tentative text to confirmed exactly once,
// as required by the end-of-stream protocol, and returns the final
// confirmed text.
func (d *Differ) Finalize() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirmed += d.tentative
	d.tentative = ""
	return d.confirmed
}

// lastSentenceBoundary returns the rune length of the longest prefix of
// runes[:limit] that ends exactly at a sentence terminator, or 0 if none.
func lastSentenceBoundary(runes []rune, limit int) int {
	if limit > len(runes) {
		limit = len(runes)
	}
	boundary := 0
	for i := 0; i < limit; i++ {
		if sentenceTerminators[runes[i]] {
			boundary = i + 1
		}
	}
	return boundary
}

// lcpRuneLen returns the length, in runes, of the longest common prefix of
// a and b.
func lcpRuneLen(a, b []rune) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
