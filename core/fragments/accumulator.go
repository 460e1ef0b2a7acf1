// Package fragments reassembles streamed partial text into complete sentences.
//
// Sentence boundaries are found with a plain pattern scan: a run of
// characters that are not terminal punctuation followed by one or more of
// '.', '!' or '?'. Abbreviations, decimals and quoted punctuation are not
// special-cased, so "Dr. Jansen" yields two sentences.
package fragments

import (
	"regexp"
	"strings"
	"sync"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Accumulator buffers the not-yet-finalized text of each speaker's current
// utterance. Fragments of one speaker must be fed in arrival order.
type Accumulator struct {
	mu      sync.Mutex
	buffers map[transcript.Sender]string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{buffers: map[transcript.Sender]string{}}
}

// OnFragment appends chunk to the speaker's buffer and returns every sentence
// the buffer now completes, in order. Only the text after the last completed
// sentence stays buffered.
func (a *Accumulator) OnFragment(speaker transcript.Sender, chunk string) []transcript.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	buffer := a.buffers[speaker] + chunk

	var sentences []transcript.Message
	consumed := 0
	for _, match := range sentencePattern.FindAllStringIndex(buffer, -1) {
		// anything between the previous sentence and this match can only be
		// terminal punctuation, it belongs to this sentence
		text := strings.TrimSpace(buffer[consumed:match[1]])
		consumed = match[1]
		if text == "" {
			continue
		}
		sentences = append(sentences, transcript.Message{Text: text, Sender: speaker})
	}

	a.store(speaker, buffer[consumed:])
	return sentences
}

// OnUtteranceEnd flushes whatever is left of the speaker's utterance as one
// final message and empties the buffer. ok is false when nothing but
// whitespace was left.
func (a *Accumulator) OnUtteranceEnd(speaker transcript.Sender) (message transcript.Message, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := strings.TrimSpace(a.buffers[speaker])
	delete(a.buffers, speaker)
	if text == "" {
		return transcript.Message{}, false
	}

	return transcript.Message{Text: text, Sender: speaker}, true
}

// Pending returns the speaker's buffered, incomplete text.
func (a *Accumulator) Pending(speaker transcript.Sender) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffers[speaker]
}

// Reset discards every buffer without emitting anything.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffers = map[transcript.Sender]string{}
}

func (a *Accumulator) store(speaker transcript.Sender, rest string) {
	if rest == "" {
		delete(a.buffers, speaker)
		return
	}
	a.buffers[speaker] = rest
}
