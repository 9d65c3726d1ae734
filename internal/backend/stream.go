package backend

import (
	"context"
	"time"
	"unicode"
	"unicode/utf8"
)

// Send delivers ev on out unless ctx is canceled first. It reports whether the
// event was delivered; producers return as soon as it is false.
func Send(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}

// Pause waits for d or until ctx is canceled, reporting whether the full
// duration elapsed.
func Pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SplitWords splits s into pieces that each hold one word together with the
// whitespace preceding it, so that concatenating the pieces yields s exactly.
// Trailing whitespace stays on the last piece.
func SplitWords(s string) []string {
	var pieces []string
	start, wordEnd := 0, 0
	seenWord, prevSpace := false, true
	for i, r := range s {
		space := unicode.IsSpace(r)
		if !space {
			if prevSpace && seenWord {
				pieces = append(pieces, s[start:wordEnd])
				start = wordEnd
			}
			seenWord = true
			_, size := utf8.DecodeRuneInString(s[i:])
			wordEnd = i + size
		}
		prevSpace = space
	}
	if start < len(s) {
		pieces = append(pieces, s[start:])
	}
	return pieces
}

// StreamText emits text as a sequence of word chunks spaced by delay, followed
// by a terminal chunk that carries finish and usage. The text must already be
// final, which keeps streamed and non-streamed output identical.
func StreamText(ctx context.Context, text string, delay time.Duration, finish FinishReason, usage Usage) <-chan StreamEvent {
	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		for _, piece := range SplitWords(text) {
			if !Pause(ctx, delay) {
				return
			}
			if !Send(ctx, out, StreamEvent{Chunk: Chunk{Delta: piece}}) {
				return
			}
		}
		u := usage
		Send(ctx, out, StreamEvent{Chunk: Chunk{FinishReason: finish, Usage: &u}})
	}()
	return out
}
