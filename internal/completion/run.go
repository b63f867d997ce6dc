package completion

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/parleybot/parley/internal/models"
)

// Result is the outcome of a completed generation. HistoryDropped is
// the number of leading turns removed across overflow retries; it is
// populated even when Run returns the fatal exhaustion error.
type Result struct {
	Answer         string
	InputTokens    int64
	OutputTokens   int64
	HistoryDropped int
}

// Run generates an answer for the given history and new message,
// retrying with the oldest turn dropped each time the provider signals
// a too-long context. The loop is bounded by the history length; once
// history is empty the overflow becomes fatal. onPartial, if non-nil,
// receives every streamed element in order; returning an error from it
// aborts the generation.
func Run(ctx context.Context, streamer Streamer, model, systemPrompt string, history []models.Turn, userText string, userImages []string, onPartial func(Partial) error) (Result, error) {
	for dropped := 0; ; dropped++ {
		if dropped > len(history) {
			return Result{HistoryDropped: len(history)},
				fmt.Errorf("completion: window exhausted after dropping %d turns: %w", len(history), ErrContextTooLong)
		}
		entries := Compose(systemPrompt, history[dropped:], userText, userImages)
		result, err := runOnce(ctx, streamer, model, entries, onPartial)
		if errors.Is(err, ErrContextTooLong) {
			continue
		}
		if err != nil {
			return Result{HistoryDropped: dropped}, err
		}
		result.HistoryDropped = dropped
		return result, nil
	}
}

func runOnce(ctx context.Context, streamer Streamer, model string, entries []Entry, onPartial func(Partial) error) (Result, error) {
	stream, err := streamer.Stream(ctx, model, entries)
	if err != nil {
		return Result{}, err
	}
	defer stream.Close()

	var result Result
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		partial, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			return Result{}, err
		}
		result.Answer = partial.Text
		if partial.Final {
			result.InputTokens = partial.InputTokens
			result.OutputTokens = partial.OutputTokens
		}
		if onPartial != nil {
			if err := onPartial(partial); err != nil {
				return Result{}, err
			}
		}
	}
}
