package rag

import (
	"errors"
	"fmt"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

var ErrInvalidChunkSize = errors.New("invalid chunk size")

// Split cuts text into windows of chunkSize runes. Consecutive windows share
// overlap runes, and the last window ends exactly at the end of the text.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkSize, chunkSize, overlap)
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}

	step := chunkSize - overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
