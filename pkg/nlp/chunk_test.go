package nlp

import (
	"strings"
	"testing"
)

// Word-count stand-in for the tokenizer keeps tests hermetic.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "SimpleSentences",
			in:   "First sentence. Second sentence! Third?",
			want: []string{"First sentence.", "Second sentence!", "Third?"},
		},
		{
			name: "Paragraphs",
			in:   "First paragraph\n\nSecond paragraph",
			want: []string{"First paragraph", "Second paragraph"},
		},
		{
			name: "NumericListingNotSplit",
			in:   "Steps: 1. unpack 2. assemble",
			want: []string{"Steps: 1. unpack 2. assemble"},
		},
		{
			name: "TrailingQuoteStaysAttached",
			in:   `He said "done." Then left.`,
			want: []string{`He said "done."`, "Then left."},
		},
		{
			name: "Ellipsis",
			in:   "Well... maybe. Sure.",
			want: []string{"Well...", "maybe.", "Sure."},
		},
		{
			name: "Empty",
			in:   "   \n\n  ",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := splitIntoSentences(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("splitIntoSentences(%q) = %q, want %q", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("sentence %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestChunkSentences(t *testing.T) {
	sentences := []string{
		"one two three.",
		"four five.",
		"six seven eight nine.",
		"ten.",
	}

	t.Run("RespectsBudget", func(t *testing.T) {
		chunks := chunkSentences(sentences, wordCount, 5)
		if len(chunks) != 2 {
			t.Fatalf("chunks = %q, want 2 chunks", chunks)
		}
		for _, chunk := range chunks {
			if !strings.HasSuffix(chunk, ".") {
				t.Fatalf("chunk does not end on a sentence boundary: %q", chunk)
			}
		}
	})

	t.Run("SingleChunkWhenUnderBudget", func(t *testing.T) {
		chunks := chunkSentences(sentences, wordCount, 100)
		if len(chunks) != 1 {
			t.Fatalf("chunks = %q, want 1 chunk", chunks)
		}
	})

	t.Run("OversizedSentenceStandsAlone", func(t *testing.T) {
		chunks := chunkSentences([]string{"tiny.", "a b c d e f g h.", "tiny."}, wordCount, 3)
		if len(chunks) != 3 {
			t.Fatalf("chunks = %q, want 3 chunks", chunks)
		}
		if chunks[1] != "a b c d e f g h." {
			t.Fatalf("oversized sentence not isolated: %q", chunks)
		}
	})

	t.Run("NoSentences", func(t *testing.T) {
		if chunks := chunkSentences(nil, wordCount, 10); chunks != nil {
			t.Fatalf("chunks = %q, want nil", chunks)
		}
	})
}
