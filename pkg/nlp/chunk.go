package nlp

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Chunking defaults. The language service enforces a per-document size
// limit, so long transcript text is split into token-bounded chunks before
// submission.
const (
	DefaultEncoder   = "cl100k_base"
	DefaultMaxTokens = 1000
)

// tokenCounter reports the token count of a piece of text.
type tokenCounter func(text string) int

// SplitForAnalysis splits raw document text into chunks that fit the language
// service's per-document budget. Chunks break on sentence boundaries; a
// single sentence over the budget becomes its own chunk rather than being
// cut mid-sentence.
func SplitForAnalysis(text string, encoder string, maxTokens int) ([]string, error) {
	if encoder == "" {
		encoder = DefaultEncoder
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}
	counter := func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}

	return chunkSentences(splitIntoSentences(text), counter, maxTokens), nil
}

// chunkSentences accumulates sentences into chunks without exceeding the
// token budget.
func chunkSentences(sentences []string, count tokenCounter, maxTokens int) []string {
	var chunks []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, strings.TrimSpace(current.String()))
		current.Reset()
		currentTokens = 0
	}

	for _, sentence := range sentences {
		tokens := count(sentence)
		if currentTokens+tokens > maxTokens && current.Len() > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentTokens += tokens
	}
	flush()

	return chunks
}

// splitIntoSentences breaks text into sentences. Paragraph breaks always
// end a sentence; within a line, terminal punctuation ends one unless it
// closes a numeric listing like "1. item".
func splitIntoSentences(text string) []string {
	var sentences []string

	for _, paragraph := range strings.Split(text, "\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		sentences = append(sentences, splitLineIntoSentences(paragraph)...)
	}

	return sentences
}

func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])

		if line[i] != '.' && line[i] != '!' && line[i] != '?' {
			continue
		}

		if line[i] == '.' && i > 0 && unicode.IsDigit(rune(line[i-1])) &&
			i+1 < len(line) && line[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(line) && (line[j] == '.' || line[j] == '!' || line[j] == '?') {
			current.WriteByte(line[j])
			j++
		}
		for j < len(line) && (line[j] == '"' || line[j] == '\'' || line[j] == ')' ||
			line[j] == ']' || line[j] == '}') {
			current.WriteByte(line[j])
			j++
		}

		if sentence := strings.TrimSpace(current.String()); sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
		i = j - 1
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		sentences = append(sentences, remaining)
	}

	return sentences
}
