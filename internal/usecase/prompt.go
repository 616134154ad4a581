package usecase

import (
	"fmt"
	"strings"

	"github.com/sangukO/haru-word/internal/domain"
)

const maxSentenceRunes = 150

func buildSentenceMessages(words []domain.TargetWord) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleUser, Content: buildSentencePrompt(words)},
	}
}

func buildSentencePrompt(words []domain.TargetWord) string {
	return strings.Join([]string{
		"다음 단어들을 모두 포함하여 자연스러운 한국어 문장 1개를 만들어줘.",
		"각 단어의 뜻(괄호 안의 내용)을 고려해서 문맥에 맞게 써야 해.",
		"",
		"단어 목록: [" + wordList(words) + "]",
		"",
		"조건:",
		sentenceRules(),
	}, "\n")
}

func wordList(words []domain.TargetWord) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, fmt.Sprintf("%q", normalizePromptInput(w.Word)+"("+normalizePromptInput(w.Meaning)+")"))
	}
	return strings.Join(parts, ", ")
}

func sentenceRules() string {
	return strings.Join([]string{
		fmt.Sprintf("1. 문장은 %d자 이내.", maxSentenceRunes),
		"2. 이모지나 장식용 기호 사용 금지.",
		"3. 결과에는 괄호 안의 뜻을 적지 말고, '단어'만 자연스럽게 포함할 것.",
		"4. 따옴표 없이 문장 내용만 반환할 것.",
	}, "\n")
}

func normalizePromptInput(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"“", "”"},
	{"‘", "’"},
}

// cleanCompletion trims whitespace and one pair of enclosing quotes the
// model sometimes adds despite the instructions. The pair is only removed
// when it wraps the whole text, so a sentence that merely starts and ends
// with two separately quoted words is left alone.
func cleanCompletion(raw string) string {
	s := strings.TrimSpace(raw)
	for _, q := range quotePairs {
		if len(s) < len(q[0])+len(q[1]) || !strings.HasPrefix(s, q[0]) || !strings.HasSuffix(s, q[1]) {
			continue
		}
		inner := s[len(q[0]) : len(s)-len(q[1])]
		if strings.Contains(inner, q[0]) || strings.Contains(inner, q[1]) {
			break
		}
		return strings.TrimSpace(inner)
	}
	return s
}
