package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sangukO/haru-word/internal/domain"
)

func TestBuildSentencePrompt_ListsWordsWithMeanings(t *testing.T) {
	prompt := buildSentencePrompt([]domain.TargetWord{
		{ID: 1, Word: "  윤슬 ", Meaning: "반짝이는\n잔물결"},
	})

	require.Contains(t, prompt, `단어 목록: ["윤슬(반짝이는 잔물결)"]`)
	require.Contains(t, prompt, "150자 이내")
	require.Contains(t, prompt, "이모지")
	require.Contains(t, prompt, "따옴표 없이")
}

func TestBuildSentencePrompt_KeepsWordOrder(t *testing.T) {
	prompt := buildSentencePrompt([]domain.TargetWord{
		{ID: 3, Word: "다", Meaning: "c"},
		{ID: 1, Word: "가", Meaning: "a"},
		{ID: 2, Word: "나", Meaning: "b"},
	})

	require.Contains(t, prompt, `["다(c)", "가(a)", "나(b)"]`)
}

func TestBuildSentenceMessages_SingleUserTurn(t *testing.T) {
	msgs := buildSentenceMessages([]domain.TargetWord{{ID: 1, Word: "가", Meaning: "a"}})
	require.Len(t, msgs, 1)
	require.Equal(t, "user", msgs[0].Role)
	require.True(t, strings.HasPrefix(msgs[0].Content, "다음 단어들을 모두 포함하여"))
}

func TestCleanCompletion(t *testing.T) {
	cases := map[string]string{
		"  문장입니다.  \n":    "문장입니다.",
		`"문장입니다."`:        "문장입니다.",
		"'문장입니다.'":        "문장입니다.",
		"“문장입니다.”":        "문장입니다.",
		"‘문장입니다.’":        "문장입니다.",
		`그는 "안녕"이라고 말했다.`: `그는 "안녕"이라고 말했다.`,
		`"윤슬"처럼 반짝이던 그 말이 시나브로 "사랑"`: `"윤슬"처럼 반짝이던 그 말이 시나브로 "사랑"`,
		"'윤슬'이 일렁이는 바다를 보니 마음이 '편안'": "'윤슬'이 일렁이는 바다를 보니 마음이 '편안'",
		"“윤슬”과 “시나브로”":               "“윤슬”과 “시나브로”",
		`"`:                          `"`,
		"":                           "",
	}
	for in, want := range cases {
		require.Equal(t, want, cleanCompletion(in), "input %q", in)
	}
}
