package personality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allAnswers(value string) map[int]string {
	answers := make(map[int]string, QuestionCount)
	for q := 1; q <= QuestionCount; q++ {
		answers[q] = value
	}
	return answers
}

func TestComposeDeterministic(t *testing.T) {
	answers := map[int]string{1: "7", 2: "2", 3: "9", 4: "5", 5: "1"}

	first := Compose(answers)
	second := Compose(answers)

	assert.Equal(t, first.FinalText, second.FinalText)
	assert.Equal(t, first.TraitIndicators, second.TraitIndicators)
}

func TestComposeFacetOrientation(t *testing.T) {
	// A high score does not select the same facet for every question:
	// questions 1-3 lean Tim on agreement, questions 4-5 lean Abi.
	high := Compose(allAnswers("9"))
	require.Len(t, high.TraitIndicators, QuestionCount)
	assert.Equal(t, []string{FacetTim, FacetTim, FacetTim, FacetAbi, FacetAbi}, high.TraitIndicators)

	low := Compose(allAnswers("1"))
	assert.Equal(t, []string{FacetAbi, FacetAbi, FacetAbi, FacetTim, FacetTim}, low.TraitIndicators)
}

func TestComposeBoundaryScoreIsHigh(t *testing.T) {
	// 5 on the 1-9 scale counts as agreement.
	profile := Compose(allAnswers("5"))
	assert.Equal(t, []string{FacetTim, FacetTim, FacetTim, FacetAbi, FacetAbi}, profile.TraitIndicators)
}

func TestComposeMalformedAnswersTakeLowBranch(t *testing.T) {
	cases := map[string]map[int]string{
		"missing":    {},
		"empty":      allAnswers(""),
		"nonNumeric": allAnswers("agree"),
	}
	expected := Compose(allAnswers("1"))

	for name, answers := range cases {
		t.Run(name, func(t *testing.T) {
			profile := Compose(answers)
			assert.Equal(t, expected.TraitIndicators, profile.TraitIndicators)
			assert.Equal(t, expected.FinalText, profile.FinalText)
		})
	}
}

func TestComposeTextStructure(t *testing.T) {
	profile := Compose(allAnswers("9"))

	require.True(t, strings.HasPrefix(profile.FinalText, intro))
	require.True(t, strings.HasSuffix(profile.FinalText, directive))
	for q := 0; q < QuestionCount; q++ {
		expected := traitTable[q].tim
		if highFacet[q] == FacetAbi {
			expected = traitTable[q].abi
		}
		assert.Contains(t, profile.FinalText, expected, "question %d", q+1)
	}
}

func TestNeutralPromptKeepsDirective(t *testing.T) {
	assert.True(t, strings.HasSuffix(NeutralPrompt, directive))
	assert.NotContains(t, NeutralPrompt, traitTable[0].abi)
	assert.NotContains(t, NeutralPrompt, traitTable[0].tim)
}
