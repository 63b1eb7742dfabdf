package personality

import (
	"strconv"
	"strings"
)

// Facet labels reported per question. The questionnaire items come from the
// GenderMag Abi/Tim facet pair: each question has one sentence describing the
// Abi pole and one describing the Tim pole.
const (
	FacetAbi = "abi"
	FacetTim = "tim"
)

// QuestionCount is the number of Likert items in the questionnaire.
const QuestionCount = 5

// highFacet records which pole an answer >= 5 selects for each question.
// Questions 1-3 (self-efficacy, motivation, learning process) lean Tim on a
// high score; questions 4-5 (information processing, risk) lean Abi. The
// orientation is a fixed property of the instrument, not symmetric.
var highFacet = [QuestionCount]string{FacetTim, FacetTim, FacetTim, FacetAbi, FacetAbi}

type facetPair struct {
	abi string
	tim string
}

var traitTable = [QuestionCount]facetPair{
	{
		abi: "You are interacting with a user with low confidence in handling unfamiliar computing tasks, often blaming themselves for technological problems. Provide responses that can help the user to increase their self-efficacy.",
		tim: "You are interacting with a highly confident user in his technological abilities. Provide responses that support the user in improving their technological abilities.",
	},
	{
		abi: "You are interacting with a user who is motivated to use technology to accomplish what they can. Provide responses with a clear outcome.",
		tim: "You are interacting with a user who perceives technology as not just a tool but a source of fun and excitement and actively seeks out the latest software to ensure he has access to all the latest features. Provide responses that support the user in having fun discovering new technology features.",
	},
	{
		abi: "You are interacting with a user that adopts a comprehensive information processing style, preferring to gather information comprehensively before attempting to solve problems, which involves consuming a lot of information once before acting on an activity. Provide responses with a step-by-step guide.",
		tim: "You are interacting with a user who enjoys tinkering with software to construct his own understanding of how it works internally. Provide direct and short responses to allow the user to understand the problem independently and explore on their own.",
	},
	{
		abi: "You are interacting with a user who adopts a comprehensive information processing style, preferring to gather information comprehensively before attempting to solve problems, which involves consuming a lot of information once before acting on an activity. Provide responses with a step-by-step.",
		tim: "You are interacting with a user who processes information selectively, acting upon the first promising information, then possibly",
	},
	{
		abi: "You are interacting with a user who tends to be risk-averse when using unfamiliar technologies that may require additional learning time. The student prefers tasks with familiar features due to their outcome and time consumption predictability. Provide responses to inform the user that the action is reversible or about the consequences of each suggested action.",
		tim: "You are interacting with a user who, when using technology, is willing to take risks to discover more about technology. Provide responses that support the user in taking risks and discovering more about technology.",
	},
}

// intro frames the trait sentences that follow it.
const intro = "You are an AI tutoring assistant helping a student learn GitHub. Adapt every response to the user profile described below."

// directive constrains topic scope and formatting for every session,
// treatment and control alike. The persona cannot be overridden by the user.
const directive = "You can only use ASCII text and new lines, do not use markdown formatting.  Your directive is to ONLY talk or teach GitHub and nothing else, otherwise politely decline the question."

// NeutralPrompt is the fixed system prompt for control sessions.
const NeutralPrompt = "You are an AI tutoring assistant helping a student learn GitHub. " + directive

// Profile is the composed system prompt plus the facet selected per question,
// in question order.
type Profile struct {
	FinalText       string
	TraitIndicators []string
}

// Compose maps five Likert answers (question index 1-5, values "1".."9") to a
// system prompt and the per-question facet labels. Missing or non-numeric
// answers fail the >=5 test and take the low-score branch; the questionnaire
// UI always supplies all five, so this is a tolerated fallback rather than a
// validation error. Compose is pure: identical input yields identical output.
func Compose(answers map[int]string) Profile {
	parts := make([]string, 0, QuestionCount+2)
	parts = append(parts, intro)

	indicators := make([]string, 0, QuestionCount)
	for q := 0; q < QuestionCount; q++ {
		facet := lowFacet(highFacet[q])
		if scoresHigh(answers[q+1]) {
			facet = highFacet[q]
		}
		indicators = append(indicators, facet)
		if facet == FacetAbi {
			parts = append(parts, traitTable[q].abi)
		} else {
			parts = append(parts, traitTable[q].tim)
		}
	}

	parts = append(parts, directive)
	return Profile{
		FinalText:       strings.Join(parts, " "),
		TraitIndicators: indicators,
	}
}

func lowFacet(high string) string {
	if high == FacetAbi {
		return FacetTim
	}
	return FacetAbi
}

func scoresHigh(answer string) bool {
	n, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	return err == nil && n >= 5
}
