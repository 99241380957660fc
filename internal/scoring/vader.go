package scoring

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

// VADER runs beside the keyword scorers as a shadow signal for calibration
// logging. It never feeds the returned result.
var vaderAnalyzer = govader.NewSentimentIntensityAnalyzer()

var (
	mdLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern    = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// StripLinks removes bare URLs and unwraps markdown links to their text.
func StripLinks(input string) string {
	input = mdLinkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

// PlainText renders markdown to flat text with collapsed whitespace.
func PlainText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	return StripLinks(strings.Join(strings.Fields(string(output)), " "))
}

// ShadowScore returns the VADER compound score and its coarse label for the
// cleaned text.
func ShadowScore(text string) (float64, string) {
	sentiment := vaderAnalyzer.PolarityScores(PlainText(text))
	score := sentiment.Compound

	label := "neutral"
	if score >= 0.20 {
		label = "positive"
	} else if score <= -0.20 {
		label = "negative"
	}
	return score, label
}
