package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

var analyzer = govader.NewSentimentIntensityAnalyzer()

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// Signal is the cheap lexical sentiment read on an article's title+summary.
// It rides along as scorer metadata and on the persisted packet; it never
// gates the pipeline.
type Signal struct {
	Score float64
	Label string
}

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and collapses the result to a
// single line of plain text. Feed summaries frequently arrive as markdown.
func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := strings.Join(strings.Fields(string(output)), " ")
	return RemoveLinks(plainText)
}

// Analyze scores text with VADER. Compound score in [-1,1]; the label cuts
// at +/-0.20 like the rest of our sentiment tooling.
func Analyze(text string) Signal {
	plainText := ConvertMarkdownToText(text)
	score := analyzer.PolarityScores(plainText).Compound

	label := "neutral"
	if score >= 0.20 {
		label = "positive"
	} else if score <= -0.20 {
		label = "negative"
	}

	return Signal{Score: score, Label: label}
}
