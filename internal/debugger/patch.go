// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Rating and patch-section extraction from driving-agent output

package debugger

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	ratingPattern = regexp.MustCompile(`\*\*\*RATING START\*\*\*\s*(\d+)\s*/\s*10\s*\*\*\*RATING END\*\*\*`)

	sectionPatterns = map[string]*regexp.Regexp{
		"HTML": regexp.MustCompile(`(?s)\*\*\*HTML STARTS\*\*\*\s*(.*?)\s*\*\*\*HTML ENDS\*\*\*`),
		"JS":   regexp.MustCompile(`(?s)\*\*\*JS STARTS\*\*\*\s*(.*?)\s*\*\*\*JS ENDS\*\*\*`),
		"CSS":  regexp.MustCompile(`(?s)\*\*\*CSS STARTS\*\*\*\s*(.*?)\s*\*\*\*CSS ENDS\*\*\*`),
	}
)

// ExtractRating pulls the integer score out of a validation report. A
// report without the rating token scores 0, which forces another repair
// cycle rather than a silent pass.
func ExtractRating(report string) int {
	match := ratingPattern.FindStringSubmatch(report)
	if match == nil {
		return 0
	}
	score, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return score
}

// ExtractSection pulls one delimited code section out of a patch
// response. When the section is absent the previous content survives, so
// a partial answer never blanks a file.
func ExtractSection(response, name, previous string) string {
	pattern, ok := sectionPatterns[name]
	if !ok {
		return previous
	}
	match := pattern.FindStringSubmatch(response)
	if match == nil {
		return previous
	}
	return match[1]
}

// buildPatchPrompt asks for corrected assets in the delimited format
// ExtractSection understands
func buildPatchPrompt(htmlCode, jsCode, cssCode, report string) string {
	return fmt.Sprintf(`You are debugging a web app made of one HTML file, one JS file and one CSS file.

Current HTML:
%s

Current JS:
%s

Current CSS:
%s

A QA agent ran the app and reported the following issues:
%s

Fix the reported issues. Return the complete corrected files, each wrapped in its own delimiters:
***HTML STARTS***
<the full corrected HTML>
***HTML ENDS***
***JS STARTS***
<the full corrected JS>
***JS ENDS***
***CSS STARTS***
<the full corrected CSS>
***CSS ENDS***

If a file needs no changes you may omit its section. Do not add any other commentary.`,
		htmlCode, jsCode, cssCode, report)
}
