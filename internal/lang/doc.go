package lang

import "regexp"

// Comment markers and leading indentation are stripped before docs reach
// hover text. Builtin docs are hand-written markdown, so only the block
// comment fences go.
var (
	docScrubRe     = regexp.MustCompile(`(?m)(^\s*//+)|(^\s*/\*+\n?)|(\*+/)|(^\s* )`)
	builtinScrubRe = regexp.MustCompile(`(?m)(^\s*/\*+\n?)|(\*+/)`)
)

func ScrubDoc(doc string, builtin bool) string {
	if builtin {
		return builtinScrubRe.ReplaceAllString(doc, "")
	}
	return docScrubRe.ReplaceAllString(doc, "")
}
