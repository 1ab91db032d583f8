package format

import "strings"

// zeroWidthSpace splits a run of backticks so it cannot close a fence.
const zeroWidthSpace = "\u200b"

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	`~`, `\~`,
	"`", "\\`",
	`|`, `\|`,
)

// EscapeMarkdown makes user text render literally in Discord markdown.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// InCodeBlock makes user text safe to place inside a ``` fenced block,
// where markdown is not interpreted but a fence would end the block early.
func InCodeBlock(s string) string {
	return strings.ReplaceAll(s, "```", "`"+zeroWidthSpace+"`"+zeroWidthSpace+"`")
}
