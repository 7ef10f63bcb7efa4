package formatter

import (
	"regexp"
	"strings"

	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagPattern     = regexp.MustCompile(`<[^>]+>`)
	markdownLink       = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	fencedBlockPattern = regexp.MustCompile("(?s)```.*?```")
)

// MarkdownFormatter builds messages in WeCom's markdown dialect. The
// sanitization pipeline strips HTML, drops links with non-http(s) URLs, and
// repairs unbalanced markup so a truncated or malformed input still renders.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a markdown formatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format builds a markdown message. Content is required non-blank, truncated
// at the content limit with a markup-safe suffix, then sanitized.
func (f *MarkdownFormatter) Format(input *Input) (*message.Message, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, wecomerrors.New(44004, "markdown content is empty")
	}
	content := truncate(input.Content, MaxContentLength, MarkdownTruncationSuffix)
	content = SanitizeMarkdown(content)
	return &message.Message{
		MsgType:  string(message.KindMarkdown),
		Markdown: &message.MarkdownContent{Content: content},
	}, nil
}

// SanitizeMarkdown applies the sanitization pipeline in order:
//  1. strip script blocks including their content
//  2. strip all remaining angle-bracket tags
//  3. keep [text](url) links only when url is an absolute http(s) URL,
//     otherwise replace the whole construct with just text
//  4. balance fenced-code delimiters, then inline backticks counted outside
//     fenced blocks
//  5. balance bold markers, then italic markers counted after removing bold
//     spans
//
// The repairs are stable: sanitizing already-sanitized content is a no-op.
func SanitizeMarkdown(content string) string {
	content = scriptBlockPattern.ReplaceAllString(content, "")
	content = htmlTagPattern.ReplaceAllString(content, "")

	content = markdownLink.ReplaceAllStringFunc(content, func(match string) string {
		parts := markdownLink.FindStringSubmatch(match)
		if isHTTPURL(parts[2]) {
			return match
		}
		return parts[1]
	})

	// Fence balance counts raw ``` occurrences, not block pairing.
	if strings.Count(content, "```")%2 != 0 {
		content += "\n```"
	}
	outsideFences := fencedBlockPattern.ReplaceAllString(content, "")
	if strings.Count(outsideFences, "`")%2 != 0 {
		content += "`"
	}

	if strings.Count(content, "**")%2 != 0 {
		content += "**"
	}
	// A single * not adjacent to another *, counted after removing bold
	// spans. This can misfire on runs of three or more asterisks; the
	// behavior is kept as documented.
	if countLoneAsterisks(strings.ReplaceAll(content, "**", ""))%2 != 0 {
		if strings.HasSuffix(content, "*") {
			// A closing marker right after a trailing asterisk would pair
			// into a bold marker and flip the bold balance.
			content += " *"
		} else {
			content += "*"
		}
	}
	return content
}

func countLoneAsterisks(s string) int {
	runes := []rune(s)
	count := 0
	for i, r := range runes {
		if r != '*' {
			continue
		}
		prevIsStar := i > 0 && runes[i-1] == '*'
		nextIsStar := i < len(runes)-1 && runes[i+1] == '*'
		if !prevIsStar && !nextIsStar {
			count++
		}
	}
	return count
}

// Validate re-checks the balance conditions the sanitizer repairs and rejects
// any remaining angle-bracket tag or unparseable link URL.
func (f *MarkdownFormatter) Validate(msg *message.Message) *ValidationResult {
	result := newValidationResult()
	if msg == nil || msg.Markdown == nil {
		result.addError("markdown payload is missing")
		return result
	}
	content := msg.Markdown.Content
	if strings.TrimSpace(content) == "" {
		result.addError("markdown content is empty")
	}
	if htmlTagPattern.MatchString(content) {
		result.addError("markdown content contains an HTML tag")
	}
	for _, match := range markdownLink.FindAllStringSubmatch(content, -1) {
		if !isHTTPURL(match[2]) {
			result.addError("markdown link has an invalid url %q", match[2])
		}
	}
	if strings.Count(content, "```")%2 != 0 {
		result.addError("markdown content has an unclosed code fence")
	}
	outsideFences := fencedBlockPattern.ReplaceAllString(content, "")
	if strings.Count(outsideFences, "`")%2 != 0 {
		result.addError("markdown content has an unclosed inline code span")
	}
	if strings.Count(content, "**")%2 != 0 {
		result.addError("markdown content has an unclosed bold marker")
	}
	if countLoneAsterisks(strings.ReplaceAll(content, "**", ""))%2 != 0 {
		result.addError("markdown content has an unclosed italic marker")
	}
	return result
}
