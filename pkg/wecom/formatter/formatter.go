// Package formatter turns loosely-typed connector input into strict WeCom
// wire-format messages, one formatter per message kind. Format fails on
// invalid input; Validate never fails, it aggregates every violation it finds
// in an already-built message.
package formatter

import (
	"strings"
	"sync"
	"unicode/utf8"

	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

// Content limits enforced by the formatters.
const (
	// MaxContentLength bounds text and markdown content.
	MaxContentLength = 4096
	// MaxTitleLength bounds a link-card title.
	MaxTitleLength = 128
	// MaxDescriptionLength bounds a link-card description.
	MaxDescriptionLength = 512
	// MaxArticles bounds the cards in one news message.
	MaxArticles = 8

	// TruncationSuffix marks truncated plain-text content.
	TruncationSuffix = "...(truncated)"
	// MarkdownTruncationSuffix marks truncated markdown content on its own line
	// so it cannot merge into markup.
	MarkdownTruncationSuffix = "\n...(truncated)"
	// EllipsisSuffix marks truncated card fields.
	EllipsisSuffix = "..."
)

// Input is the loosely-typed record a formatter consumes. Only the fields
// relevant to the requested kind are read.
type Input struct {
	// Content is the body for text and markdown messages.
	Content string
	// MentionedUsers and MentionedPhones annotate text messages.
	MentionedUsers  []string
	MentionedPhones []string
	// ImageBase64 or ImageURL supply image messages.
	ImageBase64 string
	ImageURL    string
	// Cards supply news messages.
	Cards []Card
	// MediaID supplies file messages.
	MediaID string
}

// Card is one link card of a news input.
type Card struct {
	Title       string
	Description string
	URL         string
	PicURL      string
}

// Formatter builds and validates one message kind.
type Formatter interface {
	// Format turns input into a wire-format message or fails with a
	// descriptive error on invalid input.
	Format(input *Input) (*message.Message, error)
	// Validate checks an already-built message and reports every violation;
	// it never fails.
	Validate(msg *message.Message) *ValidationResult
}

var (
	factoryMu sync.Mutex
	factory   = make(map[message.Kind]Formatter)
)

// ForKind returns the formatter for a message kind. Default-configuration
// formatters are stateless, so instances are cached per kind.
func ForKind(kind message.Kind) (Formatter, error) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if f, ok := factory[kind]; ok {
		return f, nil
	}
	var f Formatter
	switch kind {
	case message.KindText:
		f = NewTextFormatter()
	case message.KindMarkdown:
		f = NewMarkdownFormatter()
	case message.KindImage:
		f = NewImageFormatter(DefaultImageConfig())
	case message.KindNews:
		f = NewNewsFormatter()
	case message.KindFile:
		f = NewFileFormatter()
	default:
		return nil, wecomerrors.Newf(40008, "unsupported message type: %s", kind)
	}
	factory[kind] = f
	return f, nil
}

// truncate shortens content to max characters, replacing the removed tail
// with suffix. Content within the limit is returned unchanged; truncation is
// never silent.
func truncate(content string, max int, suffix string) string {
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	keep := max - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + suffix
}

// dedupe removes blank entries and duplicates, keeping the first occurrence
// of each value in input order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
