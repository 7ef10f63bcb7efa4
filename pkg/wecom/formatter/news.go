package formatter

import (
	"strings"
	"unicode/utf8"

	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

// NewsFormatter builds link-card collection messages.
type NewsFormatter struct{}

// NewNewsFormatter creates a news formatter.
func NewNewsFormatter() *NewsFormatter {
	return &NewsFormatter{}
}

// Format builds a news message from 1 to 8 cards. Card errors name the
// offending card with a 1-based index.
func (f *NewsFormatter) Format(input *Input) (*message.Message, error) {
	if len(input.Cards) == 0 {
		return nil, wecomerrors.New(44003, "news message needs at least one card")
	}
	if len(input.Cards) > MaxArticles {
		return nil, wecomerrors.Newf(45008, "news message carries at most %d cards, got %d", MaxArticles, len(input.Cards))
	}

	articles := make([]message.Article, 0, len(input.Cards))
	for i, card := range input.Cards {
		idx := i + 1

		title := strings.TrimSpace(card.Title)
		if title == "" {
			return nil, wecomerrors.Newf(41011, "card %d: title is required", idx)
		}
		title = truncate(title, MaxTitleLength, EllipsisSuffix)

		description := truncate(strings.TrimSpace(card.Description), MaxDescriptionLength, EllipsisSuffix)

		cardURL := strings.TrimSpace(card.URL)
		if cardURL == "" {
			return nil, wecomerrors.Newf(41011, "card %d: url is required", idx)
		}
		if !isHTTPURL(cardURL) {
			return nil, wecomerrors.Newf(40066, "card %d: invalid url %q", idx, cardURL)
		}

		picURL := strings.TrimSpace(card.PicURL)
		if picURL != "" && !isHTTPURL(picURL) {
			return nil, wecomerrors.Newf(40066, "card %d: invalid picture url %q", idx, picURL)
		}

		articles = append(articles, message.Article{
			Title:       title,
			Description: description,
			URL:         cardURL,
			PicURL:      picURL,
		})
	}

	return &message.Message{
		MsgType: string(message.KindNews),
		News:    &message.NewsContent{Articles: articles},
	}, nil
}

// Validate reports every violation found in a news message.
func (f *NewsFormatter) Validate(msg *message.Message) *ValidationResult {
	result := newValidationResult()
	if msg == nil || msg.News == nil {
		result.addError("news payload is missing")
		return result
	}
	count := len(msg.News.Articles)
	if count == 0 {
		result.addError("news message needs at least one card")
	}
	if count > MaxArticles {
		result.addError("news message carries at most %d cards, got %d", MaxArticles, count)
	}
	for i, article := range msg.News.Articles {
		idx := i + 1
		if strings.TrimSpace(article.Title) == "" {
			result.addError("card %d: title is empty", idx)
		}
		if utf8.RuneCountInString(article.Title) > MaxTitleLength {
			result.addError("card %d: title exceeds %d characters", idx, MaxTitleLength)
		}
		if utf8.RuneCountInString(article.Description) > MaxDescriptionLength {
			result.addError("card %d: description exceeds %d characters", idx, MaxDescriptionLength)
		}
		if !isHTTPURL(article.URL) {
			result.addError("card %d: invalid url %q", idx, article.URL)
		}
		if article.PicURL != "" && !isHTTPURL(article.PicURL) {
			result.addError("card %d: invalid picture url %q", idx, article.PicURL)
		}
	}
	return result
}
