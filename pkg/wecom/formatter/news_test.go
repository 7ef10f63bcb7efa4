package formatter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/flownode/pkg/wecom/message"
)

func validCard() Card {
	return Card{
		Title:       "Release 1.2.0",
		Description: "Bug fixes and improvements",
		URL:         "https://example.com/releases/1.2.0",
		PicURL:      "https://example.com/banner.png",
	}
}

func TestNewsFormatter_Format(t *testing.T) {
	f := NewNewsFormatter()
	msg, err := f.Format(&Input{Cards: []Card{validCard()}})
	require.NoError(t, err)
	require.NotNil(t, msg.News)

	assert.Equal(t, string(message.KindNews), msg.MsgType)
	require.Len(t, msg.News.Articles, 1)
	assert.Equal(t, "Release 1.2.0", msg.News.Articles[0].Title)
	assert.Equal(t, "https://example.com/releases/1.2.0", msg.News.Articles[0].URL)
}

func TestNewsFormatter_CardCountBounds(t *testing.T) {
	f := NewNewsFormatter()

	_, err := f.Format(&Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "44003")

	cards := make([]Card, MaxArticles+1)
	for i := range cards {
		cards[i] = validCard()
	}
	_, err = f.Format(&Input{Cards: cards})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "45008")

	cards = cards[:MaxArticles]
	msg, err := f.Format(&Input{Cards: cards})
	require.NoError(t, err)
	assert.Len(t, msg.News.Articles, MaxArticles)
}

func TestNewsFormatter_CardErrorsAreIndexed(t *testing.T) {
	f := NewNewsFormatter()

	_, err := f.Format(&Input{Cards: []Card{
		validCard(),
		{Title: "no url"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card 2")

	_, err = f.Format(&Input{Cards: []Card{
		{Title: "bad", URL: "not a url"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `card 1: invalid url "not a url"`)
}

func TestNewsFormatter_TitleRequired(t *testing.T) {
	f := NewNewsFormatter()
	_, err := f.Format(&Input{Cards: []Card{
		{Title: "   ", URL: "https://example.com"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "41011")
	assert.Contains(t, err.Error(), "title is required")
}

func TestNewsFormatter_FieldTruncation(t *testing.T) {
	f := NewNewsFormatter()
	card := validCard()
	card.Title = strings.Repeat("t", MaxTitleLength+50)
	card.Description = strings.Repeat("d", MaxDescriptionLength+50)

	msg, err := f.Format(&Input{Cards: []Card{card}})
	require.NoError(t, err)

	article := msg.News.Articles[0]
	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(article.Title))
	assert.True(t, strings.HasSuffix(article.Title, EllipsisSuffix))
	assert.Equal(t, MaxDescriptionLength, utf8.RuneCountInString(article.Description))
	assert.True(t, strings.HasSuffix(article.Description, EllipsisSuffix))
}

func TestNewsFormatter_BlankPicURLOmitted(t *testing.T) {
	f := NewNewsFormatter()
	card := validCard()
	card.PicURL = "   "

	msg, err := f.Format(&Input{Cards: []Card{card}})
	require.NoError(t, err)
	assert.Empty(t, msg.News.Articles[0].PicURL)
}

func TestNewsFormatter_InvalidPicURLRejected(t *testing.T) {
	f := NewNewsFormatter()
	card := validCard()
	card.PicURL = "ftp://example.com/x.png"

	_, err := f.Format(&Input{Cards: []Card{card}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid picture url")
}

func TestNewsFormatter_ValidateAggregatesAllCards(t *testing.T) {
	f := NewNewsFormatter()
	msg := &message.Message{
		MsgType: string(message.KindNews),
		News: &message.NewsContent{Articles: []message.Article{
			{Title: "", URL: "not-a-url"},
			{Title: strings.Repeat("x", MaxTitleLength+1), URL: "https://example.com"},
		}},
	}

	result := f.Validate(msg)
	require.False(t, result.Valid)
	text := result.ErrorText()
	assert.Contains(t, text, "card 1: title is empty")
	assert.Contains(t, text, "card 1: invalid url")
	assert.Contains(t, text, "card 2: title exceeds")
}
