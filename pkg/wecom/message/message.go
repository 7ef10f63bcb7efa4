// Package message defines the WeCom group-bot webhook wire format. Exactly one
// payload field is set per message, matching MsgType.
package message

// Kind identifies a group-bot message type.
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindImage    Kind = "image"
	KindNews     Kind = "news"
	KindFile     Kind = "file"
)

// Kinds lists every supported message kind.
func Kinds() []Kind {
	return []Kind{KindText, KindMarkdown, KindImage, KindNews, KindFile}
}

// Valid reports whether k names a supported message kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindMarkdown, KindImage, KindNews, KindFile:
		return true
	}
	return false
}

// Message is the webhook request body.
type Message struct {
	MsgType  string           `json:"msgtype"`
	Text     *TextContent     `json:"text,omitempty"`
	Markdown *MarkdownContent `json:"markdown,omitempty"`
	Image    *ImageContent    `json:"image,omitempty"`
	News     *NewsContent     `json:"news,omitempty"`
	File     *FileContent     `json:"file,omitempty"`
}

// Kind returns the message kind declared by MsgType.
func (m *Message) Kind() Kind {
	return Kind(m.MsgType)
}

// TextContent carries plain text with optional mentions. Empty mention lists
// are omitted from the wire format entirely.
type TextContent struct {
	Content             string   `json:"content"`
	MentionedList       []string `json:"mentioned_list,omitempty"`
	MentionedMobileList []string `json:"mentioned_mobile_list,omitempty"`
}

// MarkdownContent carries WeCom's markdown dialect.
type MarkdownContent struct {
	Content string `json:"content"`
}

// ImageContent carries a base64 image payload with its MD5 checksum.
type ImageContent struct {
	Base64 string `json:"base64"`
	MD5    string `json:"md5"`
}

// NewsContent carries 1 to 8 link cards.
type NewsContent struct {
	Articles []Article `json:"articles"`
}

// Article is a single link card.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	PicURL      string `json:"picurl,omitempty"`
}

// FileContent references a previously uploaded file by its media id.
type FileContent struct {
	MediaID string `json:"media_id"`
}

// Response is the API's uniform response envelope; ErrCode 0 is the only
// success value.
type Response struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}
