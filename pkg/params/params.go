// Package params maps loosely typed host-platform parameter rows onto the
// typed inputs the connectors consume. The host hands each node a list of
// string-keyed maps; every getter here tolerates missing keys and foreign
// value types rather than panicking.
package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one input item as delivered by the host platform.
type Row map[string]any

// GetString returns the value under key rendered as a string. Missing keys
// and nils yield the empty string; numbers and booleans are formatted.
func (r Row) GetString(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		// JSON numbers arrive as float64; render integers without a decimal.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// GetBool returns the value under key as a boolean. String values parse via
// strconv.ParseBool; anything unparseable is false.
func (r Row) GetBool(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && parsed
	default:
		return false
	}
}

// GetInt returns the value under key as an int, or def when absent or
// unparseable.
func (r Row) GetInt(key string, def int) int {
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// GetStrings splits a comma-separated string value into trimmed non-empty
// parts. A value that is already a list is flattened element-wise.
func (r Row) GetStrings(key string) []string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		return splitList(t)
	case []string:
		var out []string
		for _, s := range t {
			out = append(out, splitList(s)...)
		}
		return out
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, splitList(s)...)
			}
		}
		return out
	default:
		return nil
	}
}

// GetRows returns the value under key as a list of nested rows, used for
// repeated structured groups such as news cards.
func (r Row) GetRows(key string) []Row {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []Row:
		return t
	case []map[string]any:
		out := make([]Row, 0, len(t))
		for _, m := range t {
			out = append(out, Row(m))
		}
		return out
	case []any:
		var out []Row
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				out = append(out, Row(m))
			}
		}
		return out
	case map[string]any:
		return []Row{Row(t)}
	default:
		return nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// WebhookCredential carries the group-bot webhook URL issued by WeCom.
type WebhookCredential struct {
	WebhookURL string `json:"webhook_url"`
}

// WebhookCredentialFromMap extracts a webhook credential from a host
// credential map, accepting the key spellings seen in the wild.
func WebhookCredentialFromMap(m map[string]any) (*WebhookCredential, error) {
	row := Row(m)
	url := row.GetString("webhook_url")
	if url == "" {
		url = row.GetString("webhookUrl")
	}
	if url == "" {
		url = row.GetString("url")
	}
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("webhook credential is missing webhook_url")
	}
	return &WebhookCredential{WebhookURL: strings.TrimSpace(url)}, nil
}

// GitLabCredential carries the personal access token and instance domain used
// by the source-control connector.
type GitLabCredential struct {
	Domain      string `json:"domain"`
	AccessToken string `json:"access_token"`
}

// GitLabCredentialFromMap extracts a GitLab credential from a host credential
// map. The domain defaults to gitlab.com when absent.
func GitLabCredentialFromMap(m map[string]any) (*GitLabCredential, error) {
	row := Row(m)
	token := row.GetString("access_token")
	if token == "" {
		token = row.GetString("accessToken")
	}
	if token == "" {
		token = row.GetString("token")
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("gitlab credential is missing access_token")
	}
	domain := strings.TrimSpace(row.GetString("domain"))
	if domain == "" {
		domain = "https://gitlab.com"
	}
	domain = strings.TrimRight(domain, "/")
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return &GitLabCredential{Domain: domain, AccessToken: strings.TrimSpace(token)}, nil
}
