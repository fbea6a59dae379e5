package refcodec

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// DefaultImageBaseURL is the template prefix an identifier is appended to when rendered.
const DefaultImageBaseURL = "https://drive.google.com/uc?export=view&id="

var (
	queryIDPattern = regexp.MustCompile(`id=([^&]+)`)
	pathIDPattern  = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)
)

// Codec converts image-reference lists between identifiers and the text
// encodings used by the sheet store.
type Codec struct {
	BaseURL string
	Logger  *slog.Logger
}

// New creates a Codec rendering identifiers against baseURL.
// An empty baseURL falls back to DefaultImageBaseURL.
func New(baseURL string, logger *slog.Logger) *Codec {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultImageBaseURL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Codec{BaseURL: baseURL, Logger: logger}
}

// URL renders a single identifier.
func (c *Codec) URL(identifier string) string {
	return c.BaseURL + identifier
}

// URLs renders identifiers in order.
func (c *Codec) URLs(identifiers []string) []string {
	urls := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		urls = append(urls, c.URL(id))
	}
	return urls
}

// DecodeImageField reduces a store image field to its ordered identifiers.
// It never fails: malformed input degrades to the identifiers that could be
// recovered, or an empty list.
func (c *Codec) DecodeImageField(field ImageField) []string {
	if field.IsList() {
		return reduceEntries(field.List())
	}
	return c.DecodeImageText(field.Text())
}

// DecodeImageText is DecodeImageField for a plain text value.
func (c *Codec) DecodeImageText(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if !isBracketed(raw) {
		return reduceEntries([]string{raw})
	}

	entries, err := decodeStrictArray(raw)
	if err == nil {
		return reduceEntries(entries)
	}

	c.Logger.Debug("image field is not a strict array, using tolerant fallback", "raw", raw, "error", err)
	return reduceEntries(tolerantEntries(raw))
}

// EncodeImageField expands identifiers to URLs and serializes them as a JSON array.
// An empty list encodes to "[]".
func (c *Codec) EncodeImageField(identifiers []string) string {
	return encodeStringArray(c.URLs(identifiers))
}

// ParseIdentifierList tokenizes human-entered identifier text. Commas and
// newlines separate tokens interchangeably; each token may be a bare
// identifier or any URL form IdentifierFromEntry understands.
func ParseIdentifierList(text string) []string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	return reduceEntries(tokens)
}

// IdentifierFromEntry extracts an identifier from a raw image entry: an
// `id=` query parameter first, then a `/d/<id>` path segment, else the
// entry itself.
func IdentifierFromEntry(entry string) string {
	entry = strings.TrimSpace(entry)
	if match := queryIDPattern.FindStringSubmatch(entry); match != nil && match[1] != "" {
		return match[1]
	}
	if match := pathIDPattern.FindStringSubmatch(entry); match != nil && match[1] != "" {
		return match[1]
	}
	return entry
}

func reduceEntries(entries []string) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		id := IdentifierFromEntry(entry)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func isBracketed(raw string) bool {
	return strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]")
}

func decodeStrictArray(raw string) ([]string, error) {
	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	entries := make([]string, 0, len(values))
	for _, value := range values {
		switch v := value.(type) {
		case string:
			entries = append(entries, v)
		case float64:
			entries = append(entries, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return entries, nil
}

// tolerantEntries handles bracketed text that is not valid JSON, such as
// `[https://a?id=1, https://a?id=2]`. Only absolute http(s) URL tokens are
// kept.
func tolerantEntries(raw string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	inner = strings.NewReplacer(`"`, "", `'`, "").Replace(inner)

	urls := []string{}
	for _, part := range strings.Split(inner, ",") {
		if token := strings.TrimSpace(part); isHTTPURL(token) {
			urls = append(urls, token)
		}
	}
	return urls
}

func isHTTPURL(token string) bool {
	return strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://")
}

// encodeStringArray marshals without HTML escaping so `&` survives as-is
// for the store.
func encodeStringArray(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	buf := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(values); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}
