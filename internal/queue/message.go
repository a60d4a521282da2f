package queue

import (
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Message is one delivery of a document-uploaded event.
type Message struct {
	ID         string
	DocumentID string
	URL        string
	FileName   string
	Attempt    int
	TraceID    string
	LastError  string
	Raw        redis.XMessage
}

// ParseMessage decodes stream fields. All three document fields are
// required; a message without them can never succeed.
func ParseMessage(msg redis.XMessage) (Message, error) {
	documentID, err := parseString(msg.Values, "document_id")
	if err != nil {
		return Message{}, err
	}
	url, err := parseString(msg.Values, "url")
	if err != nil {
		return Message{}, err
	}
	fileName, err := parseString(msg.Values, "file_name")
	if err != nil {
		return Message{}, err
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	return Message{
		ID:         msg.ID,
		DocumentID: documentID,
		URL:        url,
		FileName:   fileName,
		Attempt:    attempt,
		TraceID:    parseOptionalString(msg.Values, "trace_id"),
		LastError:  parseOptionalString(msg.Values, "last_error"),
		Raw:        msg,
	}, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	s := fmt.Sprint(raw)
	if s == "" {
		return "", fmt.Errorf("empty %s", key)
	}
	return s, nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}

func messageValues(msg Message, attempt int) map[string]any {
	values := map[string]any{
		"document_id": msg.DocumentID,
		"url":         msg.URL,
		"file_name":   msg.FileName,
		"attempt":     attempt,
	}
	if msg.TraceID != "" {
		values["trace_id"] = msg.TraceID
	}
	return values
}
