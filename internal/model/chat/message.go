package chat

import "time"

// Role 标识消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TimestampLayout matches the ISO-8601 form used by the persisted transcripts.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Message is one immutable turn of a conversation transcript.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// FormatTimestamp renders t in the transcript timestamp layout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a transcript timestamp.
func ParseTimestamp(value string) (time.Time, error) {
	return time.Parse(TimestampLayout, value)
}
