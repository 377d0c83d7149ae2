package websocket

import (
	"time"

	"logstream-srv/internal/model"
)

// MessageType tags every frame on the push transport.
type MessageType string

// Inbound (client to server).
const (
	MessageTypePing        MessageType = "ping"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSetFilters  MessageType = "set_filters"
	MessageTypeMarkRead    MessageType = "mark_read"
	MessageTypeUserMessage MessageType = "user_message"
	MessageTypeTyping      MessageType = "typing"
)

// Outbound (server to client).
const (
	MessageTypeConnectionEstablished MessageType = "connection_established"
	MessageTypeLogEntry              MessageType = "log_entry"
	MessageTypeLogBatch              MessageType = "log_batch"
	MessageTypeAlert                 MessageType = "alert"
	MessageTypeError                 MessageType = "error"
	MessageTypePong                  MessageType = "pong"
	MessageTypeStreamStatus          MessageType = "stream_status"
	MessageTypeSubscribed            MessageType = "subscribed"
	MessageTypeUnsubscribed          MessageType = "unsubscribed"
	MessageTypeFiltersUpdated        MessageType = "filters_updated"
	MessageTypeAlertRead             MessageType = "alert_read"
	MessageTypeChatMessage           MessageType = "chat_message"
)

// Error frame codes.
const (
	CodeInvalidJSON    = "invalid_json"
	CodeInvalidMessage = "invalid_message"
	CodeUnknownType    = "unknown_type"
	CodeRateLimited    = "rate_limited"
	CodeInvalidTopic   = "invalid_topic"
	CodeForbidden      = "forbidden"
	CodeInvalidFilter  = "invalid_filter"
	CodeInternal       = "internal_error"
	CodeUnauthorized   = "unauthorized"
)

// Frame is the JSON envelope of every outbound message.
type Frame struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// NewFrame stamps a frame with the current UTC time.
func NewFrame(t MessageType, data any) Frame {
	return Frame{Type: t, Timestamp: time.Now().UTC(), Data: data}
}

// ErrorFrame builds an error frame.
func ErrorFrame(code, message string) Frame {
	return Frame{Type: MessageTypeError, Timestamp: time.Now().UTC(), Code: code, Message: message}
}

// --- Outbound payloads ---

type ConnectionEstablishedData struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	NodeID       string `json:"nodeId"`
}

// LogEntryData is one normalized log event as pushed to clients.
type LogEntryData struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"projectId"`
	ConnectionID string         `json:"connectionId"`
	Timestamp    time.Time      `json:"timestamp"`
	Level        string         `json:"level"`
	Message      string         `json:"message"`
	Source       string         `json:"source"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewLogEntryData converts a stored event into its push representation.
func NewLogEntryData(e model.LogEvent) LogEntryData {
	return LogEntryData{
		ID:           e.ID,
		ProjectID:    e.ProjectID,
		ConnectionID: e.ConnectionID,
		Timestamp:    e.Timestamp.UTC(),
		Level:        string(e.Level),
		Message:      e.Message,
		Source:       e.Source,
		Metadata:     e.Metadata,
	}
}

type LogBatchData struct {
	Entries []LogEntryData `json:"entries"`
}

type AlertData struct {
	ID        string         `json:"id"`
	RuleID    string         `json:"ruleId"`
	RuleName  string         `json:"ruleName"`
	ProjectID string         `json:"projectId"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type StreamStatusData struct {
	ConnectionID string     `json:"connectionId"`
	ProjectID    string     `json:"projectId"`
	Status       string     `json:"status"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
}

type TopicData struct {
	Topic string `json:"topic"`
}

type AlertReadData struct {
	AlertID string `json:"alertId"`
	Updated bool   `json:"updated"`
}

type ChatMessageData struct {
	ChatID  string `json:"chatId"`
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

type TypingData struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// --- Inbound payloads ---

type SubscribeRequest struct {
	Topic string `json:"topic"`
}

type SetFiltersRequest struct {
	Levels     []string `json:"levels"`
	Sources    []string `json:"sources"`
	Expression string   `json:"expression"`
}

type MarkReadRequest struct {
	AlertID string `json:"alertId"`
}

type UserMessageRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

type TypingRequest struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// --- UseCase inputs/outputs ---

// ConnectInput registers a freshly upgraded transport.
type ConnectInput struct {
	Transport Transport
	UserID    string
	Metadata  map[string]string
}

type HubStats struct {
	ActiveConnections int    `json:"activeConnections"`
	TotalUniqueUsers  int    `json:"totalUniqueUsers"`
	Topics            int    `json:"topics"`
	MessagesSent      uint64 `json:"messagesSent"`
	MessagesDropped   uint64 `json:"messagesDropped"`
	MessagesFailed    uint64 `json:"messagesFailed"`
	Broker            string `json:"broker"`
	RateWindowUsers   int    `json:"rateWindowUsers"`
}
