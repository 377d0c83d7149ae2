package websocket

import (
	"fmt"
	"regexp"
	"strings"
)

// TopicKind is the scope prefix of a topic.
type TopicKind string

const (
	TopicProject TopicKind = "project"
	TopicChat    TopicKind = "chat"
	TopicUser    TopicKind = "user"
)

const maxTopicIDLen = 128

// topicIDPattern matches ids: alphanumeric, dot, underscore and hyphen
var topicIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Topic is a parsed "<kind>:<id>" broadcast scope.
type Topic struct {
	Kind TopicKind
	ID   string
}

func (t Topic) String() string {
	return string(t.Kind) + ":" + t.ID
}

// CrossProcess reports whether broadcasts on t are republished on the broker.
// Chat traffic stays on the node that owns the socket.
func (t Topic) CrossProcess() bool {
	return t.Kind == TopicProject || t.Kind == TopicUser
}

// ParseTopic validates s and splits it into kind and id.
func ParseTopic(s string) (Topic, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}
	switch TopicKind(kind) {
	case TopicProject, TopicChat, TopicUser:
	default:
		return Topic{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTopic, kind)
	}
	if !validTopicID(id) {
		return Topic{}, fmt.Errorf("%w: bad id in %q", ErrInvalidTopic, s)
	}
	return Topic{Kind: TopicKind(kind), ID: id}, nil
}

func validTopicID(id string) bool {
	return len(id) <= maxTopicIDLen && topicIDPattern.MatchString(id)
}

func ProjectTopic(projectID string) string { return string(TopicProject) + ":" + projectID }
func ChatTopic(chatID string) string       { return string(TopicChat) + ":" + chatID }
func UserTopic(userID string) string       { return string(TopicUser) + ":" + userID }
