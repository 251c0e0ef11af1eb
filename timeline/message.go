package timeline

// Role of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. User messages are created closed;
// assistant messages are created empty and streaming, mutated only by the
// reducer for the duration of one streaming session, then frozen.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Items     []*ActivityItem
	Streaming bool
}

// NewUserMessage creates a closed user message.
func NewUserMessage(id, content string) *Message {
	return &Message{ID: id, Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an empty streaming assistant message.
func NewAssistantMessage(id string) *Message {
	return &Message{ID: id, Role: RoleAssistant, Streaming: true}
}

// RunningTools returns the still-running tool items in timeline order.
func (m *Message) RunningTools() []*ActivityItem {
	var running []*ActivityItem
	for _, it := range m.Items {
		if it.RunningTool() {
			running = append(running, it)
		}
	}
	return running
}
