// Package conversation holds the message log sent to the model on every request.
package conversation

import (
	"fmt"
	"runtime"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged entry of a Conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultSystemPrompt is the template used for the opening system message.
// It is rendered with the keys now, zone and platform.
const DefaultSystemPrompt = `Help the user by responding to their request, the output should be concise and always written in markdown.
The current date and time is {{.now}} {{.zone}}.
The user is running {{.platform}}.`

// Conversation is an append-only message log. It always starts with exactly
// one system message.
type Conversation struct {
	messages []Message
}

// New starts a conversation with the given system prompt.
func New(systemPrompt string) *Conversation {
	return &Conversation{
		messages: []Message{{Role: RoleSystem, Content: systemPrompt}},
	}
}

// SystemPrompt renders tmpl (DefaultSystemPrompt if empty) for the given time.
func SystemPrompt(tmpl string, now time.Time) (string, error) {
	if tmpl == "" {
		tmpl = DefaultSystemPrompt
	}
	zone, _ := now.Zone()
	pt := prompts.NewPromptTemplate(tmpl, []string{"now", "zone", "platform"})
	s, err := pt.Format(map[string]any{
		"now":      now.Format("2006-01-02 15:04:05.000000"),
		"zone":     zone,
		"platform": runtime.GOOS,
	})
	if err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return s, nil
}

// AddUser appends a user message.
func (c *Conversation) AddUser(content string) {
	c.messages = append(c.messages, Message{Role: RoleUser, Content: content})
}

// AddAssistant appends an assistant message.
func (c *Conversation) AddAssistant(content string) {
	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: content})
}

// Len reports the number of stored messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recently stored message.
func (c *Conversation) Last() Message {
	return c.messages[len(c.messages)-1]
}

// Messages returns a copy of the stored messages.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// LLMMessages converts the log into langchaingo message content.
func (c *Conversation) LLMMessages() []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, llms.TextParts(m.Role.chatMessageType(), m.Content))
	}
	return out
}

func (r Role) chatMessageType() llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
