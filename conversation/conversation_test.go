package conversation

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tmc/langchaingo/llms"
)

func TestConversationAppendOnly(t *testing.T) {
	c := New("be nice")
	c.AddUser("hi")
	c.AddAssistant("hello")

	want := []Message{
		{Role: RoleSystem, Content: "be nice"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}
	if diff := cmp.Diff(want, c.Messages()); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
	if got := c.Last(); got.Content != "hello" {
		t.Errorf("Last() = %+v, want assistant hello", got)
	}

	// Mutating the returned slice must not affect the log.
	msgs := c.Messages()
	msgs[0].Content = "changed"
	if c.Messages()[0].Content != "be nice" {
		t.Error("Messages() exposed internal storage")
	}
}

func TestLLMMessages(t *testing.T) {
	c := New("sys")
	c.AddUser("q")
	c.AddAssistant("a")

	got := c.LLMMessages()
	wantRoles := []llms.ChatMessageType{llms.ChatMessageTypeSystem, llms.ChatMessageTypeHuman, llms.ChatMessageTypeAI}
	if len(got) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d", len(got), len(wantRoles))
	}
	for i, m := range got {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d role = %v, want %v", i, m.Role, wantRoles[i])
		}
		if len(m.Parts) != 1 {
			t.Fatalf("message %d has %d parts", i, len(m.Parts))
		}
	}
	if text := got[1].Parts[0].(llms.TextContent).Text; text != "q" {
		t.Errorf("user text = %q, want q", text)
	}
}

func TestSystemPrompt(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	got, err := SystemPrompt("", now)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"always written in markdown",
		"2024-03-01 12:30:00.000000 UTC",
		"The user is running " + runtime.GOOS + ".",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("SystemPrompt() = %q, want to contain %q", got, want)
		}
	}

	got, err = SystemPrompt("You run on {{.platform}}.", now)
	if err != nil {
		t.Fatal(err)
	}
	if want := "You run on " + runtime.GOOS + "."; got != want {
		t.Errorf("custom SystemPrompt() = %q, want %q", got, want)
	}
}
