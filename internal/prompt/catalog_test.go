package prompt

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestNewResolvesLanguage(t *testing.T) {
	cases := map[string]language.Tag{
		"":      language.English,
		"en-US": language.English,
		"ko":    language.Korean,
		"ko-KR": language.Korean,
		"xx!!":  language.English,
	}
	for in, want := range cases {
		if got := New(in).Tag(); got != want {
			t.Fatalf("New(%q).Tag() = %s, want %s", in, got, want)
		}
	}
}

func TestTurnPrompt(t *testing.T) {
	c := New("en")
	got := c.Turn([]string{"Alice", "Bob"}, "Bob")

	if !strings.HasPrefix(got, "Current session members: Alice, Bob\n\n") {
		t.Fatalf("unexpected prefix: %q", got)
	}
	if !strings.Contains(got, "It's now the turn of: $Bob$") {
		t.Fatalf("missing turn marker: %q", got)
	}
	if !strings.Contains(got, "${Turn=PlayerName}") {
		t.Fatalf("missing turn directive hint: %q", got)
	}
}

func TestChatPromptFallbacks(t *testing.T) {
	c := New("en")
	got := c.Chat(nil, "", "Alice")

	if !strings.Contains(got, "Current session members: No players") {
		t.Fatalf("expected no-players text: %q", got)
	}
	if !strings.Contains(got, "It's currently waiting's turn.") {
		t.Fatalf("expected waiting text: %q", got)
	}
	if !strings.Contains(got, "You are Alice.") {
		t.Fatalf("expected identity: %q", got)
	}
}

func TestSystemMessages(t *testing.T) {
	if got := New("en").Leave("Rin"); got != "Rin has left the adventure." {
		t.Fatalf("unexpected leave message: %q", got)
	}
	if got := New("ko").Join("Rin"); got != "Rin님이 모험에 참가했습니다!" {
		t.Fatalf("unexpected join message: %q", got)
	}
	if got := New("en").BatchStats([]string{"Rin", "Kael"}); !strings.Contains(got, "Rin, Kael") {
		t.Fatalf("batch prompt missing names: %q", got)
	}
}
