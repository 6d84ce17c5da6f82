package cmd

import (
	"testing"

	"github.com/stixly/stixly/internal/api"
)

func TestParseSetID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: " 7 ", want: 7},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "cats", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseSetID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSetID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSetID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAuthorLabel(t *testing.T) {
	tests := []struct {
		name string
		set  api.StickerSet
		want string
	}{
		{name: "username", set: api.StickerSet{Username: "neko", FirstName: "Anna"}, want: "@neko"},
		{name: "full name", set: api.StickerSet{FirstName: "Anna", LastName: "Berg"}, want: "Anna Berg"},
		{name: "first name only", set: api.StickerSet{FirstName: "Anna"}, want: "Anna"},
		{name: "author id", set: api.StickerSet{AuthorID: 99}, want: "99"},
		{name: "nothing", set: api.StickerSet{}, want: "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authorLabel(tt.set); got != tt.want {
				t.Errorf("authorLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	user := "neko"
	empty := ""
	if got := displayName(&user, "Anna", ""); got != "@neko" {
		t.Errorf("got %q", got)
	}
	if got := displayName(&empty, "Anna", "Berg"); got != "Anna Berg" {
		t.Errorf("got %q", got)
	}
	if got := displayName(nil, "", ""); got != "-" {
		t.Errorf("got %q", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"init", "version", "login", "logout", "gallery", "show", "like", "likes",
		"leaderboard", "download", "downloads", "generate", "wallet", "server", "mcp", "profile",
		"similar", "cache-stats"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestWalletSubcommandsRegistered(t *testing.T) {
	for _, sub := range []string{"link", "unlink", "sync"} {
		cmd, _, err := rootCmd.Find([]string{"wallet", sub})
		if err != nil || cmd.Name() != sub {
			t.Errorf("wallet %s not registered", sub)
		}
	}
}
