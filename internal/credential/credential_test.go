package credential

import "testing"

func TestParseWithLabel(t *testing.T) {
	raw := "username=alice;" + SessionCookieKey + "=abc123"

	account, ok := Parse(raw)
	if !ok {
		t.Fatal("Parse returned ok=false for a valid credential")
	}
	if account.Label != "alice" {
		t.Errorf("Label = %q, want %q", account.Label, "alice")
	}
	if account.Cookie != SessionCookieKey+"=abc123" {
		t.Errorf("Cookie = %q, want full key=value pair", account.Cookie)
	}
	if account.Raw != raw {
		t.Errorf("Raw = %q, want original string", account.Raw)
	}
}

func TestParseWithoutLabel(t *testing.T) {
	raw := SessionCookieKey + "=tok"

	account, ok := Parse(raw)
	if !ok {
		t.Fatal("Parse returned ok=false")
	}
	if account.Label != "" {
		t.Errorf("Label = %q, want empty", account.Label)
	}
}

func TestParseMissingSessionKey(t *testing.T) {
	for _, raw := range []string{
		"not_a_cookie",
		"",
		"username=bob;other_cookie=value",
	} {
		if _, ok := Parse(raw); ok {
			t.Errorf("Parse(%q) ok = true, want false", raw)
		}
	}
}

func TestParseStopsAtSemicolon(t *testing.T) {
	raw := SessionCookieKey + "=tok;path=/; other=1"

	account, ok := Parse(raw)
	if !ok {
		t.Fatal("Parse returned ok=false")
	}
	if account.Cookie != SessionCookieKey+"=tok" {
		t.Errorf("Cookie = %q, want value cut at first semicolon", account.Cookie)
	}
}
