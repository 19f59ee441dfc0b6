package content

import (
	"strings"
	"testing"
)

func TestIssueText(t *testing.T) {
	got := IssueText("Crash on startup", "Stack trace attached.")
	want := "Crash on startup\n\nStack trace attached."
	if got != want {
		t.Errorf("IssueText = %q, want %q", got, want)
	}
}

func TestIssueTextEmptyBody(t *testing.T) {
	got := IssueText("Title only", "")
	if got != "Title only\n\n" {
		t.Errorf("IssueText = %q", got)
	}
}

func TestPullText(t *testing.T) {
	got := PullText("Add retries", "Wraps page fetches.", []string{"a.go", "b.go"})
	want := "Add retries\n\nWraps page fetches.\n\na.go\nb.go"
	if got != want {
		t.Errorf("PullText = %q, want %q", got, want)
	}
}

func TestPullTextNoFiles(t *testing.T) {
	got := PullText("t", "b", nil)
	if got != "t\n\nb\n\n" {
		t.Errorf("PullText = %q", got)
	}
}

func TestPullHashDeterministic(t *testing.T) {
	files := []string{"x.go", "y.go"}
	h1 := PullHash("title", "body", files)
	h2 := PullHash("title", "body", files)
	if h1 != h2 {
		t.Errorf("same content hashed differently: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
	if h1 != strings.ToLower(h1) {
		t.Errorf("hash not lowercase hex: %s", h1)
	}
}

func TestPullHashSensitivity(t *testing.T) {
	base := PullHash("title", "body", []string{"a.go", "b.go"})

	cases := []struct {
		name  string
		title string
		body  string
		files []string
	}{
		{"title changed", "title2", "body", []string{"a.go", "b.go"}},
		{"body changed", "title", "body2", []string{"a.go", "b.go"}},
		{"file added", "title", "body", []string{"a.go", "b.go", "c.go"}},
		{"file removed", "title", "body", []string{"a.go"}},
		{"files reordered", "title", "body", []string{"b.go", "a.go"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PullHash(tc.title, tc.body, tc.files); got == base {
				t.Errorf("hash unchanged after %s", tc.name)
			}
		})
	}
}
