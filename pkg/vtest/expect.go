package vtest

import (
	"strings"
	"testing"
)

// ExpectContains asserts that the mirrored HTML contains expected.
//
//	vtest.ExpectContains(t, mirror, "Welcome Admin")
func ExpectContains(t testing.TB, m *Mirror, expected string) {
	t.Helper()
	html := m.HTML()
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that the mirrored HTML does not contain
// unexpected.
func ExpectNotContains(t testing.TB, m *Mirror, unexpected string) {
	t.Helper()
	html := m.HTML()
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectElement asserts that the mirrored HTML contains a tag.
func ExpectElement(t testing.TB, m *Mirror, tag string) {
	t.Helper()
	html := m.HTML()
	if !strings.Contains(html, "<"+tag) {
		t.Errorf("expected rendered output to contain <%s> element, got:\n%s", tag, truncate(html, 500))
	}
}

// ExpectSameModel asserts that two mirrors hold the same model.
func ExpectSameModel(t testing.TB, want, got *Mirror) {
	t.Helper()
	if w, g := want.JSON(), got.JSON(); w != g {
		t.Errorf("models differ:\nwant %s\ngot  %s", truncate(w, 1000), truncate(g, 1000))
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
