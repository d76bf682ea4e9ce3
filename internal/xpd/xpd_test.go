package xpd

import (
	"strings"
	"testing"
)

func TestBuild_ContainsPortalURLAndCorrelationID(t *testing.T) {
	t.Parallel()

	doc := string(Build("42", "https://example.com/provisioning/portal"))

	if !strings.HasPrefix(doc, "[TPXD]\n") {
		t.Fatalf("descriptor missing section header: %q", doc)
	}
	for _, line := range []string{
		"Version=1.00\n",
		"RGST=https://example.com/provisioning/portal\n",
		"CID=42\n",
	} {
		if !strings.Contains(doc, line) {
			t.Fatalf("descriptor missing %q:\n%s", line, doc)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	a := Build("7", "http://h/p")
	b := Build("7", "http://h/p")
	if string(a) != string(b) {
		t.Fatalf("descriptor not deterministic:\n%s\n%s", a, b)
	}
}
