package sanitize

import (
	"strings"
	"testing"
)

func TestSanitize_Empty(t *testing.T) {
	if got := Sanitize(""); got != "" {
		t.Fatalf("Sanitize(\"\") = %q, want empty", got)
	}
}

func TestSanitize_PlainTextUnharmed(t *testing.T) {
	got := Sanitize("こんにちは、世界")
	if got != "こんにちは、世界" {
		t.Fatalf("plain text changed: %q", got)
	}
}

func TestSanitize_ScriptTagRemoved(t *testing.T) {
	got := Sanitize("<script>alert(1)</script>")
	if strings.Contains(got, "<script") {
		t.Fatalf("raw script tag survived: %q", got)
	}
	if strings.Contains(got, "alert(1)") {
		t.Fatalf("script body survived: %q", got)
	}
}

func TestSanitize_AllowedTagKeepsText(t *testing.T) {
	got := Sanitize("<b>ok</b>")
	if !strings.Contains(got, "ok") {
		t.Fatalf("inner text lost: %q", got)
	}
	if strings.Contains(got, "<b>") {
		t.Fatalf("tag left unescaped: %q", got)
	}
}

func TestSanitize_DisallowedTagKeepsInnerText(t *testing.T) {
	got := Sanitize(`<div onclick="x()">hello</div>`)
	if !strings.Contains(got, "hello") {
		t.Fatalf("inner text lost: %q", got)
	}
	if strings.Contains(got, "onclick") {
		t.Fatalf("attribute survived: %q", got)
	}
}

func TestSanitize_SchemesStripped(t *testing.T) {
	inputs := []string{
		`click javascript:alert(1)`,
		`click JAVASCRIPT:alert(1)`,
		`src=data:text/html;base64,xxx`,
		`VbScRiPt:msgbox`,
	}
	for _, in := range inputs {
		got := Sanitize(in)
		lower := strings.ToLower(got)
		for _, scheme := range []string{"javascript:", "data:", "vbscript:"} {
			if strings.Contains(lower, scheme) {
				t.Fatalf("Sanitize(%q) = %q still contains %q", in, got, scheme)
			}
		}
	}
}

func TestSanitize_SchemesDoNotReassemble(t *testing.T) {
	// Removing one occurrence must not splice the remainder into a new
	// one; the strip has to run to a fixpoint.
	inputs := []string{
		"javajavascript:script:alert(1)",
		"jajavascript:vascrivbscript:pt:x",
		"datdata:a:text/html",
	}
	for _, in := range inputs {
		got := Sanitize(in)
		lower := strings.ToLower(got)
		for _, scheme := range []string{"javascript:", "data:", "vbscript:"} {
			if strings.Contains(lower, scheme) {
				t.Fatalf("Sanitize(%q) = %q still contains %q", in, got, scheme)
			}
		}
	}
}

func TestSanitize_SchemesHiddenInEntities(t *testing.T) {
	// Character references decode during the pipeline; the decoded text
	// must not yield a live scheme either.
	inputs := []string{
		"java&#115;cript:alert(1)",
		"java&#x73;cript:alert(1)",
		"&#106;avascript:alert(1)",
		"dat&#97;:text/html",
	}
	for _, in := range inputs {
		got := Sanitize(in)
		lower := strings.ToLower(got)
		for _, scheme := range []string{"javascript:", "data:", "vbscript:"} {
			if strings.Contains(lower, scheme) {
				t.Fatalf("Sanitize(%q) = %q still contains %q", in, got, scheme)
			}
		}
	}
}

func TestSanitize_NoUnescapedAngleBrackets(t *testing.T) {
	inputs := []string{
		`<img src=x onerror=alert(1)>`,
		`<svg/onload=alert(1)>`,
		`<iframe src="http://evil"></iframe>`,
		`a < b and b > c`,
		`<p>段落</p><br><em>強調</em>`,
	}
	for _, in := range inputs {
		got := Sanitize(in)
		if strings.ContainsAny(got, "<>") {
			t.Fatalf("Sanitize(%q) = %q contains unescaped markup", in, got)
		}
	}
}
