package prompt

import (
	"strings"
	"testing"
)

var wordSpec = Spec{
	Role:     "You are an English pronunciation coach.",
	Task:     "Generate words for pronunciation practice.",
	Audience: "children aged 6",
	Count:    5,
	Rules:    []string{"Single words only"},
	Schema:   `{"words": [string]}`,
	Example:  `{"words": ["rabbit", "yellow", "whistle", "garden", "puzzle"]}`,
}

func TestComposeExclusionComesFirst(t *testing.T) {
	p := Compose(wordSpec, "pronunciation, fluency, rabbit")

	excl := strings.Index(p, "EXCLUSION LIST")
	rule := strings.Index(p, "NEVER use words")
	task := strings.Index(p, wordSpec.Task)
	if excl < 0 || rule < 0 || task < 0 {
		t.Fatalf("prompt missing a section:\n%s", p)
	}
	if !(excl < rule && rule < task) {
		t.Fatalf("want exclusion < rule < task, got %d %d %d", excl, rule, task)
	}
	if !strings.Contains(p, "pronunciation, fluency, rabbit") {
		t.Fatalf("exclusion items missing")
	}
}

func TestComposeSchemaAndContract(t *testing.T) {
	p := Compose(wordSpec, "fluency")
	for _, want := range []string{
		"Generate exactly 5 items",
		"Audience: children aged 6",
		"- Single words only",
		wordSpec.Example,
		"Return ONLY a JSON object",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
	if !strings.HasSuffix(p, "Do not include any additional text, explanations, or formatting.") {
		t.Fatalf("prompt should end with the no-prose directive")
	}
}

func TestComposeLabel(t *testing.T) {
	spec := wordSpec
	spec.ExclusionLabel = "passages"
	p := Compose(spec, "The Friendly Cat")
	if !strings.Contains(p, "BEFORE SELECTING ANY PASSAGES") || !strings.Contains(p, "NEVER use passages") {
		t.Fatalf("label not applied:\n%s", p)
	}
}

func TestComposeWithoutExclusion(t *testing.T) {
	p := Compose(wordSpec, "")
	if strings.Contains(p, "EXCLUSION") {
		t.Fatalf("no exclusion block expected:\n%s", p)
	}
}
