// Package prompt builds generation prompts that lead with the exclusion
// directive and end with a strict output contract.
package prompt

import (
	"fmt"
	"strings"
)

// Spec describes one generation request.
type Spec struct {
	// Role is the persona line, e.g. "You are an English learning coach."
	Role string
	// Task is the main instruction, e.g. "Generate 5 words for pronunciation practice".
	Task string
	// Audience is the age or level tier, e.g. "children aged 6".
	Audience string
	// Topic narrows the content, optional.
	Topic string
	// Count is the number of items requested; 0 omits the line.
	Count int
	// Rules are extra requirements, one per line.
	Rules []string
	// Schema describes the reply object in words.
	Schema string
	// Example is one concrete reply in the required format.
	Example string
	// ExclusionLabel names what must not be repeated ("words", "passages").
	ExclusionLabel string
}

// Compose renders spec with the current exclusion text.
func Compose(spec Spec, exclusion string) string {
	label := spec.ExclusionLabel
	if label == "" {
		label = "words"
	}

	var b strings.Builder
	if exclusion != "" {
		fmt.Fprintf(&b, "⚠️ FIRST: CHECK THIS EXCLUSION LIST BEFORE SELECTING ANY %s: %s\n\n", strings.ToUpper(label), exclusion)
		fmt.Fprintf(&b, "❌ ABSOLUTE RULE: NEVER use %s from the exclusion list above. Verify EACH item is NOT in the list!\n\n", label)
	}

	if spec.Role != "" {
		b.WriteString(spec.Role)
		b.WriteString("\n")
	}
	b.WriteString(spec.Task)
	b.WriteString("\n")

	var reqs []string
	if spec.Count > 0 {
		reqs = append(reqs, fmt.Sprintf("Generate exactly %d items", spec.Count))
	}
	if spec.Audience != "" {
		reqs = append(reqs, "Audience: "+spec.Audience)
	}
	if spec.Topic != "" {
		reqs = append(reqs, "Topic: "+spec.Topic)
	}
	reqs = append(reqs, spec.Rules...)
	if exclusion != "" {
		reqs = append(reqs, "Every item must be new: nothing from the exclusion list, no repeats within this reply")
	}
	if len(reqs) > 0 {
		b.WriteString("\nREQUIREMENTS:\n")
		for _, r := range reqs {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteString("\n")
		}
	}

	if spec.Schema != "" {
		b.WriteString("\nOutput schema: ")
		b.WriteString(spec.Schema)
		b.WriteString("\n")
	}
	if spec.Example != "" {
		b.WriteString("\nReturn ONLY a JSON object in this exact format:\n")
		b.WriteString(spec.Example)
		b.WriteString("\n")
	}
	b.WriteString("\nDo not include any additional text, explanations, or formatting.")
	return b.String()
}
