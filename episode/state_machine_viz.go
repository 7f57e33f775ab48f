package episode

import (
	"fmt"
	"strings"
	"time"

	"github.com/monuverse/arch-of-peace-contract/types/episode"
)

// Reader is the read only side of the chapter state machine.
type Reader interface {
	CurrentChapter() (episode.Chapter, error)
	CurrentChapterID() episode.ChapterID
	Chapters() []episode.Chapter
	Episode() episode.Episode
	GetStateTime() time.Duration
	GetTransitionCount() uint64
}

var _ Reader = (*StateMachine)(nil)

// StateMachineViz provides visualization utilities for the chapter state
// machine
type StateMachineViz struct {
	sm Reader
}

// NewStateMachineViz creates a new visualizer for the chapter state machine
func NewStateMachineViz(sm Reader) *StateMachineViz {
	return &StateMachineViz{sm: sm}
}

// nodeIDs maps chapters to short diagram identifiers, labels contain spaces
// and punctuation that neither mermaid nor dot accept as ids.
func (v *StateMachineViz) nodeIDs() (map[string]string, []episode.Chapter) {
	chapters := v.sm.Chapters()
	ids := make(map[string]string, len(chapters))
	for i, c := range chapters {
		ids[c.Label] = fmt.Sprintf("C%d", i)
	}
	return ids, chapters
}

// GenerateMermaidDiagram generates a Mermaid diagram of the episode
func (v *StateMachineViz) GenerateMermaidDiagram() string {
	var sb strings.Builder

	ids, chapters := v.nodeIDs()
	ep := v.sm.Episode()
	current := v.sm.CurrentChapterID()

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")
	if ep.Initial != "" {
		sb.WriteString(fmt.Sprintf("    [*] --> %s\n", ids[ep.Initial]))
	}

	// Add chapter descriptions
	for _, c := range chapters {
		sb.WriteString(fmt.Sprintf(
			"    %s : %s\n",
			ids[c.Label],
			strings.ReplaceAll(c.Label, ":", " -"),
		))
	}

	sb.WriteString("\n")

	for _, t := range ep.Transitions {
		sb.WriteString(fmt.Sprintf(
			"    %s --> %s : %s\n",
			ids[t.From], ids[t.To], t.Event))
	}

	for _, c := range chapters {
		if c.IsConclusion {
			sb.WriteString(fmt.Sprintf("    %s --> [*]\n", ids[c.Label]))
		}
	}

	// Add special annotations
	sb.WriteString("\n")
	for _, c := range chapters {
		notes := chapterNotes(c)
		if c.ID() == current {
			notes = append(notes, "current")
		}
		if len(notes) > 0 {
			sb.WriteString(fmt.Sprintf(
				"    note right of %s : %s\n",
				ids[c.Label],
				strings.Join(notes, "\\n"),
			))
		}
	}

	sb.WriteString("```\n")

	return sb.String()
}

// GenerateDotDiagram generates a Graphviz DOT diagram
func (v *StateMachineViz) GenerateDotDiagram() string {
	var sb strings.Builder

	ids, chapters := v.nodeIDs()
	ep := v.sm.Episode()

	sb.WriteString("digraph Episode {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n")
	sb.WriteString("    edge [fontsize=10];\n\n")

	sb.WriteString("    // Chapters\n")
	for _, c := range chapters {
		sb.WriteString(fmt.Sprintf(
			"    %s [label=%q, style=\"rounded,filled\", fillcolor=%s];\n",
			ids[c.Label], c.Label, chapterColor(c),
		))
	}

	sb.WriteString("\n    // Transitions\n")
	for _, t := range ep.Transitions {
		sb.WriteString(fmt.Sprintf(
			"    %s -> %s [label=\"%s\"];\n",
			ids[t.From], ids[t.To], t.Event))
	}

	// Add legend
	sb.WriteString("\n    // Legend\n")
	sb.WriteString("    subgraph cluster_legend {\n")
	sb.WriteString("        label=\"Legend\";\n")
	sb.WriteString("        style=dotted;\n")
	sb.WriteString("        \"Yellow = Whitelisting\" [shape=none];\n")
	sb.WriteString("        \"Blue = Restricted mint\" [shape=none];\n")
	sb.WriteString("        \"Green = Open mint\" [shape=none];\n")
	sb.WriteString("        \"Orange = Reveal\" [shape=none];\n")
	sb.WriteString("        \"Gray = Conclusion\" [shape=none];\n")
	sb.WriteString("    }\n")

	sb.WriteString("}\n")

	return sb.String()
}

// GenerateTransitionTable generates a markdown table of all transitions
func (v *StateMachineViz) GenerateTransitionTable() string {
	var sb strings.Builder

	sb.WriteString("| From Chapter | Event | To Chapter |\n")
	sb.WriteString("|--------------|-------|------------|\n")

	for _, t := range v.sm.Episode().Transitions {
		sb.WriteString(fmt.Sprintf(
			"| %s | %s | %s |\n",
			t.From, t.Event, t.To))
	}

	return sb.String()
}

// GetCurrentStateInfo returns detailed information about the current chapter
func (v *StateMachineViz) GetCurrentStateInfo() string {
	var sb strings.Builder

	sb.WriteString("Current Chapter Information:\n")
	sb.WriteString("===========================\n\n")

	c, err := v.sm.CurrentChapter()
	if err != nil {
		sb.WriteString("Episode not installed\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Chapter: %s\n", c.Label))
	sb.WriteString(fmt.Sprintf("Identifier: %s\n", c.ID().Hex()))
	sb.WriteString(fmt.Sprintf("Time in Chapter: %v\n", v.sm.GetStateTime()))
	sb.WriteString(
		fmt.Sprintf("Total Transitions: %d\n", v.sm.GetTransitionCount()),
	)
	sb.WriteString(fmt.Sprintf("Whitelisting: %t\n", c.WhitelistingAllowed))
	sb.WriteString(fmt.Sprintf("Revealing: %t\n", c.Revealing))
	sb.WriteString(fmt.Sprintf("Conclusion: %t\n", c.IsConclusion))
	if c.Minting.Limit > 0 {
		sb.WriteString("\nMinting:\n")
		sb.WriteString(fmt.Sprintf("  Limit: %d\n", c.Minting.Limit))
		sb.WriteString(fmt.Sprintf("  Price (wei): %s\n", c.UnitPrice()))
		sb.WriteString(fmt.Sprintf("  Open: %t\n", c.Minting.IsOpen))
		for _, r := range c.Minting.Rules {
			sb.WriteString(fmt.Sprintf(
				"  Rule: %s enabled=%t fixedPrice=%t\n",
				r.Label, r.Enabled, r.FixedPrice,
			))
		}
	}

	// Available transitions from current chapter
	sb.WriteString("\nAvailable Transitions:\n")
	for _, t := range v.sm.Episode().Transitions {
		if t.From == c.Label {
			sb.WriteString(fmt.Sprintf("  %s -> %s\n", t.Event, t.To))
		}
	}

	return sb.String()
}

func chapterNotes(c episode.Chapter) []string {
	notes := []string{}
	if c.WhitelistingAllowed {
		notes = append(notes, "whitelisting")
	}
	if c.Minting.Limit > 0 {
		if c.Minting.IsOpen {
			notes = append(notes, "open mint")
		} else {
			notes = append(notes, "restricted mint")
		}
	}
	if c.Revealing {
		notes = append(notes, "reveal")
	}
	return notes
}

func chapterColor(c episode.Chapter) string {
	switch {
	case c.IsConclusion:
		return "lightgray"
	case c.Revealing:
		return "orange"
	case c.Minting.Limit > 0 && c.Minting.IsOpen:
		return "lightgreen"
	case c.Minting.Limit > 0:
		return "lightblue"
	case c.WhitelistingAllowed:
		return "lightyellow"
	}
	return "white"
}
