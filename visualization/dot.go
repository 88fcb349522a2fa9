// Package visualization renders a finalized registry as Graphviz DOT, with
// optional SVG conversion through the dot binary.
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/nestfsm/nestfsm"
)

// DOTGenerator generates Graphviz DOT representations of a state tree
type DOTGenerator struct {
	registry *nestfsm.Registry
	options  DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowEvents          bool
	ShowDefaultChildren bool
	RankDirection       string // "TB", "LR", "BT", "RL"
	LeafShape           string
	CompositeStyle      string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowEvents:          true,
		ShowDefaultChildren: true,
		RankDirection:       "TB",
		LeafShape:           "box",
		CompositeStyle:      "rounded,filled",
	}
}

// NewDOTGenerator creates a new DOT generator for the given registry
func NewDOTGenerator(registry *nestfsm.Registry, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		registry: registry,
		options:  opts,
	}
}

// Generate creates a DOT representation of the state tree: containment
// edges from parents to children, default-child markers, and one labeled
// edge per handler-table entry.
func (g *DOTGenerator) Generate() (string, error) {
	var dot strings.Builder

	dot.WriteString("digraph StateTree {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString("  node [shape=box];\n")
	dot.WriteString("  edge [fontsize=10];\n\n")

	g.generateStates(&dot)
	g.generateEdges(&dot)

	dot.WriteString("}\n")

	return dot.String(), nil
}

// generateStates generates DOT nodes for all states
func (g *DOTGenerator) generateStates(dot *strings.Builder) {
	root := g.registry.Root()

	dot.WriteString("  // States\n")
	for _, id := range g.registry.States() {
		kind, _ := g.registry.KindOf(id)

		shape := g.options.LeafShape
		fillColor := "lightblue"
		label := string(id)

		if kind == nestfsm.KindComposite {
			parts := strings.Split(g.options.CompositeStyle, ",")
			shape = parts[0]
			fillColor = "lightcyan"
		}
		if id == root {
			fillColor = "lightgreen"
			label += "\\n(root)"
		}

		dot.WriteString(fmt.Sprintf("  \"%s\" [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"];\n",
			id, shape, fillColor, label))
	}
}

// generateEdges generates containment, default-child and transition edges
func (g *DOTGenerator) generateEdges(dot *strings.Builder) {
	dot.WriteString("\n  // Containment\n")
	for _, id := range g.registry.States() {
		parent, ok := g.registry.ParentOf(id)
		if !ok || parent == "" {
			continue
		}

		attrs := "style=dashed arrowhead=none"
		if g.options.ShowDefaultChildren {
			if child, ok := g.registry.DefaultChildOf(parent); ok && child == id {
				attrs = "style=dashed arrowhead=none label=\"default\""
			}
		}
		dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [%s];\n", parent, id, attrs))
	}

	dot.WriteString("\n  // Transitions\n")
	for _, id := range g.registry.States() {
		handlers := g.registry.HandlersOf(id)

		events := make([]string, 0, len(handlers))
		for event := range handlers {
			events = append(events, event)
		}
		sort.Strings(events)

		for _, event := range events {
			if g.options.ShowEvents {
				dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%s\"];\n", id, handlers[event], event))
			} else {
				dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\";\n", id, handlers[event]))
			}
		}
	}
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// GenerateSVG creates an SVG representation by piping the DOT output
// through Graphviz
func (g *DOTGenerator) GenerateSVG() (string, error) {
	dotContent, err := g.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}
