package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// memoryMapCategories group collections by name substring, checked in
// order. Presentation only: no control decision is ever made from this
// grouping.
var memoryMapCategories = []struct {
	label    string
	keywords []string
}{
	{"Reasoning", []string{"thought", "relation", "result"}},
	{"Working memory", []string{"working", "context", "task"}},
	{"Episodic memory", []string{"episod", "event"}},
	{"Semantic memory", []string{"semantic", "fact", "knowledge"}},
	{"Procedural memory", []string{"procedur", "skill"}},
	{"Autobiographical", []string{"narrative", "life", "identity"}},
}

func categorize(name string) string {
	lower := strings.ToLower(name)
	for _, cat := range memoryMapCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.label
			}
		}
	}
	return "Other"
}

// GenerateMemoryMap renders a human-readable overview of every collection,
// grouped by name-substring heuristics, with the declared links appended.
func (a *CollectionAdmin) GenerateMemoryMap(ctx context.Context) (string, error) {
	infos, err := a.ListCollections(ctx)
	if err != nil {
		return "", err
	}

	grouped := make(map[string][]string)
	for _, info := range infos {
		line := fmt.Sprintf("  %-24s %7d points  dim=%-5d status=%s",
			info.Name, info.PointsCount, info.VectorSize, info.Status)
		if info.Purpose != "" {
			line += "  // " + info.Purpose
		}
		label := categorize(info.Name)
		grouped[label] = append(grouped[label], line)
	}

	var b strings.Builder
	b.WriteString("MEMORY MAP\n")
	b.WriteString("==========\n")

	labels := make([]string, 0, len(memoryMapCategories)+1)
	for _, cat := range memoryMapCategories {
		labels = append(labels, cat.label)
	}
	labels = append(labels, "Other")

	for _, label := range labels {
		lines := grouped[label]
		if len(lines) == 0 {
			continue
		}
		sort.Strings(lines)
		b.WriteString("\n" + label + ":\n")
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
	}

	links := a.links.All()
	if len(links) > 0 {
		b.WriteString("\nLinks:\n")
		for _, link := range links {
			b.WriteString(fmt.Sprintf("  %s --%s--> %s (%.2f)\n",
				link.Source, link.RelationType, link.Target, link.Strength))
		}
	}
	return b.String(), nil
}
