// Package catalog loads interview topic catalogs. Catalogs are ordered lists
// of topics, each with a theme, a name, and example questions that scope what
// the oracle asks. Catalogs come from CSV files (theme,topic,example_questions
// with semicolon-separated questions) or YAML files; a built-in default is
// substituted when the file is missing so a session can always start.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"interviewer/pkg/logx"
)

// Topic is one unit of subject matter, immutable once loaded.
type Topic struct {
	Theme            string   `json:"theme" yaml:"theme"`
	Name             string   `json:"topic" yaml:"topic"`
	ExampleQuestions []string `json:"example_questions" yaml:"example_questions"`
}

// ThemeGroup collects the topic names under one theme, in catalog order.
type ThemeGroup struct {
	Theme  string
	Topics []string
}

// Default returns the built-in placeholder catalog used when no file is
// available.
func Default() []Topic {
	return []Topic{
		{
			Theme: "Company Culture & Values",
			Name:  "Mission and Vision",
			ExampleQuestions: []string{
				"Can you describe our company's mission in your own words?",
				"How does it align with your personal values?",
			},
		},
		{
			Theme: "Products & Services",
			Name:  "Product Knowledge",
			ExampleQuestions: []string{
				"Can you explain our main product/service offerings?",
				"What are the key differentiators of our products?",
			},
		},
	}
}

// Load reads a catalog from path, dispatching on the file extension
// (.csv, .yaml, .yml). A missing file is not an error: the default catalog
// is returned so the interview can proceed.
func Load(path string) ([]Topic, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logx.Warnf("catalog %s not found, using placeholder topics", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return ParseCSV(f)
	}
}

// ParseCSV reads topics from CSV with a theme,topic,example_questions header.
// Example questions are semicolon-separated within the third column.
// Malformed rows are skipped with a warning rather than failing the load.
func ParseCSV(r io.Reader) ([]Topic, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse catalog csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("catalog csv is empty")
	}

	// Map header names to columns so column order doesn't matter.
	cols := map[string]int{}
	for i, name := range records[0] {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	themeCol, hasTheme := cols["theme"]
	topicCol, hasTopic := cols["topic"]
	questionsCol, hasQuestions := cols["example_questions"]
	if !hasTheme || !hasTopic {
		return nil, fmt.Errorf("catalog csv missing theme/topic columns")
	}

	topics := make([]Topic, 0, len(records)-1)
	for i, row := range records[1:] {
		if topicCol >= len(row) || themeCol >= len(row) {
			logx.Warnf("catalog row %d malformed, skipping", i+2)
			continue
		}
		topic := Topic{
			Theme: strings.TrimSpace(row[themeCol]),
			Name:  strings.TrimSpace(row[topicCol]),
		}
		if topic.Name == "" {
			logx.Warnf("catalog row %d has no topic name, skipping", i+2)
			continue
		}
		if hasQuestions && questionsCol < len(row) {
			topic.ExampleQuestions = SplitQuestions(row[questionsCol])
		}
		topics = append(topics, topic)
	}

	if len(topics) == 0 {
		return nil, fmt.Errorf("catalog csv has no usable rows")
	}
	return topics, nil
}

// ParseYAML reads a YAML list of topics.
func ParseYAML(r io.Reader) ([]Topic, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog yaml: %w", err)
	}

	var topics []Topic
	if err := yaml.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	usable := topics[:0]
	for i := range topics {
		if strings.TrimSpace(topics[i].Name) == "" {
			logx.Warnf("catalog entry %d has no topic name, skipping", i)
			continue
		}
		usable = append(usable, topics[i])
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("catalog yaml has no usable entries")
	}
	return usable, nil
}

// SplitQuestions splits a semicolon-separated question list, trimming
// whitespace and dropping empties.
func SplitQuestions(raw string) []string {
	parts := strings.Split(raw, ";")
	questions := make([]string, 0, len(parts))
	for _, p := range parts {
		if q := strings.TrimSpace(p); q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}

// ByTheme groups topic names by theme, preserving first-appearance order.
// The feedback prompt renders these groups.
func ByTheme(topics []Topic) []ThemeGroup {
	index := map[string]int{}
	groups := []ThemeGroup{}
	for _, t := range topics {
		theme := t.Theme
		if theme == "" {
			theme = "General"
		}
		i, ok := index[theme]
		if !ok {
			i = len(groups)
			index[theme] = i
			groups = append(groups, ThemeGroup{Theme: theme})
		}
		groups[i].Topics = append(groups[i].Topics, t.Name)
	}
	return groups
}

// Validate checks that every topic has a name and at least one of theme or
// example questions, returning the first problem found.
func Validate(topics []Topic) error {
	if len(topics) == 0 {
		return fmt.Errorf("catalog is empty")
	}
	for i, t := range topics {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("topic %d: name is empty", i)
		}
	}
	return nil
}
