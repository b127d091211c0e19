// Package docs holds the user manual of the taxlot command, one markdown file
// per topic.
package docs

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

//go:embed *.md
var docs embed.FS

// Index is the topic listing all the others.
const Index = "readme"

// Topic is a documentation page.
type Topic struct {
	Name  string
	Title string
}

// GetTopic returns the markdown of a topic. "*" is every topic but the index.
func GetTopic(topic string) (string, error) {
	if topic == "*" {
		names, err := GetAllTopics()
		if err != nil {
			return "", err
		}
		return GetTopics(names...)
	}
	content, err := docs.ReadFile(topic + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found: %w", topic, err)
	}
	return string(content), nil
}

// GetTopics concatenates topics, "*" included.
func GetTopics(topics ...string) (string, error) {
	var b bytes.Buffer
	for _, topic := range topics {
		content, err := GetTopic(topic)
		if err != nil {
			return "", err
		}
		b.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// GetAllTopics returns the sorted topic names, the index excluded.
func GetAllTopics() ([]string, error) {
	files, err := fs.Glob(docs, "*.md")
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".md")
		if name != Index {
			topics = append(topics, name)
		}
	}
	slices.Sort(topics)
	return topics, nil
}

// List returns every topic with the title of its first heading.
func List() ([]Topic, error) {
	names, err := GetAllTopics()
	if err != nil {
		return nil, err
	}
	topics := make([]Topic, 0, len(names))
	for _, name := range names {
		content, err := docs.ReadFile(name + ".md")
		if err != nil {
			return nil, err
		}
		topics = append(topics, Topic{Name: name, Title: title(content)})
	}
	return topics, nil
}

// title returns the text of the first heading of a markdown document.
func title(content []byte) string {
	root := goldmark.DefaultParser().Parse(text.NewReader(content))
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		var b strings.Builder
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(content))
			}
		}
		return b.String()
	}
	return ""
}
