package broadcast

import (
	"fmt"
	"strings"
	"text/template"
)

// MessageFunc renders the notification body for a contact name.
type MessageFunc func(name string) (string, error)

type templateData struct {
	Name string
}

// ParseTemplate compiles a text/template pattern that may reference {{.Name}}.
func ParseTemplate(pattern string) (MessageFunc, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("message template is empty")
	}

	tmpl, err := template.New("message").Option("missingkey=error").Parse(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message template: %w", err)
	}

	return func(name string) (string, error) {
		var sb strings.Builder
		if err := tmpl.Execute(&sb, templateData{Name: name}); err != nil {
			return "", fmt.Errorf("failed to render message: %w", err)
		}
		return sb.String(), nil
	}, nil
}
