package render

import (
	"context"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Markdown renders blocks as markdown by converting their HTML form.
// Action buttons are omitted.
func Markdown(ctx context.Context, blocks []Block) (string, error) {
	var sb strings.Builder
	for _, b := range blocks {
		b.Actions = nil
		if err := HTML(b, nil).Render(ctx, &sb); err != nil {
			return "", fmt.Errorf("rendering block html: %w", err)
		}
	}

	md, err := htmltomarkdown.ConvertString(sb.String())
	if err != nil {
		return "", fmt.Errorf("converting to markdown: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}
