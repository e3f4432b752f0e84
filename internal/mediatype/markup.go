package mediatype

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"mulmocast/internal/script"
)

func escape(value string) string {
	return html.EscapeString(value)
}

// renderMarkup builds the HTML page body handed to the renderer. Markdown
// and mermaid sources are passed through for client-side conversion.
func renderMarkup(media script.MediaDescriptor) (string, error) {
	var b strings.Builder
	switch media.Type {
	case script.KindHTML:
		b.WriteString(media.HTML)
	case script.KindMarkdown:
		b.WriteString(`<div class="markdown">`)
		b.WriteString(escape(media.Markdown))
		b.WriteString(`</div>`)
	case script.KindMermaid:
		b.WriteString(`<pre class="mermaid">`)
		b.WriteString(escape(media.Code))
		b.WriteString(`</pre>`)
	case script.KindChart:
		data, err := json.Marshal(media.Data)
		if err != nil {
			return "", fmt.Errorf("encode chart data: %w", err)
		}
		b.WriteString(`<canvas id="chart"></canvas><script type="application/json" id="chart-data">`)
		b.WriteString(escape(string(data)))
		b.WriteString(`</script>`)
	case script.KindTextSlide, script.KindSlide:
		class := "slide"
		if theme := strings.TrimSpace(media.Theme); theme != "" {
			class += " theme-" + escape(theme)
		}
		b.WriteString(`<section class="` + class + `">`)
		if media.Title != "" {
			b.WriteString("<h1>" + escape(media.Title) + "</h1>")
		}
		if media.Subtitle != "" {
			b.WriteString("<h2>" + escape(media.Subtitle) + "</h2>")
		}
		if len(media.Bullets) > 0 {
			b.WriteString("<ul>")
			for _, bullet := range media.Bullets {
				b.WriteString("<li>" + escape(bullet) + "</li>")
			}
			b.WriteString("</ul>")
		}
		b.WriteString("</section>")
	default:
		return "", fmt.Errorf("media type %q has no markup", media.Type)
	}
	return b.String(), nil
}
