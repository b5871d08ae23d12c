package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const (
	bodyStyle    = "margin:0;padding:0;background:#f4f5f7;font-family:Helvetica,Arial,sans-serif;color:#1f2933;"
	cardStyle    = "max-width:480px;margin:32px auto;padding:32px;background:#ffffff;border-radius:8px;"
	headingStyle = "margin:0 0 16px;font-size:20px;"
	textStyle    = "margin:0 0 16px;font-size:15px;line-height:22px;"
	mutedStyle   = "margin:24px 0 0;font-size:12px;color:#7b8794;"
)

// layout wraps content into the shared email shell.
func layout(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"><title>`+
			templ.EscapeString(title)+`</title></head><body style="`+bodyStyle+`"><div style="`+cardStyle+`">`); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div></body></html>`)
		return err
	})
}

func paragraph(w io.Writer, style, text string) error {
	_, err := io.WriteString(w, `<p style="`+style+`">`+templ.EscapeString(text)+`</p>`)
	return err
}
