package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// NotificationEmail is the data of a plain transactional notification.
// Every field is treated as text and escaped.
type NotificationEmail struct {
	StoreName string
	Heading   string
	Message   string
}

// Notification renders a notification email. Blank lines in Message start
// new paragraphs.
func Notification(data NotificationEmail) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if data.StoreName != "" {
			if err := paragraph(w, mutedStyle, data.StoreName); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<h1 style="`+headingStyle+`">`+templ.EscapeString(data.Heading)+`</h1>`); err != nil {
			return err
		}
		for _, p := range strings.Split(strings.ReplaceAll(data.Message, "\r\n", "\n"), "\n\n") {
			if p = strings.TrimSpace(p); p == "" {
				continue
			}
			if err := paragraph(w, textStyle, p); err != nil {
				return err
			}
		}
		return nil
	})
	return layout(data.Heading, content)
}
