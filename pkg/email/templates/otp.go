package templates

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// OTPEmail is the data of a one-time code email.
type OTPEmail struct {
	Heading     string
	DisplayName string
	Intro       string
	Code        string
	ValidFor    time.Duration
}

// OTPCode renders the code email.
func OTPCode(data OTPEmail) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1 style="`+headingStyle+`">`+templ.EscapeString(data.Heading)+`</h1>`); err != nil {
			return err
		}

		greeting := "Hello,"
		if data.DisplayName != "" {
			greeting = fmt.Sprintf("Hello %s,", data.DisplayName)
		}
		if err := paragraph(w, textStyle, greeting); err != nil {
			return err
		}
		if err := paragraph(w, textStyle, data.Intro); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<p style="margin:24px 0;font-size:32px;font-weight:bold;letter-spacing:8px;text-align:center;">`+
			templ.EscapeString(data.Code)+`</p>`); err != nil {
			return err
		}

		return paragraph(w, mutedStyle, fmt.Sprintf(
			"This code expires in %s. If you did not request it, you can ignore this email.",
			humanizeDuration(data.ValidFor),
		))
	})
	return layout(data.Heading, content)
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	case d >= time.Second:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	default:
		return d.String()
	}
}
