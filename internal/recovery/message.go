package recovery

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const resetSubject = "Reset Password"

var resetTemplate = template.Must(template.New("reset").Parse(`<p>You can reset your password by clicking <a href="{{.URL}}" target="_blank">Reset your password</a>.</p>
<p>If the above link does not work, copy this link into a new tab: {{.URL}}</p>
<p>The link expires in {{.Minutes}} minutes. If you have not requested this, ignore this email.</p>
`))

func renderResetMessage(resetURL string, window time.Duration) (string, string, error) {
	var buf bytes.Buffer
	err := resetTemplate.Execute(&buf, struct {
		URL     string
		Minutes int
	}{
		URL:     resetURL,
		Minutes: int(window.Minutes()),
	})
	if err != nil {
		return "", "", fmt.Errorf("rendering reset message: %w", err)
	}
	return resetSubject, buf.String(), nil
}
