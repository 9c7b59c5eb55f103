// Package templates provides email template components
package templates

import (
	"bytes"
	"html/template"
	"log"
)

// ReEngagementProps configures the re-engagement email content.
type ReEngagementProps struct {
	Name         string
	DaysInactive int
	AppURL       string
}

type reEngagementTemplateData struct {
	Name    string
	Heading string
	Body    string
	AppURL  string
}

var reEngagementTemplate = template.Must(template.New("reEngagement").Parse(`
<h1 style="font-family: Helvetica, sans-serif; font-size: 24px; font-weight: bold; margin: 0; margin-bottom: 16px;">{{.Heading}}</h1>
<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">Hi {{.Name}},</p>
<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">{{.Body}}</p>
<table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: separate; width: auto;">
  <tbody>
    <tr>
      <td style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; border-radius: 4px; text-align: center; background-color: #0867ec;" valign="top" align="center" bgcolor="#0867ec">
        <a href="{{.AppURL}}" target="_blank" style="border: solid 2px #0867ec; border-radius: 4px; box-sizing: border-box; cursor: pointer; display: inline-block; font-size: 16px; font-weight: bold; margin: 0; padding: 12px 24px; text-decoration: none; background-color: #0867ec; border-color: #0867ec; color: #ffffff;">Open Daily Mirror</a>
      </td>
    </tr>
  </tbody>
</table>`))

// GetReEngagementContent returns the subject line and HTML body for a
// re-engagement email, escalating with the length of the absence.
func GetReEngagementContent(props ReEngagementProps) (subject, content string) {
	name := props.Name
	if name == "" {
		name = "there"
	}
	appURL := props.AppURL
	if appURL == "" {
		appURL = "https://dailymirror.app/open"
	}

	var heading, body string
	switch {
	case props.DaysInactive <= 3:
		subject = "Your mirror missed you this morning"
		heading = "Your mirror missed you"
		body = "Tomorrow's outfit is already picked out. Take a quick look before you get dressed."
	case props.DaysInactive <= 7:
		subject = "A week of outfits, ready when you are"
		heading = "Your week of outfits is waiting"
		body = "We kept your recommendations fresh while you were away. Your style profile is exactly where you left it."
	default:
		subject = "Come back and see what's new in your wardrobe"
		heading = "It's been a while"
		body = "Your wardrobe has been quiet lately. One tap and tomorrow morning is planned for you again."
	}

	data := reEngagementTemplateData{
		Name:    name,
		Heading: heading,
		Body:    body,
		AppURL:  appURL,
	}

	var buf bytes.Buffer
	if err := reEngagementTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing re-engagement template: %v", err)
		return subject, "<p>Open Daily Mirror to see today's outfits.</p>"
	}
	return subject, buf.String()
}
