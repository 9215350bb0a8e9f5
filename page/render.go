package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/nomis52/signup/statusreporter"
)

// Title heads the rendered page.
const Title = "Mergington High School Activities"

// Render writes the page as text. Removal controls are numbered from 1 in the
// order returned by Controls.
func (p *Page) Render(w io.Writer) error {
	p.mu.Lock()
	cards := p.cards
	notice := p.notice
	options := p.options
	form := p.form
	p.mu.Unlock()
	banner := p.banner.State()

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", Title, strings.Repeat("=", len(Title)))

	b.WriteString("Available Activities\n")
	if notice != "" {
		fmt.Fprintf(&b, "  %s\n", notice)
	}
	control := 0
	for _, card := range cards {
		fmt.Fprintf(&b, "\n  %s\n", card.Name)
		fmt.Fprintf(&b, "    %s\n", card.Description)
		fmt.Fprintf(&b, "    Schedule: %s\n", card.Schedule)
		fmt.Fprintf(&b, "    Availability: %d spots left\n", card.SpotsLeft)
		b.WriteString("    Participants\n")
		if len(card.Participants) == 0 {
			b.WriteString("      No participants yet\n")
			continue
		}
		for i, email := range card.Participants {
			control++
			fmt.Fprintf(&b, "      - %s [%d %s]\n", email, control, card.Controls[i].Text)
		}
	}

	b.WriteString("\nSign Up for an Activity\n")
	fmt.Fprintf(&b, "  Email:    %s\n", form.Email)
	activity := form.Activity
	if activity == "" {
		activity = "-- Select an activity --"
	}
	fmt.Fprintf(&b, "  Activity: %s\n", activity)
	for i, name := range options {
		fmt.Fprintf(&b, "    %d) %s\n", i+1, name)
	}

	if banner.Visible {
		fmt.Fprintf(&b, "\n[%s] %s\n", bannerLabel(banner.Severity), banner.Text)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func bannerLabel(s statusreporter.Severity) string {
	if s == statusreporter.Error {
		return "ERROR"
	}
	return "OK"
}
