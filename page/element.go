package page

import (
	"slices"

	"github.com/nomis52/signup/catalog"
)

// Removal controls carry MarkerClass plus the activity and email they act on.
const (
	MarkerClass  = "delete-participant"
	DataActivity = "activity"
	DataEmail    = "email"
)

// removeGlyph is the text of a removal control.
const removeGlyph = "×"

// Element is a rendered, clickable node of the page.
type Element struct {
	Classes []string
	Data    map[string]string
	Text    string
}

// HasClass reports whether the element carries class.
func (e Element) HasClass(class string) bool {
	return slices.Contains(e.Classes, class)
}

// RemovalControl builds the control that unregisters email from activity.
func RemovalControl(activity, email string) Element {
	return Element{
		Classes: []string{MarkerClass},
		Data: map[string]string{
			DataActivity: activity,
			DataEmail:    email,
		},
		Text: removeGlyph,
	}
}

// Card is the rendered form of one activity.
type Card struct {
	Name         string
	Description  string
	Schedule     string
	SpotsLeft    int
	Participants []string
	// Controls holds one removal control per participant, in roster order.
	Controls []Element
}

// NewCard renders a.
func NewCard(a catalog.Activity) Card {
	card := Card{
		Name:         a.Name,
		Description:  a.Description,
		Schedule:     a.Schedule,
		SpotsLeft:    a.SpotsLeft(),
		Participants: slices.Clone(a.Participants),
	}
	for _, email := range a.Participants {
		card.Controls = append(card.Controls, RemovalControl(a.Name, email))
	}
	return card
}

// Form holds the signup form inputs.
type Form struct {
	Email    string
	Activity string
}

// Reset clears both inputs, leaving the selector on its placeholder.
func (f *Form) Reset() {
	f.Email = ""
	f.Activity = ""
}
