package page

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nomis52/signup/catalog"
	"github.com/nomis52/signup/statusreporter"
	"github.com/nomis52/signup/statusreporter/statusreportertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPage() (*Page, *statusreportertest.Clock) {
	clock := statusreportertest.NewClock()
	banner := statusreporter.New(
		statusreporter.WithClock(clock),
		statusreporter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return New(banner), clock
}

func testCatalog() catalog.Catalog {
	return catalog.New(
		catalog.Activity{
			Name:            "Chess Club",
			Description:     "Learn strategies",
			Schedule:        "Fridays",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		catalog.Activity{
			Name:            "Art Club",
			Description:     "Paint",
			Schedule:        "Mondays",
			MaxParticipants: 1,
			Participants:    []string{"a@x.edu", "b@x.edu", "c@x.edu"},
		},
		catalog.Activity{
			Name:            "Gym",
			Description:     "Lift",
			Schedule:        "Daily",
			MaxParticipants: 5,
		},
	)
}

func TestNew(t *testing.T) {
	p, _ := newTestPage()

	assert.Equal(t, LoadingNotice, p.Notice())
	assert.Empty(t, p.Cards())
	assert.Empty(t, p.Options())
	assert.Equal(t, Form{}, p.Form())
	assert.False(t, p.Banner().State().Visible)
}

func TestShowCatalog(t *testing.T) {
	p, _ := newTestPage()

	p.ShowCatalog(testCatalog())

	cards := p.Cards()
	require.Len(t, cards, 3)
	assert.Equal(t, []string{"Chess Club", "Art Club", "Gym"}, p.Options())
	assert.Empty(t, p.Notice())

	tests := []struct {
		card         int
		name         string
		spotsLeft    int
		participants int
	}{
		{card: 0, name: "Chess Club", spotsLeft: 10, participants: 2},
		{card: 1, name: "Art Club", spotsLeft: -2, participants: 3},
		{card: 2, name: "Gym", spotsLeft: 5, participants: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := cards[tt.card]
			assert.Equal(t, tt.name, card.Name)
			assert.Equal(t, tt.spotsLeft, card.SpotsLeft)
			assert.Len(t, card.Participants, tt.participants)
			assert.Len(t, card.Controls, tt.participants)
		})
	}
}

func TestShowCatalog_ReplacesPrevious(t *testing.T) {
	p, _ := newTestPage()
	p.ShowCatalog(testCatalog())
	p.ShowCatalog(testCatalog())

	assert.Len(t, p.Cards(), 3, "cards are replaced, not appended")
	assert.Len(t, p.Options(), 3, "options are replaced, not appended")

	p.ShowCatalog(catalog.New(catalog.Activity{Name: "Solo", MaxParticipants: 1}))
	assert.Equal(t, []string{"Solo"}, p.Options())
	assert.Len(t, p.Cards(), 1)
}

func TestShowCatalog_KeepsSelectionWhenOffered(t *testing.T) {
	p, _ := newTestPage()
	p.ShowCatalog(testCatalog())
	require.True(t, p.Select("Gym"))

	p.ShowCatalog(testCatalog())
	assert.Equal(t, "Gym", p.Form().Activity)

	p.ShowCatalog(catalog.New(catalog.Activity{Name: "Solo"}))
	assert.Empty(t, p.Form().Activity, "a vanished activity cannot stay selected")
}

func TestShowNotice_LeavesSelectorUntouched(t *testing.T) {
	p, _ := newTestPage()
	p.ShowCatalog(testCatalog())
	p.Select("Chess Club")

	p.ShowNotice("Failed to load activities: HTTP 500: Internal Server Error")

	assert.Empty(t, p.Cards())
	assert.Empty(t, p.Controls())
	assert.Equal(t, "Failed to load activities: HTTP 500: Internal Server Error", p.Notice())
	assert.Equal(t, []string{"Chess Club", "Art Club", "Gym"}, p.Options())
	assert.Equal(t, "Chess Club", p.Form().Activity)
}

func TestControls(t *testing.T) {
	p, _ := newTestPage()
	p.ShowCatalog(testCatalog())

	controls := p.Controls()
	require.Len(t, controls, 5)
	for _, c := range controls {
		assert.True(t, c.HasClass(MarkerClass))
	}
	assert.Equal(t, "Chess Club", controls[1].Data[DataActivity])
	assert.Equal(t, "daniel@mergington.edu", controls[1].Data[DataEmail])
	assert.Equal(t, "Art Club", controls[2].Data[DataActivity])
	assert.Equal(t, "a@x.edu", controls[2].Data[DataEmail])
}

func TestClick_Delegation(t *testing.T) {
	p, _ := newTestPage()
	p.ShowCatalog(testCatalog())

	var clicked []Element
	p.OnListClick(func(el Element) { clicked = append(clicked, el) })

	assert.False(t, p.Click(Element{Classes: []string{"participants"}, Text: "Participants"}))
	assert.Empty(t, clicked, "clicks without the marker class are ignored")

	assert.True(t, p.Click(p.Controls()[0]))

	// Re-rendering builds new controls; the one handler still receives them.
	p.ShowCatalog(testCatalog())
	assert.True(t, p.Click(p.Controls()[4]))

	require.Len(t, clicked, 2)
	assert.Equal(t, "michael@mergington.edu", clicked[0].Data[DataEmail])
	assert.Equal(t, "c@x.edu", clicked[1].Data[DataEmail])
}

func TestClick_NoHandler(t *testing.T) {
	p, _ := newTestPage()
	assert.False(t, p.Click(RemovalControl("Chess Club", "x@y.edu")))
}

func TestForm(t *testing.T) {
	p, _ := newTestPage()
	p.ShowCatalog(testCatalog())

	assert.False(t, p.Select("Underwater Basket Weaving"))
	assert.Empty(t, p.Form().Activity)

	assert.True(t, p.Select("Art Club"))
	p.SetEmail("  Mixed@Case.EDU ")
	assert.Equal(t, Form{Email: "  Mixed@Case.EDU ", Activity: "Art Club"}, p.Form())

	p.ResetForm()
	assert.Equal(t, Form{}, p.Form())
}

func TestOnChange(t *testing.T) {
	p, clock := newTestPage()

	var changes int
	p.SetOnChange(func() {
		changes++
		// Listeners may read the page.
		_ = p.Render(io.Discard)
	})

	p.ShowCatalog(testCatalog())
	p.SetEmail("x@y.edu")
	p.Select("Gym")
	p.ShowNotice("oops")
	p.ResetForm()
	assert.Equal(t, 5, changes)

	p.Banner().Show(statusreporter.Success, "ok")
	clock.Advance(statusreporter.DefaultHideAfter)
	assert.Equal(t, 7, changes, "banner show and auto-hide both notify")
}

func TestRender(t *testing.T) {
	p, _ := newTestPage()
	p.ShowCatalog(testCatalog())
	p.Select("Chess Club")
	p.SetEmail("new@mergington.edu")
	p.Banner().Show(statusreporter.Error, "Student is already signed up")

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, Title)
	assert.Contains(t, out, "  Chess Club\n")
	assert.Contains(t, out, "Schedule: Fridays")
	assert.Contains(t, out, "Availability: 10 spots left")
	assert.Contains(t, out, "Availability: -2 spots left")
	assert.Contains(t, out, "- michael@mergington.edu [1 ×]")
	assert.Contains(t, out, "- c@x.edu [5 ×]")
	assert.Contains(t, out, "No participants yet")
	assert.Contains(t, out, "Email:    new@mergington.edu")
	assert.Contains(t, out, "Activity: Chess Club")
	assert.Contains(t, out, "3) Gym")
	assert.Contains(t, out, "[ERROR] Student is already signed up")
}

func TestRender_LoadingAndHiddenBanner(t *testing.T) {
	p, clock := newTestPage()
	p.Banner().Show(statusreporter.Success, "done")
	clock.Advance(statusreporter.DefaultHideAfter)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, LoadingNotice)
	assert.Contains(t, out, "-- Select an activity --")
	assert.NotContains(t, out, "done")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}

func TestRender_WriteError(t *testing.T) {
	p, _ := newTestPage()
	assert.EqualError(t, p.Render(failingWriter{}), "closed")
}
