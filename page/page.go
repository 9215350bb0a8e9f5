// Package page holds the view model of the signup client: the activity list,
// the signup form with its activity selector, and the status banner.
//
// The page is the only state shared between the input loop and the
// goroutines completing network calls. Every mutation takes the page lock,
// and registered change listeners run after the lock is released so they may
// read the page (for example to re-render it).
package page

import (
	"slices"
	"sync"

	"github.com/nomis52/signup/catalog"
	"github.com/nomis52/signup/statusreporter"
)

// LoadingNotice is shown in the list area before the first load completes.
const LoadingNotice = "Loading activities..."

// ClickHandler receives clicks on removal controls.
type ClickHandler func(Element)

// Page is the client view model.
type Page struct {
	mu       sync.Mutex
	cards    []Card
	notice   string
	options  []string
	form     Form
	delegate ClickHandler
	onChange func()

	banner *statusreporter.Banner
}

// New creates a page showing the loading notice. banner is owned by the page
// from now on; its changes are reported through OnChange.
func New(banner *statusreporter.Banner) *Page {
	p := &Page{
		notice: LoadingNotice,
		banner: banner,
	}
	banner.SetOnChange(p.changed)
	return p
}

// Banner returns the page's status banner.
func (p *Page) Banner() *statusreporter.Banner {
	return p.banner
}

// SetOnChange registers f to be called after every change to the page.
func (p *Page) SetOnChange(f func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = f
}

func (p *Page) changed() {
	p.mu.Lock()
	f := p.onChange
	p.mu.Unlock()
	if f != nil {
		f()
	}
}

// ShowCatalog replaces the whole list with one card per activity and the
// selector options with one option per activity, both in catalog order.
// The selected activity is kept if it is still offered.
func (p *Page) ShowCatalog(c catalog.Catalog) {
	activities := c.Activities()
	cards := make([]Card, 0, len(activities))
	for _, a := range activities {
		cards = append(cards, NewCard(a))
	}

	p.mu.Lock()
	p.cards = cards
	p.notice = ""
	p.options = c.Names()
	if !slices.Contains(p.options, p.form.Activity) {
		p.form.Activity = ""
	}
	p.mu.Unlock()

	p.changed()
}

// ShowNotice replaces the list contents with a single line of text.
// The selector is left as it is.
func (p *Page) ShowNotice(text string) {
	p.mu.Lock()
	p.cards = nil
	p.notice = text
	p.mu.Unlock()

	p.changed()
}

// Cards returns the rendered activity cards.
func (p *Page) Cards() []Card {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.cards)
}

// Notice returns the list-area text shown instead of cards, if any.
func (p *Page) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notice
}

// Options returns the selector options.
func (p *Page) Options() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.options)
}

// Controls returns every removal control in render order.
func (p *Page) Controls() []Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	var controls []Element
	for _, card := range p.cards {
		controls = append(controls, card.Controls...)
	}
	return controls
}

// OnListClick registers the single handler for clicks inside the activity
// list. It replaces any previous handler.
func (p *Page) OnListClick(h ClickHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delegate = h
}

// Click delivers a click on el to the list handler. Clicks on elements
// without the removal marker are ignored. It reports whether the click was
// dispatched.
func (p *Page) Click(el Element) bool {
	if !el.HasClass(MarkerClass) {
		return false
	}
	p.mu.Lock()
	h := p.delegate
	p.mu.Unlock()
	if h == nil {
		return false
	}
	h(el)
	return true
}

// Form returns the current form inputs.
func (p *Page) Form() Form {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form
}

// SetEmail sets the email input. The text is kept verbatim.
func (p *Page) SetEmail(email string) {
	p.mu.Lock()
	p.form.Email = email
	p.mu.Unlock()

	p.changed()
}

// Select picks an activity from the selector. It reports false, leaving the
// selection unchanged, when activity is not an option.
func (p *Page) Select(activity string) bool {
	p.mu.Lock()
	if !slices.Contains(p.options, activity) {
		p.mu.Unlock()
		return false
	}
	p.form.Activity = activity
	p.mu.Unlock()

	p.changed()
	return true
}

// ResetForm clears the form inputs.
func (p *Page) ResetForm() {
	p.mu.Lock()
	p.form.Reset()
	p.mu.Unlock()

	p.changed()
}
