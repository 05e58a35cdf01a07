package composer

// Key is a keyboard event the popup reacts to
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyTab
	KeyEnter
	KeyShiftEnter
	KeyEscape
)

// Popup is the visible autocomplete state
type Popup struct {
	Kind       Kind
	Query      string
	Start      int
	Candidates []Candidate
	Index      int
}

// Selected returns the highlighted candidate
func (p Popup) Selected() (Candidate, bool) {
	if len(p.Candidates) == 0 {
		return Candidate{}, false
	}
	return p.Candidates[p.Index], true
}

// Result reports what a key press did
type Result struct {
	// Handled is false when the key should fall through to the host
	// (for example Enter sending the message).
	Handled   bool
	Committed bool
	Candidate Candidate
	Edit      Edit
}

// Composer owns the input buffer and at most one open popup
type Composer struct {
	text     []rune
	caret    int
	commands []Candidate
	mentions []Candidate
	popup    *Popup
}

// New creates a composer over the given command and mention catalogs
func New(commands, mentions []Candidate) *Composer {
	return &Composer{commands: commands, mentions: mentions}
}

// SetCatalog replaces the candidate lists and re-evaluates the popup
func (c *Composer) SetCatalog(commands, mentions []Candidate) {
	c.commands = commands
	c.mentions = mentions
	c.refresh()
}

// Commands returns the command catalog
func (c *Composer) Commands() []Candidate { return c.commands }

// Mentions returns the mention catalog
func (c *Composer) Mentions() []Candidate { return c.mentions }

// Text returns the buffer
func (c *Composer) Text() string { return string(c.text) }

// Caret returns the caret as a rune offset
func (c *Composer) Caret() int { return c.caret }

// SetInput replaces the buffer and caret and re-detects triggers. A negative
// caret means end of text.
func (c *Composer) SetInput(text string, caret int) {
	c.text = []rune(text)
	c.caret = clampCaret(caret, len(c.text))
	c.refresh()
}

// Reset clears the buffer and closes any popup
func (c *Composer) Reset() {
	c.text = nil
	c.caret = 0
	c.popup = nil
}

// Popup returns the open popup
func (c *Composer) Popup() (Popup, bool) {
	if c.popup == nil {
		return Popup{}, false
	}
	p := *c.popup
	p.Candidates = append([]Candidate(nil), c.popup.Candidates...)
	return p, true
}

func (c *Composer) refresh() {
	trig, ok := DetectTrigger(string(c.text), c.caret)
	if !ok {
		c.popup = nil
		return
	}

	source := c.commands
	if trig.Kind == KindMention {
		source = c.mentions
	}
	index := 0
	if c.popup != nil && c.popup.Kind == trig.Kind && c.popup.Start == trig.Start && c.popup.Query == trig.Query {
		index = c.popup.Index
	}
	cands := Filter(source, trig.Query)
	if index >= len(cands) {
		index = 0
	}
	c.popup = &Popup{Kind: trig.Kind, Query: trig.Query, Start: trig.Start, Candidates: cands, Index: index}
}

// HandleKey routes a key to the open popup
func (c *Composer) HandleKey(k Key) Result {
	if c.popup == nil {
		return Result{}
	}
	if k == KeyEscape {
		c.popup = nil
		return Result{Handled: true}
	}
	n := len(c.popup.Candidates)
	if n == 0 {
		return Result{}
	}

	switch k {
	case KeyDown:
		c.popup.Index = Wrap(c.popup.Index, 1, n)
		return Result{Handled: true}
	case KeyUp:
		c.popup.Index = Wrap(c.popup.Index, -1, n)
		return Result{Handled: true}
	case KeyTab, KeyEnter:
		cand := c.popup.Candidates[c.popup.Index]
		edit, _ := c.Commit(c.popup.Kind, cand)
		return Result{Handled: true, Committed: true, Candidate: cand, Edit: edit}
	default:
		return Result{}
	}
}

// Commit applies cand for the open popup of the given kind. It reports false
// when no popup of that kind is open.
func (c *Composer) Commit(kind Kind, cand Candidate) (Edit, bool) {
	if c.popup == nil || c.popup.Kind != kind {
		return Edit{Text: string(c.text), Caret: c.caret}, false
	}
	trig := Trigger{Kind: kind, Start: c.popup.Start, Query: c.popup.Query}

	var edit Edit
	if kind == KindCommand {
		edit = ApplyCommand(string(c.text), c.caret, trig, cand)
	} else {
		edit = ApplyMention(string(c.text), c.caret, trig, cand)
	}
	c.text = []rune(edit.Text)
	c.caret = edit.Caret
	c.popup = nil
	return edit, true
}

// MentionedAgents rescans the whole buffer for mentions
func (c *Composer) MentionedAgents() []Candidate {
	return ScanMentions(string(c.text), c.mentions)
}

// RemoveMention strips a mention chip from the buffer
func (c *Composer) RemoveMention(handle string) Edit {
	c.SetInput(StripMention(string(c.text), handle), -1)
	return Edit{Text: string(c.text), Caret: c.caret}
}
