// Package session holds the per-user conversation state persisted between updates.
//
// A Session carries exactly one active flow. Each flow has its own sub-state;
// starting a flow drops every other sub-state, and Normalize removes stale
// sub-states left behind by older blobs. The daily swipe Quota lives outside the
// flows so it survives Stop Browsing and flow switches.
package session

// Flow names the conversation currently in progress.
type Flow string

const (
	FlowNone      Flow = ""
	FlowSetup     Flow = "setup"
	FlowQuestions Flow = "questions" // standalone question editing from the update menu
	FlowUpdate    Flow = "update"
	FlowBrowse    Flow = "browse"
)

// SetupStep is the current step of the profile setup wizard.
type SetupStep string

const (
	StepAge       SetupStep = "age"
	StepGender    SetupStep = "gender"
	StepQuestions SetupStep = "questions"
	StepInterests SetupStep = "interests"
	StepAbout     SetupStep = "about"
	StepPhoto     SetupStep = "photo"
	StepComplete  SetupStep = "complete"
)

// SetupState is the wizard's staged data. Nothing is written to the profile
// until the photo step completes.
type SetupState struct {
	Step      SetupStep  `json:"step"`
	Age       string     `json:"age,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	Questions []string   `json:"questions,omitempty"`
	Interests []string   `json:"interests,omitempty"`
	About     string     `json:"about,omitempty"`
	PhotoURL  string     `json:"photo_url,omitempty"`
	Selection *Selection `json:"selection,omitempty"` // set only while Step == StepQuestions
}

// SelectionMode decides what Done does with the picked questions.
type SelectionMode string

const (
	ModeSetup  SelectionMode = "setup"
	ModeUpdate SelectionMode = "update"
)

// Selection is the question picker state.
type Selection struct {
	Mode     SelectionMode `json:"mode"`
	Category int           `json:"category"`
	Page     int           `json:"page"`
	Browsing bool          `json:"browsing"` // false: category menu, true: question page
	Selected []string      `json:"selected,omitempty"`
}

// UpdateField is the profile field being edited from the update menu.
type UpdateField string

const (
	FieldNone      UpdateField = ""
	FieldName      UpdateField = "name"
	FieldAge       UpdateField = "age"
	FieldGender    UpdateField = "gender"
	FieldPhoto     UpdateField = "photo"
	FieldInterests UpdateField = "interests"
	FieldAbout     UpdateField = "about"
)

// UpdateState tracks the update menu. FieldNone means the menu is showing.
type UpdateState struct {
	Field            UpdateField `json:"field,omitempty"`
	PendingInterests []string    `json:"pending_interests,omitempty"`
}

// Candidate is the cached card of a profile waiting to be shown.
type Candidate struct {
	ID        uint64   `json:"id"`
	Name      string   `json:"name"`
	Age       string   `json:"age,omitempty"`
	About     string   `json:"about,omitempty"`
	Interests []string `json:"interests,omitempty"`
	PhotoURL  string   `json:"photo_url,omitempty"`
}

// BrowseState is the cached candidate batch. Current is the id of the
// presented candidate (always Batch[0]) or 0 when nothing awaits a decision.
type BrowseState struct {
	Batch   []Candidate `json:"batch,omitempty"`
	Current uint64      `json:"current,omitempty"`
}

// Quota is the daily swipe counter. Date is the UTC day (YYYY-MM-DD) Count belongs to.
type Quota struct {
	Count int    `json:"count"`
	Date  string `json:"date,omitempty"`
}

// Session is the persisted conversation state of one Telegram user.
type Session struct {
	Flow      Flow         `json:"flow,omitempty"`
	Setup     *SetupState  `json:"setup,omitempty"`
	Questions *Selection   `json:"questions,omitempty"`
	Update    *UpdateState `json:"update,omitempty"`
	Browse    *BrowseState `json:"browse,omitempty"`
	Quota     Quota        `json:"quota"`
}

// Reset ends whatever flow is active. The quota is kept.
func (s *Session) Reset() {
	s.Flow = FlowNone
	s.Setup = nil
	s.Questions = nil
	s.Update = nil
	s.Browse = nil
}

// BeginSetup starts the wizard from its first step.
func (s *Session) BeginSetup() *SetupState {
	s.Reset()
	s.Flow = FlowSetup
	s.Setup = &SetupState{Step: StepAge}
	return s.Setup
}

// BeginQuestions starts standalone question editing, pre-checked with saved.
func (s *Session) BeginQuestions(saved []string) *Selection {
	s.Reset()
	s.Flow = FlowQuestions
	s.Questions = &Selection{Mode: ModeUpdate, Selected: append([]string(nil), saved...)}
	return s.Questions
}

// BeginUpdate opens the update menu.
func (s *Session) BeginUpdate() *UpdateState {
	s.Reset()
	s.Flow = FlowUpdate
	s.Update = &UpdateState{}
	return s.Update
}

// BeginBrowse enters browsing, keeping a cached batch if browsing was already active.
func (s *Session) BeginBrowse() *BrowseState {
	if s.Flow == FlowBrowse && s.Browse != nil {
		return s.Browse
	}
	s.Reset()
	s.Flow = FlowBrowse
	s.Browse = &BrowseState{}
	return s.Browse
}

// Normalize drops sub-states that do not belong to the active flow and ends a
// flow whose state is missing.
func (s *Session) Normalize() {
	setup, questions, update, browse := s.Setup, s.Questions, s.Update, s.Browse
	s.Setup, s.Questions, s.Update, s.Browse = nil, nil, nil, nil

	switch s.Flow {
	case FlowSetup:
		s.Setup = setup
		if s.Setup == nil || s.Setup.Step == "" || s.Setup.Step == StepComplete {
			s.Reset()
			return
		}
		if s.Setup.Step != StepQuestions {
			s.Setup.Selection = nil
		} else if s.Setup.Selection == nil {
			s.Setup.Selection = &Selection{Mode: ModeSetup}
		}
	case FlowQuestions:
		s.Questions = questions
		if s.Questions == nil {
			s.Reset()
		}
	case FlowUpdate:
		s.Update = update
		if s.Update == nil {
			s.Reset()
		}
	case FlowBrowse:
		s.Browse = browse
		if s.Browse == nil {
			s.Browse = &BrowseState{}
		}
	case FlowNone:
	default:
		s.Reset()
	}
}
