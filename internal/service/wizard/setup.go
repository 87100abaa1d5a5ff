package wizard

import (
	"slices"
	"strings"

	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/session"
)

// Prompt names the reply the caller should render after a transition.
type Prompt int

const (
	PromptAge Prompt = iota + 1
	PromptGender
	PromptQuestionMenu
	PromptQuestionPage
	PromptInterests
	PromptInterestsAdded
	PromptAbout
	PromptPhoto
	PromptComplete
	PromptCancelled
)

// InputKind tags the variant carried by Input.
type InputKind int

const (
	InputText InputKind = iota + 1
	InputDone
	InputSkip
	InputSelection
	InputPhoto
)

// Input is one user action fed to the wizard.
type Input struct {
	Kind      InputKind
	Text      string
	Selection SelectionInput
	PhotoURL  string // already uploaded
}

func Text(s string) Input { return Input{Kind: InputText, Text: s} }
func Done() Input { return Input{Kind: InputDone} }
func Skip() Input { return Input{Kind: InputSkip} }
func Pick(in SelectionInput) Input { return Input{Kind: InputSelection, Selection: in} }
func Photo(url string) Input { return Input{Kind: InputPhoto, PhotoURL: url} }

// Start returns a fresh wizard at its first step.
func (w *Wizard) Start() session.SetupState {
	return session.SetupState{Step: session.StepAge}
}

// Advance applies in to st.
//
// On error the returned state equals st: the step does not move. Reaching
// StepComplete means the staged data is ready for the single profile write.
// PromptCancelled means the user left setup from the question picker.
func (w *Wizard) Advance(st session.SetupState, in Input) (session.SetupState, Prompt, error) {
	next := cloneSetup(st)

	switch st.Step {
	case session.StepAge:
		if in.Kind != InputText {
			return st, PromptAge, svcErr.Validation("Please enter your age as a number.")
		}
		age, err := ParseAge(in.Text)
		if err != nil {
			return st, PromptAge, err
		}
		next.Age, next.Step = age, session.StepGender
		return next, PromptGender, nil

	case session.StepGender:
		if in.Kind != InputText {
			return st, PromptGender, svcErr.Validation("Please select a gender using the buttons provided.")
		}
		gender, err := ParseGender(in.Text)
		if err != nil {
			return st, PromptGender, err
		}
		next.Gender, next.Step = gender, session.StepQuestions
		next.Selection = &session.Selection{Mode: session.ModeSetup}
		return next, PromptQuestionMenu, nil

	case session.StepQuestions:
		return w.advanceQuestions(st, next, in)

	case session.StepInterests:
		switch in.Kind {
		case InputDone:
			if len(st.Interests) == 0 {
				return st, PromptInterests, svcErr.Validation("Please add at least one interest before proceeding.")
			}
			next.Step = session.StepAbout
			return next, PromptAbout, nil
		case InputText:
			merged, _, err := AddInterests(st.Interests, in.Text)
			if err != nil {
				return st, PromptInterests, err
			}
			next.Interests = merged
			return next, PromptInterestsAdded, nil
		}
		return st, PromptInterests, svcErr.Validation("Please enter your interests separated by commas.")

	case session.StepAbout:
		switch in.Kind {
		case InputSkip:
			next.About = ""
		case InputText:
			about := strings.TrimSpace(in.Text)
			if about == "" {
				return st, PromptAbout, svcErr.Validation("Please write a short line about yourself, or press Skip.")
			}
			next.About = about
		default:
			return st, PromptAbout, svcErr.Validation("Please write a short line about yourself, or press Skip.")
		}
		next.Step = session.StepPhoto
		return next, PromptPhoto, nil

	case session.StepPhoto:
		if in.Kind != InputPhoto || in.PhotoURL == "" {
			return st, PromptPhoto, svcErr.Validation("Please send a photo.")
		}
		next.PhotoURL, next.Step = in.PhotoURL, session.StepComplete
		return next, PromptComplete, nil
	}

	// complete or unknown: start over
	return w.Start(), PromptAge, nil
}

func (w *Wizard) advanceQuestions(st, next session.SetupState, in Input) (session.SetupState, Prompt, error) {
	sel := session.Selection{Mode: session.ModeSetup}
	if st.Selection != nil {
		sel = *st.Selection
	}
	if in.Kind != InputSelection {
		return st, selectionPrompt(sel), nil
	}

	updated, result, err := w.Select(sel, in.Selection)
	if err != nil {
		return st, selectionPrompt(sel), err
	}

	switch result {
	case SelectionDone:
		next.Questions = updated.Selected
		next.Selection = nil
		next.Step = session.StepInterests
		return next, PromptInterests, nil
	case SelectionCancelled:
		return session.SetupState{}, PromptCancelled, nil
	}
	next.Selection = &updated
	return next, selectionPrompt(updated), nil
}

func selectionPrompt(sel session.Selection) Prompt {
	if sel.Browsing {
		return PromptQuestionPage
	}
	return PromptQuestionMenu
}

func cloneSetup(st session.SetupState) session.SetupState {
	st.Questions = slices.Clone(st.Questions)
	st.Interests = slices.Clone(st.Interests)
	if st.Selection != nil {
		sel := *st.Selection
		sel.Selected = slices.Clone(sel.Selected)
		st.Selection = &sel
	}
	return st
}
