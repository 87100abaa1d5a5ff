package wizard

import (
	"fmt"
	"slices"

	"github.com/oggyb/matchbot/internal/catalog"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/session"
)

// SelectionAction is one button of the question picker.
type SelectionAction int

const (
	SelectPickCategory SelectionAction = iota + 1
	SelectToggle
	SelectPrev
	SelectNext
	SelectBack
	SelectClear
	SelectDone
	SelectCancel
)

// SelectionInput is a parsed picker button. Category is used by
// SelectPickCategory, Slot (1..PageSize) by SelectToggle.
type SelectionInput struct {
	Action   SelectionAction
	Category int
	Slot     int
}

// SelectionResult tells the caller whether the picker is still open.
type SelectionResult int

const (
	SelectionOpen SelectionResult = iota
	SelectionDone
	SelectionCancelled
)

// PageView is what a question page shows.
type PageView struct {
	Category  string
	Page      int // zero-based
	Pages     int
	Questions []catalog.Question
	Checked   []bool
	HasPrev   bool
	HasNext   bool
	Selected  int
}

// Wizard runs setup and selection transitions against a question catalog.
type Wizard struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Wizard {
	return &Wizard{cat: cat}
}

// Catalog returns the catalog the wizard pages through.
func (w *Wizard) Catalog() *catalog.Catalog { return w.cat }

// Select applies one picker input.
//
// Invalid input returns a validation error and the selection unchanged.
// Done requires 1..MaxQuestions selected ids. Cancel discards the selection.
func (w *Wizard) Select(sel session.Selection, in SelectionInput) (session.Selection, SelectionResult, error) {
	next := sel
	next.Selected = slices.Clone(sel.Selected)

	switch in.Action {
	case SelectPickCategory:
		if _, ok := w.cat.Category(in.Category); !ok {
			return sel, SelectionOpen, svcErr.Validation("Please choose a category from the list.")
		}
		next.Category, next.Page, next.Browsing = in.Category, 0, true

	case SelectToggle:
		questions := w.pageQuestions(sel)
		if !sel.Browsing || in.Slot < 1 || in.Slot > len(questions) {
			return sel, SelectionOpen, svcErr.Validation("Please pick one of the questions shown.")
		}
		id := questions[in.Slot-1].ID
		if i := slices.Index(next.Selected, id); i >= 0 {
			next.Selected = slices.Delete(next.Selected, i, i+1)
			break
		}
		if len(next.Selected) >= MaxQuestions {
			return sel, SelectionOpen, svcErr.Validation(fmt.Sprintf(
				"You can only select up to %d questions. Please deselect some questions first.", MaxQuestions))
		}
		next.Selected = append(next.Selected, id)

	case SelectPrev:
		if sel.Browsing && sel.Page > 0 {
			next.Page--
		}

	case SelectNext:
		if sel.Browsing && sel.Page < w.pages(sel)-1 {
			next.Page++
		}

	case SelectBack:
		next.Browsing, next.Page = false, 0

	case SelectClear:
		next.Selected = nil

	case SelectDone:
		switch n := len(sel.Selected); {
		case n == 0:
			return sel, SelectionOpen, svcErr.Validation("Please select at least 1 question before proceeding.")
		case n > MaxQuestions:
			return sel, SelectionOpen, svcErr.Validation(fmt.Sprintf(
				"You can only select up to %d questions. Please deselect some questions.", MaxQuestions))
		}
		return next, SelectionDone, nil

	case SelectCancel:
		return session.Selection{Mode: sel.Mode}, SelectionCancelled, nil

	default:
		return sel, SelectionOpen, svcErr.Validation("Please use the buttons below.")
	}

	return next, SelectionOpen, nil
}

// View describes the current question page of sel.
func (w *Wizard) View(sel session.Selection) PageView {
	name, _ := w.cat.Category(sel.Category)
	questions := w.pageQuestions(sel)
	pages := w.pages(sel)

	checked := make([]bool, len(questions))
	for i, q := range questions {
		checked[i] = slices.Contains(sel.Selected, q.ID)
	}
	return PageView{
		Category:  name,
		Page:      sel.Page,
		Pages:     pages,
		Questions: questions,
		Checked:   checked,
		HasPrev:   pages > 1 && sel.Page > 0,
		HasNext:   pages > 1 && sel.Page < pages-1,
		Selected:  len(sel.Selected),
	}
}

func (w *Wizard) pages(sel session.Selection) int {
	name, _ := w.cat.Category(sel.Category)
	n := len(w.cat.InCategory(name))
	return (n + PageSize - 1) / PageSize
}

func (w *Wizard) pageQuestions(sel session.Selection) []catalog.Question {
	name, ok := w.cat.Category(sel.Category)
	if !ok {
		return nil
	}
	all := w.cat.InCategory(name)
	start := sel.Page * PageSize
	if start < 0 || start >= len(all) {
		return nil
	}
	return all[start:min(start+PageSize, len(all))]
}
