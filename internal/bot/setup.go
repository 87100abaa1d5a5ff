package bot

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/oggyb/matchbot/internal/service/wizard"
	"github.com/oggyb/matchbot/internal/session"
)

var toggleLabel = regexp.MustCompile(`^[✅❌] Q(\d+)$`)

// startSetup (re)starts the wizard. The profile row is created first so the
// final write has something to update.
func (b *Bot) startSetup(ctx context.Context, in incoming, sess *session.Session) error {
	if _, _, err := b.profiles.FindOrCreate(ctx, in.user); err != nil {
		return err
	}
	st := sess.BeginSetup()
	b.renderSetup(ctx, in.chatID, wizard.PromptAge, *st, *st)
	return nil
}

func (b *Bot) handleSetup(ctx context.Context, in incoming, sess *session.Session) error {
	st := *sess.Setup
	input, err := b.setupInput(ctx, in, st)
	if err != nil {
		return err
	}

	next, prompt, err := b.wizard.Advance(st, input)
	if err != nil {
		return err
	}

	switch prompt {
	case wizard.PromptComplete:
		if _, err := b.profiles.CompleteSetup(ctx, in.userID, next); err != nil {
			return err
		}
		sess.Reset()
		b.sendText(ctx, in.chatID,
			"Perfect! Your profile is now complete. 🎉\nWhat would you like to do next?",
			mainMenu())
		return nil
	case wizard.PromptCancelled:
		sess.Reset()
		b.sendText(ctx, in.chatID,
			fmt.Sprintf("Profile setup cancelled. Press %s to begin again.", btnStartSetup),
			onboardingMenu())
		return nil
	}

	sess.Setup = &next
	b.renderSetup(ctx, in.chatID, prompt, st, next)
	return nil
}

// setupInput maps a message onto the wizard input the current step expects.
func (b *Bot) setupInput(ctx context.Context, in incoming, st session.SetupState) (wizard.Input, error) {
	switch st.Step {
	case session.StepQuestions:
		if pick, ok := b.parseSelection(in.text); ok {
			return wizard.Pick(pick), nil
		}
	case session.StepInterests:
		if in.text == btnDone {
			return wizard.Done(), nil
		}
	case session.StepAbout:
		if in.text == btnSkip {
			return wizard.Skip(), nil
		}
	case session.StepPhoto:
		if len(in.photos) == 0 {
			return wizard.Photo(""), nil
		}
		data, name, mime, err := b.downloadPhoto(ctx, in)
		if err != nil {
			return wizard.Input{}, err
		}
		url, err := b.profiles.UploadPhoto(ctx, data, name, mime)
		if err != nil {
			return wizard.Input{}, err
		}
		return wizard.Photo(url), nil
	}
	return wizard.Text(in.text), nil
}

func (b *Bot) renderSetup(ctx context.Context, chatID int64, prompt wizard.Prompt, prev, next session.SetupState) {
	switch prompt {
	case wizard.PromptAge:
		b.sendText(ctx, chatID, "Let's create your profile! 📝\n\nFirst, what's your age?", removeKeyboard())
	case wizard.PromptGender:
		b.sendText(ctx, chatID, "Great! Now, what's your gender?", genderKeyboard())
	case wizard.PromptQuestionMenu, wizard.PromptQuestionPage:
		if next.Selection != nil {
			b.renderSelection(ctx, chatID, *next.Selection)
		}
	case wizard.PromptInterests:
		b.sendText(ctx, chatID, fmt.Sprintf(
			"Great! Now, tell me about your interests.\nYou can enter multiple interests (max %d) separated by commas.",
			wizard.MaxInterests), interestsKeyboard())
	case wizard.PromptInterestsAdded:
		var added []string
		for _, i := range next.Interests {
			if !slices.Contains(prev.Interests, i) {
				added = append(added, i)
			}
		}
		b.sendText(ctx, chatID, fmt.Sprintf(
			"Added interests: %s\nYou have %d/%d interests.\nYou can add more interests or press '%s' to continue.",
			esc(strings.Join(added, ", ")), len(next.Interests), wizard.MaxInterests, btnDone), nil)
	case wizard.PromptAbout:
		b.sendText(ctx, chatID,
			"Share a one-liner about yourself! 🌟\n"+
				"It could be a pickup line, joke, or anything catchy!\n"+
				"(Keep it under 150 characters)",
			aboutKeyboard())
	case wizard.PromptPhoto:
		b.sendText(ctx, chatID, "Great! Finally, send me a photo of yourself.", removeKeyboard())
	}
}

// handleQuestions drives standalone question editing from the update menu.
func (b *Bot) handleQuestions(ctx context.Context, in incoming, sess *session.Session) error {
	sel := *sess.Questions
	pick, ok := b.parseSelection(in.text)
	if !ok {
		b.renderSelection(ctx, in.chatID, sel)
		return nil
	}

	next, result, err := b.wizard.Select(sel, pick)
	if err != nil {
		return err
	}

	switch result {
	case wizard.SelectionDone:
		if err := b.profiles.UpdateQuestions(ctx, in.userID, next.Selected); err != nil {
			return err
		}
		sess.Reset()
		b.sendText(ctx, in.chatID, "Profile updated successfully! ✨", mainMenu())
	case wizard.SelectionCancelled:
		sess.BeginUpdate()
		b.sendText(ctx, in.chatID, "Question selection cancelled. What would you like to update?", updateMenu())
	default:
		sess.Questions = &next
		b.renderSelection(ctx, in.chatID, next)
	}
	return nil
}

// parseSelection recognises the question picker's buttons and category names.
func (b *Bot) parseSelection(text string) (wizard.SelectionInput, bool) {
	switch text {
	case btnPickerDone:
		return wizard.SelectionInput{Action: wizard.SelectDone}, true
	case btnPickerClear:
		return wizard.SelectionInput{Action: wizard.SelectClear}, true
	case btnPickerBack:
		return wizard.SelectionInput{Action: wizard.SelectBack}, true
	case btnPickerPrev:
		return wizard.SelectionInput{Action: wizard.SelectPrev}, true
	case btnPickerNext:
		return wizard.SelectionInput{Action: wizard.SelectNext}, true
	case btnCancel:
		return wizard.SelectionInput{Action: wizard.SelectCancel}, true
	}
	if m := toggleLabel.FindStringSubmatch(text); m != nil {
		slot, err := strconv.Atoi(m[1])
		if err == nil {
			return wizard.SelectionInput{Action: wizard.SelectToggle, Slot: slot}, true
		}
	}
	if idx, ok := b.wizard.Catalog().CategoryIndex(text); ok {
		return wizard.SelectionInput{Action: wizard.SelectPickCategory, Category: idx}, true
	}
	return wizard.SelectionInput{}, false
}

func (b *Bot) renderSelection(ctx context.Context, chatID int64, sel session.Selection) {
	if !sel.Browsing {
		categories := b.wizard.Catalog().Categories()
		lines := []string{
			"📝 *Question Selection*",
			fmt.Sprintf("Selected: %d/%d questions", len(sel.Selected), wizard.MaxQuestions),
			"",
			"Choose a category to browse questions:",
		}
		for _, c := range categories {
			lines = append(lines, "• "+esc(c))
		}
		b.sendText(ctx, chatID, strings.Join(lines, "\n"), categoryKeyboard(categories))
		return
	}

	view := b.wizard.View(sel)
	lines := []string{
		fmt.Sprintf("📝 *Question Selection - %s*", esc(view.Category)),
		fmt.Sprintf("Page %d of %d", view.Page+1, view.Pages),
		fmt.Sprintf("Selected: %d/%d questions", view.Selected, wizard.MaxQuestions),
		"",
		"Select questions by tapping the buttons below:",
	}
	for i, q := range view.Questions {
		lines = append(lines, fmt.Sprintf("*Q%d:* %s", i+1, esc(q.Text)))
	}
	b.sendText(ctx, chatID, strings.Join(lines, "\n"), questionPageKeyboard(view.Checked, view.HasPrev, view.HasNext))
}
