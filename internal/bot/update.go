package bot

import (
	"context"
	"fmt"
	"strings"

	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/service/wizard"
	"github.com/oggyb/matchbot/internal/session"
)

func (b *Bot) startUpdate(ctx context.Context, in incoming, sess *session.Session) error {
	p, err := b.profiles.Get(ctx, in.userID)
	if svcErr.IsNotFound(err) {
		b.sendText(ctx, in.chatID, profileNotFoundText, nil)
		return nil
	}
	if err != nil {
		return err
	}
	if !p.Onboarded {
		b.sendText(ctx, in.chatID, "Please finish setting up your profile first!", onboardingMenu())
		return nil
	}
	sess.BeginUpdate()
	b.sendText(ctx, in.chatID, "What would you like to update?", updateMenu())
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, in incoming, sess *session.Session) error {
	st := sess.Update
	if in.text == btnCancel {
		sess.Reset()
		b.sendText(ctx, in.chatID, "Update cancelled. Back to profile.", mainMenu())
		return nil
	}
	if st.Field == session.FieldNone {
		return b.pickField(ctx, in, sess)
	}

	var err error
	switch st.Field {
	case session.FieldName:
		err = b.profiles.UpdateName(ctx, in.userID, in.text)
	case session.FieldAge:
		err = b.profiles.UpdateAge(ctx, in.userID, in.text)
	case session.FieldGender:
		err = b.profiles.UpdateGender(ctx, in.userID, in.text)
	case session.FieldAbout:
		err = b.profiles.UpdateAbout(ctx, in.userID, in.text)
	case session.FieldPhoto:
		err = b.updatePhoto(ctx, in)
	case session.FieldInterests:
		done, ierr := b.updateInterests(ctx, in, st)
		if ierr != nil || !done {
			return ierr
		}
	}
	if err != nil {
		return err
	}

	sess.Reset()
	b.sendText(ctx, in.chatID, "Profile updated successfully! ✨", mainMenu())
	return nil
}

func (b *Bot) pickField(ctx context.Context, in incoming, sess *session.Session) error {
	st := sess.Update
	switch in.text {
	case btnFieldName:
		st.Field = session.FieldName
		b.sendText(ctx, in.chatID, "Please enter your new name:", cancelKeyboard())
	case btnFieldAge:
		st.Field = session.FieldAge
		b.sendText(ctx, in.chatID, "Please enter your new age:", cancelKeyboard())
	case btnFieldGender:
		st.Field = session.FieldGender
		b.sendText(ctx, in.chatID, "Please select your gender:", genderKeyboard())
	case btnFieldPhoto:
		st.Field = session.FieldPhoto
		b.sendText(ctx, in.chatID,
			"Please send me your new profile photo.\nOnly photos are accepted, other messages will be ignored.",
			cancelKeyboard())
	case btnFieldInterests:
		st.Field, st.PendingInterests = session.FieldInterests, nil
		b.sendText(ctx, in.chatID, fmt.Sprintf(
			"Let's update your interests!\nYou can enter multiple interests (max %d) separated by commas.",
			wizard.MaxInterests), interestsKeyboard())
	case btnFieldAbout:
		st.Field = session.FieldAbout
		b.sendText(ctx, in.chatID,
			"Share your new one-liner! 🌟\n"+
				"It could be a pickup line, joke, or anything catchy!\n"+
				"(Keep it under 150 characters)",
			cancelKeyboard())
	case btnFieldQuestions:
		p, err := b.profiles.Get(ctx, in.userID)
		if err != nil {
			return err
		}
		sel := sess.BeginQuestions(p.Questions)
		b.renderSelection(ctx, in.chatID, *sel)
	default:
		b.sendText(ctx, in.chatID, "What would you like to update?", updateMenu())
	}
	return nil
}

// updateInterests stages interests until Done, then writes them. It reports
// whether the field was saved.
func (b *Bot) updateInterests(ctx context.Context, in incoming, st *session.UpdateState) (bool, error) {
	if in.text == btnDone {
		if len(st.PendingInterests) == 0 {
			return false, svcErr.Validation("Please add at least one interest.")
		}
		if err := b.profiles.UpdateInterests(ctx, in.userID, st.PendingInterests); err != nil {
			return false, err
		}
		return true, nil
	}

	merged, added, err := wizard.AddInterests(st.PendingInterests, in.text)
	if err != nil {
		return false, err
	}
	st.PendingInterests = merged
	b.sendText(ctx, in.chatID, fmt.Sprintf(
		"Added: %s\nYou have %d/%d interests.\nYou can add more or press '%s' to save.",
		esc(strings.Join(added, ", ")), len(merged), wizard.MaxInterests, btnDone), nil)
	return false, nil
}

func (b *Bot) updatePhoto(ctx context.Context, in incoming) error {
	if len(in.photos) == 0 {
		return svcErr.Validation(fmt.Sprintf("Please send a photo, or press %s.", btnCancel))
	}
	data, name, mime, err := b.downloadPhoto(ctx, in)
	if err != nil {
		return err
	}
	_, err = b.profiles.UpdatePhoto(ctx, in.userID, data, name, mime)
	return err
}
