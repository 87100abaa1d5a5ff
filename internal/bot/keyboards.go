package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply keyboard labels. Handlers match incoming text against these verbatim.
const (
	btnMyProfile     = "My Profile 👤"
	btnBrowse        = "Browse Matches 👥"
	btnMyMatches     = "My Matches 💕"
	btnUpdateProfile = "Update Profile ✏️"
	btnStartSetup    = "Start Profile Setup 🎯"

	btnMale   = "Male 👨"
	btnFemale = "Female 👩"
	btnOther  = "Other 🌈"

	btnDone = "Done ✅"
	btnSkip = "Skip ⏭️"

	btnLike             = "👍 Like"
	btnSkipProfile      = "👎 Skip"
	btnStopBrowsing     = "Stop Browsing 🔚"
	btnBrowseMore       = "Browse More 🔄"
	btnContinueBrowsing = "Continue Browsing 👥"

	btnPickerDone  = "✅ Done"
	btnPickerClear = "🗑️ Clear Selection"
	btnPickerBack  = "⬅️ Back to Categories"
	btnPickerPrev  = "⬅️ Prev Page"
	btnPickerNext  = "➡️ Next Page"

	btnFieldName      = "Name 📛"
	btnFieldAge       = "Age ⌛"
	btnFieldGender    = "Gender ⚧"
	btnFieldPhoto     = "Photo 📸"
	btnFieldInterests = "Interests 🎯"
	btnFieldAbout     = "About ✍️"
	btnFieldQuestions = "Questions ❓"
	btnCancel         = "Cancel ❌"

	btnRemoveMatch = "Remove Match ❌"
	btnMoreMatches = "More matches ➡️"
)

// Callback data prefixes for inline buttons.
const (
	cbUnmatch = "unmatch:"
	cbMatches = "matches:"
)

// maxCallbackData is Telegram's limit on inline button payloads.
const maxCallbackData = 64

func keyboard(rows ...[]string) tgbotapi.ReplyKeyboardMarkup {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			r = append(r, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, r)
	}
	kb := tgbotapi.NewReplyKeyboard(buttons...)
	kb.ResizeKeyboard = true
	return kb
}

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		[]string{btnMyProfile, btnBrowse},
		[]string{btnMyMatches, btnUpdateProfile},
	)
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(true)
}

func onboardingMenu() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{btnStartSetup})
}

// idleMenu is shown when browsing cannot continue.
func idleMenu() tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		[]string{btnMyProfile, btnMyMatches},
		[]string{btnUpdateProfile},
	)
}

func genderKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{btnMale, btnFemale}, []string{btnOther})
}

func interestsKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		[]string{"Coffee", "Music", "Beaches"},
		[]string{"Anime", "Mountains", "Chai"},
		[]string{"Cafe Hopping", "Writing", "Reading"},
		[]string{btnDone},
	)
}

func aboutKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{btnSkip})
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{btnCancel})
}

func browseKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{btnLike, btnSkipProfile}, []string{btnStopBrowsing})
}

func matchFormedKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{btnMyMatches, btnContinueBrowsing}, []string{btnStopBrowsing})
}

func batchDoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{btnBrowseMore, btnMyMatches}, []string{btnStopBrowsing})
}

func noMatchesKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{btnMyProfile, btnBrowse}, []string{btnUpdateProfile})
}

func updateMenu() tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		[]string{btnFieldName, btnFieldAge, btnFieldGender},
		[]string{btnFieldPhoto, btnFieldInterests, btnFieldQuestions},
		[]string{btnFieldAbout, btnCancel},
	)
}

func categoryKeyboard(categories []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]string, 0, len(categories)+2)
	for _, c := range categories {
		rows = append(rows, []string{c})
	}
	rows = append(rows, []string{btnPickerDone, btnPickerClear}, []string{btnCancel})
	return keyboard(rows...)
}

func questionPageKeyboard(checked []bool, hasPrev, hasNext bool) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]string, 0, len(checked)+2)
	for i, on := range checked {
		mark := "❌"
		if on {
			mark = "✅"
		}
		rows = append(rows, []string{fmt.Sprintf("%s Q%d", mark, i+1)})
	}
	var nav []string
	if hasPrev {
		nav = append(nav, btnPickerPrev)
	}
	if hasNext {
		nav = append(nav, btnPickerNext)
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []string{btnPickerDone, btnPickerClear, btnPickerBack})
	return keyboard(rows...)
}

func unmatchButton(profileID uint64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnRemoveMatch, fmt.Sprintf("%s%d", cbUnmatch, profileID)),
	))
}

func moreMatchesButton(token string) (tgbotapi.InlineKeyboardMarkup, bool) {
	data := cbMatches + token
	if len(data) > maxCallbackData {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnMoreMatches, data),
	)), true
}
