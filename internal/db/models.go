package db

import (
	"time"

	"gorm.io/gorm"

	svcErr "github.com/oggyb/matchbot/internal/errors"
)

// Gender values accepted on a profile.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Match statuses.
const (
	MatchActive   = "active"
	MatchArchived = "archived"
	MatchBlocked  = "blocked"
)

// Profile is the per-user document.
//
// Interests and Questions are stored as JSON arrays so the row reads like a
// document: one fetch returns everything a profile card needs.
type Profile struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	TelegramID int64     `gorm:"uniqueIndex;not null"`
	Name       string    `gorm:"size:128;not null"`
	Username   string    `gorm:"uniqueIndex;size:64;not null"`
	Age        string    `gorm:"size:3"`
	Gender     string    `gorm:"size:16;index:idx_onboarded_gender,priority:2"`
	About      string    `gorm:"size:1024"`
	Interests  []string  `gorm:"serializer:json;type:text"`
	Questions  []string  `gorm:"serializer:json;type:text"`
	PhotoURL   string    `gorm:"size:512"`
	Onboarded  bool      `gorm:"not null;default:false;index:idx_onboarded_gender,priority:1"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Decision represents an actor's like/skip decision on a recipient.
//
// Composite PK: (ActorID, RecipientID)
//   - One row per pair, so repeated writes behave like a set union.
//   - "seen" is every row for an actor, "likes" the rows with Liked = true.
//
// Indexes:
//   - idx_actor_recipient_liked(actor_id, recipient_id, liked)
//     O(1) lookup for the mutual like check.
type Decision struct {
	ActorID     uint64    `gorm:"primaryKey;index:idx_actor_recipient_liked,priority:1"`
	RecipientID uint64    `gorm:"primaryKey;index:idx_actor_recipient_liked,priority:2"`
	Liked       bool      `gorm:"not null;index:idx_actor_recipient_liked,priority:3"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Match is a mutual like between exactly two distinct profiles.
//
// The pair is stored ordered (UserLowID < UserHighID) under a unique index,
// so a pair can only ever have one row and both members see the same record.
type Match struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement"`
	UserLowID         uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1"`
	UserHighID        uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index"`
	InitiatedBy       uint64    `gorm:"not null"`
	Status            string    `gorm:"size:16;not null;index"`
	MatchedAt         time.Time `gorm:"not null;index"`
	LastInteractionAt time.Time
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// NewMatch builds a match between a and b initiated by initiator.
// MatchedAt is kept at millisecond precision so it round-trips through a
// pagination cursor unchanged.
func NewMatch(a, b, initiator uint64, now time.Time) (*Match, error) {
	now = now.UTC().Truncate(time.Millisecond)
	m := &Match{
		UserLowID:         min(a, b),
		UserHighID:        max(a, b),
		InitiatedBy:       initiator,
		Status:            MatchActive,
		MatchedAt:         now,
		LastInteractionAt: now,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Members returns both profile ids of the match.
func (m *Match) Members() [2]uint64 {
	return [2]uint64{m.UserLowID, m.UserHighID}
}

// Other returns the member that is not id.
func (m *Match) Other(id uint64) (uint64, bool) {
	switch id {
	case m.UserLowID:
		return m.UserHighID, true
	case m.UserHighID:
		return m.UserLowID, true
	}
	return 0, false
}

// BeforeSave rejects pairs that break the two-distinct-members rule.
func (m *Match) BeforeSave(tx *gorm.DB) error {
	return m.validate()
}

func (m *Match) validate() error {
	if m.UserLowID == 0 || m.UserHighID == 0 {
		return svcErr.Invariant("a match must have exactly 2 users")
	}
	if m.UserLowID == m.UserHighID {
		return svcErr.Invariant("cannot match a user with themselves")
	}
	if m.UserLowID > m.UserHighID {
		return svcErr.Invariant("match pair must be ordered")
	}
	if m.InitiatedBy != m.UserLowID && m.InitiatedBy != m.UserHighID {
		return svcErr.Invariant("match initiator must be a member")
	}
	switch m.Status {
	case MatchActive, MatchArchived, MatchBlocked:
	default:
		return svcErr.Invariant("unknown match status " + m.Status)
	}
	return nil
}
