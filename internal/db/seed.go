package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seedTelegramBase keeps demo Telegram ids far away from real ones.
const seedTelegramBase int64 = 9_000_000_000

var seedInterests = []string{
	"Coffee", "Music", "Beaches", "Anime", "Mountains",
	"Chai", "Cafe Hopping", "Writing", "Reading", "Travel",
}

// SeedTestData resets the demo rows and populates onboarded profiles plus decisions.
//
// Behavior:
//  1. Removes previously seeded profiles (and their decisions/matches).
//  2. Creates 20 onboarded profiles (10 male, 10 female) with interests and questions
//     drawn from questionIDs.
//  3. Every female demo profile likes every third male one, so a real user who likes
//     them back sees a match right away.
//
// Real users are never touched. Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB, questionIDs []string, log *slog.Logger) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	var ids []uint64
	if err := db.Model(&Profile{}).Where("telegram_id >= ?", seedTelegramBase).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to list seeded profiles: %w", err)
	}
	if len(ids) > 0 {
		if err := db.Where("actor_id IN ? OR recipient_id IN ?", ids, ids).Delete(&Decision{}).Error; err != nil {
			return fmt.Errorf("failed to clear decisions: %w", err)
		}
		if err := db.Where("user_low_id IN ? OR user_high_id IN ?", ids, ids).Delete(&Match{}).Error; err != nil {
			return fmt.Errorf("failed to clear matches: %w", err)
		}
		if err := db.Where("id IN ?", ids).Delete(&Profile{}).Error; err != nil {
			return fmt.Errorf("failed to clear profiles: %w", err)
		}
	}
	log.Info("cleared seeded data", "profiles", len(ids))

	// --- Seed profiles (10 male, 10 female) ---
	profiles := make([]Profile, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := GenderMale
		if i > 10 {
			gender = GenderFemale
		}
		tgID := seedTelegramBase + int64(i)
		profiles = append(profiles, Profile{
			TelegramID: tgID,
			Name:       fmt.Sprintf("Demo %d", i),
			Username:   "demo_" + strconv.FormatInt(tgID, 10),
			Age:        strconv.Itoa(18 + r.Intn(30)),
			Gender:     gender,
			About:      "Just a demo profile 👋",
			Interests:  pick(r, seedInterests, 3),
			Questions:  pick(r, questionIDs, 2),
			Onboarded:  true,
		})
	}
	if err := db.Create(&profiles).Error; err != nil {
		return fmt.Errorf("failed to seed profiles: %w", err)
	}
	log.Info("seeded profiles", "count", len(profiles))

	// --- Seed decisions ---
	var decisions []Decision
	for _, f := range profiles[10:] {
		for j, m := range profiles[:10] {
			if j%3 != 0 {
				continue
			}
			decisions = append(decisions, Decision{ActorID: f.ID, RecipientID: m.ID, Liked: true})
		}
	}
	if len(decisions) > 0 {
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
		}).Create(&decisions).Error; err != nil {
			return fmt.Errorf("failed to seed decisions: %w", err)
		}
	}
	log.Info("seeded decisions", "count", len(decisions))

	return nil
}

// pick returns up to n distinct elements of src in random order.
func pick(r *rand.Rand, src []string, n int) []string {
	if n > len(src) {
		n = len(src)
	}
	out := make([]string, 0, n)
	for _, i := range r.Perm(len(src))[:n] {
		out = append(out, src[i])
	}
	return out
}
