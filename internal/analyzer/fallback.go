package analyzer

import (
	"fmt"
	"time"

	"guestlens/internal/model"
)

// Fallback dataset. Served when the live pipeline fails entirely so the
// caller always renders a well-typed, non-empty list. Fixed data, never
// varies with prior state.

type fallbackSeed struct {
	first string
	last  string
	sex   int
}

var fallbackSeeds = []fallbackSeed{
	{"Anna", "Ivanova", 1},
	{"Mikhail", "Petrov", 2},
	{"Elena", "Sidorova", 1},
	{"Dmitry", "Kozlov", 2},
	{"Maria", "Novikova", 1},
	{"Alexander", "Morozov", 2},
	{"Olga", "Volkova", 1},
	{"Sergey", "Sokolov", 2},
}

var fallbackCities = []string{"Moscow", "Saint Petersburg", "Kazan", "Novosibirsk"}

var fallbackActivities = []model.ActivityType{
	model.ActivityLike,
	model.ActivityComment,
	model.ActivityStoryView,
	model.ActivityMessage,
	model.ActivityFriendOrder,
}

var fallbackDetails = []string{
	"3 likes, 1 comment",
	"viewed stories",
	"active conversation",
	"5 likes this week",
	"frequent interactions",
}

// FallbackGuests returns the fixed synthetic guest list anchored at now.
func FallbackGuests(now time.Time) []model.Guest {
	out := make([]model.Guest, 0, len(fallbackSeeds))
	for i, seed := range fallbackSeeds {
		id := int64(1000 + i)
		prob := 95 - i*10
		if prob < 20 {
			prob = 20
		}
		out = append(out, model.Guest{
			ID: id,
			Profile: model.Profile{
				ID:        id,
				FirstName: seed.first,
				LastName:  seed.last,
				Photo:     fmt.Sprintf("https://i.pravatar.cc/100?img=%d", i+10),
				City:      fallbackCities[i%len(fallbackCities)],
				Sex:       seed.sex,
				Age:       20 + i*2,
			},
			Probability:  prob,
			LastActivity: now.Add(-time.Duration(i) * time.Hour),
			ActivityType: fallbackActivities[i%len(fallbackActivities)],
			Details:      fallbackDetails[i%len(fallbackDetails)],
		})
	}
	return out
}
