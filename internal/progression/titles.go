package progression

// DefaultTitle is the starting title for a player with no completions.
const DefaultTitle = "E-Rank Hunter"

// FallbackActivityID is the activity whose title ladder applies when a
// player has no completions or their dominant activity has no ladder.
const FallbackActivityID = "gym"

// rankLadder is the shared early-game title progression. Every activity
// ladder ends in its own pinnacle title.
var rankLadder = []string{
	"E-Rank Hunter",
	"D-Rank Hunter",
	"C-Rank Hunter",
	"B-Rank Hunter",
	"A-Rank Hunter",
	"S-Rank Hunter",
}

var pinnacleTitles = map[string]string{
	"gym":      "Iron Body Monarch",
	"books":    "Shadow Sage",
	"office":   "Architect of Success",
	"mental":   "Monarch of Serenity",
	"coolness": "Shadow Monarch",
	"notes":    "Chronicler Supreme",
}

// TitleFor maps a level and dominant activity to a title. The ladder is
// indexed by level/10 and clamps to its last entry for very high levels.
func TitleFor(level int, activityID string) string {
	pinnacle, ok := pinnacleTitles[activityID]
	if !ok {
		pinnacle = pinnacleTitles[FallbackActivityID]
	}

	index := level / 10
	if index < len(rankLadder) {
		return rankLadder[index]
	}
	return pinnacle
}

// DefaultActivities returns a fresh copy of the built-in activity set used
// until a player customizes their own.
func DefaultActivities() []Activity {
	return []Activity{
		{ID: "gym", Name: "Gym", Icon: "💪"},
		{ID: "books", Name: "Reading", Icon: "📚"},
		{ID: "office", Name: "Office Work", Icon: "💼"},
		{ID: "mental", Name: "Mental Health", Icon: "🧘"},
		{ID: "coolness", Name: "Coolness", Icon: "😎"},
		{ID: "notes", Name: "Life Notes", Icon: "📝", XPExempt: true},
	}
}

// DefaultStats is the zero-progress stats record stored for new players.
func DefaultStats() Stats {
	return Stats{
		Level:         1,
		Experience:    0,
		TotalTasks:    0,
		CurrentStreak: 0,
		Title:         DefaultTitle,
	}
}
