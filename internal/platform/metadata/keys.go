package metadata

// --- SQL Keys ---
// These keys are used for the 'key' column in the 'metadata' table.
const (
	// LastPlayedDateKey stores the calendar date (YYYY-MM-DD) of the most
	// recent quota activity.
	LastPlayedDateKey = "last_played_date"

	// VotesTodayKey stores the number of votes cast on LastPlayedDateKey.
	VotesTodayKey = "votes_today"
)
