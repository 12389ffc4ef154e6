package feedback

// Summary aggregates a list of entries for the admin dashboard.
type Summary struct {
	Count        int            `json:"count"`
	Average      float64        `json:"average"`
	Distribution [MaxRating]int `json:"distribution"` // index 0 holds one-star entries
}

// Summarize counts entries per rating. Entries with an out-of-range rating
// are ignored.
func Summarize(entries []Entry) Summary {
	var s Summary
	total := 0
	for _, e := range entries {
		if !ValidRating(e.Rating) {
			continue
		}
		s.Count++
		total += e.Rating
		s.Distribution[e.Rating-1]++
	}
	if s.Count > 0 {
		s.Average = float64(total) / float64(s.Count)
	}
	return s
}
