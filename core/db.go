package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrdering drops orderings on fields that are not in allowed.
// Ordering fields end up in SQL, so only whitelisted column names go through.
func CleanOrdering(ordering []DBOrdering, allowed ...string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, field := range allowed {
			if ord.Field == field {
				cleaned = append(cleaned, ord)
				break
			}
		}
	}
	return cleaned
}
