package wizard

// IsComplete reports whether every placeholder has a non-empty column
// assigned and no extra keys are present. Column names are not checked
// against the CSV header; the service validates those at send time.
func IsComplete(mapping map[string]string, placeholders []string) bool {
	if len(mapping) != len(placeholders) {
		return false
	}
	for _, ph := range placeholders {
		col, ok := mapping[ph]
		if !ok || col == "" {
			return false
		}
	}
	return true
}
