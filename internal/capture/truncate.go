package capture

const maxLoggedURL = 120

// truncateURL shortens long request URLs for console lines.
func truncateURL(url string) string {
	if len(url) > maxLoggedURL {
		return url[:maxLoggedURL] + "..."
	}
	return url
}
