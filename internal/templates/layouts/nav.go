package layouts

import "strings"

// navLink is an entry in the top navigation bar.
type navLink struct {
	Path  string
	Label string
}

// appNav is shown to signed-in users.
var appNav = []navLink{
	{"/dashboard", "Dashboard"},
	{"/inventory", "Inventory"},
	{"/check-out", "Check out"},
	{"/check-in", "Check in"},
	{"/history", "History"},
	{"/settings", "Settings"},
}

// isActive reports whether the nav entry at path covers the request path.
func isActive(active, path string) bool {
	return active == path || strings.HasPrefix(active, path+"/")
}
