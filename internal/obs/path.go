package obs

import "strings"

// CanonicalPath collapses resource identifiers in console routes so metric
// label cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch parts[0] {
	case "blogs":
		if len(parts) == 2 {
			return "/blogs/:id"
		}
	case "templates":
		if len(parts) == 2 {
			return "/templates/:number"
		}
		if len(parts) == 3 && parts[2] == "toggle" {
			return "/templates/:number/toggle"
		}
	case "admin-management":
		if len(parts) == 3 && parts[1] == "admins" {
			return "/admin-management/admins/:id"
		}
	}
	return path
}
