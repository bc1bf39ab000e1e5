package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                            "/",
		"/metrics":                    "/metrics",
		"/blogs":                      "/blogs",
		"/blogs/66f0a1":               "/blogs/:id",
		"/blogs/66f0a1/extra":         "/blogs/66f0a1/extra",
		"/templates/3":                "/templates/:number",
		"/templates/3/toggle":         "/templates/:number/toggle",
		"/admin-management":           "/admin-management",
		"/admin-management/admins/ab": "/admin-management/admins/:id",
		"/overview?x=1":               "/overview",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
