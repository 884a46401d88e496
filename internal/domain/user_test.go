package domain

import "testing"

func TestPermissionSetHasAll(t *testing.T) {
	editor := &PermissionSet{Role: "editor", CanEdit: true}

	cases := []struct {
		name     string
		set      *PermissionSet
		required []Permission
		expected bool
	}{
		{"nothing required", editor, nil, true},
		{"granted", editor, []Permission{CanEdit}, true},
		{"one missing", editor, []Permission{CanEdit, CanModerate}, false},
		{"nil set grants nothing", nil, []Permission{CanEdit}, false},
		{"nil set, nothing required", nil, nil, true},
		{"unknown permission", editor, []Permission{"can_fly"}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.set.HasAll(c.required...); got != c.expected {
				t.Errorf("expected %t, got %t", c.expected, got)
			}
		})
	}
}
