package pathutil

import "testing"

func TestEncodeProjectPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "simple absolute path",
			path: "/home/u/workspace",
			want: "-home-u-workspace",
		},
		{
			name: "dot in path component",
			path: "/home/u.name/workspace",
			want: "-home-u-name-workspace",
		},
		{
			name: "trailing slash removed",
			path: "/home/u/workspace/",
			want: "-home-u-workspace",
		},
		{
			name: "double slashes normalised",
			path: "/home//u///workspace",
			want: "-home-u-workspace",
		},
		{
			name: "multiple dots",
			path: "/home/u/my.project.v2",
			want: "-home-u-my-project-v2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeProjectPath(tt.path); got != tt.want {
				t.Errorf("EncodeProjectPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
