package shared

import "testing"

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos    string
		name    string
		wantErr bool
	}{
		{"darwin", "open", false},
		{"linux", "xdg-open", false},
		{"windows", "rundll32", false},
		{"plan9", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, "https://example.com")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for unsupported platform")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.name {
				t.Errorf("expected %s, got %s", tt.name, name)
			}
			if args[len(args)-1] != "https://example.com" {
				t.Errorf("expected url as last arg, got %v", args)
			}
		})
	}

	t.Run("OpenBrowser rejects unsupported runtime", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error")
		}
	})
}
