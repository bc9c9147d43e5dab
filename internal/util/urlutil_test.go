package util

import "testing"

func TestParseVideoURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "watch url", raw: "https://www.youtube.com/watch?v=abc", want: "https://www.youtube.com/watch?v=abc"},
		{name: "short url", raw: "https://youtu.be/abc", want: "https://youtu.be/abc"},
		{name: "missing scheme", raw: "youtube.com/watch?v=abc", want: "https://youtube.com/watch?v=abc"},
		{name: "other host", raw: "http://vimeo.com/1", want: "http://vimeo.com/1"},
		{name: "trims spaces", raw: "  https://youtu.be/x  ", want: "https://youtu.be/x"},
		{name: "empty", raw: "", wantErr: true},
		{name: "ftp", raw: "ftp://example.com/a.mp4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseVideoURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVideoURL(%q): %v", tt.raw, err)
			}
			if u.String() != tt.want {
				t.Errorf("got %q, want %q", u.String(), tt.want)
			}
		})
	}
}

func TestLastErrorLine(t *testing.T) {
	out := []byte("[youtube] abc: Downloading webpage\nERROR: [youtube] abc: Requested format is not available\nsome trailer\n")
	if got := LastErrorLine(out); got != "[youtube] abc: Requested format is not available" {
		t.Errorf("LastErrorLine = %q", got)
	}
	if got := LastErrorLine([]byte("first\nlast line\n\n")); got != "last line" {
		t.Errorf("fallback = %q", got)
	}
	if got := LastErrorLine(nil); got != "" {
		t.Errorf("empty = %q", got)
	}
}
