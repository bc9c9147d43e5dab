package format

import "testing"

func TestHumanizeBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "zero bytes", bytes: 0, want: "0 B"},
		{name: "negative clamps", bytes: -5, want: "0 B"},
		{name: "under 1KiB", bytes: 1023, want: "1023 B"},
		{name: "exactly 1KiB", bytes: 1024, want: "1.0 KiB"},
		{name: "1.5 KiB", bytes: 1536, want: "1.5 KiB"},
		{name: "50 MiB", bytes: 50 * 1024 * 1024, want: "50 MiB"},
		{name: "1.5 GiB", bytes: 1536 * 1024 * 1024, want: "1.5 GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HumanizeBytes(tt.bytes); got != tt.want {
				t.Errorf("HumanizeBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestTransferred(t *testing.T) {
	total := int64(2048)
	if got := Transferred(1024, &total); got != "1.0 KiB / 2.0 KiB" {
		t.Errorf("Transferred = %q", got)
	}
	if got := Transferred(1024, nil); got != "1.0 KiB" {
		t.Errorf("Transferred unknown total = %q", got)
	}
}

func TestBitrateAndPercent(t *testing.T) {
	if got := Bitrate(0); got != "-" {
		t.Errorf("Bitrate(0) = %q", got)
	}
	if got := Bitrate(4500); got != "4,500 kbps" {
		t.Errorf("Bitrate(4500) = %q", got)
	}
	if got := Percent(-1); got != "--" {
		t.Errorf("Percent(-1) = %q", got)
	}
	if got := Percent(42.25); got != "42.2%" && got != "42.3%" {
		t.Errorf("Percent(42.25) = %q", got)
	}
}
