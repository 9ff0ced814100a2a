package cli

import "testing"

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   uint64
		want string
	}{
		{0, "0s"},
		{20, "20ms"},
		{999, "999ms"},
		{1000, "1s"},
		{1500, "1.5s"},
		{60000, "1m0s"},
		{125500, "2m5.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.ms); got != tt.want {
				t.Errorf("FormatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		ms   uint64
		want string
	}{
		{0, "00:00.000"},
		{30, "00:00.030"},
		{1500, "00:01.500"},
		{125_500, "02:05.500"},
		{3_599_999, "59:59.999"},
		{3_600_000, "1:00:00.000"},
		{36_061_001, "10:01:01.001"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatOffset(tt.ms); got != tt.want {
				t.Errorf("FormatOffset(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{64 << 20, "64.00 MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
