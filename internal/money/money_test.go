package money

import "testing"

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "two decimals", input: "49.99", want: 4999},
		{name: "integer", input: "10", want: 1000},
		{name: "one decimal", input: "1.5", want: 150},
		{name: "rounds half up", input: "10.505", want: 1051},
		{name: "rounds down below half", input: "10.504", want: 1050},
		{name: "long fraction rounds", input: "0.999", want: 100},
		{name: "zero", input: "0", want: 0},
		{name: "leading dot", input: ".99", want: 99},
		{name: "whitespace trimmed", input: " 12.34 ", want: 1234},
		{name: "negative", input: "-2.50", want: -250},
		{name: "empty", input: "", wantErr: true},
		{name: "bare dot", input: ".", wantErr: true},
		{name: "double dot", input: "1.2.3", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "letter fraction", input: "1.x9", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToMinorUnits(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ToMinorUnits(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{4999, "49.99"},
		{500, "5.00"},
		{0, "0.00"},
		{1, "0.01"},
		{100050, "1000.50"},
		{-250, "-2.50"},
	}

	for _, tt := range tests {
		if got := FromMinorUnits(tt.minor); got != tt.want {
			t.Errorf("FromMinorUnits(%d) = %q, want %q", tt.minor, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, minor := range []int64{0, 1, 99, 100, 4999, 123456789} {
		got, err := ToMinorUnits(FromMinorUnits(minor))
		if err != nil {
			t.Fatalf("round trip %d: %v", minor, err)
		}
		if got != minor {
			t.Errorf("round trip %d = %d", minor, got)
		}
	}
}
