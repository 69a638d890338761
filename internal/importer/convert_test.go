package importer

import "testing"

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain value",
			input: "P-101",
			want:  "P-101",
		},
		{
			name:  "surrounding whitespace",
			input: "  P-101  ",
			want:  "P-101",
		},
		{
			name:  "excel formula prefix",
			input: `="P-101"`,
			want:  "P-101",
		},
		{
			name:  "bare formula prefix",
			input: "=P-101",
			want:  "P-101",
		},
		{
			name:  "surrounding double quotes",
			input: `"P-101"`,
			want:  "P-101",
		},
		{
			name:  "surrounding single quotes",
			input: "'P-101'",
			want:  "P-101",
		},
		{
			name:  "leading BOM",
			input: "\uFEFFDRAWING",
			want:  "DRAWING",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// NormalizeIdentifier / NormalizeHeader Tests
// ----------------------------------------------------------------------------

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercased input", "p-101", "P-101"},
		{"internal whitespace collapsed", "P  -  101", "P - 101"},
		{"tabs collapsed", "VLV\t200", "VLV 200"},
		{"surrounding whitespace trimmed", "  sys-40  ", "SYS-40"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeIdentifier(tt.input); got != tt.want {
				t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"uppercase input", "DRAWING NO", "drawing no"},
		{"mixed case with extra spaces", "Cmdty   Code", "cmdty code"},
		{"quoted header", `"Test Package"`, "test package"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeHeader(tt.input); got != tt.want {
				t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseQuantity Tests
// ----------------------------------------------------------------------------

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{"plain integer", "5", 5, true},
		{"padded integer", " 12 ", 12, true},
		{"thousands separator", "1,000", 1000, true},
		{"explicit positive sign", "+3", 3, true},
		{"zero parses", "0", 0, true},
		{"negative parses", "-2", -2, true},
		{"decimal rejected", "1.5", 0, false},
		{"decimal zero rejected", "2.0", 0, false},
		{"text rejected", "five", 0, false},
		{"empty rejected", "", 0, false},
		{"mixed rejected", "3 pcs", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseQuantity(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseQuantity(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseQuantity(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Row Helpers Tests
// ----------------------------------------------------------------------------

func TestIsEmptyRow(t *testing.T) {
	if !isEmptyRow([]string{"", "  ", "\t"}) {
		t.Error("expected blank cells to count as empty")
	}
	if isEmptyRow([]string{"", "x", ""}) {
		t.Error("expected row with a value to be non-empty")
	}
	if !isEmptyRow(nil) {
		t.Error("expected nil row to be empty")
	}
}

func TestCellAt(t *testing.T) {
	row := []string{" a ", "b"}
	if got := cellAt(row, 0); got != "a" {
		t.Errorf("cellAt(row, 0) = %q, want %q", got, "a")
	}
	if got := cellAt(row, 5); got != "" {
		t.Errorf("cellAt(row, 5) = %q, want empty for ragged row", got)
	}
	if got := cellAt(row, -1); got != "" {
		t.Errorf("cellAt(row, -1) = %q, want empty", got)
	}
}
