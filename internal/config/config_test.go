package config

import (
	"testing"
)

func TestParseInputFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    InputFormat
		wantErr bool
	}{
		{"empty defaults to auto", "", InputAuto, false},
		{"auto", "auto", InputAuto, false},
		{"text", "text", InputText, false},
		{"txt alias", "txt", InputText, false},
		{"csv", "csv", InputCSV, false},
		{"uppercase", "CSV", InputCSV, false},
		{"surrounding space", "  text ", InputText, false},
		{"unknown", "json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInputFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInputFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseInputFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRecord_Text(t *testing.T) {
	tests := []struct {
		name     string
		contents []string
		want     string
	}{
		{"no contents", nil, ""},
		{"single", []string{"disk full"}, "disk full"},
		{"multiple", []string{"GET", "/api", "200"}, "GET /api 200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Key: "k", Contents: tt.contents}
			if got := r.Text(); got != tt.want {
				t.Errorf("Record.Text() = %q, want %q", got, tt.want)
			}
		})
	}
}
