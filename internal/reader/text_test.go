package reader

import "testing"

func TestProjectName(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "short content", content: "Hello world", want: "Hello world"},
		{name: "trimmed", content: "  Hello world \n", want: "Hello world"},
		{name: "cut at twenty", content: "The quick brown fox jumps over", want: "The quick brown fox "},
		{name: "counts runes", content: "আমার সোনার বাংলা আমি তোমায় ভালোবাসি", want: "আমার সোনার বাংলা আমি"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectName(tt.content); got != tt.want {
				t.Errorf("ProjectName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSameTerm(t *testing.T) {
	if !SameTerm("Hello", "  hello ") {
		t.Error("expected case-insensitive trimmed match")
	}
	if SameTerm("Hello", "Help") {
		t.Error("expected different terms not to match")
	}
	if NoteKey(" STRASSE ") != NoteKey("strasse") {
		t.Error("expected folded keys to match")
	}
}

func TestSyllables(t *testing.T) {
	tests := []struct {
		selection string
		want      string
		wantOK    bool
	}{
		{selection: "hello", want: "hel·lo", wantOK: true},
		{selection: "reading", want: "rea·ding", wantOK: true},
		{selection: "rhythm", want: "rhythm", wantOK: true},
		{selection: "psst", want: "psst", wantOK: true},
		{selection: "one two three four", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.selection, func(t *testing.T) {
			got, ok := Syllables(tt.selection)
			if ok != tt.wantOK {
				t.Fatalf("Syllables() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Syllables() = %q, want %q", got, tt.want)
			}
		})
	}
}
