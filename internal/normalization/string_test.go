package normalization

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  CBSE ":   "cbse",
		"Science":   "science",
		"\tMaths\n": "maths",
		"":          "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestNormalizeLanguageDefaultsToEnglish(t *testing.T) {
	if got := NormalizeLanguage("  "); got != "en" {
		t.Fatalf("want=en got=%q", got)
	}
	if got := NormalizeLanguage("HI"); got != "hi" {
		t.Fatalf("want=hi got=%q", got)
	}
}
