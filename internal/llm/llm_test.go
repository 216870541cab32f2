package llm

import "testing"

func TestFilterGenerative(t *testing.T) {
	models := []ModelInfo{
		{Name: "models/gemini-pro", Actions: []string{"generateContent", "countTokens"}},
		{Name: "models/embedding-001", Actions: []string{"embedContent"}},
		{Name: "models/gemini-1.5-flash", Actions: []string{"generateContent"}},
		{Name: "models/aqa"},
	}

	got := FilterGenerative(models)

	want := []string{"models/gemini-1.5-flash", "models/gemini-pro"}
	if len(got) != len(want) {
		t.Fatalf("FilterGenerative() = %v, want %v", got, want)
	}
	for i, m := range got {
		if m.Name != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, m.Name, want[i])
		}
	}
}
