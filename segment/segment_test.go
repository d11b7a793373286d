// segment_test.go - Tests fuer Satzsegmentierung und Wiederzusammenbau
package segment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name       string
		texts      []string
		inputIDs   []int
		paragraphs []int
		sentences  []string
	}{
		{
			name:       "single sentence",
			texts:      []string{"Hello world."},
			inputIDs:   []int{0},
			paragraphs: []int{0},
			sentences:  []string{"Hello world."},
		},
		{
			name:       "two sentences",
			texts:      []string{"Hello world. How are you?"},
			inputIDs:   []int{0, 0},
			paragraphs: []int{0, 0},
			sentences:  []string{"Hello world.", "How are you?"},
		},
		{
			name:       "paragraph break",
			texts:      []string{"First line.\nSecond line."},
			inputIDs:   []int{0, 0},
			paragraphs: []int{0, 1},
			sentences:  []string{"First line.", "Second line."},
		},
		{
			name:       "blank lines consume paragraph ids",
			texts:      []string{"First.\n\nThird."},
			inputIDs:   []int{0, 0},
			paragraphs: []int{0, 2},
			sentences:  []string{"First.", "Third."},
		},
		{
			name:       "multiple inputs",
			texts:      []string{"One.", "Two. Three!"},
			inputIDs:   []int{0, 1, 1},
			paragraphs: []int{0, 0, 0},
			sentences:  []string{"One.", "Two.", "Three!"},
		},
		{
			name:       "empty input yields nothing",
			texts:      []string{""},
			inputIDs:   []int{},
			paragraphs: []int{},
			sentences:  []string{},
		},
		{
			name:       "whitespace only yields nothing",
			texts:      []string{"   \n  "},
			inputIDs:   []int{},
			paragraphs: []int{},
			sentences:  []string{},
		},
		{
			name:       "short fragment merged into previous",
			texts:      []string{"This is a sentence. Ok."},
			inputIDs:   []int{0},
			paragraphs: []int{0},
			sentences:  []string{"This is a sentence. Ok."},
		},
		{
			name:       "short fragment at paragraph start kept",
			texts:      []string{"Hi.\nThis is long enough."},
			inputIDs:   []int{0, 0},
			paragraphs: []int{0, 1},
			sentences:  []string{"Hi.", "This is long enough."},
		},
		{
			name:       "crlf line endings",
			texts:      []string{"First.\r\nSecond."},
			inputIDs:   []int{0, 0},
			paragraphs: []int{0, 1},
			sentences:  []string{"First.", "Second."},
		},
		{
			name:       "question and exclamation",
			texts:      []string{"Wirklich? Ja, natuerlich! Alles klar."},
			inputIDs:   []int{0, 0, 0},
			paragraphs: []int{0, 0, 0},
			sentences:  []string{"Wirklich?", "Ja, natuerlich!", "Alles klar."},
		},
		{
			name:       "no split on lowercase continuation",
			texts:      []string{"He said no. the rest stays attached."},
			inputIDs:   []int{0},
			paragraphs: []int{0},
			sentences:  []string{"He said no. the rest stays attached."},
		},
		{
			name:       "split before digit",
			texts:      []string{"Chapter ends here. 42 is the answer."},
			inputIDs:   []int{0, 0},
			paragraphs: []int{0, 0},
			sentences:  []string{"Chapter ends here.", "42 is the answer."},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ids, paras, sents := Split(tt.texts)
			if diff := cmp.Diff(tt.inputIDs, ids); diff != "" {
				t.Errorf("inputIDs (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.paragraphs, paras); diff != "" {
				t.Errorf("paragraphIDs (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.sentences, sents); diff != "" {
				t.Errorf("sentences (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		name       string
		inputIDs   []int
		paragraphs []int
		sentences  []string
		length     int
		expect     []string
	}{
		{
			name:       "same paragraph joined with space",
			inputIDs:   []int{0, 0},
			paragraphs: []int{0, 0},
			sentences:  []string{"Hallo Welt.", "Wie geht es?"},
			length:     1,
			expect:     []string{"Hallo Welt. Wie geht es?"},
		},
		{
			name:       "paragraph change joined with newline",
			inputIDs:   []int{0, 0},
			paragraphs: []int{0, 1},
			sentences:  []string{"Erster Absatz.", "Zweiter Absatz."},
			length:     1,
			expect:     []string{"Erster Absatz.\nZweiter Absatz."},
		},
		{
			name:       "multiple outputs",
			inputIDs:   []int{0, 1, 1},
			paragraphs: []int{0, 0, 0},
			sentences:  []string{"Eins.", "Zwei.", "Drei."},
			length:     2,
			expect:     []string{"Eins.", "Zwei. Drei."},
		},
		{
			name:       "inputs without sentences stay empty",
			inputIDs:   []int{1},
			paragraphs: []int{0},
			sentences:  []string{"Nur der zweite."},
			length:     3,
			expect:     []string{"", "Nur der zweite.", ""},
		},
		{
			name:       "no sentences at all",
			inputIDs:   []int{},
			paragraphs: []int{},
			sentences:  []string{},
			length:     2,
			expect:     []string{"", ""},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := Join(tt.inputIDs, tt.paragraphs, tt.sentences, tt.length)
			if diff := cmp.Diff(tt.expect, got); diff != "" {
				t.Errorf("Join (-want +got):\n%s", diff)
			}
		})
	}
}

// Split und Join bilden zusammen eine Rundreise: abgesehen von
// normalisiertem Whitespace kommt der Eingabetext unveraendert zurueck.
func TestSplitJoinRoundTrip(t *testing.T) {
	texts := []string{
		"Hello world. How are you?",
		"First paragraph.\nSecond paragraph. Still second.",
		"",
		"Single line without terminator",
	}
	expect := []string{
		"Hello world. How are you?",
		"First paragraph.\nSecond paragraph. Still second.",
		"",
		"Single line without terminator",
	}

	ids, paras, sents := Split(texts)
	got := Join(ids, paras, sents, len(texts))
	if diff := cmp.Diff(expect, got); diff != "" {
		t.Errorf("Rundreise (-want +got):\n%s", diff)
	}
}
