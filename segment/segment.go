// Package segment - Satzsegmentierung fuer Uebersetzungs-Batches
//
// Diese Datei enthaelt:
// - Split: Texte in Saetze mit Eingabe-/Absatz-Indizes zerlegen
// - Join: Uebersetzte Saetze zurueck in Texte zusammenfuegen
//
// Der Runner uebersetzt satzweise. Split haelt fest, aus welchem
// Eingabetext und welchem Absatz jeder Satz stammt, damit Join die
// Ergebnisse formtreu wieder zusammensetzen kann: gleicher Absatz ->
// Leerzeichen, Absatzwechsel -> Zeilenumbruch.
package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Satzgrenze: schliessende Interpunktion, optional Anfuehrungszeichen
// oder Klammer, dann Whitespace vor einem Grossbuchstaben, einer Ziffer
// oder oeffnender Interpunktion. Lookbehind braucht regexp2, die
// stdlib-Engine kann das nicht.
var boundary = regexp2.MustCompile(`(?<=[.!?\x{2026}][)\x{201d}\x{2019}"']?)\s+(?=[\p{Lu}\p{Lo}\p{N}\x{00bf}\x{00a1}(\x{201c}\x{2018}"'])`, regexp2.Unicode)

// Fragmente unterhalb dieser Laenge (in Runen) werden an den
// vorhergehenden Satz desselben Absatzes angehaengt. Faengt die
// typischen Fehltrennungen nach Abkuerzungen ab.
const minFragmentRunes = 5

// Split zerlegt jeden Eingabetext in Saetze. Zurueckgegeben werden drei
// parallele Slices: der Index des Eingabetexts, der Index des Absatzes
// innerhalb dieses Texts und der Satz selbst. Leere Saetze werden
// verworfen, Whitespace an den Raendern entfernt.
func Split(texts []string) (inputIDs []int, paragraphIDs []int, sentences []string) {
	inputIDs = []int{}
	paragraphIDs = []int{}
	sentences = []string{}

	for i, text := range texts {
		for j, paragraph := range splitLines(text) {
			for _, sent := range splitSentences(paragraph) {
				sent = strings.TrimSpace(sent)
				if sent == "" {
					continue
				}

				// Kurzes Fragment in denselben Satz zurueckfalten,
				// sofern es nicht der erste Satz des Absatzes ist.
				if utf8.RuneCountInString(sent) < minFragmentRunes {
					last := len(sentences) - 1
					if last >= 0 && inputIDs[last] == i && paragraphIDs[last] == j {
						sentences[last] += " " + sent
						continue
					}
				}

				inputIDs = append(inputIDs, i)
				paragraphIDs = append(paragraphIDs, j)
				sentences = append(sentences, sent)
			}
		}
	}

	return inputIDs, paragraphIDs, sentences
}

// Join setzt uebersetzte Saetze anhand der von Split gelieferten
// Indizes wieder zu length Texten zusammen. Saetze desselben Absatzes
// werden mit Leerzeichen verbunden, ein Absatzwechsel ergibt genau
// einen Zeilenumbruch. Eingaben ohne Saetze bleiben leere Strings.
func Join(inputIDs, paragraphIDs []int, sentences []string, length int) []string {
	out := make([]string, length)
	lastParagraph := -1

	for n, sent := range sentences {
		idx := inputIDs[n]
		if idx < 0 || idx >= length {
			continue
		}
		switch {
		case out[idx] == "":
			out[idx] = sent
		case paragraphIDs[n] == lastParagraph:
			out[idx] += " " + sent
		default:
			out[idx] += "\n" + sent
		}
		lastParagraph = paragraphIDs[n]
	}

	return out
}

// splitLines trennt an \r\n, \r und \n. Leere Zeilen bleiben erhalten,
// damit die Absatz-Indizes stabil sind.
func splitLines(text string) []string {
	if text == "" {
		return []string{""}
	}
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// splitSentences trennt einen Absatz an den Satzgrenzen. regexp2 hat
// kein Split, daher werden die Matches als Schnittstellen abgelaufen.
// Match-Indizes von regexp2 zaehlen Runen, nicht Bytes.
func splitSentences(paragraph string) []string {
	runes := []rune(paragraph)
	var parts []string
	start := 0

	m, err := boundary.FindRunesMatch(runes)
	for err == nil && m != nil {
		parts = append(parts, string(runes[start:m.Index]))
		start = m.Index + m.Length
		m, err = boundary.FindNextMatch(m)
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
