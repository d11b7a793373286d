// sentencepiece.go - Unigram-Encoder und -Decoder
//
// Dieses Modul enthaelt:
// - Processor: Geladenes SentencePiece-Modell mit Encode/Decode
// - Encode: Viterbi-Segmentierung ueber die Stueck-Scores
// - Decode: Subwort-Tokens zurueck in Text verwandeln
package tokenize

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// whitespaceMark ist das Meta-Symbol, mit dem SentencePiece
// Leerzeichen kodiert (U+2581, "lower one eighth block").
const whitespaceMark = "▁"

// eosPiece wird nach jeder kodierten Sequenz angehaengt und beim
// Dekodieren wieder entfernt.
const eosPiece = "</s>"

// unkPenalty wird vom kleinsten Stueck-Score abgezogen, damit
// unbekannte Zeichen nur greifen, wenn nichts anderes passt.
const unkPenalty = 10.0

// Processor kapselt ein geladenes Modell. Encode und Decode sind
// nebenlaeufig nutzbar, der Zustand ist nach dem Laden unveraenderlich.
type Processor struct {
	pieces   []Piece
	index    map[string]int
	maxLen   int     // laengstes Stueck in Bytes
	unkScore float64 // Score fuer unbekannte Zeichen
	hasBytes bool    // Modell enthaelt Byte-Fallback-Stuecke
}

// LoadProcessor liest ein .spm.model von der Platte.
func LoadProcessor(path string) (*Processor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sentencepiece-modell %s: %w", path, err)
	}
	pieces, err := parseModel(data)
	if err != nil {
		return nil, fmt.Errorf("sentencepiece-modell %s: %w", path, err)
	}
	return newProcessor(pieces), nil
}

func newProcessor(pieces []Piece) *Processor {
	p := &Processor{
		pieces: pieces,
		index:  make(map[string]int, len(pieces)),
	}

	minScore := math.Inf(1)
	for i, piece := range pieces {
		p.index[piece.Text] = i
		if len(piece.Text) > p.maxLen {
			p.maxLen = len(piece.Text)
		}
		switch piece.Type {
		case Normal, UserDefined:
			if piece.Score < minScore {
				minScore = piece.Score
			}
		case Byte:
			p.hasBytes = true
		}
	}
	if math.IsInf(minScore, 1) {
		minScore = 0
	}
	p.unkScore = minScore - unkPenalty
	return p
}

// Encode segmentiert text in Subwort-Stuecke und haengt </s> an.
// Leerer oder reiner Whitespace-Text ergibt nur ["</s>"].
func (p *Processor) Encode(text string) []string {
	s := p.normalize(text)
	if s == "" {
		return []string{eosPiece}
	}

	// Viterbi ueber Byte-Positionen. best[i] ist der beste Pfad, der
	// s[:i] abdeckt; arcs[i] merkt sich das letzte Stueck des Pfads.
	type arc struct {
		prev int
		text string
		unk  bool
	}
	n := len(s)
	best := make([]float64, n+1)
	arcs := make([]arc, n+1)
	for i := 1; i <= n; i++ {
		best[i] = math.Inf(-1)
	}

	for i := 0; i < n; i++ {
		if math.IsInf(best[i], -1) {
			continue
		}

		limit := p.maxLen
		if n-i < limit {
			limit = n - i
		}
		for j := i + 1; j <= i+limit; j++ {
			id, ok := p.index[s[i:j]]
			if !ok {
				continue
			}
			if t := p.pieces[id].Type; t != Normal && t != UserDefined {
				continue
			}
			if score := best[i] + p.pieces[id].Score; score > best[j] {
				best[j] = score
				arcs[j] = arc{prev: i, text: s[i:j]}
			}
		}

		// Fallback: einzelne unbekannte Rune
		_, size := utf8.DecodeRuneInString(s[i:])
		j := i + size
		if score := best[i] + p.unkScore; score > best[j] {
			best[j] = score
			arcs[j] = arc{prev: i, text: s[i:j], unk: true}
		}
	}

	// Rueckverfolgung; benachbarte unbekannte Runen verschmelzen zu
	// einem Stueck, wie es SentencePiece auch tut.
	var out []string
	for i := n; i > 0; {
		a := arcs[i]
		if a.unk {
			text := a.text
			for a.prev > 0 && arcs[a.prev].unk {
				a = arcs[a.prev]
				text = a.text + text
			}
			out = append(out, p.expandUnknown(text)...)
			i = a.prev
			continue
		}
		out = append(out, a.text)
		i = a.prev
	}

	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return append(out, eosPiece)
}

// expandUnknown liefert die Tokens fuer ein nicht abgedecktes
// Textstueck: Byte-Stuecke, falls das Modell welche kennt, sonst der
// rohe Text als einzelnes Out-of-Vocabulary-Token. Reihenfolge bereits
// umgekehrt, weil der Aufrufer rueckwaerts sammelt.
func (p *Processor) expandUnknown(text string) []string {
	if !p.hasBytes {
		return []string{text}
	}
	out := make([]string, 0, len(text))
	for i := len(text) - 1; i >= 0; i-- {
		out = append(out, fmt.Sprintf("<0x%02X>", text[i]))
	}
	return out
}

// Decode verwandelt Tokens zurueck in Text. Control-Stuecke werden
// verworfen, Byte-Stuecke zu Bytes zusammengesetzt, das
// Whitespace-Symbol wird zu Leerzeichen.
func (p *Processor) Decode(tokens []string) string {
	var sb strings.Builder

	for _, tok := range tokens {
		if id, ok := p.index[tok]; ok {
			switch p.pieces[id].Type {
			case Control, Unknown, Unused:
				continue
			case Byte:
				if b, ok := parseBytePiece(tok); ok {
					sb.WriteByte(b)
					continue
				}
			}
		} else if tok == eosPiece || tok == "<s>" {
			// Sicherheitsnetz fuer Engines, die Marker liefern, die
			// nicht im Vokabular stehen.
			continue
		}
		sb.WriteString(tok)
	}

	out := strings.ReplaceAll(sb.String(), whitespaceMark, " ")
	return strings.TrimPrefix(out, " ")
}

// normalize wendet NFKC an, kollabiert Whitespace, stellt das
// Dummy-Praefix voran und ersetzt Leerzeichen durch das Meta-Symbol.
func (p *Processor) normalize(text string) string {
	fields := strings.Fields(norm.NFKC.String(text))
	if len(fields) == 0 {
		return ""
	}
	return whitespaceMark + strings.Join(fields, whitespaceMark)
}

func parseBytePiece(tok string) (byte, bool) {
	if len(tok) != 6 || !strings.HasPrefix(tok, "<0x") || tok[5] != '>' {
		return 0, false
	}
	v, err := strconv.ParseUint(tok[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}
