// tokenize.go - Laden der Tokenizer eines Modell-Artefakts
//
// Dieses Modul enthaelt:
// - Pair: Quell- und Ziel-Tokenizer eines Uebersetzungsmodells
// - Load: Erkennung von Joint- vs. Split-Vokabular im Artefakt
package tokenize

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	jointModelFile  = "joint.spm.model"
	sourceModelFile = "src.spm.model"
	targetModelFile = "tgt.spm.model"
)

// Pair buendelt die Tokenizer fuer beide Seiten eines Modells. Bei
// Joint-Vokabular zeigen Source und Target auf denselben Processor.
type Pair struct {
	Source *Processor
	Target *Processor
	Joint  bool
}

// Load sucht im Artefaktverzeichnis nach joint.spm.model bzw. dem Paar
// src.spm.model/tgt.spm.model und laedt die Modelle.
func Load(dir string) (*Pair, error) {
	joint := filepath.Join(dir, jointModelFile)
	if _, err := os.Stat(joint); err == nil {
		proc, err := LoadProcessor(joint)
		if err != nil {
			return nil, err
		}
		return &Pair{Source: proc, Target: proc, Joint: true}, nil
	}

	src := filepath.Join(dir, sourceModelFile)
	tgt := filepath.Join(dir, targetModelFile)
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoModel, dir)
	}

	source, err := LoadProcessor(src)
	if err != nil {
		return nil, err
	}
	target, err := LoadProcessor(tgt)
	if err != nil {
		return nil, err
	}
	return &Pair{Source: source, Target: target}, nil
}

// EncodeSource kodiert einen Satz fuer die Quellseite der Engine.
func (p *Pair) EncodeSource(text string) []string {
	return p.Source.Encode(text)
}

// DecodeTarget dekodiert eine Hypothese der Zielseite.
func (p *Pair) DecodeTarget(tokens []string) string {
	return p.Target.Decode(tokens)
}
