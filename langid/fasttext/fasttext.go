// Package fasttext - Laden und Auswerten von fastText-Textklassifikatoren
//
// Diese Datei enthaelt:
// - Model: Geladenes supervised-Modell (Args, Woerterbuch, Matrizen)
// - Load/LoadReader: .bin-Dateien einlesen und validieren
// - Predict: Softmax-Vorhersage mit Top-k und Schwellwert
//
// Unterstuetzt werden unquantisierte supervised-Modelle mit
// Softmax-Verlust, also genau die Klasse, zu der lid.176.bin gehoert.
// Quantisierte .ftz-Dateien und hierarchischer Softmax werden mit
// klaren Fehlern abgelehnt.
package fasttext

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	fileMagic  int32 = 793712314
	maxVersion int32 = 12
)

var (
	ErrBadFormat       = errors.New("keine gueltige fasttext-modelldatei")
	ErrVersion         = errors.New("nicht unterstuetzte fasttext-version")
	ErrQuantized       = errors.New("quantisierte modelle werden nicht unterstuetzt")
	ErrUnsupportedLoss = errors.New("nur softmax-verlust wird unterstuetzt")
	ErrNotSupervised   = errors.New("kein supervised-modell")
)

// Model ist ein geladener Klassifikator. Nach dem Laden ist der
// Zustand unveraenderlich, Predict darf nebenlaeufig laufen.
type Model struct {
	args   args
	dict   *dictionary
	input  *denseMatrix
	output *mat.Dense
}

// Prediction ist ein Label mit seiner Softmax-Wahrscheinlichkeit.
type Prediction struct {
	Label string
	Prob  float64
}

// Load liest ein Modell von der Platte.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fasttext-modell %s: %w", path, err)
	}
	defer f.Close()

	m, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("fasttext-modell %s: %w", path, err)
	}
	return m, nil
}

// LoadReader liest ein Modell aus einem Strom.
func LoadReader(rd io.Reader) (*Model, error) {
	r := newBinReader(rd)

	magic, err := r.int32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if magic != fileMagic {
		return nil, ErrBadFormat
	}
	version, err := r.int32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if version > maxVersion {
		return nil, fmt.Errorf("%w: version %d", ErrVersion, version)
	}

	a, err := readArgs(r)
	if err != nil {
		return nil, err
	}
	// Alte supervised-Modelle kennen keine Zeichen-n-Gramme.
	if version == 11 && a.model == modelSupervised {
		a.maxn = 0
	}
	if a.model != modelSupervised {
		return nil, ErrNotSupervised
	}
	if a.loss != lossSoftmax {
		return nil, fmt.Errorf("%w: loss %d", ErrUnsupportedLoss, a.loss)
	}

	dict, err := readDictionary(r, &a)
	if err != nil {
		return nil, err
	}

	quantInput, err := r.bool()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if quantInput {
		return nil, ErrQuantized
	}
	if dict.pruned() {
		return nil, fmt.Errorf("%w: beschnittenes woerterbuch ohne quantisierung", ErrBadFormat)
	}

	input, err := readMatrix(r)
	if err != nil {
		return nil, err
	}

	qout, err := r.bool()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if qout {
		return nil, ErrQuantized
	}

	rawOutput, err := readMatrix(r)
	if err != nil {
		return nil, err
	}

	if input.rows != int(dict.nwords+a.bucket) || input.cols != int(a.dim) {
		return nil, fmt.Errorf("%w: eingabematrix %dx%d passt nicht zu vokabular %d und dim %d",
			ErrBadFormat, input.rows, input.cols, dict.nwords, a.dim)
	}
	if rawOutput.rows != int(dict.nlabels) || rawOutput.cols != int(a.dim) {
		return nil, fmt.Errorf("%w: ausgabematrix %dx%d passt nicht zu %d labels",
			ErrBadFormat, rawOutput.rows, rawOutput.cols, dict.nlabels)
	}

	// Die Ausgabematrix ist klein (Labels x Dim) und wandert fuer die
	// Vorwaertsrechnung in eine gonum-Matrix.
	outData := make([]float64, len(rawOutput.data))
	for i, v := range rawOutput.data {
		outData[i] = float64(v)
	}
	output := mat.NewDense(rawOutput.rows, rawOutput.cols, outData)

	return &Model{args: a, dict: dict, input: input, output: output}, nil
}

// Labels gibt alle bekannten Labels ohne Praefix zurueck.
func (m *Model) Labels() []string {
	labels := make([]string, m.dict.nlabels)
	for i := range labels {
		labels[i] = m.dict.label(int32(i))
	}
	return labels
}

// Dim gibt die Vektordimension des Modells zurueck.
func (m *Model) Dim() int { return int(m.args.dim) }

// Predict klassifiziert eine einzelne Zeile. Zeilenumbrueche muessen
// vorher ersetzt werden, der Aufrufer bekommt hoechstens k Labels mit
// Wahrscheinlichkeit >= threshold, absteigend sortiert.
func (m *Model) Predict(text string, k int, threshold float64) ([]Prediction, error) {
	if k <= 0 {
		k = 1
	}

	ids := m.dict.lineIDs(text)
	if len(ids) == 0 {
		return nil, nil
	}

	hidden := m.computeHidden(ids)

	var scores mat.VecDense
	scores.MulVec(m.output, hidden)
	probs := softmax(scores.RawVector().Data)

	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })

	out := make([]Prediction, 0, k)
	for _, i := range idx {
		if len(out) == k {
			break
		}
		if probs[i] < threshold {
			break
		}
		out = append(out, Prediction{Label: m.dict.label(int32(i)), Prob: probs[i]})
	}
	return out, nil
}

// computeHidden mittelt die Eingabevektoren aller Indizes.
func (m *Model) computeHidden(ids []int32) *mat.VecDense {
	dim := int(m.args.dim)
	acc := make([]float64, dim)
	for _, id := range ids {
		row := m.input.row(int(id))
		for j, v := range row {
			acc[j] += float64(v)
		}
	}
	inv := 1 / float64(len(ids))
	for j := range acc {
		acc[j] *= inv
	}
	return mat.NewVecDense(dim, acc)
}

func softmax(scores []float64) []float64 {
	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	var sum float64
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
