// reader.go - Binaerformat-Leser fuer fastText-Modelldateien
//
// Dieses Modul enthaelt:
// - binReader: Little-Endian-Leser ueber bufio
// - readArgs: Hyperparameter-Block am Dateianfang
// - readMatrix: Dichte float32-Matrix (Zeilen x Spalten)
//
// Das Format stammt aus fastText: Magic und Version, dann Args,
// Woerterbuch, Quantisierungs-Flag und die beiden Matrizen.
package fasttext

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

type binReader struct {
	r *bufio.Reader
}

func newBinReader(r io.Reader) *binReader {
	if br, ok := r.(*bufio.Reader); ok {
		return &binReader{r: br}
	}
	return &binReader{r: bufio.NewReaderSize(r, 1<<16)}
}

func (b *binReader) int8() (int8, error) {
	v, err := b.r.ReadByte()
	return int8(v), err
}

func (b *binReader) int32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (b *binReader) int64() (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func (b *binReader) float64() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func (b *binReader) bool() (bool, error) {
	v, err := b.r.ReadByte()
	return v != 0, err
}

// cstring liest einen nullterminierten String, wie ihn das
// fastText-Woerterbuch ablegt.
func (b *binReader) cstring() (string, error) {
	s, err := b.r.ReadString(0)
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}

// Verlustfunktionen und Modelltypen aus fastText.
type lossName int32

const (
	lossHS      lossName = 1
	lossNS      lossName = 2
	lossSoftmax lossName = 3
	lossOVA     lossName = 4
)

type modelName int32

const (
	modelCBOW       modelName = 1
	modelSkipgram   modelName = 2
	modelSupervised modelName = 3
)

type args struct {
	dim          int32
	ws           int32
	epoch        int32
	minCount     int32
	neg          int32
	wordNgrams   int32
	loss         lossName
	model        modelName
	bucket       int32
	minn         int32
	maxn         int32
	lrUpdateRate int32
	t            float64
}

func readArgs(r *binReader) (args, error) {
	var a args
	for _, dst := range []*int32{
		&a.dim, &a.ws, &a.epoch, &a.minCount, &a.neg, &a.wordNgrams,
		(*int32)(&a.loss), (*int32)(&a.model),
		&a.bucket, &a.minn, &a.maxn, &a.lrUpdateRate,
	} {
		v, err := r.int32()
		if err != nil {
			return a, fmt.Errorf("args lesen: %w", err)
		}
		*dst = v
	}
	t, err := r.float64()
	if err != nil {
		return a, fmt.Errorf("args lesen: %w", err)
	}
	a.t = t
	return a, nil
}

// denseMatrix haelt die Eingabematrix als flaches float32-Feld. Bei
// lid.176 sind das mehrere Millionen Zeilen, float64 wuerde den
// Speicherbedarf verdoppeln.
type denseMatrix struct {
	rows int
	cols int
	data []float32
}

func (m *denseMatrix) row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

func readMatrix(r *binReader) (*denseMatrix, error) {
	rows, err := r.int64()
	if err != nil {
		return nil, fmt.Errorf("matrix lesen: %w", err)
	}
	cols, err := r.int64()
	if err != nil {
		return nil, fmt.Errorf("matrix lesen: %w", err)
	}
	if rows <= 0 || cols <= 0 || rows*cols > 1<<31 {
		return nil, fmt.Errorf("%w: matrixdimensionen %dx%d", ErrBadFormat, rows, cols)
	}

	data := make([]float32, rows*cols)
	buf := make([]byte, 4*cols)
	for i := int64(0); i < rows; i++ {
		if _, err := io.ReadFull(r.r, buf); err != nil {
			return nil, fmt.Errorf("matrix lesen: %w", err)
		}
		base := i * cols
		for j := int64(0); j < cols; j++ {
			data[base+j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
	}

	return &denseMatrix{rows: int(rows), cols: int(cols), data: data}, nil
}
