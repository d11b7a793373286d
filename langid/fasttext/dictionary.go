// dictionary.go - fastText-Woerterbuch mit Subwort-Hashing
//
// Dieses Modul enthaelt:
// - dictionary: Vokabular, Labels und Pruning-Index
// - lineIDs: Eingabezeile in Vektor-Indizes verwandeln
// - computeSubwords: Zeichen-n-Gramme mit dem fastText-Hash
//
// Hashing und Vorzeichenbehandlung muessen exakt dem C++-Original
// entsprechen, sonst landen Subwoerter in anderen Buckets und die
// Vorhersagen weichen ab.
package fasttext

import (
	"fmt"
	"strings"
)

const (
	labelPrefix = "__label__"
	eosToken    = "</s>"
	bowMark     = "<"
	eowMark     = ">"
)

type entryType int8

const (
	entryWord  entryType = 0
	entryLabel entryType = 1
)

type entry struct {
	word  string
	count int64
	typ   entryType
}

type dictionary struct {
	args     *args
	size     int32
	nwords   int32
	nlabels  int32
	ntokens  int64
	words    []entry
	word2id  map[string]int32
	pruneidx map[int32]int32
	// -1 bedeutet unbeschnitten, so speichert es auch fastText
	pruneidxSize int64
}

func readDictionary(r *binReader, a *args) (*dictionary, error) {
	d := &dictionary{args: a, pruneidx: map[int32]int32{}}

	var err error
	if d.size, err = r.int32(); err != nil {
		return nil, fmt.Errorf("woerterbuch lesen: %w", err)
	}
	if d.nwords, err = r.int32(); err != nil {
		return nil, fmt.Errorf("woerterbuch lesen: %w", err)
	}
	if d.nlabels, err = r.int32(); err != nil {
		return nil, fmt.Errorf("woerterbuch lesen: %w", err)
	}
	if d.ntokens, err = r.int64(); err != nil {
		return nil, fmt.Errorf("woerterbuch lesen: %w", err)
	}
	if d.pruneidxSize, err = r.int64(); err != nil {
		return nil, fmt.Errorf("woerterbuch lesen: %w", err)
	}
	if d.size < 0 || d.size > 1<<28 {
		return nil, fmt.Errorf("%w: woerterbuchgroesse %d", ErrBadFormat, d.size)
	}

	d.words = make([]entry, d.size)
	d.word2id = make(map[string]int32, d.size)
	for i := int32(0); i < d.size; i++ {
		word, err := r.cstring()
		if err != nil {
			return nil, fmt.Errorf("woerterbuch lesen: %w", err)
		}
		count, err := r.int64()
		if err != nil {
			return nil, fmt.Errorf("woerterbuch lesen: %w", err)
		}
		typ, err := r.int8()
		if err != nil {
			return nil, fmt.Errorf("woerterbuch lesen: %w", err)
		}
		d.words[i] = entry{word: word, count: count, typ: entryType(typ)}
		d.word2id[word] = i
	}

	for i := int64(0); i < d.pruneidxSize; i++ {
		first, err := r.int32()
		if err != nil {
			return nil, fmt.Errorf("pruning-index lesen: %w", err)
		}
		second, err := r.int32()
		if err != nil {
			return nil, fmt.Errorf("pruning-index lesen: %w", err)
		}
		d.pruneidx[first] = second
	}

	return d, nil
}

func (d *dictionary) pruned() bool {
	return d.pruneidxSize >= 0
}

func (d *dictionary) id(w string) int32 {
	if id, ok := d.word2id[w]; ok {
		return id
	}
	return -1
}

func (d *dictionary) label(i int32) string {
	return strings.TrimPrefix(d.words[d.nwords+i].word, labelPrefix)
}

// lineIDs zerlegt eine Zeile in die Indizes aller Eingabevektoren:
// Woerter, deren Subwoerter und Wort-n-Gramme. Labels im Text werden
// fuer die Vorhersage ignoriert. Die Zeile bekommt wie im Original ein
// angehaengtes </s>.
func (d *dictionary) lineIDs(text string) []int32 {
	var ids []int32
	var wordHashes []int32

	for _, tok := range append(strings.Fields(text), eosToken) {
		h := hash(tok)
		wid := d.id(tok)

		typ := entryWord
		if wid >= 0 {
			typ = d.words[wid].typ
		} else if strings.HasPrefix(tok, labelPrefix) {
			typ = entryLabel
		}
		if typ != entryWord {
			continue
		}

		d.addSubwords(&ids, tok, wid)
		wordHashes = append(wordHashes, int32(h))
	}

	d.addWordNgrams(&ids, wordHashes)
	return ids
}

func (d *dictionary) addSubwords(ids *[]int32, token string, wid int32) {
	if wid < 0 {
		if token != eosToken {
			d.computeSubwords(bowMark+token+eowMark, ids)
		}
		return
	}
	*ids = append(*ids, wid)
	if d.args.maxn > 0 {
		d.computeSubwords(bowMark+d.words[wid].word+eowMark, ids)
	}
}

// computeSubwords laeuft byteweise ueber das Wort, beginnt n-Gramme nur
// an UTF-8-Zeichenanfaengen und ueberspringt das 1-Gramm an Wortanfang
// und -ende (das waeren nur die Markierungen).
func (d *dictionary) computeSubwords(word string, ids *[]int32) {
	for i := 0; i < len(word); i++ {
		if word[i]&0xC0 == 0x80 {
			continue
		}
		var ngram []byte
		for j, n := i, int32(1); j < len(word) && n <= d.args.maxn; n++ {
			ngram = append(ngram, word[j])
			j++
			for j < len(word) && word[j]&0xC0 == 0x80 {
				ngram = append(ngram, word[j])
				j++
			}
			if n >= d.args.minn && !(n == 1 && (i == 0 || j == len(word))) {
				d.pushHash(ids, int32(hash(string(ngram))%uint32(d.args.bucket)))
			}
		}
	}
}

func (d *dictionary) pushHash(ids *[]int32, h int32) {
	if d.pruneidxSize == 0 || h < 0 {
		return
	}
	if d.pruneidxSize > 0 {
		v, ok := d.pruneidx[h]
		if !ok {
			return
		}
		h = v
	}
	*ids = append(*ids, d.nwords+h)
}

// addWordNgrams kombiniert die Wort-Hashes benachbarter Woerter. Die
// Vorzeichenerweiterung von int32 nach uint64 ist Absicht, das
// C++-Original rechnet genauso.
func (d *dictionary) addWordNgrams(ids *[]int32, hashes []int32) {
	n := int(d.args.wordNgrams)
	for i := range hashes {
		h := uint64(int64(hashes[i]))
		for j := i + 1; j < len(hashes) && j < i+n; j++ {
			h = h*116049371 + uint64(int64(hashes[j]))
			d.pushHash(ids, int32(h%uint64(d.args.bucket)))
		}
	}
}

// hash ist die FNV-1a-Variante aus fastText; das Byte wird vor dem
// XOR vorzeichenerweitert.
func hash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(int8(s[i]))
		h *= 16777619
	}
	return h
}
