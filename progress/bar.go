// bar.go - Fortschrittsbalken mit Rate- und ETA-Anzeige
// Enthaelt: Bar, Set, String (Rendering), Bucket-basierte Ratenglaettung
package progress

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/quickmt/quickmt/format"
)

// Bar ist eine Fortschrittszeile fuer einen Download bekannter Groesse.
type Bar struct {
	message      string
	messageWidth int

	maxValue     int64
	initialValue int64
	currentValue int64

	started time.Time
	stopped time.Time

	maxBuckets int
	buckets    []bucket
}

type bucket struct {
	updated time.Time
	value   int64
}

// NewBar erzeugt einen Balken; initialValue > 0 markiert bereits
// vorhandene Bytes (fortgesetzter Download).
func NewBar(message string, maxValue, initialValue int64) *Bar {
	b := Bar{
		message:      message,
		messageWidth: -1,
		maxValue:     maxValue,
		initialValue: initialValue,
		currentValue: initialValue,
		started:      time.Now(),
		maxBuckets:   10,
	}

	if initialValue >= maxValue {
		b.stopped = time.Now()
	}

	return &b
}

// formatDuration begrenzt die Darstellung auf zwei Einheiten.
func formatDuration(d time.Duration) string {
	switch {
	case d >= 100*time.Hour:
		return "99h+"
	case d >= time.Hour:
		return d.Round(time.Minute).String()
	default:
		return d.Round(time.Second).String()
	}
}

func (b *Bar) String() string {
	termWidth, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil {
		termWidth = 80
	}

	var pre strings.Builder
	if len(b.message) > 0 {
		message := strings.TrimSpace(b.message)
		if b.messageWidth > 0 && len(message) > b.messageWidth {
			message = message[:b.messageWidth]
		}

		fmt.Fprintf(&pre, "%s", message)
		if padding := b.messageWidth - pre.Len(); padding > 0 {
			pre.WriteString(repeat(" ", padding))
		}

		pre.WriteString(" ")
	}

	fmt.Fprintf(&pre, "%3.0f%%", b.percent())

	var suf strings.Builder
	// maximal 13 Zeichen: "999 MB/999 MB"
	if b.stopped.IsZero() {
		curValue := format.HumanBytes(b.currentValue)
		suf.WriteString(repeat(" ", 6-len(curValue)))
		suf.WriteString(curValue)
		suf.WriteString("/")

		maxValue := format.HumanBytes(b.maxValue)
		suf.WriteString(repeat(" ", 6-len(maxValue)))
		suf.WriteString(maxValue)

		rate := b.rate()
		// maximal 10 Zeichen: "  999 MB/s"
		if rate > 0 {
			suf.WriteString(" ")
			humanRate := format.HumanBytes(int64(rate))
			suf.WriteString(repeat(" ", 6-len(humanRate)))
			suf.WriteString(humanRate)
			suf.WriteString("/s")
		}

		// maximal 8 Zeichen: "  59m59s"
		if rate > 0 {
			suf.WriteString(" ")
			toComplete := float64(b.maxValue-b.currentValue) / rate
			eta := time.Duration(toComplete) * time.Second
			suf.WriteString(repeat(" ", 8-len(formatDuration(eta))))
			suf.WriteString(formatDuration(eta))
		}
	} else {
		suf.WriteString("  ")
		suf.WriteString(format.HumanBytes(b.maxValue))
		suf.WriteString("  ")

		elapsed := b.stopped.Sub(b.started)
		rate := float64(b.maxValue-b.initialValue) / elapsed.Seconds()
		suf.WriteString(format.HumanBytes(int64(rate)))
		suf.WriteString("/s")
		suf.WriteString("  ")
		suf.WriteString(formatDuration(elapsed))
	}

	var mid strings.Builder
	// 5 Zusatzzeichen: je zwei Begrenzer plus Leerzeichen an den Enden
	f := termWidth - pre.Len() - suf.Len() - 5
	n := int(float64(f) * b.percent() / 100)
	if f > 0 {
		mid.WriteString(" ▕")
		mid.WriteString(repeat("█", n))
		mid.WriteString(repeat(" ", f-n))
		mid.WriteString("▏ ")
	}

	return pre.String() + mid.String() + suf.String()
}

// Set aktualisiert den Fortschritt; Werte werden auf maxValue gekappt.
func (b *Bar) Set(value int64) {
	if value >= b.maxValue {
		value = b.maxValue
	}

	b.currentValue = value
	if b.currentValue >= b.maxValue {
		b.stopped = time.Now()
	}

	// Bucket-Updates auf eines pro Sekunde drosseln
	if len(b.buckets) == 0 || time.Since(b.buckets[len(b.buckets)-1].updated) > time.Second {
		b.buckets = append(b.buckets, bucket{
			updated: time.Now(),
			value:   value,
		})

		if len(b.buckets) > b.maxBuckets {
			b.buckets = b.buckets[1:]
		}
	}
}

func (b *Bar) percent() float64 {
	if b.maxValue > 0 {
		return float64(b.currentValue) / float64(b.maxValue) * 100
	}

	return 0
}

// rate mittelt ueber die juengsten Buckets statt ueber die Gesamtlaufzeit,
// damit Einbrueche der Verbindung schnell sichtbar werden.
func (b *Bar) rate() float64 {
	var numerator, denominator float64

	if !b.stopped.IsZero() {
		numerator = float64(b.currentValue - b.initialValue)
		denominator = b.stopped.Sub(b.started).Seconds()
	} else {
		switch len(b.buckets) {
		case 0:
			// noch keine Messpunkte
		case 1:
			numerator = float64(b.buckets[0].value - b.initialValue)
			denominator = b.buckets[0].updated.Sub(b.started).Seconds()
		default:
			first, last := b.buckets[0], b.buckets[len(b.buckets)-1]
			numerator = float64(last.value - first.value)
			denominator = last.updated.Sub(first.updated).Seconds()
		}
	}

	if denominator != 0 {
		return numerator / denominator
	}

	return 0
}

func repeat(s string, n int) string {
	if n > 0 {
		return strings.Repeat(s, n)
	}

	return ""
}
