package printer

import (
	"bytes"
	"strings"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Alignment
const (
	AlignLeft   byte = 0
	AlignCenter byte = 1
	AlignRight  byte = 2
)

// Character sizes for SetSize
const (
	SizeNormal byte = 0x00
	SizeDouble byte = 0x11
)

// Document accumulates an ESC/POS job. Width is in characters: 32 for 58mm
// paper, 48 for 80mm.
type Document struct {
	buf   bytes.Buffer
	width int
}

// NewDocument starts a job with the printer reset
func NewDocument(width int) *Document {
	if width <= 0 {
		width = 32
	}
	d := &Document{width: width}
	d.buf.Write([]byte{esc, '@'})
	return d
}

// Width returns the line width in characters
func (d *Document) Width() int { return d.width }

func (d *Document) Align(a byte) *Document {
	d.buf.Write([]byte{esc, 'a', a})
	return d
}

func (d *Document) Bold(on bool) *Document {
	var b byte
	if on {
		b = 1
	}
	d.buf.Write([]byte{esc, 'E', b})
	return d
}

func (d *Document) SetSize(size byte) *Document {
	d.buf.Write([]byte{gs, '!', size})
	return d
}

// Line writes s and a line feed. Text longer than the paper wraps on word
// boundaries.
func (d *Document) Line(s string) *Document {
	for _, l := range wrap(s, d.width) {
		d.buf.WriteString(l)
		d.buf.WriteByte(lf)
	}
	return d
}

func (d *Document) Feed(n int) *Document {
	d.buf.Write(bytes.Repeat([]byte{lf}, n))
	return d
}

func (d *Document) Rule(ch byte) *Document {
	d.buf.Write(bytes.Repeat([]byte{ch}, d.width))
	d.buf.WriteByte(lf)
	return d
}

// Pair prints label flush left and value flush right. A value that does not
// fit goes on its own right-aligned line.
func (d *Document) Pair(label, value string) *Document {
	gap := d.width - len(label) - len(value)
	if gap < 1 {
		d.buf.WriteString(label)
		d.buf.WriteByte(lf)
		gap = d.width - len(value)
		if gap < 0 {
			gap = 0
		}
		label = ""
	}
	d.buf.WriteString(label)
	d.buf.WriteString(strings.Repeat(" ", gap))
	d.buf.WriteString(value)
	d.buf.WriteByte(lf)
	return d
}

// Cut feeds past the tear bar and partially cuts the paper
func (d *Document) Cut() *Document {
	d.Feed(3)
	d.buf.Write([]byte{gs, 'V', 0x01})
	return d
}

func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

func wrap(s string, width int) []string {
	if len(s) <= width {
		return []string{s}
	}
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(s) {
		for len(word) > width {
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
