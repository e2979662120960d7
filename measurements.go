// This file converts per-shot measurement memory into shot tables.

package ibmq

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// A BitOrder selects how the characters of a memory bitstring map onto the
// columns of a ShotTable.
type BitOrder int

// These are the values a BitOrder can accept.
const (
	// BitOrderClassical puts classical bit i in column i.  Memory strings
	// list the highest-numbered bit first, so each string is reversed.
	BitOrderClassical BitOrder = iota

	// BitOrderString keeps the characters in the order they appear.
	BitOrderString
)

// A ShotTable holds measurement outcomes, one row per shot and one column per
// classical bit.  Each entry is 0 or 1.
type ShotTable [][]uint8

// Shots returns the number of rows.
func (t ShotTable) Shots() int {
	return len(t)
}

// Bits returns the number of columns.
func (t ShotTable) Bits() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// Column returns the outcomes of classical bit b across all shots.
func (t ShotTable) Column(b int) []uint8 {
	col := make([]uint8, len(t))
	for i, row := range t {
		col[i] = row[b]
	}
	return col
}

// Counts returns a histogram of rows, keyed by the row's digits in column
// order.
func (t ShotTable) Counts() map[string]int {
	counts := make(map[string]int)
	var sb strings.Builder
	for _, row := range t {
		sb.Reset()
		for _, v := range row {
			sb.WriteByte('0' + v)
		}
		counts[sb.String()]++
	}
	return counts
}

// BinStrToTable converts per-shot bitstrings into a ShotTable using
// BitOrderClassical, so each string is read right to left: the memory
// {"01", "11"} yields the table {{1, 0}, {1, 1}}.  Use ParseMemory with
// BitOrderString to keep each row in the strings' left-to-right order.
func BinStrToTable(memory []string) (ShotTable, error) {
	return ParseMemory(memory, BitOrderClassical)
}

// ParseMemory converts per-shot bitstrings into a ShotTable.  Spaces, which
// separate classical registers, are ignored.  Every string must contain the
// same number of bits.
func ParseMemory(memory []string, order BitOrder) (ShotTable, error) {
	table := make(ShotTable, len(memory))
	width := -1
	for i, m := range memory {
		bits := strings.ReplaceAll(m, " ", "")
		if width < 0 {
			width = len(bits)
		} else if len(bits) != width {
			return nil, errors.Errorf("shot %d has %d bits; expected %d", i, len(bits), width)
		}
		row := make([]uint8, width)
		for j := 0; j < width; j++ {
			ch := bits[j]
			if ch != '0' && ch != '1' {
				return nil, errors.Errorf("shot %d contains non-binary character %q", i, ch)
			}
			col := j
			if order == BitOrderClassical {
				col = width - 1 - j
			}
			row[col] = ch - '0'
		}
		table[i] = row
	}
	return table, nil
}

// expandMemory converts any hexadecimal ("0x...") memory entries to bitstrings
// of the given width.  Binary entries are passed through.
func expandMemory(memory []string, width int) ([]string, error) {
	out := make([]string, len(memory))
	for i, m := range memory {
		if !strings.HasPrefix(m, "0x") && !strings.HasPrefix(m, "0X") {
			out[i] = m
			continue
		}
		v, ok := new(big.Int).SetString(m[2:], 16)
		if !ok {
			return nil, errors.Errorf("shot %d: malformed hexadecimal memory %q", i, m)
		}
		s := v.Text(2)
		if v.Sign() == 0 {
			s = ""
		}
		if len(s) > width {
			return nil, errors.Errorf("shot %d: %s does not fit in %d bits", i, m, width)
		}
		out[i] = strings.Repeat("0", width-len(s)) + s
	}
	return out, nil
}

// formatMemory renders measured classical bits as a memory bitstring, highest
// bit first.
func formatMemory(bits []uint8) string {
	b := make([]byte, len(bits))
	for i, v := range bits {
		b[len(bits)-1-i] = '0' + v
	}
	return string(b)
}
