package ibmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBinStrToTable ensures column i of the table holds classical bit i.
func TestBinStrToTable(t *testing.T) {
	table, err := BinStrToTable([]string{"01", "11", "00"})
	require.NoError(t, err)
	assert.Equal(t, ShotTable{{1, 0}, {1, 1}, {0, 0}}, table)
	assert.Equal(t, 3, table.Shots())
	assert.Equal(t, 2, table.Bits())
	assert.Equal(t, []uint8{1, 1, 0}, table.Column(0))
	assert.Equal(t, []uint8{0, 1, 0}, table.Column(1))

	literal, err := ParseMemory([]string{"01", "11", "00"}, BitOrderString)
	require.NoError(t, err)
	assert.Equal(t, ShotTable{{0, 1}, {1, 1}, {0, 0}}, literal)
}

// TestParseMemoryOrders ensures both bit orders are honored and register
// separators are ignored.
func TestParseMemoryOrders(t *testing.T) {
	mem := []string{"10 0", "01 1"}

	classical, err := ParseMemory(mem, BitOrderClassical)
	require.NoError(t, err)
	assert.Equal(t, ShotTable{{0, 0, 1}, {1, 1, 0}}, classical)

	str, err := ParseMemory(mem, BitOrderString)
	require.NoError(t, err)
	assert.Equal(t, ShotTable{{1, 0, 0}, {0, 1, 1}}, str)
}

// TestParseMemoryErrors ensures malformed memory is rejected.
func TestParseMemoryErrors(t *testing.T) {
	_, err := BinStrToTable([]string{"01", "1"})
	assert.Error(t, err)
	_, err = BinStrToTable([]string{"0x1"})
	assert.Error(t, err)
	_, err = BinStrToTable([]string{"012"})
	assert.Error(t, err)
}

// TestBinStrToTableEmpty ensures no shots give an empty table.
func TestBinStrToTableEmpty(t *testing.T) {
	table, err := BinStrToTable(nil)
	require.NoError(t, err)
	assert.Zero(t, table.Shots())
	assert.Zero(t, table.Bits())
	assert.Empty(t, table.Counts())
}

// TestShotTableCounts ensures rows are tallied in column order.
func TestShotTableCounts(t *testing.T) {
	table := ShotTable{{1, 0}, {1, 0}, {0, 1}}
	assert.Equal(t, map[string]int{"10": 2, "01": 1}, table.Counts())
}

// TestExpandMemory ensures hexadecimal memory is widened to the register size
// and binary memory passes through.
func TestExpandMemory(t *testing.T) {
	out, err := expandMemory([]string{"0x0", "0x5", "0X1f", "101"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"00000", "00101", "11111", "101"}, out)

	_, err = expandMemory([]string{"0x20"}, 5)
	assert.Error(t, err)
	_, err = expandMemory([]string{"0xzz"}, 5)
	assert.Error(t, err)

	out, err = expandMemory([]string{"0x0"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, out)
}

// TestFormatMemory ensures formatted memory decodes back to the same bits.
func TestFormatMemory(t *testing.T) {
	bits := []uint8{1, 0, 0, 1, 1}
	s := formatMemory(bits)
	assert.Equal(t, "11001", s)
	table, err := BinStrToTable([]string{s})
	require.NoError(t, err)
	assert.Equal(t, bits, table[0])
}
