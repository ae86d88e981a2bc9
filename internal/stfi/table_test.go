package stfi

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable_Semicolon(t *testing.T) {
	input := "ISIN Code;Prezzo;Rendimento\nIT0001;101,5;3,25\nIT0002;99;2\n"

	records, err := ParseTable(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "IT0001", records[0]["ISIN Code"])
	assert.Equal(t, 101.5, records[0]["Prezzo"])
	assert.Equal(t, 3.25, records[0]["Rendimento"])
	assert.Equal(t, 99.0, records[1]["Prezzo"])
}

func TestParseTable_Comma(t *testing.T) {
	input := "ISIN Code,Prezzo\nIT0001,101.5\n"

	records, err := ParseTable(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 101.5, records[0]["Prezzo"])
}

func TestParseTable_DropsUnnamedColumns(t *testing.T) {
	input := "ISIN Code;Prezzo;Unnamed: 2\nIT0001;100;junk\n"

	records, err := ParseTable(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	_, present := records[0]["Unnamed: 2"]
	assert.False(t, present)
	assert.Len(t, records[0], 2)
}

func TestParseTable_EmptyCellsAreNil(t *testing.T) {
	input := "ISIN Code;Prezzo;Durata\nIT0001;;4,5\n"

	records, err := ParseTable(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	price, present := records[0]["Prezzo"]
	assert.True(t, present)
	assert.Nil(t, price)
	assert.Equal(t, 4.5, records[0]["Durata"])
}

func TestParseTable_ShortRowPadsNil(t *testing.T) {
	input := "ISIN Code;Prezzo;Durata\nIT0001;100\n"

	records, err := ParseTable(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)

	durata, present := records[0]["Durata"]
	assert.True(t, present)
	assert.Nil(t, durata)
}

func TestParseTable_Empty(t *testing.T) {
	_, err := ParseTable(context.Background(), strings.NewReader("  \n"))
	assert.Error(t, err)
}

func TestConvertCell(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"98,75", 98.75},
		{"98.75", 98.75},
		{"100", 100.0},
		{"IT0001234567", "IT0001234567"},
		{"29/08/2026", "29/08/2026"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, convertCell(tt.in), "input %q", tt.in)
	}
}
