package corpus

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/testutil"
)

func TestRead(t *testing.T) {
	input := "\xEF\xBB\xBFid,description,category,amount,operation_date,type\n" +
		"2195,Zabka NANO Warszawa,Żabka Nano,\"-8,49\",01-05-2024,SETTLEMENT\n" +
		"2196,Czynsz@Wspolnota->PL61,,\"-1800,00\",02-05-2024,\n"

	records, err := Read(strings.NewReader(input), DefaultDelimiter)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, model.CategoryRecord{
		ID:            2195,
		Description:   "Zabka NANO Warszawa",
		Category:      "Żabka Nano",
		Amount:        "-8,49",
		OperationDate: testutil.BaseDate,
		Kind:          model.KindCardSettlement,
	}, records[0])
	assert.Empty(t, records[1].Category)
	assert.Empty(t, records[1].Kind)
}

func TestRead_Semicolon(t *testing.T) {
	input := "id;description;category;amount;operation_date\n7;Lidl;Food;-1,00;01-05-2024\n"

	records, err := Read(strings.NewReader(input), ';')
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "-1,00", records[0].Amount)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		input   string
	}{
		{name: "bad date", input: "id,description,operation_date\n1,Lidl,2024-05-01\n"},
		{name: "bad id", input: "id,description,operation_date\nx,Lidl,01-05-2024\n"},
		{name: "no description", input: "id,description,operation_date\n1,,01-05-2024\n", wantErr: common.ErrInvalidTransaction},
		{name: "unknown type", input: "id,description,operation_date,type\n1,Lidl,01-05-2024,REFUND\n", wantErr: common.ErrUnsupportedKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), DefaultDelimiter)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWriteThenRead(t *testing.T) {
	records := testutil.FixtureTransfers.Records()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records, DefaultDelimiter))
	assert.True(t, strings.HasPrefix(buf.String(), "id,description,category,amount,operation_date,type\n"))

	got, err := Read(&buf, DefaultDelimiter)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "corpus.csv")
	records := testutil.FixtureGroceries.Records()

	require.NoError(t, WriteFile(path, records, DefaultDelimiter))
	got, err := ReadFile(path, DefaultDelimiter)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"), DefaultDelimiter)
	assert.Error(t, err)
}
