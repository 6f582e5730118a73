package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/forestplan/core/model"
)

var sample = []model.Assignment{
	{Block: "b2", Machine: "m1", Day: 2, Shift: 0, Hours: 8, Quantity: 16},
	{Block: "b1", Machine: "m2", Day: 1, Shift: 1, Hours: 5, Quantity: 7.5},
	{Block: "b1", Machine: "m1", Day: 1, Shift: 1, Hours: 4, Quantity: 8},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample))
	want := "block,machine,day,shift,quantity\n" +
		"b1,m1,1,1,8\n" +
		"b1,m2,1,1,7.5\n" +
		"b2,m1,2,0,16\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteJSONFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample[:1]))
	compact := new(bytes.Buffer)
	require.NoError(t, json.Compact(compact, buf.Bytes()))
	assert.Equal(t, `[{"block":"b2","machine":"m1","day":2,"shift":0,"quantity":16}]`, compact.String())
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "block,machine,day,shift,quantity\n", buf.String())
}

func TestReadCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample))
	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.Assignment{Block: "b1", Machine: "m1", Day: 1, Shift: 1, Quantity: 8}, got[0])
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("block_id,slot,volume\n"))
	assert.ErrorContains(t, err, "unexpected header")

	_, err = ReadCSV(strings.NewReader("block,machine,day,shift,quantity\nb1,m1,x,0,1\n"))
	assert.ErrorContains(t, err, "line 2: day")

	got, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
