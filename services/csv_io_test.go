package services

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"
)

const sampleCSV = "申請日期,股票代號,公司名稱\n2024/01/15,1234,甲公司\n2024/02/01,5678,\"乙,公司\"\n"

func TestReadTableUTF8WithBOM(t *testing.T) {
	table, err := ReadTable(strings.NewReader("\xEF\xBB\xBF"+sampleCSV), EncodingAuto)
	require.NoError(t, err)

	assert.Equal(t, []string{"申請日期", "股票代號", "公司名稱"}, table.Header)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "乙,公司", table.Rows[1][2])
}

func TestReadTableBig5(t *testing.T) {
	encoded, err := traditionalchinese.Big5.NewEncoder().String(sampleCSV)
	require.NoError(t, err)

	table, err := ReadTable(strings.NewReader(encoded), "big5")
	require.NoError(t, err)
	assert.Equal(t, models.ColumnStockCode, table.Header[1])
	assert.Equal(t, "甲公司", table.Rows[0][2])
}

func TestDecodeBytesDetectsNonUTF8(t *testing.T) {
	encoded, err := traditionalchinese.Big5.NewEncoder().String(strings.Repeat(sampleCSV, 20))
	require.NoError(t, err)

	decoded, name, err := DecodeBytes([]byte(encoded), "")
	require.NoError(t, err)
	assert.NotEqual(t, "utf-8", name)
	assert.NotEmpty(t, decoded)
}

func TestDecodeBytesUnknownEncoding(t *testing.T) {
	_, _, err := DecodeBytes([]byte("abc"), "klingon")
	assert.Error(t, err)
}

func TestDecodeBytesRejectsUTF8AsBig5(t *testing.T) {
	_, name, err := DecodeBytes([]byte(sampleCSV), "big5")
	require.Error(t, err)
	assert.Equal(t, "big5", name)

	var serviceErr *shared.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "DECODE_FAILED", serviceErr.Code)
}

func TestDecodeBytesRejectsInvalidUTF8(t *testing.T) {
	_, _, err := DecodeBytes([]byte{0xb4, 0xfa, 0xb8, 0xd5}, "utf-8")
	assert.Error(t, err)
}

func TestReadTableRaggedRows(t *testing.T) {
	table, err := ReadTable(strings.NewReader("a,b,c\n1,2\n3,4,5,6\n"), "utf-8")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4", "5", "6"}}, table.Rows)
}

func TestWriteTableQuoteAll(t *testing.T) {
	var buf bytes.Buffer
	table := models.Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", `say "hi"`}}}

	require.NoError(t, WriteTable(&buf, table, true))
	assert.Equal(t, "\"a\",\"b\"\n\"1\",\"say \"\"hi\"\"\"\n", buf.String())
}

func TestWriteTableMinimalQuoting(t *testing.T) {
	var buf bytes.Buffer
	table := models.Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "x,y"}}}

	require.NoError(t, WriteTable(&buf, table, false))
	assert.Equal(t, "a,b\n1,\"x,y\"\n", buf.String())
}

func TestTableFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	table, err := ReadTable(strings.NewReader(sampleCSV), "utf-8")
	require.NoError(t, err)

	require.NoError(t, WriteTableFile(path, table, false))
	reread, err := ReadTableFile(path, EncodingAuto)
	require.NoError(t, err)
	assert.Equal(t, table, reread)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestReadTableFileMissing(t *testing.T) {
	_, err := ReadTableFile(filepath.Join(t.TempDir(), "missing.csv"), "")
	assert.Error(t, err)
}
