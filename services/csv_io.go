package services

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/saintfish/chardet"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// EncodingAuto detects the input encoding instead of trusting a fixed one.
const EncodingAuto = "auto"

var (
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
	replacementChar = []byte(string(utf8.RuneError))
)

// DecodeBytes converts data to UTF-8. An empty or "auto" encoding name keeps
// valid UTF-8 as is and otherwise asks chardet, defaulting to Big5. It returns
// the name of the encoding that was applied.
func DecodeBytes(data []byte, encodingName string) ([]byte, string, error) {
	name := strings.ToLower(strings.TrimSpace(encodingName))

	if name != "" && name != EncodingAuto {
		return decodeAs(data, name)
	}

	name = detectEncoding(data)
	decoded, used, err := decodeAs(data, name)
	if err != nil && name != "big5" {
		logrus.WithFields(logrus.Fields{
			"component": "CSVReader",
			"detected":  name,
		}).Debug("Detected encoding failed to decode, trying big5")
		return decodeAs(data, "big5")
	}
	return decoded, used, err
}

func decodeAs(data []byte, name string) ([]byte, string, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, name, shared.NewServiceError(shared.ErrorCategoryValidation, "UNKNOWN_ENCODING",
			fmt.Sprintf("unsupported encoding %q", name), "CSVReader", "DecodeBytes", false, err)
	}

	if enc == unicode.UTF8 {
		if !utf8.Valid(data) {
			return nil, name, shared.NewServiceError(shared.ErrorCategoryProcessing, "DECODE_FAILED",
				"cannot decode input as utf-8", "CSVReader", "DecodeBytes", false,
				fmt.Errorf("invalid utf-8 byte sequence"))
		}
		return bytes.TrimPrefix(data, utf8BOM), name, nil
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, name, shared.NewServiceError(shared.ErrorCategoryProcessing, "DECODE_FAILED",
			fmt.Sprintf("cannot decode input as %s", name), "CSVReader", "DecodeBytes", false, err)
	}
	// x/text decoders substitute U+FFFD for invalid sequences instead of failing.
	if bytes.Contains(decoded, replacementChar) && !bytes.Contains(data, replacementChar) {
		return nil, name, shared.NewServiceError(shared.ErrorCategoryProcessing, "DECODE_FAILED",
			fmt.Sprintf("cannot decode input as %s", name), "CSVReader", "DecodeBytes", false,
			fmt.Errorf("invalid %s byte sequence", name))
	}
	return bytes.TrimPrefix(decoded, utf8BOM), name, nil
}

func detectEncoding(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return "big5"
	}

	name := strings.ToLower(result.Charset)
	if _, err := lookupEncoding(name); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "CSVReader",
			"detected":  result.Charset,
		}).Debug("Detected encoding unsupported, using big5")
		return "big5"
	}

	logrus.WithFields(logrus.Fields{
		"component":  "CSVReader",
		"encoding":   name,
		"confidence": result.Confidence,
	}).Debug("Detected file encoding")
	return name
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch name {
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	case "big5", "big-5", "cp950":
		return traditionalchinese.Big5, nil
	}
	return htmlindex.Get(name)
}

// ReadRecords reads every CSV record from r after decoding it to UTF-8. Records
// may have differing lengths.
func ReadRecords(r io.Reader, encodingName string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv input: %w", err)
	}

	decoded, _, err := DecodeBytes(data, encodingName)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, "CSV_PARSE_FAILED",
			"malformed csv input", "CSVReader", "ReadRecords", false, err)
	}
	return records, nil
}

// ReadTable reads a CSV whose first record is the header.
func ReadTable(r io.Reader, encodingName string) (models.Table, error) {
	records, err := ReadRecords(r, encodingName)
	if err != nil {
		return models.Table{}, err
	}
	return TableFromRecords(records), nil
}

// TableFromRecords splits records into header and rows.
func TableFromRecords(records [][]string) models.Table {
	if len(records) == 0 {
		return models.Table{}
	}
	return models.Table{Header: records[0], Rows: records[1:]}
}

// ReadTableFile reads a CSV file into a table.
func ReadTableFile(path, encodingName string) (models.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Table{}, shared.NewServiceError(shared.ErrorCategoryResource, "FILE_OPEN_FAILED",
			fmt.Sprintf("cannot open %s", path), "CSVReader", "ReadTableFile", false, err)
	}
	defer file.Close()

	table, err := ReadTable(file, encodingName)
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "CSVReader",
		"path":      path,
		"rows":      table.Len(),
		"columns":   len(table.Header),
	}).Debug("Loaded csv table")

	return table, nil
}

// WriteTable writes the header and rows as UTF-8 CSV. With quoteAll every cell
// is wrapped in double quotes.
func WriteTable(w io.Writer, table models.Table, quoteAll bool) error {
	if !quoteAll {
		writer := csv.NewWriter(w)
		if len(table.Header) > 0 {
			if err := writer.Write(table.Header); err != nil {
				return err
			}
		}
		if err := writer.WriteAll(table.Rows); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
		return nil
	}

	buffered := bufio.NewWriter(w)
	if len(table.Header) > 0 {
		writeQuotedRecord(buffered, table.Header)
	}
	for _, row := range table.Rows {
		writeQuotedRecord(buffered, row)
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func writeQuotedRecord(w *bufio.Writer, record []string) {
	for i, cell := range record {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// WriteTableFile writes the table to path, creating parent directories.
func WriteTableFile(path string, table models.Table, quoteAll bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return shared.NewServiceError(shared.ErrorCategoryResource, "FILE_CREATE_FAILED",
			fmt.Sprintf("cannot create %s", path), "CSVWriter", "WriteTableFile", false, err)
	}

	if err := WriteTable(file, table, quoteAll); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
