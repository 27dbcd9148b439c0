package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ivlev/cloudtiles/internal/rle"
)

// Classes are the cloud formation labels of the dataset.
var Classes = []string{"Fish", "Flower", "Sugar", "Gravel"}

// Record is one row of the label table: the mask of one class on one image.
type Record struct {
	ImageID  string
	Label    string
	Encoding string
}

// HasMask reports whether the record carries an encoding.
func (r Record) HasMask() bool {
	return !rle.IsNoMask(r.Encoding)
}

// ParseImageLabel splits "0011165.jpg_Fish" into image and label.
func ParseImageLabel(s string) (image, label string, err error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("malformed image label %q", s)
	}
	return s[:i], s[i+1:], nil
}

// ReadRecords reads the Image_Label,EncodedPixels table. The first line is a
// header and is skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty label table")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read labels: %w", err)
		}
		img, label, err := ParseImageLabel(row[0])
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, Record{
			ImageID:  img,
			Label:    label,
			Encoding: strings.TrimSpace(row[1]),
		})
	}
	return records, nil
}

// WithMasks returns the records that carry an encoding.
func WithMasks(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.HasMask() {
			out = append(out, r)
		}
	}
	return out
}
