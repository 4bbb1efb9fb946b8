package dicom

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// parseHeader reads the elements of a DICOM file without its pixel data.
// Elements are collected until the first parse error so that files with a
// damaged tail still contribute their header.
func parseHeader(data []byte) (dicom.Dataset, error) {
	p, err := dicom.NewParser(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return dicom.Dataset{}, err
	}

	var elements []*dicom.Element
	for {
		elem, err := p.Next()
		if err != nil {
			break
		}
		elements = append(elements, elem)
	}

	if len(elements) == 0 {
		return dicom.Dataset{}, fmt.Errorf("no elements parsed")
	}

	meta := p.GetMetadata()
	return dicom.Dataset{Elements: append(meta.Elements, elements...)}, nil
}

// stringValue returns the display value of t, or "" when absent.
func stringValue(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(elem.Value.String(), " []"))
}

// intValue returns the integer value of t, or 0 when absent or malformed.
func intValue(ds dicom.Dataset, t tag.Tag) int {
	n, err := strconv.Atoi(stringValue(ds, t))
	if err != nil {
		return 0
	}
	return n
}

// fieldValues reads every registered field of scope present in ds.
func fieldValues(ds dicom.Dataset, scope Scope) map[string]string {
	values := make(map[string]string)
	for _, field := range FieldsInScope(scope) {
		if v := stringValue(ds, field.Tag); v != "" {
			values[field.Name] = v
		}
	}
	return values
}
