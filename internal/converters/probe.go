package converters

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Probe parses the document structure and counts its pages without
// rendering anything.
func Probe(data []byte) (*FileInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("probe: empty document")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}

	return &FileInfo{
		MimeType: "application/pdf",
		Pages:    pages,
		Size:     int64(len(data)),
	}, nil
}

func requirePages(data []byte) error {
	info, err := Probe(data)
	if err != nil {
		return err
	}
	if info.Pages == 0 {
		return ErrNoPages
	}
	return nil
}
