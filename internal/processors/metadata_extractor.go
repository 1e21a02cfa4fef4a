package processors

import (
	"context"
	"strings"

	"github.com/docuflow/docuflow/internal/engine"
)

// MetadataExtractor is a bundled extraction processor: it derives simple
// facts from the document record itself. Real deployments register their OCR
// and classification services the same way.
type MetadataExtractor struct{}

func NewMetadataExtractor() *MetadataExtractor { return &MetadataExtractor{} }

func (p *MetadataExtractor) Process(ctx context.Context, req engine.ProcessorRequest) (*engine.ProcessorResult, error) {
	title := strings.TrimSpace(req.Document.Title)
	if title == "" {
		return &engine.ProcessorResult{Success: false, Error: "document has no title to extract from"}, nil
	}
	return &engine.ProcessorResult{
		Success: true,
		Output: map[string]any{
			"titleWords": len(strings.Fields(title)),
			"fileType":   req.Document.FileType,
			"language":   req.Document.Metadata.Language,
		},
	}, nil
}
