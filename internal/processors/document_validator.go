package processors

import (
	"context"
	"fmt"

	"github.com/docuflow/docuflow/internal/engine"
)

// DocumentValidator is a bundled validation processor: it fails documents
// missing the fields named in the step params.
type DocumentValidator struct{}

func NewDocumentValidator() *DocumentValidator { return &DocumentValidator{} }

func (p *DocumentValidator) Process(ctx context.Context, req engine.ProcessorRequest) (*engine.ProcessorResult, error) {
	fields := req.Document.ConditionFields()
	var missing []string
	for name, required := range req.Step.Config.Params {
		if required != "required" {
			continue
		}
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &engine.ProcessorResult{
			Success: false,
			Error:   fmt.Sprintf("document is missing required fields: %v", missing),
		}, nil
	}
	return &engine.ProcessorResult{Success: true}, nil
}
