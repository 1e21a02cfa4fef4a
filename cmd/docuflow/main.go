package main

import (
	"log/slog"

	"github.com/docuflow/docuflow/internal/engine"
	"github.com/docuflow/docuflow/internal/integrations"
	"github.com/docuflow/docuflow/internal/processors"
	"github.com/docuflow/docuflow/pkg/docuflow"
)

func main() {

	//you may do your own logger setup here or use this default one with slog
	docuflow.SetupLogger()

	reg := docuflow.Registry{
		Processors: map[string]engine.Processor{
			"metadata-extractor": processors.NewMetadataExtractor(),
			"document-validator": processors.NewDocumentValidator(),
		},
		CustomRunners: map[string]engine.StepRunner{},
		Dispatcher:    integrations.NewLogDispatcher(),
	}

	if err := docuflow.Start(reg, nil); err != nil {
		slog.Error("Engine exited with error", "error", err)
	}
}
