package models

// StepKind selects the runner used to execute a workflow step. The set is
// closed: adding a kind means adding a runner, checked at engine construction.
type StepKind string

const (
	StepProcessor    StepKind = "processor"
	StepApproval     StepKind = "approval"
	StepNotification StepKind = "notification"
	StepIntegration  StepKind = "integration"
	StepCustom       StepKind = "custom"
)

func (k StepKind) Valid() bool {
	switch k {
	case StepProcessor, StepApproval, StepNotification, StepIntegration, StepCustom:
		return true
	}
	return false
}

// ProcessorType narrows what a processor step does to the document.
type ProcessorType string

const (
	ProcessorOCR            ProcessorType = "ocr"
	ProcessorClassification ProcessorType = "classification"
	ProcessorExtraction     ProcessorType = "extraction"
	ProcessorTransformation ProcessorType = "transformation"
	ProcessorValidation     ProcessorType = "validation"
)
