package pin

import "fmt"

// UploadError reports a failed submission to the storage network. It carries
// the label of the record that failed so the orchestrator can decide whether
// the failure is fatal.
type UploadError struct {
	Label   string
	Message string
	Cause   error
}

func (e *UploadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upload failed for %s: %s: %v", e.Label, e.Message, e.Cause)
	}
	return fmt.Sprintf("upload failed for %s: %s", e.Label, e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}
