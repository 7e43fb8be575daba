package fhir

import (
	"fmt"

	r4 "github.com/samply/golang-fhir-models/fhir-models/fhir"
)

// ValidateEnvelope checks the Bundle envelope of data against the R4 model:
// coded members such as Bundle.type must carry a known code and every
// datatype must have its R4 shape. Entry resources are not inspected here.
func ValidateEnvelope(data []byte) error {
	if _, err := r4.UnmarshalBundle(data); err != nil {
		return fmt.Errorf("invalid bundle: %w", err)
	}
	return nil
}
