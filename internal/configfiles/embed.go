// Package configfiles provides the embedded example configuration.
// It is written out by the interactive check when no configuration exists.
package configfiles

import (
	_ "embed"
)

// ExampleName is the file name of the embedded example configuration
const ExampleName = "passportview.example.yaml"

//go:embed passportview.example.yaml
var example []byte

// GetConfigExample returns the documented example configuration
func GetConfigExample() []byte {
	return append([]byte(nil), example...)
}
