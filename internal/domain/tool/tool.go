// Package tool defines the function declarations the assistant
// advertises to language model providers.
package tool

// Definition describes one callable action for the model. Parameters is
// a JSON schema object; providers translate it into their native
// function-calling format.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}
