// Package tool turns plain Go functions into model-callable tools. A
// Definition pairs a function with the wire name, description, and parameter
// names advertised to the model; ToNameAndSchema derives the argument schema
// from the function signature and Call dispatches a model-issued invocation
// back onto the function.
package tool
