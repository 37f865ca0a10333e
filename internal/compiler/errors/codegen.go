package errors

import (
	"fmt"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// Code generation error codes (GEN600-699)
const (
	// ErrCodeGenFailed indicates a general code generation failure
	ErrCodeGenFailed ErrorCode = "GEN600"
	// ErrInvalidGoIdentifier indicates a name that can't be converted to valid Go
	ErrInvalidGoIdentifier ErrorCode = "GEN601"
)

// NewCodeGenFailed creates a GEN600 error
func NewCodeGenFailed(loc decl.SourceLocation, reason string) *CompilerError {
	return newError(
		ErrCodeGenFailed,
		"codegen_failed",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Code generation failed: %s", reason),
		loc,
	).WithSuggestion("Endpoint types, their handler methods and parameter types must be exported so the generated package can reference them")
}

// NewInvalidGoIdentifier creates a GEN601 error
func NewInvalidGoIdentifier(loc decl.SourceLocation, name, reason string) *CompilerError {
	return newError(
		ErrInvalidGoIdentifier,
		"invalid_go_identifier",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Cannot use '%s' as a Go package name: %s", name, reason),
		loc,
	).WithSuggestion("Set output.package in endpointgen.yaml to a valid Go identifier")
}
