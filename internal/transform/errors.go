package transform

import (
	"fmt"
	"strings"
)

// Stage names used in errors and logs.
const (
	StageTracks     = "tracks"
	StageAwards     = "awards"
	StageEnrichment = "enrichment"
)

// SchemaError reports required columns absent from a stage's input.
type SchemaError struct {
	Stage   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Stage, strings.Join(e.Missing, ", "))
}

// EmptyInputError reports a stage that received zero rows.
type EmptyInputError struct {
	Stage string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: input is empty", e.Stage)
}

// DecodeError reports malformed intermediate input: an undecodable payload
// (Row is -1) or a cell that cannot be coerced to its column type.
type DecodeError struct {
	Stage  string
	Row    int
	Column string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s: decode: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: decode row %d column %q: %v", e.Stage, e.Row, e.Column, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
