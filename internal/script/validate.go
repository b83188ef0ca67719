package script

import (
	"bytes"
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Validate checks a raw configuration document against the embedded CUE
// schema. It reports structural problems (unknown fields, wrong scalar
// types, invalid policy names) with positions where CUE provides them.
//
// Validate operates on the raw document rather than a decoded Configuration
// so that authoring errors surface with the vocabulary of the file the
// author wrote.
func Validate(data []byte) error {
	var raw any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("parse configuration: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile embedded schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup #Config: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError flattens CUE's multi-error into one readable error,
// keeping the first position for each sub-error.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	var buf bytes.Buffer
	for i, e := range errs {
		if i > 0 {
			buf.WriteString("; ")
		}
		positions := cueerrors.Positions(e)
		if len(positions) > 0 && positions[0].IsValid() {
			fmt.Fprintf(&buf, "%s: %s", positions[0], e.Error())
		} else {
			buf.WriteString(e.Error())
		}
	}
	return fmt.Errorf("invalid configuration: %s", buf.String())
}
