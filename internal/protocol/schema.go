package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://shadowbox.ai/schemas/"

// schemaFiles maps message types to their schema file.
var schemaFiles = map[string]string{
	TypeHello:    "hello.schema.json",
	TypeWelcome:  "welcome.schema.json",
	TypeSubmit:   "submit.schema.json",
	TypeAck:      "ack.schema.json",
	TypeAdvance:  "advance.schema.json",
	TypeRound:    "round.schema.json",
	TypeSolve:    "solve.schema.json",
	TypeSolution: "solution.schema.json",
	TypeError:    "error.schema.json",
}

// Validator checks raw messages against the embedded JSON schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	files, err := fs.Glob(schemaFS, "schemas/*.schema.json")
	if err != nil {
		return nil, err
	}
	for _, p := range files {
		raw, err := schemaFS.ReadFile(p)
		if err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(p, "schemas/")
		if err := c.AddResource(schemaBase+name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(schemaFiles))}
	for typ, name := range schemaFiles {
		s, err := c.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.schemas[typ] = s
	}
	return v, nil
}

// Validate checks raw against the schema for msgType.
func (v *Validator) Validate(msgType string, raw []byte) error {
	s, ok := v.schemas[msgType]
	if !ok {
		return fmt.Errorf("unknown message type %q", msgType)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// ValidateValue marshals msg and validates it. Used for outbound messages in
// tests and debug builds.
func (v *Validator) ValidateValue(msgType string, msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return v.Validate(msgType, raw)
}
