package form

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://voucher-workflow.local/schemas/"

// One schema per entry form, selected by the voucher type discriminant.
// Food and conveyance share the itemized form.
var schemaFiles = map[entity.VoucherType]string{
	entity.TypePettyCashSlip:     "petty_cash.json",
	entity.TypeCreditVoucher:     "credit.json",
	entity.TypeDebitVoucher:      "debit.json",
	entity.TypeFoodVoucher:       "itemized.json",
	entity.TypeConveyanceVoucher: "itemized.json",
}

// Registry holds the compiled entry form schemas
type Registry struct {
	schemas map[entity.VoucherType]*jsonschema.Schema
}

// NewRegistry compiles every embedded schema
func NewRegistry() (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		if err := compiler.AddResource(schemaBase+e.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", e.Name(), err)
		}
	}

	r := &Registry{schemas: make(map[entity.VoucherType]*jsonschema.Schema, len(schemaFiles))}
	compiled := make(map[string]*jsonschema.Schema)
	for t, file := range schemaFiles {
		s, ok := compiled[file]
		if !ok {
			s, err = compiler.Compile(schemaBase + file)
			if err != nil {
				return nil, fmt.Errorf("compile schema %s: %w", file, err)
			}
			compiled[file] = s
		}
		r.schemas[t] = s
	}
	return r, nil
}

// Supports reports whether an entry form exists for the type
func (r *Registry) Supports(t entity.VoucherType) bool {
	_, ok := r.schemas[t]
	return ok
}

// Validate checks a decoded JSON document against the form of type t.
// The first violation is returned as *entity.ValidationError.
func (r *Registry) Validate(t entity.VoucherType, doc interface{}) error {
	s, ok := r.schemas[t]
	if !ok {
		if !t.IsValid() {
			return entity.NewValidationError("type", "unknown voucher type %q", t)
		}
		return &entity.UnsupportedVariantError{Type: t, Context: "entry form"}
	}

	err := s.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate %s form: %w", t, err)
	}
	leaf := firstLeaf(ve)
	return &entity.ValidationError{Field: fieldOf(leaf), Message: leaf.Message}
}

func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// fieldOf turns "/details/0/amount" into "details[0].amount" and names the
// missing property of a required violation
func fieldOf(ve *jsonschema.ValidationError) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.Trim(ve.InstanceLocation, "/"), "/") {
		if part == "" {
			continue
		}
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}

	if strings.HasPrefix(ve.Message, "missing properties") {
		if _, rest, ok := strings.Cut(ve.Message, "'"); ok {
			name, _, _ := strings.Cut(rest, "'")
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(name)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
