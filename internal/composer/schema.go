package composer

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/stemsi/qbank-console/internal/model"
)

//go:embed payload.schema.json
var payloadSchema []byte

// ErrPayloadContract is wrapped by Verify when a payload breaks the wire contract.
var ErrPayloadContract = errors.New("payload violates wire contract")

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(payloadSchema))
	})
	return schema, schemaErr
}

// Verify checks p against the embedded wire contract. A payload built by
// Compose from a valid draft always passes; a failure means the composer and
// the validator disagree.
func Verify(p model.WirePayload) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load payload schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(p))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrPayloadContract, strings.Join(msgs, "; "))
}
