package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/qbank-console/internal/model"
)

// batchFile is a parent shell and its children authored in one file.
type batchFile struct {
	Parent   model.QuestionDraft   `json:"parent"`
	Children []model.QuestionDraft `json:"children"`
}

// readDraft loads a question draft from a JSON or YAML file.
func readDraft(path string) (model.QuestionDraft, error) {
	var d model.QuestionDraft
	if err := decodeFile(path, &d); err != nil {
		return model.QuestionDraft{}, err
	}
	return d, nil
}

func readBatch(path string) (batchFile, error) {
	var b batchFile
	if err := decodeFile(path, &b); err != nil {
		return batchFile{}, err
	}
	if len(b.Children) == 0 {
		return batchFile{}, fmt.Errorf("%s: batch has no children", path)
	}
	return b, nil
}

func decodeFile(path string, dst interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := decodeDocument(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// decodeDocument accepts JSON or YAML. YAML is normalised to JSON first so
// the model's json tags are the only field names that apply.
func decodeDocument(raw []byte, dst interface{}) error {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("parse document: empty")
	}

	normalised, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return fmt.Errorf("normalise document: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(normalised))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// jsonCompatible converts YAML maps with non-string keys into string-keyed
// maps that encoding/json can marshal.
func jsonCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = jsonCompatible(val)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return out
	case []interface{}:
		for i, val := range t {
			t[i] = jsonCompatible(val)
		}
		return t
	default:
		return v
	}
}
