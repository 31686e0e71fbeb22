/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/siliconcrowds/siliconcrowds/agents/schema"
)

type guess struct {
	Answer string `json:"answer"`
	Note   string `json:"note,omitempty"`
}

func (guess) JSONSchemaExtend(s *jsonschema.Schema) {
	s.Required = []string{"answer"}
	if p, ok := s.Properties.Get("answer"); ok {
		p.Pattern = `^\d{1,2}:[0-5]\d$`
	}
}

type count struct {
	N int `json:"n" jsonschema:"required,description=How many"`
}

func TestReflect(t *testing.T) {
	s := schema.ReflectType[count]()
	if s.Type != "object" {
		t.Errorf("type: got = %q, wanted = %q", s.Type, "object")
	}
	if len(s.Required) != 1 || s.Required[0] != "n" {
		t.Errorf("required: got = %v, wanted = [n]", s.Required)
	}
	n, ok := s.Properties.Get("n")
	if !ok {
		t.Fatal("missing property n")
	}
	if n.Type != "integer" || n.Description != "How many" {
		t.Errorf("property n: got = (%q, %q), wanted = (integer, How many)", n.Type, n.Description)
	}
}

func TestDecode(t *testing.T) {
	s, err := schema.For[guess]()
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if s.Name() != "guess" {
		t.Errorf("Name(): got = %q, wanted = %q", s.Name(), "guess")
	}

	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{{
		name:  "valid",
		input: `{"answer": "00:48"}`,
		want:  "00:48",
	}, {
		name:  "extra fields ignored",
		input: `{"answer": "29:57", "confidence": 0.3}`,
		want:  "29:57",
	}, {
		name:        "pattern mismatch",
		input:       `{"answer": "48 seconds"}`,
		wantErr:     true,
		errContains: "answer",
	}, {
		name:        "seconds out of range",
		input:       `{"answer": "01:75"}`,
		wantErr:     true,
		errContains: "pattern",
	}, {
		name:        "missing field",
		input:       `{}`,
		wantErr:     true,
		errContains: "answer",
	}, {
		name:        "not json",
		input:       `The answer is 00:48`,
		wantErr:     true,
		errContains: "invalid JSON",
	}, {
		name:        "empty",
		input:       ``,
		wantErr:     true,
		errContains: "invalid JSON",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Decode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var verr *schema.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Decode() error type: got = %T, wanted = *schema.ValidationError", err)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Decode() error = %q, want containing %q", err, tt.errContains)
				}
				return
			}
			if got.Answer != tt.want {
				t.Errorf("Decode(): got = %q, wanted = %q", got.Answer, tt.want)
			}
		})
	}
}

func TestParseReturnsTypedValue(t *testing.T) {
	s := schema.MustFor[count]()
	v, err := s.Parse(`{"n": 13}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, ok := v.(count)
	if !ok {
		t.Fatalf("Parse(): got type %T, wanted schema_test.count", v)
	}
	if got.N != 13 {
		t.Errorf("Parse(): got = %d, wanted = 13", got.N)
	}

	if _, err := s.Parse(`{"n": "thirteen"}`); err == nil {
		t.Error("Parse() with string for integer: got = nil error, wanted error")
	}
}

func TestValidateValue(t *testing.T) {
	v, err := schema.Compile("count", schema.ReflectType[count]())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := v.ValidateValue(map[string]any{"n": 4}); err != nil {
		t.Errorf("ValidateValue() error = %v", err)
	}
	if err := v.ValidateValue(map[string]any{}); err == nil {
		t.Error("ValidateValue() on missing field: got = nil, wanted error")
	}
}
