/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewPrompt(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     map[string]struct{}
		wantErr  string
	}{{
		name:     "no fields",
		template: "plain text",
		want:     map[string]struct{}{},
	}, {
		name:     "single field",
		template: "Transcript: {transcript}",
		want:     map[string]struct{}{"transcript": {}},
	}, {
		name:     "repeated field",
		template: "{a} and {a} and {b}",
		want:     map[string]struct{}{"a": {}, "b": {}},
	}, {
		name:     "escaped braces",
		template: `Reply like {{"answer": 3}} about {topic}`,
		want:     map[string]struct{}{"topic": {}},
	}, {
		name:     "empty field",
		template: "oops {}",
		wantErr:  "invalid field",
	}, {
		name:     "format spec",
		template: "{n:>8}",
		wantErr:  "invalid field",
	}, {
		name:     "unclosed",
		template: "hello {name",
		wantErr:  "unclosed field",
	}, {
		name:     "single closing brace",
		template: "hello }",
		wantErr:  "single '}'",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPrompt(tt.template)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("NewPrompt() error = %v, wanted containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPrompt() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, p.GetBindings()); diff != "" {
				t.Errorf("GetBindings() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBindIsImmutable(t *testing.T) {
	p := MustNewPrompt("Hello {name}!")

	bound, err := p.Bind("name", "world")
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	got, err := bound.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if want := "Hello world!"; got != want {
		t.Errorf("Build() = %q, wanted %q", got, want)
	}

	if _, err := p.Build(); err == nil {
		t.Error("original prompt should still be unbound")
	}
	if _, err := bound.Bind("name", "again"); err == nil {
		t.Error("Bind() of an already bound field should fail")
	}
	if _, err := p.Bind("missing", "x"); err == nil {
		t.Error("Bind() of an unknown field should fail")
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		want     string
		wantErr  bool
	}{{
		name:     "ignores extra values",
		template: "Transcript:\n{transcript}",
		values:   map[string]string{"transcript": "hi", "image": ""},
		want:     "Transcript:\nhi",
	}, {
		name:     "missing value",
		template: "{transcript} {other}",
		values:   map[string]string{"transcript": "hi"},
		wantErr:  true,
	}, {
		name:     "values are not reparsed",
		template: "say {x}",
		values:   map[string]string{"x": "{x} {{y}}"},
		want:     "say {x} {{y}}",
	}, {
		name:     "escapes",
		template: `{{"answer": {n}}}`,
		values:   map[string]string{"n": "3"},
		want:     `{"answer": 3}`,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MustNewPrompt(tt.template).Render(tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, wanted %q", got, tt.want)
			}
		})
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNewPrompt() did not panic on a bad template")
		}
	}()
	MustNewPrompt("{")
}
