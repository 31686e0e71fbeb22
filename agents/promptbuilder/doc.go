/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder renders stored prompt templates.

Templates use single-brace fields and doubled braces for literal braces:

	Transcript:
	{transcript}

	Reply as JSON such as {{"answer": 3}}.

A Prompt is parsed once and is immutable; Bind returns a new Prompt with one
more field bound, and Build fails while any field is still unbound:

	p, err := promptbuilder.NewPrompt(stored.UserPrompt)
	if err != nil {
		return err
	}
	p, err = p.Bind("transcript", transcript)
	if err != nil {
		return err
	}
	text, err := p.Build()

Render binds a whole set of values at once. Values for fields the template
does not use are ignored, which lets callers pass the same value set to every
template in a category:

	text, err := p.Render(map[string]string{
		"transcript": transcript,
		"image":      "",
	})

Substitution is single pass: braces inside a bound value are never parsed as
fields.

# Template Syntax

  - {name}: a field; name starts with a letter or underscore and continues
    with letters, digits or underscores
  - {{ and }}: a literal { and }
  - conversions and format specs ({name!r}, {name:>8}) and positional fields
    ({}, {0}) are rejected
*/
package promptbuilder
