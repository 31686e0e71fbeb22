/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package instruction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/promptbuilder"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
)

// PersonaToken in a system prompt is replaced by the persona description.
const PersonaToken = "{persona}"

// ImageMarker delimits where a template places the question image.
const ImageMarker = "###IMAGE###"

var (
	// imageLine is a marker on a line of its own, with the preceding line
	// breaks and the following ones. LF and CRLF endings both match.
	imageLine = regexp.MustCompile(`(?:\r?\n)*[ \t]*###IMAGE###[ \t]*(?:(?:\r?\n)+|$)`)
	// imageLineStart is a marker opening a line that goes on with text.
	imageLineStart = regexp.MustCompile(`(?m)^[ \t]*###IMAGE###[ \t]*`)
	// imageBetweenWords is an inline marker with blanks on both sides.
	imageBetweenWords = regexp.MustCompile(`[ \t]+###IMAGE###[ \t]+`)
)

// BuildMessages renders p for one question: the system prompt, the user
// prompt with transcript filled in and image markers removed, and, when
// imageURL is set, a final user message carrying only the image.
func BuildMessages(p entity.Prompt, transcript string, imageURL *string) ([]conversation.Message, error) {
	return build(p.SystemPrompt, p, map[string]string{
		"transcript": transcript,
		"image":      "",
	}, imageURL)
}

// BuildPersonaMessages is BuildMessages answered as persona. The persona
// description replaces PersonaToken in the system prompt, or is put in front
// of it when the token is absent. The user prompt may use {persona} too.
func BuildPersonaMessages(p entity.Prompt, persona entity.Persona, transcript string, imageURL *string) ([]conversation.Message, error) {
	desc := persona.ToPrompt()
	system := p.SystemPrompt
	switch {
	case strings.Contains(system, PersonaToken):
		system = strings.ReplaceAll(system, PersonaToken, desc)
	case system == "":
		system = desc
	default:
		system = desc + "\n\n" + system
	}
	return build(system, p, map[string]string{
		"transcript": transcript,
		"image":      "",
		"persona":    desc,
	}, imageURL)
}

func build(system string, p entity.Prompt, values map[string]string, imageURL *string) ([]conversation.Message, error) {
	tmpl, err := promptbuilder.NewPrompt(p.UserPrompt)
	if err != nil {
		return nil, fmt.Errorf("parsing user prompt of %q: %w", p.TemplateName, err)
	}
	user, err := tmpl.Render(values)
	if err != nil {
		return nil, fmt.Errorf("rendering user prompt of %q: %w", p.TemplateName, err)
	}
	user = StripImageMarkers(user)

	msgs := []conversation.Message{
		conversation.System(system),
		conversation.User(conversation.Text(user)),
	}
	if imageURL != nil && *imageURL != "" {
		msgs = append(msgs, conversation.User(conversation.Image(*imageURL)))
	}
	return msgs, nil
}

// StripImageMarkers removes every image marker and trailing whitespace. A
// marker on its own line is dropped with its line breaks; an inline marker
// between words leaves a single space. No marker survives.
func StripImageMarkers(s string) string {
	s = imageLine.ReplaceAllString(s, "")
	s = imageLineStart.ReplaceAllString(s, "")
	s = imageBetweenWords.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, ImageMarker, "")
	return strings.TrimRight(s, " \t\r\n")
}
