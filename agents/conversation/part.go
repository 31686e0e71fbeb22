/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PartType is the wire tag of a content part.
type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// Part is a single piece of message content. The only implementations are
// TextPart and ImagePart.
type Part interface {
	// Type returns the wire tag of the part.
	Type() PartType

	isPart()
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

// ImagePart references an image by URL.
type ImagePart struct {
	URL string
}

// Text builds a text part.
func Text(s string) Part { return TextPart{Text: s} }

// Image builds an image reference part.
func Image(url string) Part { return ImagePart{URL: url} }

func (TextPart) Type() PartType  { return PartText }
func (ImagePart) Type() PartType { return PartImageURL }

func (TextPart) isPart()  {}
func (ImagePart) isPart() {}

type wireImageURL struct {
	URL string `json:"url"`
}

type wirePart struct {
	Type     PartType      `json:"type"`
	Text     *string       `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

// MarshalJSON encodes the part as {"type":"text","text":...}.
func (p TextPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartText, Text: &p.Text})
}

// MarshalJSON encodes the part as {"type":"image_url","image_url":{"url":...}}.
func (p ImagePart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartImageURL, ImageURL: &wireImageURL{URL: p.URL}})
}

func decodePart(data json.RawMessage) (Part, error) {
	var wp wirePart
	if err := json.Unmarshal(data, &wp); err != nil {
		return nil, err
	}
	switch wp.Type {
	case PartText:
		if wp.Text == nil {
			return nil, errors.New("text part without text")
		}
		return Text(*wp.Text), nil
	case PartImageURL:
		if wp.ImageURL == nil || wp.ImageURL.URL == "" {
			return nil, errors.New("image_url part without url")
		}
		return Image(wp.ImageURL.URL), nil
	default:
		return nil, fmt.Errorf("unknown part type %q", wp.Type)
	}
}
