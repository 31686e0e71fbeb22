/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package conversation models the role-tagged messages exchanged with a model.

A Message carries a Role and an ordered list of content parts. A Part is one
of exactly two variants, built with Text or Image:

	msgs := []conversation.Message{
		conversation.System("You are a quiz contestant."),
		conversation.User(conversation.Text("How many goals?")),
		conversation.User(conversation.Image("https://example.com/q1.png")),
	}

Handle parts with an exhaustive type switch:

	switch p := part.(type) {
	case conversation.TextPart:
		fmt.Println(p.Text)
	case conversation.ImagePart:
		fmt.Println(p.URL)
	}

Message order and part order are replayed to the model verbatim. The JSON
encoding matches the chat-completions wire shape, so a serialized
conversation can be read back with json.Unmarshal.
*/
package conversation
