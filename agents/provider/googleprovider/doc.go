/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package googleprovider implements inference.Provider over Gemini, through
either the Gemini API or Vertex AI:

	p, err := googleprovider.New(ctx, googleprovider.WithAPIKey(key))

	p, err := googleprovider.New(ctx, googleprovider.WithVertex("us-central1", ""))

With Vertex and no project, the project is read from the GCE metadata
server. Structured requests set an application/json response MIME type and
pass the reflected schema as the response JSON schema. Thought parts are
returned as Reply.Reasoning.
*/
package googleprovider
