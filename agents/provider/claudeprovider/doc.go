/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package claudeprovider implements inference.Provider over the Anthropic
Messages API, either directly or through Vertex AI:

	p, err := claudeprovider.New(ctx, claudeprovider.WithAPIKey(key))

	p, err := claudeprovider.New(ctx, claudeprovider.WithVertex("us-east5", projectID))

System messages become the request's system blocks. The Messages API has no
schema constrained decoding, so a requested schema is appended to the system
prompt as an instruction and the reply is validated by the caller like any
other provider's.
*/
package claudeprovider
