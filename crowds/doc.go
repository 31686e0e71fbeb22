/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package crowds holds the pieces shared by the evaluation pipeline packages.
//
// The pipeline reads questions, prompt templates and personas from a record
// store, signs image links in a blob namespace, renders conversations and
// sends them to a model through agents/inference.
package crowds
