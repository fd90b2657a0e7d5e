// Package workflow models CI workflow files as order-preserving YAML trees.
//
// # Trigger section
//
// A workflow's trigger section is the top-level key whose text is exactly
// "on". The key is matched as written, so YAML 1.1 readings of the bare
// token as a boolean never come into play.
//
// # Parameters
//
// Jobs that call reusable workflows declare inputs under "with":
//
//	jobs:
//	  build:
//	    uses: org/templates/.github/workflows/build.yml@main
//	    with:
//	      python-version: "3.12"
//
// Each entry is a Param whose value can be replaced in place. Only scalar
// values are accepted; nested mappings or sequences are rejected.
//
// Documents are re-encoded with two-space indentation. Keys keep their
// original order and comments survive a parse/encode round trip.
package workflow
