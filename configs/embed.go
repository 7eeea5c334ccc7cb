// Package configs provides the embedded configuration template for
// docudepth.
//
// The template is embedded at build time so 'docudepth init' can
// scaffold a .docudepth.yaml in any distribution of the binary.
package configs

import _ "embed"

// ProjectConfigTemplate is the template for the workspace-level
// configuration, written to .docudepth.yaml by 'docudepth init' when no
// config exists yet.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
