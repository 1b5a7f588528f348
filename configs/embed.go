// Package configs embeds the commented configuration template written by
// `elastickilla config init`.
//
// The template documents every setting with its default. Keep it in
// step with config.NewConfig.
package configs

import _ "embed"

// ConfigTemplate is the commented template for both the user config and
// a project's .elastickilla.yaml.
//
//go:embed config.example.yaml
var ConfigTemplate string
