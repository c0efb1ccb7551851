// Package plugins is the builtin catalog: the fixed set of behavior
// modules compiled into the binary.
package plugins

import (
	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/plugin"
	"github.com/forgebot/forgebot/internal/plugins/assign"
	"github.com/forgebot/forgebot/internal/plugins/label"
	"github.com/forgebot/forgebot/internal/plugins/lgtm"
	"github.com/forgebot/forgebot/internal/plugins/welcome"
)

// Builtin returns the full builtin plugin catalog in a stable order.
// Configuration decides which of these actually run.
func Builtin(client *github.Client) []*plugin.Plugin {
	return []*plugin.Plugin{
		welcome.New(client),
		label.New(client),
		lgtm.New(client),
		assign.New(client),
	}
}
