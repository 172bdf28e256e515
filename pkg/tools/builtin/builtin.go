// Package builtin provides the stock tools that ship with the CLI: a shell
// runner, an arithmetic calculator, and file read/write. Tools resolve
// relative paths against a configurable working directory.
package builtin

import (
	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
)

// Builtin bundles the stock tools.
type Builtin struct {
	workdir string
}

// Options selects which builtin tools are exposed.
type Options struct {
	Shell      bool
	Calculator bool
	Filesystem bool
	Workdir    string
}

// New creates a Builtin rooted at workdir. An empty workdir means the
// process working directory.
func New(workdir string) *Builtin {
	return &Builtin{workdir: workdir}
}

// Tools returns a ToolBox containing the tools enabled in opts.
func Tools(opts Options) (*toolbox.ToolBox, error) {
	b := New(opts.Workdir)
	tb := toolbox.New()

	if opts.Shell {
		if err := tb.Register(b.shellTool()); err != nil {
			return nil, err
		}
	}
	if opts.Calculator {
		if err := tb.Register(b.calculatorTool()); err != nil {
			return nil, err
		}
	}
	if opts.Filesystem {
		if err := tb.Register(b.readFileTool(), b.writeFileTool()); err != nil {
			return nil, err
		}
	}
	return tb, nil
}
