package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/presentation/graph"
	"github.com/aretw0/sluice/internal/presentation/tui"
	"github.com/aretw0/sluice/pkg/spec"
)

// ErrInvalid is returned by Validate when the migration does not compile.
var ErrInvalid = errors.New("migration is invalid")

// Validate loads and compiles the migration at path, listing every problem found.
func Validate(path string, w io.Writer) error {
	m, err := load(path)
	if err != nil {
		return err
	}
	if _, err := sluice.New().Compile(m); err != nil {
		problems := spec.ValidationErrors(err)
		if len(problems) == 0 {
			return err
		}
		for _, p := range problems {
			fmt.Fprintf(w, "  - %v\n", p)
		}
		return fmt.Errorf("%w: %d problems", ErrInvalid, len(problems))
	}
	return nil
}

// Describe prints the migration at path as markdown, or as a Mermaid flowchart.
func Describe(path, format string, w io.Writer) error {
	m, err := load(path)
	if err != nil {
		return err
	}
	switch format {
	case "", "markdown":
		out, err := tui.NewRenderer(w)(tui.Describe(m))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case "mermaid":
		_, err := io.WriteString(w, graph.GenerateMermaid(m))
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}

func load(path string) (*spec.Migration, error) {
	resolved, err := resolveMigration(path)
	if err != nil {
		return nil, err
	}
	return spec.Load(resolved)
}
