// Package plan describes what a build would do without doing it: the
// pending copy and convert actions per category, and how the current output
// tree differs from the file set a build produces.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/hupe1980/assetbuild/internal/build"
)

// Action is a pending regeneration.
type Action struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Step lists the pending actions of one category.
type Step struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Actions []Action `json:"actions"`
	Error   string   `json:"error,omitempty"`
}

// Plan is the dry-run view of a build.
type Plan struct {
	Steps []Step `json:"steps"`
	Total int    `json:"total"`
}

// FromReport converts a dry-run build report into a plan.
func FromReport(r *build.Report) *Plan {
	p := &Plan{Total: r.Total()}

	for _, s := range r.Steps {
		step := Step{Name: s.Name, Kind: string(s.Kind), Actions: []Action{}}

		for _, a := range s.Result.Actions {
			step.Actions = append(step.Actions, Action{
				Source: filepath.ToSlash(a.Source),
				Target: filepath.ToSlash(a.Target),
			})
		}

		if s.Err != nil {
			step.Error = s.Err.Error()
		}

		p.Steps = append(p.Steps, step)
	}

	return p
}

// FormatPlan writes a human-readable plan.
func FormatPlan(w io.Writer, p *Plan) {
	if p.Total == 0 {
		_, _ = fmt.Fprintln(w, "Everything is up to date.")
	}

	for _, s := range p.Steps {
		if s.Error != "" {
			_, _ = fmt.Fprintf(w, "%s (%s): ERROR: %s\n", s.Name, s.Kind, s.Error)
			continue
		}

		if len(s.Actions) == 0 {
			continue
		}

		_, _ = fmt.Fprintf(w, "%s (%s): %d item(s)\n", s.Name, s.Kind, len(s.Actions))

		for _, a := range s.Actions {
			_, _ = fmt.Fprintf(w, "  %s -> %s\n", a.Source, a.Target)
		}
	}

	if p.Total > 0 {
		_, _ = fmt.Fprintf(w, "\n%d item(s) to process\n", p.Total)
	}
}

// FormatPlanJSON writes the plan as indented JSON.
func FormatPlanJSON(w io.Writer, p *Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(p)
}

// ExpectedFiles returns the sorted slash-separated output paths a build
// produces.
func ExpectedFiles(r *build.Report) []string {
	outputs := r.Combined().Outputs

	files := make([]string, len(outputs))
	for i, o := range outputs {
		files[i] = filepath.ToSlash(o)
	}

	sort.Strings(files)

	return files
}

// ActualFiles lists the regular files under outputRoot, sorted and
// slash-separated. A missing root yields an empty listing.
func ActualFiles(outputRoot string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(outputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == outputRoot && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}

			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(outputRoot, path)
		if err != nil {
			return err
		}

		files = append(files, filepath.ToSlash(rel))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing output tree: %w", err)
	}

	sort.Strings(files)

	return files, nil
}
