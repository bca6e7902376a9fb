// Package egginfo writes the .egg-info directory legacy installers consume
// to discover a project's name, version and dependencies.
package egginfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/setupshim/setupshim/pkg/pymeta"
	"github.com/setupshim/setupshim/pkg/reqs"
)

// Write creates <name>.egg-info below dir and returns its path. Markers
// aren't preserved: if a wheel gets built later, the backend is responsible
// for them; this directory only has to tell the calling installer which
// dependencies apply right here, right now. Extras are kept since we can't
// know which ones the caller will decide on.
func Write(dir string, meta *pymeta.Metadata, env reqs.Environment) (string, error) {
	eggDir := filepath.Join(dir, strings.ReplaceAll(meta.Name, "-", "_")+".egg-info")
	err := os.MkdirAll(eggDir, os.FileMode(0o755))
	if err != nil {
		return "", eris.Wrapf(err, "failed to create %s", eggDir)
	}

	requiresTxt, err := buildRequiresTxt(meta, env)
	if err != nil {
		return "", err
	}

	files := map[string]string{
		"PKG-INFO":             buildPkgInfo(meta),
		"requires.txt":         requiresTxt,
		"dependency_links.txt": "",
	}

	for name, content := range files {
		path := filepath.Join(eggDir, name)
		err = os.WriteFile(path, []byte(content), os.FileMode(0o644))
		if err != nil {
			return "", eris.Wrapf(err, "failed to write %s", path)
		}
	}

	return eggDir, nil
}

func buildPkgInfo(meta *pymeta.Metadata) string {
	buffer := strings.Builder{}
	buffer.WriteString("Metadata-Version: 1.2\n")
	fmt.Fprintf(&buffer, "Name: %s\n", meta.Name)
	fmt.Fprintf(&buffer, "Version: %s\n", meta.Version)
	if meta.Summary != "" {
		fmt.Fprintf(&buffer, "Summary: %s\n", meta.Summary)
	}

	return buffer.String()
}

// buildRequiresTxt renders the base requirements followed by one [extra]
// section per declared extra. Each section only lists the requirements that
// aren't already part of the base set.
func buildRequiresTxt(meta *pymeta.Metadata, env reqs.Environment) (string, error) {
	base, err := meta.Requires(env)
	if err != nil {
		return "", err
	}

	baseSet := make(map[string]bool, len(base))
	buffer := strings.Builder{}
	for _, req := range base {
		baseSet[req.String()] = true
		buffer.WriteString(req.String())
		buffer.WriteString("\n")
	}

	for _, extra := range meta.ProvidesExtra {
		extraReqs, err := meta.Requires(env, extra)
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&buffer, "\n[%s]\n", extra)
		for _, req := range extraReqs {
			if !baseSet[req.String()] {
				buffer.WriteString(req.String())
				buffer.WriteString("\n")
			}
		}
	}

	return buffer.String(), nil
}
