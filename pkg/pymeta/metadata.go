// Package pymeta parses the core metadata (RFC 822 style headers) emitted by
// a build backend's metadata operation.
package pymeta

import (
	"bufio"
	"bytes"
	"io"
	"net/textproto"

	"github.com/rotisserie/eris"

	"github.com/setupshim/setupshim/pkg/reqs"
)

// Metadata holds the fields the shim cares about: enough to identify the
// distribution and to reconstruct its dependencies per extra.
type Metadata struct {
	Name          string
	Version       string
	Summary       string
	RequiresDist  []*reqs.Requirement
	ProvidesExtra []string
}

// Parse reads the metadata headers. The message body (the long description)
// is ignored.
func Parse(data []byte) (*Metadata, error) {
	reader := textproto.NewReader(bufio.NewReader(bytes.NewReader(data)))
	header, err := reader.ReadMIMEHeader()
	if err != nil && !eris.Is(err, io.EOF) {
		return nil, eris.Wrap(err, "failed to parse metadata headers")
	}

	result := Metadata{
		Name:          header.Get("Name"),
		Version:       header.Get("Version"),
		Summary:       header.Get("Summary"),
		ProvidesExtra: header.Values("Provides-Extra"),
	}

	if result.Name == "" {
		return nil, eris.New("metadata is missing the Name field")
	}
	if result.Version == "" {
		return nil, eris.New("metadata is missing the Version field")
	}

	for _, raw := range header.Values("Requires-Dist") {
		req, err := reqs.Parse(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid Requires-Dist entry %q", raw)
		}

		result.RequiresDist = append(result.RequiresDist, req)
	}

	return &result, nil
}

// Requires returns the requirements that are active for the given extras.
// Markers are evaluated against env with the "extra" variable bound to each
// requested extra in turn (or to the empty string for the base set).
func (m *Metadata) Requires(env reqs.Environment, extras ...string) ([]*reqs.Requirement, error) {
	if len(extras) == 0 {
		extras = []string{""}
	}

	seen := make(map[string]bool)
	result := make([]*reqs.Requirement, 0, len(m.RequiresDist))

	for _, extra := range extras {
		extraEnv := make(reqs.Environment, len(env)+1)
		for key, value := range env {
			extraEnv[key] = value
		}
		extraEnv["extra"] = extra

		for _, req := range m.RequiresDist {
			active, err := req.Evaluate(extraEnv)
			if err != nil {
				return nil, eris.Wrapf(err, "failed to evaluate marker for %s", req.Name)
			}

			if active && !seen[req.String()] {
				seen[req.String()] = true
				result = append(result, req)
			}
		}
	}

	return result, nil
}
