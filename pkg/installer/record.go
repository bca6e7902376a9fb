package installer

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/rotisserie/eris"

	"github.com/setupshim/setupshim/pkg/shimlog"
)

var wheelFilePattern = regexp.MustCompile(
	`^(?P<namever>(?P<name>.+?)-(?:\d.*?))((-(?:\d.*?))?-(?:.+?)-(?:.+?)-(?:.+?)\.whl)$`)

// ParseWheelFilename extracts the distribution name (with underscores
// normalized to hyphens) and the name-version prefix from a wheel file name.
func ParseWheelFilename(filename string) (name string, nameVer string, err error) {
	groups := wheelFilePattern.FindStringSubmatch(filepath.Base(filename))
	if groups == nil {
		return "", "", eris.Errorf("could not determine wheel name from %q", filename)
	}

	nameIdx := wheelFilePattern.SubexpIndex("name")
	nameVerIdx := wheelFilePattern.SubexpIndex("namever")
	name = strings.ReplaceAll(groups[nameIdx], "_", "-")
	return name, groups[nameVerIdx], nil
}

// WriteInstallRecord makes an installed wheel look like a setuptools
// install: the RECORD file is turned into the install record the legacy
// installer asked for and the .dist-info directory is renamed to .egg-info.
func (inst *Installer) WriteInstallRecord(ctx context.Context, wheelFile, recordFile string) error {
	scheme, err := inst.Scheme(ctx)
	if err != nil {
		return err
	}

	name, nameVer, err := ParseWheelFilename(wheelFile)
	if err != nil {
		return err
	}

	shimlog.Log(ctx).Debug().Msgf("Writing install record for %s", name)
	return rewriteRecord(scheme, nameVer, recordFile)
}

// rewriteRecord looks for nameVer.dist-info below purelib and platlib,
// rewrites RECORD into recordFile (hashes and sizes stripped, paths
// absolute, .dist-info spelled .egg-info) and renames the directory itself.
func rewriteRecord(scheme *Scheme, nameVer, recordFile string) error {
	infoName := nameVer + ".dist-info"
	infoDir := filepath.Join(scheme.Purelib, infoName)

	rows, err := readRecord(filepath.Join(infoDir, "RECORD"))
	if eris.Is(err, os.ErrNotExist) {
		infoDir = filepath.Join(scheme.Platlib, infoName)
		rows, err = readRecord(filepath.Join(infoDir, "RECORD"))
	}
	if err != nil {
		return err
	}

	libDir := filepath.Dir(infoDir)
	lines := strings.Builder{}
	for _, row := range rows {
		name := strings.ReplaceAll(row, ".dist-info", ".egg-info")
		lines.WriteString(filepath.Join(libDir, filepath.FromSlash(name)))
		lines.WriteString("\n")
	}

	err = renameio.WriteFile(recordFile, []byte(lines.String()), os.FileMode(0o644))
	if err != nil {
		return eris.Wrapf(err, "failed to write install record %s", recordFile)
	}

	// RECORD only makes sense for .dist-info, drop it before the rename
	err = os.Remove(filepath.Join(infoDir, "RECORD"))
	if err != nil {
		return eris.Wrap(err, "failed to remove RECORD")
	}

	eggInfo := filepath.Join(libDir, nameVer+".egg-info")
	err = os.Rename(infoDir, eggInfo)
	if err != nil {
		return eris.Wrapf(err, "failed to rename %s to %s", infoDir, eggInfo)
	}

	return nil
}

// readRecord returns the path column of a RECORD file (the hash and size
// columns are dropped).
func readRecord(path string) ([]string, error) {
	handle, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open %s", path)
	}
	defer handle.Close()

	reader := csv.NewReader(handle)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}

	result := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}

		result = append(result, row[0])
	}

	return result, nil
}
