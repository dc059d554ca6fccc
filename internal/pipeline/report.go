package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/roster"
)

// Report output formats for the summary file.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteArtifacts writes the four run outputs into dir: duplicates.csv,
// merged_roster.csv, clusters.json, and summary.json or summary.yaml
// depending on format.
func WriteArtifacts(dir string, a *Artifacts, format string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "report: create output directory")
	}

	if err := writeDuplicatesCSV(filepath.Join(dir, "duplicates.csv"), a.Duplicates); err != nil {
		return err
	}
	if err := roster.WriteCSVFile(filepath.Join(dir, "merged_roster.csv"), a.Merged); err != nil {
		return eris.Wrap(err, "report: write merged roster")
	}
	if err := writeJSON(filepath.Join(dir, "clusters.json"), a.Clusters); err != nil {
		return err
	}

	switch format {
	case FormatYAML:
		return writeYAML(filepath.Join(dir, "summary.yaml"), a.Summary)
	case FormatJSON, "":
		return writeJSON(filepath.Join(dir, "summary.json"), a.Summary)
	default:
		return eris.Errorf("report: unsupported format %q", format)
	}
}

var duplicateHeader = []string{
	"i1", "i2", "provider_id_1", "provider_id_2", "name_1", "name_2",
	"score", "name_score", "npi_match", "addr_score", "phone_match", "license_score",
}

func writeDuplicatesCSV(path string, dups []match.DuplicatePair) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create duplicates file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(duplicateHeader); err != nil {
		return eris.Wrap(err, "report: write duplicates header")
	}
	for _, d := range dups {
		record := []string{
			strconv.Itoa(d.I1),
			strconv.Itoa(d.I2),
			d.ProviderID1,
			d.ProviderID2,
			d.Name1,
			d.Name2,
			strconv.FormatFloat(d.Score, 'f', -1, 64),
			strconv.FormatFloat(d.NameScore, 'f', -1, 64),
			strconv.FormatBool(d.NPIMatch),
			strconv.FormatFloat(d.AddrScore, 'f', -1, 64),
			strconv.FormatBool(d.PhoneMatch),
			strconv.FormatFloat(d.LicenseScore, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "report: write duplicate row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "report: flush duplicates")
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", filepath.Base(path))
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return eris.Wrapf(enc.Encode(v), "report: encode %s", filepath.Base(path))
}

func writeYAML(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", filepath.Base(path))
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()
	return eris.Wrapf(enc.Encode(v), "report: encode %s", filepath.Base(path))
}
