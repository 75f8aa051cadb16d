// package formatter exports the tracks selected by a run to CSV, Markdown, JSON or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/stride/internal/tasks"
)

const trackURLPrefix = "https://open.spotify.com/track/"

// Row is one selected track.
type Row struct {
	Position int     `json:"position"`
	TrackID  string  `json:"track_id"`
	BPM      float64 `json:"bpm"`
	URL      string  `json:"url"`
}

// Report is the exportable summary of a run.
type Report struct {
	RunID       string    `json:"run_id"`
	Name        string    `json:"name"`
	Cadence     int       `json:"cadence"`
	MinBPM      float64   `json:"min_bpm"`
	MaxBPM      float64   `json:"max_bpm"`
	PoolSize    int       `json:"pool_size"`
	PlaylistURL string    `json:"playlist_url,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Tracks      []Row     `json:"tracks"`
}

// NewReport builds a report from a pipeline result.
func NewReport(result *tasks.Result, name, playlistURL string) *Report {
	rows := make([]Row, len(result.Selections))
	for i, s := range result.Selections {
		rows[i] = Row{Position: i + 1, TrackID: s.TrackID, BPM: s.BPM, URL: trackURLPrefix + s.TrackID}
	}

	return &Report{
		RunID:       result.RunID,
		Name:        name,
		Cadence:     result.Cadence,
		MinBPM:      result.Window.Low,
		MaxBPM:      result.Window.High,
		PoolSize:    len(result.Pool),
		PlaylistURL: playlistURL,
		GeneratedAt: result.FinishedAt,
		Tracks:      rows,
	}
}

// ExportToCSV converts a report to CSV with columns: Position, Track ID, BPM, URL
func ExportToCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Track ID", "BPM", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range report.Tracks {
		record := []string{
			strconv.Itoa(row.Position),
			row.TrackID,
			strconv.FormatFloat(row.BPM, 'f', 1, 64),
			row.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a report to a Markdown document with a track table.
func ExportToMarkdown(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", report.Name)
	fmt.Fprintf(&buf, "**Cadence**: %d spm\n", report.Cadence)
	fmt.Fprintf(&buf, "**Tempo**: %.0f-%.0f BPM\n", report.MinBPM, report.MaxBPM)
	fmt.Fprintf(&buf, "**Tracks**: %d of %d candidates\n", len(report.Tracks), report.PoolSize)
	if report.PlaylistURL != "" {
		fmt.Fprintf(&buf, "**Playlist**: %s\n", report.PlaylistURL)
	}
	buf.WriteString("\n## Tracks\n\n")

	if len(report.Tracks) == 0 {
		buf.WriteString("_No tracks matched._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Track | BPM |\n|---|-------|-----|\n")
	for _, row := range report.Tracks {
		fmt.Fprintf(&buf, "| %d | [%s](%s) | %.1f |\n", row.Position, row.TrackID, row.URL, row.BPM)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a report to plain text.
func ExportToText(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", report.Name)
	fmt.Fprintf(&buf, "Tempo: %.0f-%.0f BPM\n", report.MinBPM, report.MaxBPM)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(report.Tracks))

	for _, row := range report.Tracks {
		fmt.Fprintf(&buf, "%d. %s (%.1f BPM)\n", row.Position, row.TrackID, row.BPM)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a report to indented JSON.
func ExportToJSON(report *Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
)

// FormatFromPath picks a format from the file extension, defaulting to text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return FormatCSV
	case "md", "markdown":
		return FormatMarkdown
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Export renders report in format.
func Export(report *Report, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(report)
	case FormatMarkdown:
		return ExportToMarkdown(report)
	case FormatJSON:
		return ExportToJSON(report)
	case FormatText:
		return ExportToText(report)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// WriteExport writes report to path in the format implied by its extension.
//
// Defaults to {run id}_tracks.txt when path is empty.
func WriteExport(report *Report, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", report.RunID)
	}

	data, err := Export(report, FormatFromPath(path))
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
