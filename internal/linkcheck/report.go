package linkcheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/nao1215/markdown"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

// Report is the outcome of one link check run.
type Report struct {
	CheckedAt   time.Time `json:"checkedAt"`
	Charities   int       `json:"charities"`
	OK          int       `json:"ok"`
	Redirected  int       `json:"redirected"`
	Broken      int       `json:"broken"`
	Unreachable int       `json:"unreachable"`
	Results     []Result  `json:"results"`
}

// Problems returns the results a maintainer has to act on: broken and
// unreachable citations.
func (r *Report) Problems() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Verdict == VerdictBroken || res.Verdict == VerdictUnreachable {
			out = append(out, res)
		}
	}
	return out
}

// WriteJSON writes the machine-readable report atomically.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// WriteMarkdown writes the human-readable report atomically.
func (r *Report) WriteMarkdown(path string) error {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1("Citation Link Check")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Checked at", r.CheckedAt.Format("2006-01-02 15:04:05 MST")},
			{"Charities", strconv.Itoa(r.Charities)},
			{"URLs checked", strconv.Itoa(len(r.Results))},
			{"OK", strconv.Itoa(r.OK)},
			{"Redirected", strconv.Itoa(r.Redirected)},
			{"Broken", strconv.Itoa(r.Broken)},
			{"Unreachable", strconv.Itoa(r.Unreachable)},
		},
	})
	md.PlainText("")

	if problems := r.Problems(); len(problems) > 0 {
		md.H2("Problems")
		md.PlainText("")
		rows := make([][]string, 0, len(problems))
		for _, res := range problems {
			status := "-"
			if res.StatusCode != 0 {
				status = strconv.Itoa(res.StatusCode)
			}
			rows = append(rows, []string{
				string(res.Verdict),
				res.URL,
				status,
				formatCitedBy(res.CitedBy),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Verdict", "URL", "Status", "Cited by"},
			Rows:   rows,
		})
		md.PlainText("")
	} else {
		md.PlainText("All citations resolve.")
		md.PlainText("")
	}

	if r.Redirected > 0 {
		md.H2("Redirects")
		md.PlainText("")
		var rows [][]string
		for _, res := range r.Results {
			if res.Verdict == VerdictRedirected {
				rows = append(rows, []string{res.URL, res.FinalURL})
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Final URL"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("failed to build markdown report: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}

// formatCitedBy renders the citations pointing at a URL as one cell.
func formatCitedBy(cited []CitedBy) string {
	parts := make([]string, 0, len(cited))
	for _, c := range cited {
		parts = append(parts, fmt.Sprintf("%s (%s) [%d]", c.Name, types.FormatEIN(c.EIN), c.Index))
	}
	return strings.Join(parts, "; ")
}

// writeAtomic writes data through a pending file: fsync, then rename.
func writeAtomic(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("failed to create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
