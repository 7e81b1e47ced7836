package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/batch"
	"github.com/kailas-cloud/semdesk/internal/domain/search/hit"
	"github.com/kailas-cloud/semdesk/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/semdesk/internal/usecase/search"
)

type hitView struct {
	SourcePath   string   `json:"source_path"`
	MarkdownPath string   `json:"markdown_path,omitempty"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Score        float64  `json:"score"`
	Variant      string   `json:"variant"`
	MatchedTag   string   `json:"matched_tag,omitempty"`
}

type answerView struct {
	Answer  string    `json:"answer"`
	Sources []hitView `json:"sources"`
}

type itemView struct {
	Source    string `json:"source"`
	Action    string `json:"action"`
	Converter string `json:"converter,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
	Error     string `json:"error,omitempty"`
}

type reportJSON struct {
	Written    []string   `json:"written"`
	Converted  int        `json:"converted"`
	Backfilled int        `json:"backfilled"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Items      []itemView `json:"items"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func hitViews(hits []hit.Hit) []hitView {
	out := make([]hitView, 0, len(hits))
	for i := range hits {
		h := &hits[i]
		tags := h.Tags()
		if tags == nil {
			tags = []string{}
		}
		out = append(out, hitView{
			SourcePath:   h.SourcePath(),
			MarkdownPath: h.MarkdownPath(),
			Description:  h.Description(),
			Tags:         tags,
			Score:        h.Score(),
			Variant:      string(h.Variant()),
			MatchedTag:   h.MatchedTag(),
		})
	}
	return out
}

func reportView(r indexing.Report) reportJSON {
	out := reportJSON{
		Written:    r.Written,
		Converted:  r.Count(batch.ActionConverted),
		Backfilled: r.Count(batch.ActionBackfilled),
		Skipped:    r.Count(batch.ActionSkipped),
		Failed:     r.Count(batch.ActionFailed),
		Items:      make([]itemView, 0, len(r.Items)),
	}
	if out.Written == nil {
		out.Written = []string{}
	}
	for _, it := range r.Items {
		v := itemView{
			Source:    it.Source(),
			Action:    string(it.Action()),
			Converter: it.Converter(),
			Degraded:  it.Degraded(),
		}
		if it.Err() != nil {
			v.Error = it.Err().Error()
		}
		out.Items = append(out.Items, v)
	}
	return out
}

// printReport lists generated markdown on stdout and failures on stderr.
func printReport(stdout, stderr io.Writer, r indexing.Report) error {
	for _, it := range r.Items {
		if it.Action() == batch.ActionFailed {
			fmt.Fprintf(stderr, "failed: %s: %v\n", it.Source(), it.Err())
		}
	}

	if len(r.Written) == 0 {
		_, err := fmt.Fprintln(stdout, "No markdown files were written.")
		return err
	}
	if _, err := fmt.Fprintln(stdout, "Generated markdown artifacts:"); err != nil {
		return err
	}
	for _, path := range r.Written {
		if _, err := fmt.Fprintln(stdout, path); err != nil {
			return err
		}
	}
	return nil
}

func printHits(w io.Writer, query string, v domain.Variant, hits []hit.Hit) error {
	empty, header := "No semantic matches found for '%s'.\n", "Semantic matches for '%s':\n"
	if v == domain.VariantTags {
		empty, header = "No semantic tag matches found for '%s'.\n", "Semantic tag matches for '%s':\n"
	}
	if len(hits) == 0 {
		_, err := fmt.Fprintf(w, empty, query)
		return err
	}

	if _, err := fmt.Fprintf(w, header, query); err != nil {
		return err
	}
	for i := range hits {
		h := &hits[i]
		var err error
		if v == domain.VariantTags {
			tag := h.MatchedTag()
			if tag == "" {
				tag = "-"
			}
			_, err = fmt.Fprintf(w, "- %s | tag=%s | score=%.3f\n", h.SourcePath(), tag, h.Score())
		} else {
			_, err = fmt.Fprintf(w, "- %s | score=%.3f\n", h.SourcePath(), h.Score())
			if err == nil && h.Description() != "" {
				_, err = fmt.Fprintf(w, "  %s\n", h.Description())
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func printAnswer(w io.Writer, question string, ans searchuc.Answer) error {
	if _, err := fmt.Fprintf(w, "RAG answer for '%s':\n%s\n\n", question, ans.Text); err != nil {
		return err
	}
	if len(ans.Hits) == 0 {
		_, err := fmt.Fprintln(w, "No supporting documents were returned.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Supporting documents:"); err != nil {
		return err
	}
	for i := range ans.Hits {
		h := &ans.Hits[i]
		if _, err := fmt.Fprintf(w, "- %s | score=%.3f\n", h.SourcePath(), h.Score()); err != nil {
			return err
		}
	}
	return nil
}
