package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/batch"
	"github.com/kailas-cloud/semdesk/internal/domain/search/hit"
	"github.com/kailas-cloud/semdesk/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/semdesk/internal/usecase/search"
)

// --- printReport ---

func TestPrintReport_Written(t *testing.T) {
	var out, errOut bytes.Buffer
	report := indexing.Report{
		Written: []string{"/out/a.pdf.md", "/out/b.docx.md"},
		Items: []batch.Result{
			batch.NewConverted("/docs/a.pdf", "markitdown"),
			batch.NewConverted("/docs/b.docx", "docling"),
			batch.NewFailed("/docs/c.pdf", errors.New("boom")),
		},
	}

	require.NoError(t, printReport(&out, &errOut, report))
	assert.Equal(t, "Generated markdown artifacts:\n/out/a.pdf.md\n/out/b.docx.md\n", out.String())
	assert.Equal(t, "failed: /docs/c.pdf: boom\n", errOut.String())
}

func TestPrintReport_NothingWritten(t *testing.T) {
	var out, errOut bytes.Buffer

	require.NoError(t, printReport(&out, &errOut, indexing.Report{}))
	assert.Equal(t, "No markdown files were written.\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestReportView_Counts(t *testing.T) {
	report := indexing.Report{
		Items: []batch.Result{
			batch.NewBackfilled("/docs/a.md"),
			batch.NewSkipped("/docs/b.md"),
			batch.NewFailed("/docs/c.md", errors.New("bad")),
		},
	}

	v := reportView(report)
	assert.NotNil(t, v.Written)
	assert.Equal(t, 1, v.Backfilled)
	assert.Equal(t, 1, v.Skipped)
	assert.Equal(t, 1, v.Failed)
	require.Len(t, v.Items, 3)
	assert.Equal(t, "bad", v.Items[2].Error)
}

// --- printHits ---

func TestPrintHits_Tags(t *testing.T) {
	var out bytes.Buffer
	hits := []hit.Hit{
		hit.New("/docs/invoice.pdf", "/out/invoice.pdf.md", "An invoice", []string{"invoice"}, 0.9123, domain.VariantTags, "invoice"),
	}

	require.NoError(t, printHits(&out, "billing", domain.VariantTags, hits))
	assert.Equal(t,
		"Semantic tag matches for 'billing':\n- /docs/invoice.pdf | tag=invoice | score=0.912\n",
		out.String())
}

func TestPrintHits_DocumentWithDescription(t *testing.T) {
	var out bytes.Buffer
	hits := []hit.Hit{
		hit.New("/docs/lease.pdf", "/out/lease.pdf.md", "Apartment lease", nil, 0.5, domain.VariantDocument, ""),
	}

	require.NoError(t, printHits(&out, "lease", domain.VariantDocument, hits))
	assert.Equal(t,
		"Semantic matches for 'lease':\n- /docs/lease.pdf | score=0.500\n  Apartment lease\n",
		out.String())
}

func TestPrintHits_Empty(t *testing.T) {
	tests := []struct {
		variant domain.Variant
		want    string
	}{
		{domain.VariantTags, "No semantic tag matches found for 'x'.\n"},
		{domain.VariantDocument, "No semantic matches found for 'x'.\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, printHits(&out, "x", tt.variant, nil))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestHitViews_JSONTagsNeverNull(t *testing.T) {
	hits := []hit.Hit{hit.New("/a", "", "", nil, 0.1, domain.VariantDocument, "")}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, hitViews(hits)))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, []any{}, decoded[0]["tags"])
	assert.NotContains(t, decoded[0], "matched_tag")
}

// --- printAnswer ---

func TestPrintAnswer(t *testing.T) {
	var out bytes.Buffer
	ans := searchuc.Answer{
		Text: "The lease ends in May.",
		Hits: []hit.Hit{hit.New("/docs/lease.pdf", "", "", nil, 0.75, domain.VariantDocument, "")},
	}

	require.NoError(t, printAnswer(&out, "when does the lease end?", ans))
	assert.Equal(t,
		"RAG answer for 'when does the lease end?':\nThe lease ends in May.\n\n"+
			"Supporting documents:\n- /docs/lease.pdf | score=0.750\n",
		out.String())
}

func TestPrintAnswer_NoSources(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, printAnswer(&out, "q", searchuc.Answer{Text: "I don't know."}))
	assert.Contains(t, out.String(), "No supporting documents were returned.")
}
