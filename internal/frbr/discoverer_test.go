package frbr

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const listingTemplate = `<html><body><ul class="browse__list">%s</ul></body></html>`

func docLink(path string) string {
	return fmt.Sprintf(`<li><a href="%s">document</a></li>`, path)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/frbr/tuchtrecht", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "" {
			fmt.Fprintf(w, listingTemplate, "")
			return
		}
		links := docLink("/frbr/tuchtrecht/2024/ECLI-AAA/ocrxml") +
			docLink("/frbr/tuchtrecht/2023/ECLI-BBB/ocrxml") +
			docLink("/frbr/tuchtrecht/2024") + // year link, not a document
			docLink("/frbr/tuchtrecht/2024/ECLI-AAA") // work link, no /ocrxml
		fmt.Fprintf(w, listingTemplate, links)
	})
	mux.HandleFunc("/frbr/tuchtrecht/2024/ECLI-AAA/ocrxml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, "<uitspraak><para>Eerste uitspraak.</para></uitspraak>")
	})
	mux.HandleFunc("/frbr/tuchtrecht/2023/ECLI-BBB/ocrxml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, "<uitspraak><para>Tweede uitspraak.</para></uitspraak>")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDiscoverer(t *testing.T, baseURL string, visited func(string) bool) *Discoverer {
	t.Helper()
	d, err := NewDiscoverer(Config{
		BaseURL:   baseURL,
		PageSize:  11,
		Timeout:   5 * time.Second,
		UserAgent: "tuchtrecht-crawler-test",
	}, visited, zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestDiscoverer_FetchPageDownloadsDocuments(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	d := newTestDiscoverer(t, srv.URL, nil)

	page, err := d.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, page.More)
	require.Equal(t, 12, page.Next)
	require.Len(t, page.Records, 2)

	first := page.Records[0]
	require.Equal(t, srv.URL+"/frbr/tuchtrecht/2024/ECLI-AAA/ocrxml", first.Identifier)
	require.Equal(t, first.Identifier, first.URL)
	require.Equal(t, "Eerste uitspraak.", first.Content)
	require.Equal(t, "Open Data Tuchtrecht", first.Source)
}

func TestDiscoverer_FetchPageEmptyListing(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	d := newTestDiscoverer(t, srv.URL, nil)

	page, err := d.FetchPage(context.Background(), 12)
	require.NoError(t, err)
	require.False(t, page.More)
	require.Empty(t, page.Records)
}

func TestDiscoverer_VisitedDocumentsNotRedownloaded(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	seen := map[string]bool{
		srv.URL + "/frbr/tuchtrecht/2024/ECLI-AAA/ocrxml": true,
	}
	d := newTestDiscoverer(t, srv.URL, func(id string) bool { return seen[id] })

	page, err := d.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)

	// The visited document comes back as a stub so the orchestrator can
	// count the duplicate, without its content being fetched again.
	require.Empty(t, page.Records[0].Content)
	require.Equal(t, "Tweede uitspraak.", page.Records[1].Content)
}

func TestDiscoverer_Resume(t *testing.T) {
	t.Parallel()

	d := newTestDiscoverer(t, "https://repository.overheid.nl", nil)
	require.Equal(t, 1, d.Resume(0))
	require.Equal(t, 1, d.Resume(500))
}

func TestXMLPathPattern(t *testing.T) {
	t.Parallel()

	require.True(t, xmlPathPattern.MatchString("/frbr/tuchtrecht/1994/ECLI-ABC/ocrxml"))
	require.False(t, xmlPathPattern.MatchString("/frbr/tuchtrecht/1994/ECLI-ABC"))
	require.False(t, xmlPathPattern.MatchString("/frbr/tuchtrecht/1994"))
	require.False(t, xmlPathPattern.MatchString("/frbr/other/1994/ECLI-ABC/ocrxml"))
}
