package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const linkedinCardHTML = `<ul>
	<li>
		<div class="base-search-card__title">Backend Engineer</div>
		<div class="base-search-card__subtitle">Acme</div>
		<div class="job-search-card__location">Lyon</div>
		<a class="base-card__full-link" href="https://jobs/1?tracking=x">link</a>
		<time>2 days ago</time>
	</li>
	<li>
		<div class="base-search-card__title"></div>
		<a class="base-card__full-link" href="https://jobs/2">no title</a>
	</li>
</ul>`

func TestLinkedIn_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		require.Equal(t, "go developer", r.URL.Query().Get("keywords"))
		if r.URL.Query().Get("start") != "0" {
			// Second page is empty, which stops the loop.
			_, _ = fmt.Fprint(w, "<ul></ul>")
			return
		}
		require.Equal(t, "r86400", r.URL.Query().Get("f_TPR"))
		_, _ = fmt.Fprint(w, linkedinCardHTML)
	}))
	defer srv.Close()

	l := NewLinkedIn(LinkedInConfig{BaseURL: srv.URL}, &seqIDGen{}, zap.NewNop())
	postings, err := l.Fetch(context.Background(), nil, jobs.ScrapeRequest{
		Keywords:      "go developer",
		MaxPages:      3,
		PublishedDate: "24h",
	})

	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.Equal(t, "lin-gen1", postings[0].ID)
	require.Equal(t, "Backend Engineer", postings[0].Title)
	require.Equal(t, "https://jobs/1", postings[0].URL, "tracking params are stripped")
	require.Equal(t, "LinkedIn", postings[0].Source)
	require.Equal(t, "Posted: 2 days ago", postings[0].Description)
}

func TestLinkedIn_FetchCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLinkedIn(LinkedInConfig{BaseURL: "http://127.0.0.1:1"}, &seqIDGen{}, zap.NewNop())
	postings, err := l.Fetch(ctx, nil, jobs.ScrapeRequest{Keywords: "go", MaxPages: 2})

	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, postings)
}
