package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

func TestFranceTravail_Fetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token": "tok-1"}`))
	})
	pages := 0
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "42000", r.URL.Query().Get("salaireMin"))
		pages++
		if pages > 1 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		require.Equal(t, "0-99", r.URL.Query().Get("range"))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte(`{
			"resultats": [
				{
					"id": "175XYZ",
					"intitule": "Développeur Go",
					"description": "Backend services",
					"entreprise": {"nom": "Acme"},
					"lieuTravail": {"libelle": "Nantes"},
					"salaire": {"libelle": "45k-55k"},
					"typeContratLibelle": "CDI",
					"origineOffre": {"urlOrigine": "https://offres/175XYZ"}
				}
			]
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFranceTravail(FranceTravailConfig{
		TokenURL:     srv.URL + "/token",
		SearchURL:    srv.URL + "/search",
		ClientID:     "id",
		ClientSecret: "secret",
	}, zap.NewNop())

	postings, err := f.Fetch(context.Background(), nil, jobs.ScrapeRequest{
		Keywords:  "go",
		MaxPages:  3,
		MinSalary: "42000",
	})

	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.Equal(t, "ft-175XYZ", postings[0].ID)
	require.Equal(t, "Développeur Go", postings[0].Title)
	require.Equal(t, "CDI", postings[0].ContractType)
	require.True(t, postings[0].IsEasyApply)
	require.Equal(t, 2, pages, "should stop after the first empty range")
}

func TestFranceTravail_DisabledWithoutCredentials(t *testing.T) {
	t.Parallel()

	f := NewFranceTravail(FranceTravailConfig{}, zap.NewNop())
	postings, err := f.Fetch(context.Background(), nil, jobs.ScrapeRequest{MaxPages: 1})

	require.NoError(t, err)
	require.Empty(t, postings)
}

func TestFranceTravail_AuthFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := NewFranceTravail(FranceTravailConfig{
		TokenURL:     srv.URL,
		SearchURL:    srv.URL,
		ClientID:     "id",
		ClientSecret: "bad",
	}, zap.NewNop())

	_, err := f.Fetch(context.Background(), nil, jobs.ScrapeRequest{MaxPages: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "auth")
}
