package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const (
	franceTravailName     = "francetravail"
	franceTravailIDPrefix = "ft"
	ftDefaultTokenURL     = "https://entreprise.pole-emploi.fr/connexion/oauth2/access_token?realm=/partenaire"
	ftDefaultSearchURL    = "https://api.pole-emploi.io/partenaire/offresdemploi/v2/offres/search"
	ftPageSize            = 100
)

// FranceTravailConfig controls the France Travail (ex Pôle Emploi) adapter.
type FranceTravailConfig struct {
	TokenURL     string
	SearchURL    string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// FranceTravail queries the public job-offer API using OAuth2 client
// credentials. Missing credentials disable the adapter gracefully.
type FranceTravail struct {
	cfg    FranceTravailConfig
	client *http.Client
	logger *zap.Logger
}

// NewFranceTravail builds the adapter.
func NewFranceTravail(cfg FranceTravailConfig, logger *zap.Logger) *FranceTravail {
	if cfg.TokenURL == "" {
		cfg.TokenURL = ftDefaultTokenURL
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = ftDefaultSearchURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &FranceTravail{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Name implements jobs.Source.
func (f *FranceTravail) Name() string { return franceTravailName }

// NeedsSession implements jobs.Source.
func (f *FranceTravail) NeedsSession() bool { return false }

type ftTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type ftSearchResponse struct {
	Resultats []ftOffer `json:"resultats"`
}

type ftOffer struct {
	ID          string `json:"id"`
	Intitule    string `json:"intitule"`
	Description string `json:"description"`
	Entreprise  struct {
		Nom  string `json:"nom"`
		Logo string `json:"logo"`
	} `json:"entreprise"`
	LieuTravail struct {
		Libelle string `json:"libelle"`
	} `json:"lieuTravail"`
	Salaire struct {
		Libelle string `json:"libelle"`
	} `json:"salaire"`
	TypeContratLibelle string `json:"typeContratLibelle"`
	OrigineOffre       struct {
		URLOrigine string `json:"urlOrigine"`
	} `json:"origineOffre"`
}

// Fetch authenticates then walks result ranges of 100 until the page budget
// is spent or a range comes back empty.
func (f *FranceTravail) Fetch(ctx context.Context, _ jobs.BrowserSession, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	if f.cfg.ClientID == "" || f.cfg.ClientSecret == "" {
		f.logger.Debug("francetravail adapter disabled, no credentials configured")
		return nil, nil
	}

	token, err := f.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("francetravail auth: %w", err)
	}

	var all []jobs.Posting
	for page := 0; page < req.MaxPages; page++ {
		if ctx.Err() != nil {
			return all, fmt.Errorf("francetravail fetch canceled: %w", ctx.Err())
		}
		offers, err := f.searchPage(ctx, token, req, page)
		if err != nil {
			return all, fmt.Errorf("francetravail range %d: %w", page, err)
		}
		if len(offers) == 0 {
			break
		}
		all = append(all, offers...)
	}
	return all, nil
}

func (f *FranceTravail) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", f.cfg.ClientID)
	form.Set("client_secret", f.cfg.ClientSecret)
	form.Set("scope", "api_offresdemploiv2 o2dsoffre")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload ftTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}
	return payload.AccessToken, nil
}

func (f *FranceTravail) searchPage(ctx context.Context, token string, req jobs.ScrapeRequest, page int) ([]jobs.Posting, error) {
	params := url.Values{}
	params.Set("motsCles", req.Query())
	params.Set("range", fmt.Sprintf("%d-%d", page*ftPageSize, page*ftPageSize+ftPageSize-1))
	if req.MinSalary != "" {
		params.Set("salaireMin", req.MinSalary)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.SearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	// 204 and 206 are normal: empty and partial ranges.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("search endpoint returned status %d", resp.StatusCode)
	}

	var payload ftSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	postings := make([]jobs.Posting, 0, len(payload.Resultats))
	for _, o := range payload.Resultats {
		link := o.OrigineOffre.URLOrigine
		if link == "" {
			link = "https://candidat.francetravail.fr/offres/recherche/detail/" + o.ID
		}
		postings = append(postings, jobs.Posting{
			ID:           franceTravailIDPrefix + "-" + o.ID,
			Title:        o.Intitule,
			Company:      o.Entreprise.Nom,
			Location:     o.LieuTravail.Libelle,
			URL:          link,
			Source:       "France Travail",
			Description:  o.Description,
			SalaryRange:  o.Salaire.Libelle,
			ContractType: o.TypeContratLibelle,
			LogoURL:      o.Entreprise.Logo,
			IsEasyApply:  true,
		})
	}
	return normalize(postings), nil
}
