package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

// HelixClient implements domain.Catalog against the Helix REST API
type HelixClient struct {
	config       *domain.CatalogConfig
	clientID     string
	clientSecret string
	client       *http.Client
	logger       *zap.Logger
	now          func() time.Time

	mu    sync.RWMutex
	token string
}

// NewHelixClient creates a new catalog client
func NewHelixClient(config *domain.CatalogConfig, credentials domain.CredentialsConfig, client *http.Client, logger *zap.Logger) *HelixClient {
	if client == nil {
		client = &http.Client{Timeout: config.RequestTimeout}
	}
	return &HelixClient{
		config:       config,
		clientID:     credentials.ClientID,
		clientSecret: credentials.ClientSecret,
		client:       client,
		logger:       logger,
		now:          time.Now,
	}
}

// Authenticate obtains an app access token with the client credentials grant
func (c *HelixClient) Authenticate(ctx context.Context) error {
	if c.clientID == "" || c.clientSecret == "" {
		return domain.NewError(domain.KindAuth, "token", domain.ErrMissingCredentials)
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.NewError(domain.KindAuth, "token", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewError(domain.KindAuth, "token", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewError(domain.KindAuth, "token", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &domain.Error{
			Kind:       domain.KindAuth,
			Op:         "token",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return domain.NewError(domain.KindAuth, "token", fmt.Errorf("response has no access_token"))
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.logger.Debug("Obtained catalog access token",
		zap.Int64("expires_in", gjson.GetBytes(body, "expires_in").Int()))
	return nil
}

// GameID resolves a game name to its catalog id
func (c *HelixClient) GameID(ctx context.Context, name string) (string, error) {
	body, err := c.get(ctx, "games", url.Values{"name": {name}})
	if err != nil {
		return "", err
	}

	id := gjson.GetBytes(body, "data.0.id").String()
	if id == "" {
		return "", domain.NewError(domain.KindCatalog, "games", fmt.Errorf("%q: %w", name, domain.ErrGameNotFound))
	}
	return id, nil
}

// TopClips returns up to limit clips for game created within the configured max age
func (c *HelixClient) TopClips(ctx context.Context, game string, limit int) ([]*domain.Clip, error) {
	gameID, err := c.GameID(ctx, game)
	if err != nil {
		return nil, err
	}

	startedAt := c.now().UTC().Add(-c.config.MaxClipAge).Format(time.RFC3339)
	body, err := c.get(ctx, "clips", url.Values{
		"game_id":    {gameID},
		"first":      {strconv.Itoa(limit)},
		"started_at": {startedAt},
	})
	if err != nil {
		return nil, err
	}

	var clips []*domain.Clip
	gjson.GetBytes(body, "data").ForEach(func(_, item gjson.Result) bool {
		clip := &domain.Clip{
			ID:              item.Get("id").String(),
			Title:           item.Get("title").String(),
			URL:             item.Get("url").String(),
			BroadcasterName: item.Get("broadcaster_name").String(),
			CreatorName:     item.Get("creator_name").String(),
			ViewCount:       int(item.Get("view_count").Int()),
			Language:        item.Get("language").String(),
			Game:            game,
		}
		if created, err := time.Parse(time.RFC3339, item.Get("created_at").String()); err == nil {
			clip.CreatedAt = created
		}
		clips = append(clips, clip)
		return true
	})

	c.logger.Debug("Fetched clips",
		zap.String("game", game),
		zap.String("game_id", gameID),
		zap.Int("count", len(clips)))
	return clips, nil
}

func (c *HelixClient) get(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	endpoint := strings.TrimRight(c.config.APIURL, "/") + "/" + resource + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewError(domain.KindCatalog, resource, err)
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.KindCatalog, resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.KindCatalog, resource, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.Error{Kind: domain.KindCatalog, Op: resource, StatusCode: resp.StatusCode}
	}
	return body, nil
}
