// MyAnimeList REST v2 implementation of [Service]
//
// API reference: https://myanimelist.net/apiconfig/references/api/v2
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

const malEndpoint = "https://api.myanimelist.net/v2"

const malMinInterval = time.Second

const malPageSize = 100

const malListFields = "list_status{status,score,num_episodes_watched,updated_at}"

var malStatusIn = map[string]models.WatchStatus{
	"watching":      models.StatusWatching,
	"completed":     models.StatusCompleted,
	"on_hold":       models.StatusPaused,
	"dropped":       models.StatusDropped,
	"plan_to_watch": models.StatusPlanned,
}

var malStatusOut = map[models.WatchStatus]string{
	models.StatusWatching:  "watching",
	models.StatusCompleted: "completed",
	models.StatusPaused:    "on_hold",
	models.StatusDropped:   "dropped",
	models.StatusPlanned:   "plan_to_watch",
}

type malListStatus struct {
	Status     string  `json:"status"`
	Score      float64 `json:"score"`
	NumWatched int     `json:"num_episodes_watched"`
	UpdatedAt  string  `json:"updated_at"`
}

type malListNode struct {
	Node struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	} `json:"node"`
	ListStatus malListStatus `json:"list_status"`
}

type malListPage struct {
	Data   []malListNode `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// MALService implements [Service] for the MyAnimeList v2 API.
type MALService struct {
	endpoint   string
	token      models.TokenRecord
	httpClient *http.Client
	pacer      *Pacer
	logger     *log.Logger
}

// MALOpts contains construction options for a [MALService].
type MALOpts struct {
	Endpoint   string
	HTTPClient *http.Client
	Pacer      *Pacer
	Logger     *log.Logger
}

// NewMALService creates a MyAnimeList client.
func NewMALService(opts MALOpts) *MALService {
	if opts.Endpoint == "" {
		opts.Endpoint = malEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Pacer == nil {
		opts.Pacer = NewPacer(malMinInterval)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &MALService{
		endpoint:   opts.Endpoint,
		httpClient: opts.HTTPClient,
		pacer:      opts.Pacer,
		logger:     opts.Logger,
	}
}

func (s *MALService) Name() models.ServiceName {
	return models.ServiceMAL
}

// Authorize installs the access token used for subsequent calls.
func (s *MALService) Authorize(token models.TokenRecord) {
	s.token = token
}

// doRequest performs one paced, classified HTTP call and decodes the body.
func (s *MALService) doRequest(ctx context.Context, method, rawURL string, body string, result any) error {
	if s.token.AccessToken == "" {
		return fmt.Errorf("%w: call Authorize first", shared.ErrAuthFailed)
	}

	return s.pacer.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
		if body != "" {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return classifyTransportErr(err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp.StatusCode); err != nil {
			return err
		}
		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("%w: failed to decode response: %v", shared.ErrProtocol, err)
			}
		}
		return nil
	})
}

// FetchSnapshot retrieves the user's full anime list, following pagination
// until the API stops returning a next link.
func (s *MALService) FetchSnapshot(ctx context.Context) (*models.ListSnapshot, error) {
	snapshot := &models.ListSnapshot{
		Service:   models.ServiceMAL,
		FetchedAt: time.Now().UTC(),
	}

	params := url.Values{}
	params.Set("fields", malListFields)
	params.Set("limit", strconv.Itoa(malPageSize))
	params.Set("nsfw", "true")
	next := fmt.Sprintf("%s/users/@me/animelist?%s", s.endpoint, params.Encode())

	for next != "" {
		var page malListPage
		if err := s.doRequest(ctx, http.MethodGet, next, "", &page); err != nil {
			return nil, err
		}
		for _, node := range page.Data {
			snapshot.Entries = append(snapshot.Entries, malEntry(node))
		}
		next = page.Paging.Next
	}

	s.logger.Info("fetched myanimelist snapshot", "entries", len(snapshot.Entries))
	return snapshot, nil
}

// ApplyUpdate writes one entry's list status to MyAnimeList.
func (s *MALService) ApplyUpdate(ctx context.Context, entry models.ListEntry) error {
	animeID, err := strconv.Atoi(entry.Key)
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid correlation key", shared.ErrUnresolvable, entry.Key)
	}

	form := url.Values{}
	form.Set("status", malStatusOut[entry.Status])
	form.Set("num_watched_episodes", strconv.Itoa(entry.Progress))
	if entry.Score != nil {
		form.Set("score", strconv.Itoa(models.DenormalizeTen(*entry.Score)))
	}

	rawURL := fmt.Sprintf("%s/anime/%d/my_list_status", s.endpoint, animeID)
	if err := s.doRequest(ctx, http.MethodPatch, rawURL, form.Encode(), nil); err != nil {
		return err
	}

	s.logger.Debug("updated myanimelist entry", "title", entry.Title, "anime_id", animeID)
	return nil
}

// malEntry normalizes one API node. MAL timestamps are RFC 3339; a value
// that fails to parse leaves UpdatedAt zero so the entry never wins a
// conflict on a corrupt timestamp.
func malEntry(node malListNode) models.ListEntry {
	entry := models.ListEntry{
		Key:      strconv.Itoa(node.Node.ID),
		Title:    node.Node.Title,
		Status:   mapStatus(malStatusIn, node.ListStatus.Status),
		Progress: node.ListStatus.NumWatched,
	}
	if node.ListStatus.Score > 0 {
		score := models.NormalizeScore(node.ListStatus.Score, models.ScaleTen)
		entry.Score = &score
	}
	if ts, err := time.Parse(time.RFC3339, node.ListStatus.UpdatedAt); err == nil {
		entry.UpdatedAt = ts.UTC()
	}
	return entry
}
