// AniList GraphQL implementation of [Service]
//
// API reference: https://docs.anilist.co/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

const anilistEndpoint = "https://graphql.anilist.co"

// Request pacing: AniList allows 90 requests/minute per user.
const anilistMinInterval = 700 * time.Millisecond

const anilistListQuery = `
query ($userName: String) {
  MediaListCollection(userName: $userName, type: ANIME) {
    lists {
      entries {
        status
        score(format: POINT_100)
        progress
        updatedAt
        media {
          id
          idMal
          title { romaji english native }
        }
      }
    }
  }
}`

const anilistSearchQuery = `
query ($search: String, $limit: Int) {
  Page(perPage: $limit) {
    media(search: $search, type: ANIME) {
      id
      idMal
      title { romaji english native }
    }
  }
}`

const anilistSaveMutation = `
mutation ($mediaId: Int, $status: MediaListStatus, $score: Float, $progress: Int) {
  SaveMediaListEntry(mediaId: $mediaId, status: $status, score: $score, progress: $progress) {
    id
  }
}`

// MappingResolver caches the anilist_id <-> mal_id correlation between
// cycles so MAL-only titles do not need a remote search on every run.
type MappingResolver interface {
	// Resolve returns the cached AniList media ID for a MAL ID.
	Resolve(ctx context.Context, malID int) (int, bool, error)

	// Remember stores a resolved correlation.
	Remember(ctx context.Context, anilistID, malID int, title string) error
}

type anilistTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

func (t anilistTitle) preferred() string {
	if t.Romaji != "" {
		return t.Romaji
	}
	if t.English != "" {
		return t.English
	}
	return t.Native
}

type anilistMedia struct {
	ID    int          `json:"id"`
	IDMal int          `json:"idMal"`
	Title anilistTitle `json:"title"`
}

type anilistListEntry struct {
	Status    string       `json:"status"`
	Score     float64      `json:"score"`
	Progress  int          `json:"progress"`
	UpdatedAt int64        `json:"updatedAt"`
	Media     anilistMedia `json:"media"`
}

type anilistListResponse struct {
	MediaListCollection struct {
		Lists []struct {
			Entries []anilistListEntry `json:"entries"`
		} `json:"lists"`
	} `json:"MediaListCollection"`
}

type anilistSearchResponse struct {
	Page struct {
		Media []anilistMedia `json:"media"`
	} `json:"Page"`
}

var anilistStatusIn = map[string]models.WatchStatus{
	"CURRENT":   models.StatusWatching,
	"REPEATING": models.StatusWatching,
	"COMPLETED": models.StatusCompleted,
	"PAUSED":    models.StatusPaused,
	"DROPPED":   models.StatusDropped,
	"PLANNING":  models.StatusPlanned,
}

var anilistStatusOut = map[models.WatchStatus]string{
	models.StatusWatching:  "CURRENT",
	models.StatusCompleted: "COMPLETED",
	models.StatusPaused:    "PAUSED",
	models.StatusDropped:   "DROPPED",
	models.StatusPlanned:   "PLANNING",
}

// AniListService implements [Service] for the AniList GraphQL API.
type AniListService struct {
	endpoint   string
	username   string
	token      models.TokenRecord
	httpClient *http.Client
	pacer      *Pacer
	mappings   MappingResolver
	logger     *log.Logger
}

// AniListOpts contains construction options for an [AniListService].
type AniListOpts struct {
	Endpoint   string
	Username   string
	HTTPClient *http.Client
	Pacer      *Pacer
	Mappings   MappingResolver
	Logger     *log.Logger
}

// NewAniListService creates an AniList client.
func NewAniListService(opts AniListOpts) *AniListService {
	if opts.Endpoint == "" {
		opts.Endpoint = anilistEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Pacer == nil {
		opts.Pacer = NewPacer(anilistMinInterval)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &AniListService{
		endpoint:   opts.Endpoint,
		username:   opts.Username,
		httpClient: opts.HTTPClient,
		pacer:      opts.Pacer,
		mappings:   opts.Mappings,
		logger:     opts.Logger,
	}
}

func (s *AniListService) Name() models.ServiceName {
	return models.ServiceAniList
}

// Authorize installs the access token used for subsequent calls.
func (s *AniListService) Authorize(token models.TokenRecord) {
	s.token = token
}

// query executes a GraphQL request under the pacing rule.
func (s *AniListService) query(ctx context.Context, query string, variables map[string]any, result any) error {
	if s.token.AccessToken == "" {
		return fmt.Errorf("%w: call Authorize first", shared.ErrAuthFailed)
	}

	payload := map[string]any{"query": query}
	if variables != nil {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	return s.pacer.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return classifyTransportErr(err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp.StatusCode); err != nil {
			return err
		}

		var envelope struct {
			Data   json.RawMessage `json:"data"`
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrProtocol, err)
		}
		if len(envelope.Errors) > 0 {
			return fmt.Errorf("%w: graphql: %s", shared.ErrProtocol, envelope.Errors[0].Message)
		}
		if result != nil {
			if err := json.Unmarshal(envelope.Data, result); err != nil {
				return fmt.Errorf("%w: failed to decode data: %v", shared.ErrProtocol, err)
			}
		}
		return nil
	})
}

// FetchSnapshot retrieves the user's full anime list, normalized.
//
// Entries without a MAL ID get an empty correlation key; the resolver
// surfaces them as unresolvable. Resolved correlations feed the mapping
// cache as a side benefit of every fetch.
func (s *AniListService) FetchSnapshot(ctx context.Context) (*models.ListSnapshot, error) {
	var variables map[string]any
	if s.username != "" {
		variables = map[string]any{"userName": s.username}
	}

	var response anilistListResponse
	if err := s.query(ctx, anilistListQuery, variables, &response); err != nil {
		return nil, err
	}

	snapshot := &models.ListSnapshot{
		Service:   models.ServiceAniList,
		FetchedAt: time.Now().UTC(),
	}

	for _, group := range response.MediaListCollection.Lists {
		for _, raw := range group.Entries {
			entry := models.ListEntry{
				Title:     raw.Media.Title.preferred(),
				Status:    mapStatus(anilistStatusIn, raw.Status),
				Progress:  raw.Progress,
				UpdatedAt: time.Unix(raw.UpdatedAt, 0).UTC(),
			}
			if raw.Score > 0 {
				score := models.NormalizeScore(raw.Score, models.ScaleHundred)
				entry.Score = &score
			}
			if raw.Media.IDMal > 0 {
				entry.Key = strconv.Itoa(raw.Media.IDMal)
				if s.mappings != nil {
					if err := s.mappings.Remember(ctx, raw.Media.ID, raw.Media.IDMal, entry.Title); err != nil {
						s.logger.Warn("failed to cache id mapping", "title", entry.Title, "error", err)
					}
				}
			}
			snapshot.Entries = append(snapshot.Entries, entry)
		}
	}

	s.logger.Info("fetched anilist snapshot", "entries", len(snapshot.Entries))
	return snapshot, nil
}

// ApplyUpdate writes one entry to AniList.
//
// The entry's correlation key is a MAL ID, so the AniList media ID is looked
// up in the mapping cache first and resolved via title search on a miss.
func (s *AniListService) ApplyUpdate(ctx context.Context, entry models.ListEntry) error {
	malID, err := strconv.Atoi(entry.Key)
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid correlation key", shared.ErrUnresolvable, entry.Key)
	}

	mediaID, err := s.resolveMediaID(ctx, malID, entry.Title)
	if err != nil {
		return err
	}

	variables := map[string]any{
		"mediaId":  mediaID,
		"status":   anilistStatusOut[entry.Status],
		"progress": entry.Progress,
	}
	if entry.Score != nil {
		variables["score"] = *entry.Score
	}

	if err := s.query(ctx, anilistSaveMutation, variables, nil); err != nil {
		return err
	}

	s.logger.Debug("updated anilist entry", "title", entry.Title, "media_id", mediaID)
	return nil
}

// resolveMediaID finds the AniList media ID for a MAL ID, consulting the
// mapping cache before falling back to a remote title search.
func (s *AniListService) resolveMediaID(ctx context.Context, malID int, title string) (int, error) {
	if s.mappings != nil {
		if id, ok, err := s.mappings.Resolve(ctx, malID); err == nil && ok {
			return id, nil
		}
	}

	var response anilistSearchResponse
	variables := map[string]any{"search": title, "limit": 5}
	if err := s.query(ctx, anilistSearchQuery, variables, &response); err != nil {
		return 0, err
	}

	for _, media := range response.Page.Media {
		if media.IDMal == malID {
			if s.mappings != nil {
				if err := s.mappings.Remember(ctx, media.ID, malID, title); err != nil {
					s.logger.Warn("failed to cache id mapping", "title", title, "error", err)
				}
			}
			return media.ID, nil
		}
	}

	return 0, fmt.Errorf("%w: no anilist media found for %q (mal id %d)", shared.ErrUnresolvable, title, malID)
}

func mapStatus(table map[string]models.WatchStatus, raw string) models.WatchStatus {
	if status, ok := table[raw]; ok {
		return status
	}
	return models.StatusWatching
}
