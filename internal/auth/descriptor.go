package auth

import (
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	"golang.org/x/oauth2"
)

// Descriptor describes one service's OAuth characteristics.
//
// CanRefresh is the capability flag that keeps the refresh-vs-reauthorize
// decision in one place: AniList issues no refresh token, so an expired
// AniList credential can only be cleared by a full authorization.
type Descriptor struct {
	Service    models.ServiceName
	Config     *oauth2.Config
	CanRefresh bool
	UsesPKCE   bool
}

// Descriptors builds the per-service OAuth descriptors from configuration.
func Descriptors(cfg *shared.Config) map[models.ServiceName]Descriptor {
	return map[models.ServiceName]Descriptor{
		models.ServiceAniList: {
			Service: models.ServiceAniList,
			Config: &oauth2.Config{
				ClientID:     cfg.AniList.ClientID,
				ClientSecret: cfg.AniList.ClientSecret,
				RedirectURL:  cfg.OAuth.RedirectURI,
				Endpoint: oauth2.Endpoint{
					AuthURL:  cfg.AniList.AuthURL,
					TokenURL: cfg.AniList.TokenURL,
				},
			},
			CanRefresh: false,
			UsesPKCE:   false,
		},
		models.ServiceMAL: {
			Service: models.ServiceMAL,
			Config: &oauth2.Config{
				ClientID:     cfg.MAL.ClientID,
				ClientSecret: cfg.MAL.ClientSecret,
				RedirectURL:  cfg.OAuth.RedirectURI,
				Endpoint: oauth2.Endpoint{
					AuthURL:  cfg.MAL.AuthURL,
					TokenURL: cfg.MAL.TokenURL,
				},
			},
			CanRefresh: true,
			UsesPKCE:   true,
		},
	}
}
