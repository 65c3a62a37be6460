package twitch

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tugochat/tugochat/internal/domains/dtos"
	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

const (
	authorizeUrl = "https://id.twitch.tv/oauth2/authorize"
	tokenUrl     = "https://id.twitch.tv/oauth2/token"
	validateUrl  = "https://id.twitch.tv/oauth2/validate"
	usersUrl     = "https://api.twitch.tv/helix/users"
	streamsUrl   = "https://api.twitch.tv/helix/streams"

	oauthScopes = "user:read:email channel:read:subscriptions chat:read"

	identityTtl = 24 * time.Hour
	stateTtl    = 10 * time.Minute
)

// identityClaims is the signed player identity issued after a completed
// OAuth login and presented back on join_queue.
type identityClaims struct {
	Username     string `json:"username"`
	ChannelName  string `json:"channel_name"`
	ProfileImage string `json:"profile_image"`
	ViewerCount  int    `json:"viewer_count"`
	AccessToken  string `json:"access_token"`
	jwt.RegisteredClaims
}

type Auth struct {
	config Config
	http   *http.Client

	mu     sync.Mutex
	states map[string]time.Time
}

func NewAuth(config Config) *Auth {
	return &Auth{
		config: config,
		http:   new(http.Client),
		states: make(map[string]time.Time),
	}
}

// Register method    mounts the OAuth endpoints on mux
func (a *Auth) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/login", a.handleLogin)
	mux.HandleFunc("/api/auth/callback", a.handleCallback)
	mux.HandleFunc("/api/auth/validate", a.handleValidate)
}

func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := newStateToken()
	if err != nil {
		http.Error(w, "failed to create state token", http.StatusInternalServerError)
		return
	}

	a.mu.Lock()
	for s, issued := range a.states {
		if time.Since(issued) > stateTtl {
			delete(a.states, s)
		}
	}
	a.states[state] = time.Now()
	a.mu.Unlock()

	params := url.Values{}
	params.Set("client_id", a.config.ClientId)
	params.Set("redirect_uri", a.config.RedirectUri)
	params.Set("response_type", "code")
	params.Set("scope", oauthScopes)
	params.Set("state", state)

	writeJson(w, http.StatusOK, dtos.AuthUrlResponse{
		AuthUrl: authorizeUrl + "?" + params.Encode(),
	})
}

func (a *Auth) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}
	if !a.consumeState(state) {
		http.Error(w, "invalid state token", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	accessToken, err := a.exchangeCode(ctx, code)
	if err != nil {
		logging.Error("failed to exchange code", zap.Error(err))
		http.Error(w, "failed to get access token", http.StatusBadRequest)
		return
	}

	player, err := a.ResolvePlayer(ctx, accessToken)
	if err != nil {
		logging.Error("failed to resolve player", zap.Error(err))
		http.Error(w, "failed to get user info", http.StatusBadRequest)
		return
	}

	identity, err := a.IssueIdentity(player)
	if err != nil {
		logging.Error("failed to issue identity token", zap.Error(err))
		http.Error(w, "failed to issue identity token", http.StatusInternalServerError)
		return
	}

	logging.Info("player logged in",
		zap.String("player_id", player.Id),
		zap.String("channel", player.ChannelName),
		zap.Int("viewer_count", player.ViewerCount),
	)
	writeJson(w, http.StatusOK, dtos.LoginResponse{
		User:        dtos.PlayerSnapshotFromEntity(player),
		AccessToken: accessToken,
		Token:       identity,
	})
}

func (a *Auth) handleValidate(w http.ResponseWriter, r *http.Request) {
	accessToken := r.URL.Query().Get("access_token")
	if accessToken == "" {
		http.Error(w, "missing access token", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, validateUrl, nil)
	if err != nil {
		http.Error(w, "failed to create request", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := a.http.Do(req)
	if err != nil {
		http.Error(w, "failed to reach validation endpoint", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return
	}

	var validation dtos.TwitchValidation
	if err := json.NewDecoder(resp.Body).Decode(&validation); err != nil {
		http.Error(w, "failed to decode body", http.StatusBadGateway)
		return
	}
	writeJson(w, http.StatusOK, dtos.ValidateResponse{Valid: true, Data: validation})
}

// exchangeCode trades an authorization code for a user access token.
func (a *Auth) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", a.config.ClientId)
	form.Set("client_secret", a.config.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.config.RedirectUri)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var token dtos.TwitchTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	return token.AccessToken, nil
}

// ResolvePlayer builds the player identity behind an access token: helix
// user info plus the live viewer count of the channel.
func (a *Auth) ResolvePlayer(ctx context.Context, accessToken string) (entities.Player, error) {
	var users dtos.TwitchUsersResponse
	if err := a.getHelix(ctx, usersUrl, accessToken, &users); err != nil {
		return entities.Player{}, fmt.Errorf("failed to get user info: %w", err)
	}
	if len(users.Data) == 0 {
		return entities.Player{}, fmt.Errorf("no user behind access token")
	}
	user := users.Data[0]

	// An offline channel has no stream entry and counts as zero viewers.
	viewerCount := 0
	var streams dtos.TwitchStreamsResponse
	err := a.getHelix(ctx, streamsUrl+"?user_id="+url.QueryEscape(user.Id), accessToken, &streams)
	if err == nil && len(streams.Data) > 0 {
		viewerCount = streams.Data[0].ViewerCount
	}

	return entities.Player{
		Id:           user.Id,
		Username:     user.DisplayName,
		ChannelName:  user.Login,
		ProfileImage: user.ProfileImageUrl,
		ViewerCount:  viewerCount,
		AccessToken:  accessToken,
	}, nil
}

func (a *Auth) getHelix(ctx context.Context, u, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Client-Id", a.config.ClientId)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	return nil
}

// IssueIdentity signs a player identity the client holds on to and presents
// when joining the queue.
func (a *Auth) IssueIdentity(player entities.Player) (string, error) {
	claims := &identityClaims{
		Username:     player.Username,
		ChannelName:  player.ChannelName,
		ProfileImage: player.ProfileImage,
		ViewerCount:  player.ViewerCount,
		AccessToken:  player.AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player.Id,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(identityTtl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "tugochat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.config.IdentitySecret))
}

// ParseIdentity validates an identity token and recovers the player.
func (a *Auth) ParseIdentity(tokenString string) (entities.Player, error) {
	token, err := jwt.ParseWithClaims(tokenString, &identityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.config.IdentitySecret), nil
	})
	if err != nil {
		return entities.Player{}, err
	}
	claims, ok := token.Claims.(*identityClaims)
	if !ok || !token.Valid {
		return entities.Player{}, jwt.ErrSignatureInvalid
	}
	return entities.Player{
		Id:           claims.Subject,
		Username:     claims.Username,
		ChannelName:  claims.ChannelName,
		ProfileImage: claims.ProfileImage,
		ViewerCount:  claims.ViewerCount,
		AccessToken:  claims.AccessToken,
	}, nil
}

func (a *Auth) consumeState(state string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	issued, exist := a.states[state]
	if !exist {
		return false
	}
	delete(a.states, state)
	return time.Since(issued) <= stateTtl
}

func newStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func writeJson(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", zap.Error(err))
	}
}
