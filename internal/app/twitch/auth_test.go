package twitch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/tugochat/tugochat/internal/domains/dtos"
	"github.com/tugochat/tugochat/internal/domains/entities"
)

func testAuthConfig() Config {
	return Config{
		ClientId:       "test-client-id",
		ClientSecret:   "test-client-secret",
		RedirectUri:    "http://localhost:8000/api/auth/callback",
		IdentitySecret: "test-identity-secret",
		PullCommand:    "!pull",
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	req := require.New(t)
	auth := NewAuth(testAuthConfig())
	player := entities.Player{
		Id:           "12345",
		Username:     "Streamer",
		ChannelName:  "streamer",
		ProfileImage: "https://example.com/pic.png",
		ViewerCount:  321,
		AccessToken:  "twitch-access-token",
	}

	token, err := auth.IssueIdentity(player)
	req.NoError(err)
	req.NotEmpty(token)

	parsed, err := auth.ParseIdentity(token)
	req.NoError(err)
	req.Equal(player, parsed)
}

func TestParseIdentityRejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	issuer := NewAuth(testAuthConfig())
	token, err := issuer.IssueIdentity(entities.Player{Id: "12345"})
	req.NoError(err)

	otherConfig := testAuthConfig()
	otherConfig.IdentitySecret = "a-different-secret"
	verifier := NewAuth(otherConfig)

	_, err = verifier.ParseIdentity(token)
	req.Error(err)
}

func TestParseIdentityRejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	auth := NewAuth(testAuthConfig())

	claims := &identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "12345",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "tugochat",
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(testAuthConfig().IdentitySecret))
	req.NoError(err)

	_, err = auth.ParseIdentity(expired)
	req.ErrorIs(err, jwt.ErrTokenExpired)
}

func TestParseIdentityRejectsGarbage(t *testing.T) {
	req := require.New(t)
	auth := NewAuth(testAuthConfig())

	_, err := auth.ParseIdentity("not.a.token")
	req.Error(err)
	_, err = auth.ParseIdentity("")
	req.Error(err)
}

func TestHandleLoginIssuesAuthUrl(t *testing.T) {
	req := require.New(t)
	auth := NewAuth(testAuthConfig())

	w := httptest.NewRecorder()
	auth.handleLogin(w, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))
	req.Equal(http.StatusOK, w.Code)

	var resp dtos.AuthUrlResponse
	req.NoError(json.NewDecoder(w.Body).Decode(&resp))

	parsed, err := url.Parse(resp.AuthUrl)
	req.NoError(err)
	req.Equal("id.twitch.tv", parsed.Host)
	query := parsed.Query()
	req.Equal("test-client-id", query.Get("client_id"))
	req.Equal("code", query.Get("response_type"))
	req.NotEmpty(query.Get("state"))

	// The state is single use.
	req.True(auth.consumeState(query.Get("state")))
	req.False(auth.consumeState(query.Get("state")))
}

func TestConsumeStateRejectsUnknownAndExpired(t *testing.T) {
	req := require.New(t)
	auth := NewAuth(testAuthConfig())

	req.False(auth.consumeState("never-issued"))

	auth.states["stale"] = time.Now().Add(-stateTtl - time.Minute)
	req.False(auth.consumeState("stale"))

	auth.states["fresh"] = time.Now()
	req.True(auth.consumeState("fresh"))
}
