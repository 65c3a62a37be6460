package dtos

// Shapes exchanged with the Twitch OAuth and helix endpoints, trimmed to
// the fields the server reads.

type TwitchTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type TwitchUser struct {
	Id              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageUrl string `json:"profile_image_url"`
}

type TwitchUsersResponse struct {
	Data []TwitchUser `json:"data"`
}

type TwitchStream struct {
	UserId      string `json:"user_id"`
	ViewerCount int    `json:"viewer_count"`
}

type TwitchStreamsResponse struct {
	Data []TwitchStream `json:"data"`
}

type TwitchValidation struct {
	ClientId  string `json:"client_id"`
	Login     string `json:"login"`
	UserId    string `json:"user_id"`
	ExpiresIn int    `json:"expires_in"`
}

type AuthUrlResponse struct {
	AuthUrl string `json:"auth_url"`
}

type LoginResponse struct {
	User        PlayerSnapshot `json:"user"`
	AccessToken string         `json:"access_token"`
	Token       string         `json:"token"`
}

type ValidateResponse struct {
	Valid bool             `json:"valid"`
	Data  TwitchValidation `json:"data"`
}
