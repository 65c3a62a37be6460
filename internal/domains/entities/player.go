package entities

// Player is a streamer identity resolved during Twitch login. The match
// core treats every field as read-only input.
type Player struct {
	Id           string
	Username     string
	ChannelName  string
	ProfileImage string
	ViewerCount  int
	AccessToken  string
}
