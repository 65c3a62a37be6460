package dtos

import (
	"github.com/tugochat/tugochat/internal/domains/entities"
)

// PlayerSnapshot is the opponent view shared with a client when a match is
// found. The access token never leaves the server.
type PlayerSnapshot struct {
	Id           string `json:"id"`
	Username     string `json:"username"`
	ChannelName  string `json:"channel_name"`
	ProfileImage string `json:"profile_image"`
	ViewerCount  int    `json:"viewer_count"`
}

func PlayerSnapshotFromEntity(player entities.Player) PlayerSnapshot {
	return PlayerSnapshot{
		Id:           player.Id,
		Username:     player.Username,
		ChannelName:  player.ChannelName,
		ProfileImage: player.ProfileImage,
		ViewerCount:  player.ViewerCount,
	}
}
