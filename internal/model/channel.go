// Package model defines the domain model.
package model

// ChannelSummary is the one-row summary of the queried channel.
// Built once per analysis run and not modified afterwards.
type ChannelSummary struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	SubscriberCount   Optional[int64] `json:"subscriber_count"` // missing when the channel hides it
	ViewCount         Optional[int64] `json:"view_count"`
	VideoCount        Optional[int64] `json:"video_count"`
	UploadsPlaylistID string          `json:"uploads_playlist_id"`
}
