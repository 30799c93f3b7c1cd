package dto

import "time"

// CreateAssetRequest registers a piece of tracked equipment.
type CreateAssetRequest struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// AssetResponse is the wire shape of an asset.
type AssetResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tag       string    `json:"tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
