// internal/models/response.go
package models

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaLink  MediaKind = "link"
)

// MediaRef points at an image or page the transport may render.
type MediaRef struct {
	Kind  MediaKind `json:"kind"`
	URL   string    `json:"url"`
	Title string    `json:"title,omitempty"`
}

// Response is the transport-agnostic reply for one query.
type Response struct {
	Text   string     `json:"text"`
	Media  []MediaRef `json:"media"`
	Intent Intent     `json:"intent"`
}
