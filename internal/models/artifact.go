package models

import "time"

// ArtifactMetadata describes one file under a bundle root.
type ArtifactMetadata struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
