package entities

import "time"

// PublishResult describes an accepted upload
type PublishResult struct {
	Target      string
	PluginID    string
	Version     string
	Location    string
	RunID       string
	PublishedAt time.Time
}
