package catalog

import "time"

// Descriptor is one object as reported by the remote listing.
type Descriptor struct {
	RemoteID  string
	CreatedAt time.Time
	Metadata  map[string]string
}

// Page is one page of a folder listing. An empty NextPageToken means the
// folder is exhausted.
type Page struct {
	Descriptors   []Descriptor
	NextPageToken string
}
