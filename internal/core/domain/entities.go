package domain

import (
	"time"
)

// Source identifies where a venue candidate came from.
type Source string

const (
	SourceInternal Source = "internal"
	SourceExternal Source = "external"
)

// Candidate is a venue search result from either source. The concrete
// type is always InternalVenue or ExternalCandidate.
type Candidate interface {
	Source() Source
	DisplayName() string
	Location() Coordinate
}

// InternalVenue is a venue owned by the internal store.
type InternalVenue struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	NameVariants []string   `json:"name_variants,omitempty"`
	Address      string     `json:"address,omitempty"`
	Coordinate   Coordinate `json:"coordinate"`
	ExternalID   string     `json:"external_id,omitempty"`
	Verified     bool       `json:"verified"`
	Distance     *float64   `json:"distance,omitempty"` // computed field
}

func (v InternalVenue) Source() Source       { return SourceInternal }
func (v InternalVenue) DisplayName() string  { return v.Name }
func (v InternalVenue) Location() Coordinate { return v.Coordinate }

// ExternalCandidate is a transient place returned by the external provider.
type ExternalCandidate struct {
	ExternalID string     `json:"external_id"`
	Name       string     `json:"name"`
	Address    string     `json:"address,omitempty"`
	Coordinate Coordinate `json:"coordinate"`
}

func (c ExternalCandidate) Source() Source       { return SourceExternal }
func (c ExternalCandidate) DisplayName() string  { return c.Name }
func (c ExternalCandidate) Location() Coordinate { return c.Coordinate }

// ResolvedCandidateSet is the deduplicated output of one search.
type ResolvedCandidateSet struct {
	InternalVenues     []InternalVenue     `json:"internal"`
	ExternalCandidates []ExternalCandidate `json:"external"`
	// Degraded is set when the external provider failed or timed out.
	Degraded bool `json:"degraded"`
}

// All returns internal venues first, then external candidates, in order.
func (s ResolvedCandidateSet) All() []Candidate {
	out := make([]Candidate, 0, len(s.InternalVenues)+len(s.ExternalCandidates))
	for _, v := range s.InternalVenues {
		out = append(out, v)
	}
	for _, c := range s.ExternalCandidates {
		out = append(out, c)
	}
	return out
}

// GeoEvent is an event placed on the map.
type GeoEvent struct {
	ID            string     `json:"id"`
	Coordinate    Coordinate `json:"coordinate"`
	StartDateTime time.Time  `json:"start_date_time"`
	VenueRef      string     `json:"venue_ref,omitempty"`
	ArtistRefs    []string   `json:"artist_refs,omitempty"`
}

// LocationGroup is the set of events sharing one location key.
type LocationGroup struct {
	LocationKey string     `json:"location_key"`
	Coordinate  Coordinate `json:"coordinate"`
	Events      []GeoEvent `json:"events"`
}

// MarkerHandle is an opaque reference owned by the rendering collaborator.
type MarkerHandle string

// MarkerRecord is one live marker tracked by the reconciliation engine.
type MarkerRecord struct {
	LocationKey         string       `json:"location_key"`
	Coordinate          Coordinate   `json:"coordinate"`
	Handle              MarkerHandle `json:"handle"`
	EventCount          int          `json:"event_count"`
	RepresentativeEvent GeoEvent     `json:"representative_event"`
}

// MarkerOpKind is the kind of change applied to a marker.
type MarkerOpKind string

const (
	MarkerOpAdd    MarkerOpKind = "add"
	MarkerOpUpdate MarkerOpKind = "update"
	MarkerOpRemove MarkerOpKind = "remove"
)

// MarkerOp is one entry of a reconciliation diff.
type MarkerOp struct {
	Kind        MarkerOpKind
	LocationKey string
	Group       LocationGroup // zero for removals
}

// ClusterMember is a live marker handed to the viewport clustering layer.
type ClusterMember struct {
	Handle     MarkerHandle `json:"handle"`
	Coordinate Coordinate   `json:"coordinate"`
	EventCount int          `json:"event_count"`
}

// Cluster is an aggregated glyph for a set of nearby markers.
type Cluster struct {
	Key         string         `json:"key"`
	Center      Coordinate     `json:"center"`
	MarkerCount int            `json:"marker_count"`
	EventCount  int            `json:"event_count"`
	Handles     []MarkerHandle `json:"handles"`
}

// MarkerCommand is the wire message sent to map clients.
type MarkerCommand struct {
	Op          string       `json:"op"` // "create" | "update" | "destroy"
	Handle      MarkerHandle `json:"handle"`
	LocationKey string       `json:"location_key,omitempty"`
	Coordinate  *Coordinate  `json:"coordinate,omitempty"`
	Label       string       `json:"label,omitempty"`
	SentAt      time.Time    `json:"sent_at"`
}
