package usecases

import (
	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/pkg/geospatial"
	"github.com/samirrijal/gigmap/internal/pkg/similarity"
)

const (
	// ProximityThresholdMeters is the distance under which two places are the same venue.
	ProximityThresholdMeters = 50.0
	// NameSimilarityThreshold is the score a name must exceed to count as a match.
	NameSimilarityThreshold = 85
)

// MatchTier records which rule identified a duplicate.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierIdentity
	TierProximity
	TierName
)

func (t MatchTier) String() string {
	switch t {
	case TierIdentity:
		return "identity"
	case TierProximity:
		return "proximity"
	case TierName:
		return "name"
	default:
		return "none"
	}
}

// Duplicate describes an external candidate dropped by Resolve.
type Duplicate struct {
	Candidate domain.ExternalCandidate
	VenueID   string
	Tier      MatchTier
}

// indexedVenue caches the normalized names of one internal venue.
type indexedVenue struct {
	venue *domain.InternalVenue
	names []string
}

// Resolve deduplicates external candidates against internal venues.
func Resolve(internal []domain.InternalVenue, external []domain.ExternalCandidate) domain.ResolvedCandidateSet {
	set, _ := ResolveWithDuplicates(internal, external)
	return set
}

// ResolveWithDuplicates is Resolve that also reports every dropped candidate.
// Internal venues are returned verbatim and first; surviving externals keep
// their original order. Neither input is modified.
func ResolveWithDuplicates(internal []domain.InternalVenue, external []domain.ExternalCandidate) (domain.ResolvedCandidateSet, []Duplicate) {
	// both slices are non-nil so empty sides encode as [] rather than null
	set := domain.ResolvedCandidateSet{
		InternalVenues:     append([]domain.InternalVenue{}, internal...),
		ExternalCandidates: []domain.ExternalCandidate{},
	}
	if len(external) == 0 {
		return set, nil
	}
	if len(internal) == 0 {
		set.ExternalCandidates = append(set.ExternalCandidates, external...)
		return set, nil
	}

	index := make([]indexedVenue, len(set.InternalVenues))
	for i := range set.InternalVenues {
		v := &set.InternalVenues[i]
		names := make([]string, 0, 1+len(v.NameVariants))
		for _, n := range append([]string{v.Name}, v.NameVariants...) {
			if norm := similarity.Normalize(n); norm != "" {
				names = append(names, norm)
			}
		}
		index[i] = indexedVenue{venue: v, names: names}
	}

	var dups []Duplicate
	for _, c := range external {
		if venueID, tier := matchCandidate(c, index); tier != TierNone {
			dups = append(dups, Duplicate{Candidate: c, VenueID: venueID, Tier: tier})
			continue
		}
		set.ExternalCandidates = append(set.ExternalCandidates, c)
	}
	return set, dups
}

// matchCandidate tests c against every venue. The cheap identity and
// proximity tiers run over all venues before any name is compared.
func matchCandidate(c domain.ExternalCandidate, index []indexedVenue) (string, MatchTier) {
	for _, iv := range index {
		if c.ExternalID != "" && iv.venue.ExternalID == c.ExternalID {
			return iv.venue.ID, TierIdentity
		}
	}

	if c.Coordinate.Valid() {
		for _, iv := range index {
			if iv.venue.Coordinate.Valid() &&
				geospatial.Distance(c.Coordinate, iv.venue.Coordinate) < ProximityThresholdMeters {
				return iv.venue.ID, TierProximity
			}
		}
	}

	name := similarity.Normalize(c.Name)
	if name == "" {
		return "", TierNone
	}
	for _, iv := range index {
		for _, n := range iv.names {
			if similarity.Normalized(name, n) > NameSimilarityThreshold {
				return iv.venue.ID, TierName
			}
		}
	}
	return "", TierNone
}
