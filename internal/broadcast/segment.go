package broadcast

import (
	"math"
	"time"

	"github.com/wakabadc/clinic-line-admin/internal/profiles"
)

// Filter returns the profiles matching every condition the segment carries,
// preserving input order. A profile with no last visit date is excluded
// whenever a lastVisitDays bound is present at all.
func Filter(list []*profiles.Profile, seg Segment, now time.Time) []*profiles.Profile {
	matched := make([]*profiles.Profile, 0, len(list))
	for _, p := range list {
		if Matches(p, seg, now) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Matches reports whether a single profile satisfies every bound present
// in the segment. Absent bounds never exclude.
func Matches(p *profiles.Profile, seg Segment, now time.Time) bool {
	if r := seg.StampCount; r != nil {
		if r.Min != nil && p.StampCount < *r.Min {
			return false
		}
		if r.Max != nil && p.StampCount > *r.Max {
			return false
		}
	}
	if r := seg.LastVisitDays; r != nil {
		if p.LastVisitDate == nil {
			return false
		}
		// Floored, so a visit date later than now counts as day -1 and is
		// excluded by a min bound of 0.
		days := int(math.Floor(now.Sub(*p.LastVisitDate).Hours() / 24))
		if r.Min != nil && days < *r.Min {
			return false
		}
		if r.Max != nil && days > *r.Max {
			return false
		}
	}
	if seg.ViewMode.Set {
		if seg.ViewMode.Value == nil {
			if p.ViewMode != nil && *p.ViewMode != "" {
				return false
			}
		} else {
			if p.ViewMode == nil || *p.ViewMode != *seg.ViewMode.Value {
				return false
			}
		}
	}
	// An unset flag counts as not-friend, so isLineFriend=false also
	// matches profiles that never reported a status.
	if seg.IsLineFriend != nil {
		isFriend := p.IsLineFriend != nil && *p.IsLineFriend
		if isFriend != *seg.IsLineFriend {
			return false
		}
	}
	return true
}
