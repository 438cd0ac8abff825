package report

import (
	"cmp"
	"slices"
	"time"

	"git.home.luguber.info/inful/legistrack/internal/bill"
)

// SponsorCount is one row of the sponsor ranking.
type SponsorCount struct {
	Sponsor string `json:"sponsor"`
	Bills   int    `json:"bills"`
}

// Activity is a bill with the days since its last recorded activity.
type Activity struct {
	Key   string `json:"key"`
	ID    string `json:"id"`
	Title string `json:"title"`
	Days  int    `json:"days"`
}

// ActivityBuckets group bills by days since last activity.
type ActivityBuckets struct {
	Recent    int `json:"recent"`     // <= 30 days
	Moderate  int `json:"moderate"`   // 31-90
	Stale     int `json:"stale"`      // 91-180
	VeryStale int `json:"very_stale"` // > 180
}

// Summary aggregates the collection.
type Summary struct {
	GeneratedAt           time.Time          `json:"generated_at"`
	Total                 int                `json:"total"`
	Active                int                `json:"active"`
	DiedOnOrderPaper      int                `json:"died_on_order_paper"`
	ByStage               map[bill.Stage]int `json:"by_stage"`
	ByClassification      map[string]int     `json:"by_classification"`
	AssentReceived        int                `json:"assent_received"`
	AssentPending         int                `json:"assent_pending"`
	SpecialRecommendation int                `json:"special_recommendation"`
	TopSponsors           []SponsorCount     `json:"top_sponsors"`
	MostRecentlyActive    []Activity         `json:"most_recently_active"`
	Activity              ActivityBuckets    `json:"activity"`
}

// Summary list sizes.
const (
	topSponsors = 15
	topActivity = 10
)

// Summarize aggregates entities as of now.
func Summarize(entities []*bill.Entity, now time.Time) Summary {
	s := Summary{
		GeneratedAt:      now,
		Total:            len(entities),
		ByStage:          map[bill.Stage]int{},
		ByClassification: map[string]int{},
	}
	sponsors := map[string]int{}
	var activity []Activity

	for _, e := range entities {
		s.ByStage[e.CurrentStage()]++
		s.ByClassification[e.Classification()]++
		if e.Active() {
			s.Active++
		}
		if e.DiedOnOrderPaper() {
			s.DiedOnOrderPaper++
		}
		if e.SpecialAssentDate() != nil || e.CurrentStage() == bill.StageFinalAssent {
			s.AssentReceived++
		} else {
			s.AssentPending++
		}
		if e.HasSpecialRecommendation() {
			s.SpecialRecommendation++
		}
		if sp := e.Sponsor(); sp != "" {
			sponsors[sp]++
		}
		if d := daysSince(e.LastActivityDate(), now); d != nil {
			activity = append(activity, Activity{Key: e.Key(), ID: e.ID(), Title: e.Title(), Days: *d})
			switch {
			case *d <= 30:
				s.Activity.Recent++
			case *d <= 90:
				s.Activity.Moderate++
			case *d <= 180:
				s.Activity.Stale++
			default:
				s.Activity.VeryStale++
			}
		}
	}

	for sp, n := range sponsors {
		s.TopSponsors = append(s.TopSponsors, SponsorCount{Sponsor: sp, Bills: n})
	}
	slices.SortFunc(s.TopSponsors, func(a, b SponsorCount) int {
		if c := cmp.Compare(b.Bills, a.Bills); c != 0 {
			return c
		}
		return cmp.Compare(a.Sponsor, b.Sponsor)
	})
	if len(s.TopSponsors) > topSponsors {
		s.TopSponsors = s.TopSponsors[:topSponsors]
	}

	slices.SortFunc(activity, func(a, b Activity) int {
		if c := cmp.Compare(a.Days, b.Days); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if len(activity) > topActivity {
		activity = activity[:topActivity]
	}
	s.MostRecentlyActive = activity
	return s
}
