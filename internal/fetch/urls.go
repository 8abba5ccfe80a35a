package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// URLs builds the endpoints of the wiki and the trip-report archive.
type URLs struct {
	WikiBase    string
	EffectsPage string
	ArchiveBase string
	MaxResults  int
}

func (u URLs) wiki() string {
	return strings.TrimRight(u.WikiBase, "/")
}

func (u URLs) archive() string {
	return strings.TrimRight(u.ArchiveBase, "/")
}

// WikiGeneral is a substance's main wiki page.
func (u URLs) WikiGeneral(id string) string {
	return u.wiki() + "/wiki/" + id
}

// WikiSummary is a substance's summary page listing its effects.
func (u URLs) WikiSummary(id string) string {
	return u.WikiGeneral(id) + "/Summary"
}

// EffectsList is the global listing of effects grouped by category.
func (u URLs) EffectsList() string {
	return u.wiki() + "/wiki/" + u.EffectsPage
}

// WikiHistoryFeed is the Atom feed of a page's revision history.
func (u URLs) WikiHistoryFeed(id string) string {
	q := url.Values{"title": {id}, "action": {"history"}, "feed": {"atom"}}
	return u.wiki() + "/w/index.php?" + q.Encode()
}

// ArchiveHost returns the host name requests to the archive go to.
func (u URLs) ArchiveHost() string {
	parsed, err := url.Parse(u.ArchiveBase)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// ArchiveGeneral is the archive's default listing page for a substance.
func (u URLs) ArchiveGeneral(id string) string {
	return fmt.Sprintf("%s/experiences/subs/exp_%s_General.shtml", u.archive(), id)
}

// ArchiveAll lists every report for the archive's internal drug id.
func (u URLs) ArchiveAll(drugID string) string {
	return fmt.Sprintf("%s/experiences/exp.cgi?S=%s&C=1&ShowViews=0&Cellar=0&Start=0&Max=%d",
		u.archive(), url.QueryEscape(drugID), u.MaxResults)
}
