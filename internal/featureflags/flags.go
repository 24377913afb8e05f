package featureflags

// Flags read by the service.
const (
	// RealtimePush relays new notifications to live channels after they are stored.
	RealtimePush = "realtime_push"
	// StoriesInFeed attaches the viewer's story bar to feed responses.
	StoriesInFeed = "stories_in_feed"
	// FeedFollowingOnly makes the feed default to followed authors plus the viewer.
	FeedFollowingOnly = "feed_following_only"
)

// Flag describes one flag the service understands.
type Flag struct {
	Name        string `json:"name"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

// Known lists every flag the service reads, with the value used when
// FEATURE_FLAGS does not mention it.
var Known = []Flag{
	{Name: RealtimePush, Default: "on", Description: "push stored notifications to live sockets and the event bus"},
	{Name: StoriesInFeed, Default: "on", Description: "attach the viewer's active stories to feed responses"},
	{Name: FeedFollowingOnly, Default: "off", Description: "limit the feed to followed authors unless the request says otherwise"},
}

// Defaults renders Known in FEATURE_FLAGS syntax.
var Defaults = func() string {
	out := ""
	for i, f := range Known {
		if i > 0 {
			out += ","
		}
		out += f.Name + "=" + f.Default
	}
	return out
}()

func lookup(name string) (Flag, bool) {
	for _, f := range Known {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}
