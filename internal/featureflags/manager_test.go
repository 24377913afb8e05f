package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", 1) {
		t.Fatal("unset flags must be off")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	if !m.Enabled("always", 1) {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", 1) || m.Enabled("broken", 1) {
		t.Fatal("0% and malformed rollouts should be disabled")
	}

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", 42); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}
	if m.Enabled("canary", 0) {
		t.Fatal("percentage rollout requires non-zero userID")
	}
}

func TestNewManager_EmptyConfigUsesKnownDefaults(t *testing.T) {
	m := NewManager("")

	if !m.Enabled(RealtimePush, 7) || !m.Enabled(StoriesInFeed, 7) {
		t.Fatal("realtime push and stories in feed should default on")
	}
	if m.Enabled(FeedFollowingOnly, 7) {
		t.Fatal("following-only feed should default off")
	}
	if got := len(m.Raw()); got != len(Known) {
		t.Fatalf("expected %d effective flags, got %d", len(Known), got)
	}
	if len(m.Unknown()) != 0 {
		t.Fatalf("no unknown flags expected, got %v", m.Unknown())
	}
}

func TestNewManager_OverridesAndUnknownNames(t *testing.T) {
	m := NewManager(" bad , Realtime_Push = off, stories_in_fed=on ,feed_following_only=50% ")

	raw := m.Raw()
	if raw[RealtimePush] != "off" || raw[FeedFollowingOnly] != "50%" || raw[StoriesInFeed] != "on" {
		t.Fatalf("unexpected effective flags: %#v", raw)
	}
	if m.Enabled(RealtimePush, 1) {
		t.Fatal("configured value must override the default")
	}

	unknown := m.Unknown()
	if len(unknown) != 1 || unknown[0] != "stories_in_fed" {
		t.Fatalf("expected the misspelt flag to be reported, got %v", unknown)
	}

	snap := m.Snapshot(123)
	if len(snap) != len(Known)+1 {
		t.Fatalf("expected snapshot size %d, got %d", len(Known)+1, len(snap))
	}
}

func TestDefaultsMatchesKnown(t *testing.T) {
	if Defaults != "realtime_push=on,stories_in_feed=on,feed_following_only=off" {
		t.Fatalf("unexpected defaults string %q", Defaults)
	}
}
