// Package featureflags evaluates the runtime switches configured through
// FEATURE_FLAGS on top of the defaults in Known.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Manager holds the effective value of every flag: the Known defaults
// overlaid with the configured list.
// Example: "realtime_push=on,stories_in_feed=25%,feed_following_only=off"
type Manager struct {
	flags   map[string]string
	unknown []string
}

// NewManager parses a comma-separated key=value list. Malformed pairs are
// ignored; names outside Known are kept and reported by Unknown.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]string, len(Known))}
	for _, f := range Known {
		m.flags[f.Name] = f.Default
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		if _, known := lookup(key); !known {
			m.unknown = append(m.unknown, key)
		}
		m.flags[key] = value
	}
	sort.Strings(m.unknown)
	return m
}

// Enabled reports whether name is on for userID. Values are on/true/1,
// off/false/0 or N% for a deterministic per-identity rollout. Anything
// else, and any unset flag, is off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	return evaluate(name, value, userID)
}

func evaluate(name, value string, userID uint) bool {
	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		// anonymous callers never land in a partial rollout
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Raw returns a copy of the effective values, defaults included.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name, value := range m.flags {
		out[name] = evaluate(name, value, userID)
	}
	return out
}

// Unknown lists configured names the service never reads, usually typos.
func (m *Manager) Unknown() []string {
	return append([]string(nil), m.unknown...)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
