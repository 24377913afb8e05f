package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"socialhub/internal/models"
	"socialhub/internal/service"

	"gopkg.in/yaml.v3"
)

// Scenario is a hand-written data set, usually loaded from YAML, that
// reproduces a specific situation such as a busy feed or a torn follow pair.
type Scenario struct {
	Identities []ScenarioIdentity `yaml:"identities"`
	Follows    [][2]string        `yaml:"follows"`
	Posts      []ScenarioPost     `yaml:"posts"`
	Stories    []ScenarioStory    `yaml:"stories"`
	Saved      []ScenarioSave     `yaml:"saved"`
}

type ScenarioIdentity struct {
	Username string `yaml:"username"`
	Bio      string `yaml:"bio"`
	Photo    string `yaml:"photo"`
}

type ScenarioPost struct {
	Author   string            `yaml:"author"`
	Kind     models.PostKind   `yaml:"kind"`
	Body     string            `yaml:"body"`
	Caption  string            `yaml:"caption"`
	Likes    []string          `yaml:"likes"`
	Comments []ScenarioComment `yaml:"comments"`
	// Ref lets saved entries point at this post.
	Ref string `yaml:"ref"`
}

type ScenarioComment struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

type ScenarioStory struct {
	Author string `yaml:"author"`
	Image  string `yaml:"image"`
}

// ScenarioSave bookmarks either a scenario post (Post holds its ref) or an
// external item.
type ScenarioSave struct {
	Owner       string `yaml:"owner"`
	Post        string `yaml:"post"`
	ExternalRef string `yaml:"external_ref"`
	Image       string `yaml:"image"`
	AuthorName  string `yaml:"author_name"`
}

// LoadScenario decodes a YAML scenario, rejecting unknown fields.
func LoadScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &sc, nil
}

// LoadScenarioFile reads a scenario from path.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadScenario(f)
}

// ApplyScenario writes sc through the services. Identities that already exist
// are reused, so applying the same scenario twice only adds new content.
func (s *Seeder) ApplyScenario(ctx context.Context, sc *Scenario) (Report, error) {
	var report Report
	ids := make(map[string]uint, len(sc.Identities))

	for _, si := range sc.Identities {
		externalID := "seed|" + si.Username
		identity, err := s.svc.Identity.Register(ctx, service.RegisterInput{
			ExternalID:      externalID,
			Username:        si.Username,
			Bio:             si.Bio,
			ProfilePhotoRef: si.Photo,
		})
		switch {
		case err == nil:
			ids[si.Username] = identity.ID
			report.Identities++
		case models.IsConflict(err):
			id, resolveErr := s.svc.Identity.ResolveActorID(ctx, externalID)
			if resolveErr != nil {
				return report, fmt.Errorf("identity %q: %w", si.Username, err)
			}
			ids[si.Username] = id
		default:
			return report, fmt.Errorf("identity %q: %w", si.Username, err)
		}
	}

	lookup := func(username string) (uint, error) {
		id, ok := ids[username]
		if !ok {
			return 0, fmt.Errorf("scenario references unknown identity %q", username)
		}
		return id, nil
	}

	for _, pair := range sc.Follows {
		actor, err := lookup(pair[0])
		if err != nil {
			return report, err
		}
		target, err := lookup(pair[1])
		if err != nil {
			return report, err
		}
		created, err := s.svc.Graph.Follow(ctx, actor, target)
		if err != nil {
			return report, fmt.Errorf("follow %s -> %s: %w", pair[0], pair[1], err)
		}
		if created {
			report.Follows++
		}
	}

	postRefs := make(map[string]uint)
	for _, sp := range sc.Posts {
		author, err := lookup(sp.Author)
		if err != nil {
			return report, err
		}
		post, err := s.svc.Content.CreatePost(ctx, service.CreatePostInput{
			AuthorID: author, Kind: sp.Kind, Body: sp.Body, Caption: sp.Caption,
		})
		if err != nil {
			return report, fmt.Errorf("post by %s: %w", sp.Author, err)
		}
		report.Posts++
		if sp.Ref != "" {
			postRefs[sp.Ref] = post.ID
		}

		for _, liker := range sp.Likes {
			id, err := lookup(liker)
			if err != nil {
				return report, err
			}
			if created, err := s.svc.Engagement.Like(ctx, post.ID, id); err != nil {
				return report, err
			} else if created {
				report.Likes++
			}
		}
		for _, c := range sp.Comments {
			id, err := lookup(c.Author)
			if err != nil {
				return report, err
			}
			if _, err := s.svc.Engagement.AddComment(ctx, post.ID, id, c.Text); err != nil {
				return report, err
			}
			report.Comments++
		}
	}

	for _, st := range sc.Stories {
		author, err := lookup(st.Author)
		if err != nil {
			return report, err
		}
		if _, err := s.svc.Content.CreateStory(ctx, author, st.Image); err != nil {
			return report, fmt.Errorf("story by %s: %w", st.Author, err)
		}
		report.Stories++
	}

	for _, sv := range sc.Saved {
		owner, err := lookup(sv.Owner)
		if err != nil {
			return report, err
		}
		in := service.SaveInput{
			Source:      models.SourceExternal,
			ExternalRef: sv.ExternalRef,
			Snapshot:    models.SavedSnapshot{ImageRef: sv.Image, AuthorName: sv.AuthorName},
		}
		if sv.Post != "" {
			postID, ok := postRefs[sv.Post]
			if !ok {
				return report, fmt.Errorf("scenario references unknown post %q", sv.Post)
			}
			in = service.SaveInput{Source: models.SourceInternal, PostID: postID}
		}
		_, created, err := s.svc.Saved.Save(ctx, owner, in)
		if err != nil {
			return report, fmt.Errorf("save for %s: %w", sv.Owner, err)
		}
		if created {
			report.Saved++
		}
	}

	return report, nil
}
