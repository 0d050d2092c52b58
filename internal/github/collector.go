package github

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/willynilly/action-update-cff-authors/internal/orcid"
	"github.com/willynilly/action-update-cff-authors/pkg/events"
	"github.com/willynilly/action-update-cff-authors/pkg/logging"
)

// coAuthorPattern matches Co-authored-by commit trailers.
var coAuthorPattern = regexp.MustCompile(`(?i)^Co-authored-by:\s*(.+?)\s*<(.+?)>$`)

// CollectOptions selects which contribution categories the collector gathers
// and where it looks for them.
type CollectOptions struct {
	// Repo is the "owner/name" of the repository the PR targets.
	Repo string

	// CompareRepo is the repository holding the head branch. For a
	// same-repo PR it equals Repo; for a fork PR it is the fork.
	CompareRepo string

	BaseBranch string
	HeadBranch string
	PRNumber   int

	Commits          bool
	IncludeCoAuthors bool
	Reviews          bool
	Issues           bool
	IssueComments    bool
	PRComments       bool

	// EnrichProfiles fetches the account profile of every distinct login
	// to fill in display names, emails, bio identifiers, and account type.
	EnrichProfiles bool
}

// Collector gathers contribution events for a pull request.
type Collector struct {
	client *Client
	logger *zerolog.Logger
}

// NewCollector creates a Collector over the given API client.
func NewCollector(client *Client, logger *zerolog.Logger) *Collector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Collector{client: client, logger: logger}
}

// Collect gathers the enabled contribution categories in a stable order:
// commits (with co-author trailers inline), reviews, PR comments, then
// linked-issue creations and comments. Secondary sources degrade to logged
// warnings; only the commit comparison is load-bearing enough to fail the
// collection outright.
func (col *Collector) Collect(ctx context.Context, opts CollectOptions) ([]events.Event, error) {
	var evts []events.Event

	if opts.Commits {
		commitEvents, err := col.commitEvents(ctx, opts)
		if err != nil {
			return nil, err
		}
		evts = append(evts, commitEvents...)
	}

	if opts.PRNumber > 0 {
		if opts.Reviews {
			evts = append(evts, col.reviewEvents(ctx, opts.Repo, opts.PRNumber)...)
		}
		if opts.PRComments {
			evts = append(evts, col.commentEvents(ctx, opts.Repo, opts.PRNumber, events.KindPRComment)...)
		}
		if opts.Issues || opts.IssueComments {
			for _, issue := range col.linkedIssues(ctx, opts.Repo, opts.PRNumber) {
				if opts.Issues {
					evts = append(evts, col.issueCreationEvents(ctx, opts.Repo, issue)...)
				}
				if opts.IssueComments {
					evts = append(evts, col.commentEvents(ctx, opts.Repo, issue, events.KindIssueComment)...)
				}
			}
		}
	}

	if opts.EnrichProfiles {
		col.enrich(ctx, evts)
	}

	return evts, nil
}

// compareResponse is the subset of the compare API the collector reads.
type compareResponse struct {
	Commits []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Author struct {
				Name  string    `json:"name"`
				Email string    `json:"email"`
				Date  time.Time `json:"date"`
			} `json:"author"`
			Message string `json:"message"`
		} `json:"commit"`
		Author *struct {
			Login string `json:"login"`
		} `json:"author"`
	} `json:"commits"`
}

func (col *Collector) commitEvents(ctx context.Context, opts CollectOptions) ([]events.Event, error) {
	repo := opts.CompareRepo
	if repo == "" {
		repo = opts.Repo
	}

	var compare compareResponse
	path := fmt.Sprintf("/repos/%s/compare/%s...%s", repo, opts.BaseBranch, opts.HeadBranch)
	if err := col.client.get(ctx, path, acceptJSON, &compare); err != nil {
		return nil, err
	}

	var evts []events.Event
	for _, c := range compare.Commits {
		actor := events.Actor{
			DisplayName: c.Commit.Author.Name,
			Email:       c.Commit.Author.Email,
		}
		if c.Author != nil {
			actor.Username = c.Author.Login
		}
		evts = append(evts, events.Event{
			Kind:      events.KindCommit,
			Actor:     actor,
			SourceRef: c.SHA,
			Timestamp: c.Commit.Author.Date,
		})

		if opts.IncludeCoAuthors {
			evts = append(evts, coAuthorEvents(c.Commit.Message, c.SHA, c.Commit.Author.Date)...)
		}
	}
	return evts, nil
}

// coAuthorEvents parses Co-authored-by trailers out of a commit message.
func coAuthorEvents(message, sha string, ts time.Time) []events.Event {
	var evts []events.Event
	for _, line := range strings.Split(message, "\n") {
		match := coAuthorPattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		evts = append(evts, events.Event{
			Kind: events.KindCoAuthor,
			Actor: events.Actor{
				DisplayName: strings.TrimSpace(match[1]),
				Email:       strings.TrimSpace(match[2]),
			},
			SourceRef: sha,
			Timestamp: ts,
		})
	}
	return evts
}

type review struct {
	ID   int64 `json:"id"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (col *Collector) reviewEvents(ctx context.Context, repo string, prNumber int) []events.Event {
	var reviews []review
	path := fmt.Sprintf("/repos/%s/pulls/%d/reviews", repo, prNumber)
	if err := col.client.get(ctx, path, acceptJSON, &reviews); err != nil {
		col.logger.Warn().Err(err).Int("pr", prNumber).Msg("skipping reviews")
		return nil
	}

	var evts []events.Event
	for _, r := range reviews {
		if r.User.Login == "" {
			continue
		}
		evts = append(evts, events.Event{
			Kind:      events.KindReview,
			Actor:     events.Actor{Username: r.User.Login},
			SourceRef: strconv.FormatInt(r.ID, 10),
			Timestamp: r.SubmittedAt,
		})
	}
	return evts
}

type issueComment struct {
	ID   int64 `json:"id"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

func (col *Collector) commentEvents(ctx context.Context, repo string, number int, kind events.Kind) []events.Event {
	var comments []issueComment
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repo, number)
	if err := col.client.get(ctx, path, acceptJSON, &comments); err != nil {
		col.logger.Warn().Err(err).Int("issue", number).Str("kind", kind.String()).Msg("skipping comments")
		return nil
	}

	var evts []events.Event
	for _, cm := range comments {
		if cm.User.Login == "" {
			continue
		}
		evts = append(evts, events.Event{
			Kind:      kind,
			Actor:     events.Actor{Username: cm.User.Login},
			SourceRef: strconv.FormatInt(cm.ID, 10),
			Timestamp: cm.CreatedAt,
		})
	}
	return evts
}

type timelineEvent struct {
	Event  string `json:"event"`
	Source struct {
		Issue struct {
			Number      int `json:"number"`
			PullRequest any `json:"pull_request"`
		} `json:"issue"`
	} `json:"source"`
}

// linkedIssues returns the numbers of issues cross-referenced from the pull
// request. Referenced pull requests are excluded.
func (col *Collector) linkedIssues(ctx context.Context, repo string, prNumber int) []int {
	var timeline []timelineEvent
	path := fmt.Sprintf("/repos/%s/issues/%d/timeline", repo, prNumber)
	if err := col.client.get(ctx, path, acceptTimeline, &timeline); err != nil {
		col.logger.Warn().Err(err).Int("pr", prNumber).Msg("skipping linked issues")
		return nil
	}

	var numbers []int
	for _, t := range timeline {
		if t.Event != "cross-referenced" {
			continue
		}
		if t.Source.Issue.PullRequest != nil || t.Source.Issue.Number == 0 {
			continue
		}
		numbers = append(numbers, t.Source.Issue.Number)
	}
	return numbers
}

type issue struct {
	Number int `json:"number"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

func (col *Collector) issueCreationEvents(ctx context.Context, repo string, number int) []events.Event {
	var iss issue
	path := fmt.Sprintf("/repos/%s/issues/%d", repo, number)
	if err := col.client.get(ctx, path, acceptJSON, &iss); err != nil {
		col.logger.Warn().Err(err).Int("issue", number).Msg("skipping issue creation")
		return nil
	}
	if iss.User.Login == "" {
		return nil
	}
	return []events.Event{{
		Kind:      events.KindIssue,
		Actor:     events.Actor{Username: iss.User.Login},
		SourceRef: strconv.Itoa(number),
		Timestamp: iss.CreatedAt,
	}}
}

// enrich fills in missing actor attributes from account profiles: display
// name, public email, a persistent identifier found in the bio, and the
// entity flag for organization accounts. Each login is fetched once; profile
// failures leave the actor as observed.
func (col *Collector) enrich(ctx context.Context, evts []events.Event) {
	profiles := map[string]*User{}

	for i := range evts {
		login := evts[i].Actor.Username
		if login == "" {
			continue
		}

		user, seen := profiles[strings.ToLower(login)]
		if !seen {
			var err error
			user, err = col.client.User(ctx, login)
			if err != nil {
				col.logger.Warn().Err(err).Str("login", login).Msg("profile fetch failed")
				user = nil
			}
			profiles[strings.ToLower(login)] = user
		}
		if user == nil {
			continue
		}

		actor := &evts[i].Actor
		if actor.DisplayName == "" && user.Name != "" {
			actor.DisplayName = user.Name
		}
		if actor.Email == "" && user.Email != "" {
			actor.Email = user.Email
		}
		if id := orcid.ExtractID(user.Bio); id != "" {
			actor.ORCID = orcid.URLPrefix + id
		}
		if user.IsOrganization() {
			actor.Entity = true
		}
	}
}
