// Package config materializes the tool's configuration into one explicit
// struct. Values come from the environment (the GitHub Actions contract),
// optionally seeded from a .env file for local runs, and from the workflow
// event payload for the pull-request coordinates.
package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/willynilly/action-update-cff-authors/pkg/errors"
	"github.com/willynilly/action-update-cff-authors/pkg/match"
)

// Config is the complete runtime configuration. No package reads the
// environment after Load returns.
type Config struct {
	// Repo is the "owner/name" repository the pull request targets.
	Repo string `mapstructure:"repo"`

	// Token authenticates against the platform API.
	Token string `mapstructure:"token"`

	// CFFPath is the citation file inside the checkout.
	CFFPath string `mapstructure:"cff_path"`

	// OutputPath is the GitHub Actions output file.
	OutputPath string `mapstructure:"output_path"`

	// EventPath is the workflow event payload.
	EventPath string `mapstructure:"event_path"`

	// CommitSHA is the head commit, shown in the report footer.
	CommitSHA string `mapstructure:"commit_sha"`

	// Pull-request coordinates, filled from the event payload.
	PRNumber    int
	BaseBranch  string
	HeadBranch  string
	CompareRepo string // head repo, differs from Repo for fork PRs

	// Contribution category toggles.
	Commits          bool `mapstructure:"commits"`
	Reviews          bool `mapstructure:"reviews"`
	Issues           bool `mapstructure:"issues"`
	IssueComments    bool `mapstructure:"issue_comments"`
	PRComments       bool `mapstructure:"pr_comments"`
	IncludeCoAuthors bool `mapstructure:"include_coauthors"`

	// Behavior toggles.
	PostComment                bool `mapstructure:"post_comment"`
	MissingAuthorInvalidatesPR bool `mapstructure:"missing_author_invalidates_pr"`

	// BotBlacklist lists account names excluded from authorship,
	// comma-separated in the environment.
	BotBlacklist []string

	// MinimumMetadata is the evidence threshold for synthesizing a new
	// author: "name" or "contact".
	MinimumMetadata string `mapstructure:"minimum_metadata"`

	// External identifier lookup controls.
	LookupORCID       bool `mapstructure:"lookup_orcid"`
	LookupConcurrency int  `mapstructure:"lookup_concurrency"`
	LookupRetries     int  `mapstructure:"lookup_retries"`
}

// envBindings maps struct keys to the environment variables of the action's
// workflow contract.
var envBindings = map[string]string{
	"repo":                          "REPO",
	"token":                         "GITHUB_TOKEN",
	"cff_path":                      "CFF_PATH",
	"output_path":                   "GITHUB_OUTPUT",
	"event_path":                    "GITHUB_EVENT_PATH",
	"commit_sha":                    "GITHUB_SHA",
	"commits":                       "AUTHORSHIP_FOR_PR_COMMITS",
	"reviews":                       "AUTHORSHIP_FOR_PR_REVIEWS",
	"issues":                        "AUTHORSHIP_FOR_PR_ISSUES",
	"issue_comments":                "AUTHORSHIP_FOR_PR_ISSUE_COMMENTS",
	"pr_comments":                   "AUTHORSHIP_FOR_PR_COMMENT",
	"include_coauthors":             "INCLUDE_COAUTHORS",
	"post_comment":                  "POST_COMMENT",
	"missing_author_invalidates_pr": "MISSING_AUTHOR_INVALIDATES_PR",
	"bot_blacklist":                 "BOT_BLACKLIST",
	"minimum_metadata":              "MINIMUM_METADATA",
	"lookup_orcid":                  "LOOKUP_ORCID",
	"lookup_concurrency":            "LOOKUP_CONCURRENCY",
	"lookup_retries":                "LOOKUP_RETRIES",
}

// Load builds the configuration from the environment. envFile, when
// non-empty, is loaded into the process environment first (existing
// variables win, matching godotenv semantics).
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.NewConfigError("env", "loading "+envFile, err)
		}
	} else {
		// A .env in the working directory is a local-development nicety;
		// its absence is the normal case.
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetDefault("cff_path", "CITATION.cff")
	v.SetDefault("commits", true)
	v.SetDefault("reviews", true)
	v.SetDefault("issues", true)
	v.SetDefault("issue_comments", true)
	v.SetDefault("pr_comments", true)
	v.SetDefault("include_coauthors", true)
	v.SetDefault("post_comment", true)
	v.SetDefault("missing_author_invalidates_pr", false)
	v.SetDefault("minimum_metadata", string(match.MinimumName))
	v.SetDefault("lookup_orcid", true)
	v.SetDefault("lookup_concurrency", 4)
	v.SetDefault("lookup_retries", 2)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.NewConfigError("env", "binding "+env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("env", "decoding environment", err)
	}

	for _, bot := range strings.Split(v.GetString("bot_blacklist"), ",") {
		if bot = strings.TrimSpace(bot); bot != "" {
			cfg.BotBlacklist = append(cfg.BotBlacklist, bot)
		}
	}

	if cfg.EventPath != "" {
		if err := cfg.applyEvent(cfg.EventPath); err != nil {
			return nil, err
		}
	}
	if cfg.CompareRepo == "" {
		cfg.CompareRepo = cfg.Repo
	}

	return &cfg, nil
}

// eventPayload is the subset of the workflow event the tool reads.
type eventPayload struct {
	Number      int `json:"number"`
	PullRequest *struct {
		Number int `json:"number"`
		Head   struct {
			Ref  string `json:"ref"`
			Repo struct {
				FullName string `json:"full_name"`
			} `json:"repo"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
}

func (c *Config) applyEvent(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapIO("read", path, err)
	}

	var event eventPayload
	if err := json.Unmarshal(data, &event); err != nil {
		return errors.WrapParse("json", path, err)
	}

	if event.PullRequest == nil {
		return errors.NewConfigError("event", "payload is not a pull_request event", nil)
	}

	c.PRNumber = event.Number
	if c.PRNumber == 0 {
		c.PRNumber = event.PullRequest.Number
	}
	c.HeadBranch = event.PullRequest.Head.Ref
	c.BaseBranch = event.PullRequest.Base.Ref
	c.CompareRepo = event.PullRequest.Head.Repo.FullName
	return nil
}

// Validate reports the fatal configuration errors: the ones the tool cannot
// degrade around.
func (c *Config) Validate() error {
	if c.Repo == "" {
		return errors.NewConfigError("repo", "REPO is required", nil)
	}
	if c.Token == "" {
		return errors.NewConfigError("token", "GITHUB_TOKEN is required", nil)
	}
	if c.CFFPath == "" {
		return errors.NewConfigError("cff_path", "citation file path is required", nil)
	}
	switch match.MinimumMetadata(c.MinimumMetadata) {
	case match.MinimumName, match.MinimumContact:
	default:
		return errors.NewConfigError("minimum_metadata",
			"must be \"name\" or \"contact\", got "+c.MinimumMetadata, nil)
	}
	if c.LookupConcurrency < 1 {
		return errors.NewConfigError("lookup_concurrency", "must be at least 1", nil)
	}
	if c.LookupRetries < 0 {
		return errors.NewConfigError("lookup_retries", "must not be negative", nil)
	}
	return nil
}
