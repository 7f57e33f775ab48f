package config

import (
	"github.com/monuverse/arch-of-peace-contract/pricing"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
)

type GroupRuleConfig struct {
	Label      string `yaml:"label"`
	Enabled    bool   `yaml:"enabled"`
	FixedPrice bool   `yaml:"fixedPrice"`
}

type MintingConfig struct {
	Limit uint64 `yaml:"limit"`
	// Price in ether, as a decimal string.
	Price  string            `yaml:"price"`
	Rules  []GroupRuleConfig `yaml:"rules,omitempty"`
	IsOpen bool              `yaml:"isOpen"`
}

type ChapterConfig struct {
	Label        string        `yaml:"label"`
	Whitelisting bool          `yaml:"whitelisting"`
	Minting      MintingConfig `yaml:"minting"`
	Revealing    bool          `yaml:"revealing"`
	IsConclusion bool          `yaml:"isConclusion"`
}

type TransitionConfig struct {
	From  string `yaml:"from"`
	Event string `yaml:"event"`
	To    string `yaml:"to"`
}

type EpisodeConfig struct {
	Initial     string             `yaml:"initial"`
	Chapters    []ChapterConfig    `yaml:"chapters"`
	Transitions []TransitionConfig `yaml:"transitions"`
}

// ToEpisode converts the configuration into the installable episode, prices
// are converted from ether to wei. The initial chapter defaults to the first
// listed chapter.
func (c EpisodeConfig) ToEpisode() (episode.Episode, error) {
	ep := episode.Episode{
		Chapters:    make([]episode.Chapter, 0, len(c.Chapters)),
		Transitions: make([]episode.Transition, 0, len(c.Transitions)),
		Initial:     c.Initial,
	}
	if ep.Initial == "" && len(c.Chapters) > 0 {
		ep.Initial = c.Chapters[0].Label
	}

	for _, cc := range c.Chapters {
		price := cc.Minting.Price
		if price == "" {
			price = "0"
		}
		wei, err := pricing.ToWei(price)
		if err != nil {
			return episode.Episode{}, errors.Wrapf(
				err,
				"to episode: chapter %q",
				cc.Label,
			)
		}

		rules := make([]episode.GroupRule, 0, len(cc.Minting.Rules))
		for _, r := range cc.Minting.Rules {
			rules = append(rules, episode.GroupRule{
				Label:      r.Label,
				Enabled:    r.Enabled,
				FixedPrice: r.FixedPrice,
			})
		}

		ep.Chapters = append(ep.Chapters, episode.Chapter{
			Label:               cc.Label,
			WhitelistingAllowed: cc.Whitelisting,
			Minting: episode.MintingConfig{
				Limit:  cc.Minting.Limit,
				Price:  wei,
				Rules:  rules,
				IsOpen: cc.Minting.IsOpen,
			},
			Revealing:    cc.Revealing,
			IsConclusion: cc.IsConclusion,
		})
	}

	for _, tc := range c.Transitions {
		event := episode.EventKind(tc.Event)
		if !event.Valid() {
			return episode.Episode{}, errors.Wrapf(
				episode.ErrInvalidEpisode,
				"to episode: unknown event %q",
				tc.Event,
			)
		}
		ep.Transitions = append(ep.Transitions, episode.Transition{
			From:  tc.From,
			Event: event,
			To:    tc.To,
		})
	}

	return ep, nil
}

// Monuverse episode chapter labels.
const (
	ChapterIntroduction = "Introduction: The Big Bang"
	ChapterI            = "Chapter I: The Arch Builders"
	ChapterII           = "Chapter II: The Chosen Ones"
	ChapterIII          = "Chapter III: The Believers"
	ChapterIV           = "Chapter IV: The Brave"
	ChapterV            = "Chapter V: A Monumental Reveal"
	ChapterConclusion   = "Conclusion: Monuverse"
)

// DefaultEpisodeConfig returns the Monuverse "Arch of Peace" episode.
func DefaultEpisodeConfig() EpisodeConfig {
	archBuilders := GroupRuleConfig{
		Label:      ChapterI,
		Enabled:    true,
		FixedPrice: true,
	}

	return EpisodeConfig{
		Initial: ChapterIntroduction,
		Chapters: []ChapterConfig{
			{
				Label:        ChapterIntroduction,
				Whitelisting: true,
				Minting:      MintingConfig{Price: "0"},
			},
			{
				Label:        ChapterI,
				Whitelisting: true,
				Minting:      MintingConfig{Limit: 777, Price: "0"},
			},
			{
				Label: ChapterII,
				Minting: MintingConfig{
					Limit: 3777,
					Price: "0.09",
					Rules: []GroupRuleConfig{archBuilders},
				},
			},
			{
				Label: ChapterIII,
				Minting: MintingConfig{
					Limit: 7777,
					Price: "0.11",
					Rules: []GroupRuleConfig{
						archBuilders,
						{Label: ChapterII, Enabled: true, FixedPrice: false},
					},
				},
			},
			{
				Label: ChapterIV,
				Minting: MintingConfig{
					Limit:  7777,
					Price:  "0.12",
					Rules:  []GroupRuleConfig{archBuilders},
					IsOpen: true,
				},
			},
			{
				Label:     ChapterV,
				Minting:   MintingConfig{Price: "0"},
				Revealing: true,
			},
			{
				Label:        ChapterConclusion,
				Minting:      MintingConfig{Price: "0"},
				IsConclusion: true,
			},
		},
		Transitions: []TransitionConfig{
			{ChapterIntroduction, string(episode.EventOnlifeProgression), ChapterI},
			{ChapterI, string(episode.EventOnlifeProgression), ChapterII},
			{ChapterII, string(episode.EventOnlifeProgression), ChapterIII},
			{ChapterII, string(episode.EventMintingSealed), ChapterV},
			{ChapterIII, string(episode.EventOnlifeProgression), ChapterIV},
			{ChapterIII, string(episode.EventMintingSealed), ChapterV},
			{ChapterIV, string(episode.EventOnlifeProgression), ChapterV},
			{ChapterIV, string(episode.EventMintingSealed), ChapterV},
			{ChapterV, string(episode.EventRevealed), ChapterConclusion},
		},
	}
}

// DefaultEpisode returns the converted Monuverse episode.
func DefaultEpisode() episode.Episode {
	ep, err := DefaultEpisodeConfig().ToEpisode()
	if err != nil {
		panic(err)
	}
	return ep
}
