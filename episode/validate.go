package episode

import (
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
)

const (
	unvisited = iota
	visiting
	visited
)

// Validate checks that ep describes a deterministic, forward-only graph:
// unique labels, known endpoints, one transition per chapter and event, no
// exits out of conclusions, at least one exit out of everything else and no
// cycles.
func Validate(ep episode.Episode) error {
	if len(ep.Chapters) == 0 {
		return errors.Wrap(episode.ErrInvalidEpisode, "no chapters")
	}

	chapters := make(map[episode.ChapterID]episode.Chapter, len(ep.Chapters))
	for _, c := range ep.Chapters {
		if c.Label == "" {
			return errors.Wrap(episode.ErrInvalidEpisode, "empty chapter label")
		}
		if _, ok := chapters[c.ID()]; ok {
			return errors.Wrapf(
				episode.ErrInvalidEpisode,
				"duplicate chapter %q",
				c.Label,
			)
		}
		if c.Minting.Price != nil && c.Minting.Price.Sign() < 0 {
			return errors.Wrapf(
				episode.ErrInvalidEpisode,
				"negative price in chapter %q",
				c.Label,
			)
		}
		chapters[c.ID()] = c
	}

	for _, c := range ep.Chapters {
		for _, r := range c.Minting.Rules {
			if _, ok := chapters[r.ID()]; !ok {
				return errors.Wrapf(
					episode.ErrInvalidEpisode,
					"chapter %q has a rule for unknown chapter %q",
					c.Label,
					r.Label,
				)
			}
		}
	}

	if _, ok := chapters[episode.LabelID(ep.Initial)]; !ok {
		return errors.Wrapf(
			episode.ErrInvalidEpisode,
			"unknown initial chapter %q",
			ep.Initial,
		)
	}

	adjacency := make(map[episode.ChapterID]map[episode.EventKind]episode.ChapterID)
	for _, t := range ep.Transitions {
		if !t.Event.Valid() {
			return errors.Wrapf(
				episode.ErrInvalidEpisode,
				"unknown event %q",
				t.Event,
			)
		}
		from, ok := chapters[episode.LabelID(t.From)]
		if !ok {
			return errors.Wrapf(
				episode.ErrInvalidEpisode,
				"transition from unknown chapter %q",
				t.From,
			)
		}
		if _, ok := chapters[episode.LabelID(t.To)]; !ok {
			return errors.Wrapf(
				episode.ErrInvalidEpisode,
				"transition to unknown chapter %q",
				t.To,
			)
		}
		if from.IsConclusion {
			return errors.Wrapf(
				episode.ErrInvalidEpisode,
				"transition out of conclusion %q",
				t.From,
			)
		}
		out := adjacency[from.ID()]
		if out == nil {
			out = make(map[episode.EventKind]episode.ChapterID)
			adjacency[from.ID()] = out
		}
		if _, ok := out[t.Event]; ok {
			return errors.Wrapf(
				episode.ErrInvalidEpisode,
				"duplicate %s transition from %q",
				t.Event,
				t.From,
			)
		}
		out[t.Event] = episode.LabelID(t.To)
	}

	for _, c := range ep.Chapters {
		if !c.IsConclusion && len(adjacency[c.ID()]) == 0 {
			return errors.Wrapf(
				episode.ErrInvalidEpisode,
				"chapter %q is a dead end",
				c.Label,
			)
		}
	}

	color := make(map[episode.ChapterID]int, len(chapters))
	var visit func(id episode.ChapterID) error
	visit = func(id episode.ChapterID) error {
		color[id] = visiting
		for _, to := range adjacency[id] {
			switch color[to] {
			case visiting:
				return errors.Wrapf(
					episode.ErrInvalidEpisode,
					"cycle through %q",
					chapters[to].Label,
				)
			case unvisited:
				if err := visit(to); err != nil {
					return err
				}
			}
		}
		color[id] = visited
		return nil
	}

	for _, c := range ep.Chapters {
		if color[c.ID()] == unvisited {
			if err := visit(c.ID()); err != nil {
				return err
			}
		}
	}

	return nil
}
