package episode_test

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monuverse/arch-of-peace-contract/config"
	chapters "github.com/monuverse/arch-of-peace-contract/episode"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
)

type recordingListener struct {
	transitions []episode.Transition
	labels      map[episode.ChapterID]string
}

func newRecordingListener(ep episode.Episode) *recordingListener {
	l := &recordingListener{labels: map[episode.ChapterID]string{}}
	for _, c := range ep.Chapters {
		l.labels[c.ID()] = c.Label
	}
	return l
}

func (l *recordingListener) OnTransition(
	from episode.ChapterID,
	to episode.ChapterID,
	event episode.EventKind,
) {
	l.transitions = append(l.transitions, episode.Transition{
		From:  l.labels[from],
		Event: event,
		To:    l.labels[to],
	})
}

func installed(t *testing.T) (*chapters.StateMachine, episode.Episode) {
	t.Helper()
	ep := config.DefaultEpisode()
	sm := chapters.NewStateMachine(nil)
	require.NoError(t, sm.Install(ep))
	return sm, ep
}

func TestStateMachineInstall(t *testing.T) {
	sm, ep := installed(t)

	assert.True(t, sm.Installed())
	current, err := sm.CurrentChapter()
	require.NoError(t, err)
	assert.Equal(t, config.ChapterIntroduction, current.Label)
	assert.Equal(t, episode.LabelID(config.ChapterIntroduction), sm.CurrentChapterID())
	assert.False(t, sm.IsFinalChapter())
	assert.Equal(t, uint64(0), sm.GetTransitionCount())
	assert.Len(t, sm.Chapters(), len(ep.Chapters))

	c, ok := sm.Chapter(episode.LabelID(config.ChapterIII))
	require.True(t, ok)
	assert.Equal(t, uint64(7777), c.Minting.Limit)

	_, ok = sm.Chapter(episode.LabelID("Chapter VI"))
	assert.False(t, ok)
}

func TestStateMachineInstallOnlyOnce(t *testing.T) {
	sm, ep := installed(t)

	err := sm.Install(ep)
	assert.True(t, errors.Is(err, episode.ErrAlreadyInstalled))
	assert.Equal(t, "install: MonuverseEpisode: already installed", err.Error())
}

func TestStateMachineNotInstalled(t *testing.T) {
	sm := chapters.NewStateMachine(nil)

	_, err := sm.CurrentChapter()
	assert.ErrorIs(t, err, episode.ErrNotInstalled)

	_, _, err = sm.Advance(episode.EventOnlifeProgression)
	assert.ErrorIs(t, err, episode.ErrNotInstalled)

	assert.False(t, sm.IsFinalChapter())
	assert.Equal(t, episode.ChapterID{}, sm.CurrentChapterID())
}

func TestStateMachineNoSuchTransition(t *testing.T) {
	sm, _ := installed(t)

	// The introduction can only progress onlife.
	_, _, err := sm.Advance(episode.EventMintingSealed)
	require.ErrorIs(t, err, episode.ErrNoSuchTransition)
	assert.Contains(t, err.Error(), config.ChapterIntroduction)

	current, err := sm.CurrentChapter()
	require.NoError(t, err)
	assert.Equal(t, config.ChapterIntroduction, current.Label)
	assert.Equal(t, uint64(0), sm.GetTransitionCount())
}

func TestStateMachinePaths(t *testing.T) {
	ep := config.DefaultEpisode()

	tests := []struct {
		name   string
		events []episode.EventKind
		labels []string
	}{
		{
			name: "seal after chapter II",
			events: []episode.EventKind{
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventMintingSealed,
				episode.EventRevealed,
			},
			labels: []string{
				config.ChapterI,
				config.ChapterII,
				config.ChapterV,
				config.ChapterConclusion,
			},
		},
		{
			name: "seal after chapter III",
			events: []episode.EventKind{
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventMintingSealed,
				episode.EventRevealed,
			},
			labels: []string{
				config.ChapterI,
				config.ChapterII,
				config.ChapterIII,
				config.ChapterV,
				config.ChapterConclusion,
			},
		},
		{
			name: "seal after chapter IV",
			events: []episode.EventKind{
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventMintingSealed,
				episode.EventRevealed,
			},
			labels: []string{
				config.ChapterI,
				config.ChapterII,
				config.ChapterIII,
				config.ChapterIV,
				config.ChapterV,
				config.ChapterConclusion,
			},
		},
		{
			name: "onlife after chapter IV",
			events: []episode.EventKind{
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventOnlifeProgression,
				episode.EventRevealed,
			},
			labels: []string{
				config.ChapterI,
				config.ChapterII,
				config.ChapterIII,
				config.ChapterIV,
				config.ChapterV,
				config.ChapterConclusion,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := chapters.NewStateMachine(nil)
			require.NoError(t, sm.Install(ep))
			listener := newRecordingListener(ep)
			sm.AddListener(listener)

			for i, event := range tt.events {
				next, ok := sm.Next(event)
				require.True(t, ok, "step %d", i)

				from, to, err := sm.Advance(event)
				require.NoError(t, err, "step %d", i)
				assert.Equal(t, next, to)
				assert.NotEqual(t, from, to)

				current, err := sm.CurrentChapter()
				require.NoError(t, err)
				assert.Equal(t, tt.labels[i], current.Label)
			}

			assert.True(t, sm.IsFinalChapter())
			assert.Equal(t, uint64(len(tt.events)), sm.GetTransitionCount())
			require.Len(t, listener.transitions, len(tt.events))
			assert.Equal(t, config.ChapterIntroduction, listener.transitions[0].From)
			for i, tr := range listener.transitions {
				assert.Equal(t, tt.events[i], tr.Event)
				assert.Equal(t, tt.labels[i], tr.To)
			}

			// Conclusions have no way out.
			for _, event := range []episode.EventKind{
				episode.EventOnlifeProgression,
				episode.EventMintingSealed,
				episode.EventRevealed,
			} {
				_, _, err := sm.Advance(event)
				assert.ErrorIs(t, err, episode.ErrNoSuchTransition)
			}
		})
	}
}

func TestStateMachineRestore(t *testing.T) {
	ep := config.DefaultEpisode()
	sm := chapters.NewStateMachine(nil)

	require.NoError(t, sm.Restore(ep, episode.LabelID(config.ChapterIII), 3))
	current, err := sm.CurrentChapter()
	require.NoError(t, err)
	assert.Equal(t, config.ChapterIII, current.Label)
	assert.Equal(t, uint64(3), sm.GetTransitionCount())
	assert.Equal(t, ep, sm.Episode())

	_, to, err := sm.Advance(episode.EventMintingSealed)
	require.NoError(t, err)
	assert.Equal(t, episode.LabelID(config.ChapterV), to)
}

func TestStateMachineRestoreUnknownChapter(t *testing.T) {
	sm := chapters.NewStateMachine(nil)

	err := sm.Restore(config.DefaultEpisode(), episode.LabelID("Nowhere"), 0)
	assert.ErrorIs(t, err, episode.ErrInvalidEpisode)
	assert.False(t, sm.Installed())

	// A failed restore leaves the machine installable.
	require.NoError(t, sm.Install(config.DefaultEpisode()))
}

func TestStateMachineViz(t *testing.T) {
	sm, ep := installed(t)
	viz := chapters.NewStateMachineViz(sm)

	mermaid := viz.GenerateMermaidDiagram()
	assert.True(t, strings.HasPrefix(mermaid, "```mermaid\nstateDiagram-v2\n"))
	assert.Contains(t, mermaid, "[*] --> C0")
	assert.Contains(t, mermaid, "C1 --> C2 : EpisodeProgressedOnlife")
	assert.Contains(t, mermaid, "C2 --> C5 : EpisodeMinted")
	assert.Contains(t, mermaid, "C6 --> [*]")
	assert.Contains(t, mermaid, "note right of C0 : whitelisting\\ncurrent")

	dot := viz.GenerateDotDiagram()
	assert.Contains(t, dot, "digraph Episode {")
	assert.Contains(t, dot, "C4 [label=\"Chapter IV: The Brave\", style=\"rounded,filled\", fillcolor=lightgreen];")
	assert.Contains(t, dot, "C5 -> C6 [label=\"EpisodeRevealed\"];")

	table := viz.GenerateTransitionTable()
	assert.Equal(t, len(ep.Transitions)+2, strings.Count(table, "\n"))

	info := viz.GetCurrentStateInfo()
	assert.Contains(t, info, "Chapter: "+config.ChapterIntroduction)
	assert.Contains(t, info, "EpisodeProgressedOnlife -> "+config.ChapterI)
}

func TestStateMachineEpisodeIsImmutable(t *testing.T) {
	sm, ep := installed(t)
	chapterIV := episode.LabelID(config.ChapterIV)
	chapterII := episode.LabelID(config.ChapterII)

	installedIV, ok := sm.Chapter(chapterIV)
	require.True(t, ok)
	priceIV := installedIV.Minting.Price.String()

	// Changes to the installed definition stay with the caller.
	ep.Chapters[4].Minting.Price.SetInt64(1)
	ep.Chapters[4].Minting.Rules[0].Enabled = false

	// So do changes to values returned by the getters.
	returnedII, ok := sm.Chapter(chapterII)
	require.True(t, ok)
	returnedII.Minting.Price.SetInt64(0)
	returnedII.Minting.Rules[0].FixedPrice = false

	current, err := sm.CurrentChapter()
	require.NoError(t, err)
	current.Minting.Rules = append(current.Minting.Rules, episode.GroupRule{Label: "x"})
	for _, c := range sm.Chapters() {
		if c.Minting.Price != nil {
			c.Minting.Price.SetInt64(2)
		}
	}
	exported := sm.Episode()
	exported.Chapters[2].Minting.Rules[0].Enabled = false

	installedIV, _ = sm.Chapter(chapterIV)
	assert.Equal(t, priceIV, installedIV.Minting.Price.String())
	require.Len(t, installedIV.Minting.Rules, 1)
	assert.True(t, installedIV.Minting.Rules[0].Enabled)

	installedII, _ := sm.Chapter(chapterII)
	assert.Equal(t, "90000000000000000", installedII.Minting.Price.String())
	require.Len(t, installedII.Minting.Rules, 1)
	assert.True(t, installedII.Minting.Rules[0].Enabled)
	assert.True(t, installedII.Minting.Rules[0].FixedPrice)

	intro, _ := sm.Chapter(episode.LabelID(config.ChapterIntroduction))
	assert.Empty(t, intro.Minting.Rules)
	assert.Equal(t, "0", intro.Minting.Price.String())
}
