package cli

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/jarflow/pkg/download"
	"github.com/matzehuels/jarflow/pkg/session"
)

const jarURL = "https://repo.example/org/example/app/1.0/app-1.0.jar"

func send(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func TestFetchModelProgress(t *testing.T) {
	m := send(NewFetchModel("Fetching app", nil),
		eventMsg{Kind: download.EventStart, URL: jarURL, Chunks: 4, Bytes: 4096},
		eventMsg{Kind: download.EventChunkDone, URL: jarURL, Index: 0, Bytes: 1024},
		eventMsg{Kind: download.EventChunkDone, URL: jarURL, Index: 1, Bytes: 1024},
	)
	fm := m.(FetchModel)
	require.Contains(t, fm.transfers, jarURL)
	tr := fm.transfers[jarURL]
	assert.Equal(t, 2, tr.done)
	assert.InDelta(t, 0.5, tr.fraction(), 1e-9)

	view := fm.View()
	assert.Contains(t, view, "Fetching app")
	assert.Contains(t, view, "app-1.0.jar")
	assert.Contains(t, view, "2/4")
	assert.Contains(t, view, "1 active")

	fm = send(fm, eventMsg{Kind: download.EventMerged, URL: jarURL, Bytes: 4096}).(FetchModel)
	assert.Equal(t, 1.0, fm.transfers[jarURL].fraction())
	assert.Contains(t, fm.View(), "1 done")
}

func TestFetchModelFailedChunk(t *testing.T) {
	m := send(NewFetchModel("x", nil),
		eventMsg{Kind: download.EventStart, URL: jarURL, Chunks: 2, Bytes: -1},
		eventMsg{Kind: download.EventChunkFailed, URL: jarURL, Index: 1, Err: errors.New("reset")},
	).(FetchModel)
	tr := m.transfers[jarURL]
	assert.Equal(t, 1, tr.failed)
	assert.Equal(t, int64(-1), tr.total)
	assert.Zero(t, tr.fraction())
}

func TestFetchModelQuit(t *testing.T) {
	cancelled := false
	m := NewFetchModel("x", func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, next.(FetchModel).Quit)
	assert.True(t, cancelled)
}

func TestFetchModelDone(t *testing.T) {
	res := &session.InstallResult{}
	next, cmd := NewFetchModel("x", nil).Update(installDoneMsg{res: res})
	require.NotNil(t, cmd)
	fm := next.(FetchModel)
	assert.Same(t, res, fm.Result)
	assert.NoError(t, fm.Err)
	assert.False(t, fm.Quit)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "app-1.0.jar", fileName(jarURL))
	assert.Equal(t, "plain", fileName("plain"))
}
