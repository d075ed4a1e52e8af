package terminal

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models"
	modeltetris "github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/tetris"
)

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 30)
	t.Cleanup(screen.Fini)
	return screen
}

func rowText(screen tcell.SimulationScreen, y int) string {
	cells, width, _ := screen.GetContents()
	var out []rune
	for x := 0; x < width; x++ {
		c := cells[y*width+x]
		if len(c.Runes) > 0 {
			out = append(out, c.Runes[0])
		} else {
			out = append(out, ' ')
		}
	}
	return string(out)
}

func screenText(screen tcell.SimulationScreen) string {
	_, _, height := screen.GetContents()
	var text string
	for y := 0; y < height; y++ {
		text += rowText(screen, y) + "\n"
	}
	return text
}

func backgroundAt(screen tcell.SimulationScreen, x, y int) tcell.Color {
	_, _, style, _ := screen.GetContent(x, y)
	_, bg, _ := style.Decompose()
	return bg
}

func TestView_RenderDrawsBoardAndPiece(t *testing.T) {
	screen := newSimScreen(t)
	v := NewView(screen)

	s := tetris.NewGameSession("id", "alice", modeltetris.NewSeededPieceFactory(1))
	s.Start()
	s.CurrentPiece = modeltetris.NewPieceFactory(nil).NewPiece(modeltetris.TypeO) // (4,0)
	s.Board[19][0] = modeltetris.ColorOf(modeltetris.TypeZ)
	s.Score = 300

	v.Render(s.Snapshot())

	assert.Equal(t, tcell.GetColor(string(modeltetris.ColorOf(modeltetris.TypeO))), backgroundAt(screen, boardLeft+4*cellWidth, boardTop))
	assert.Equal(t, tcell.GetColor(string(modeltetris.ColorOf(modeltetris.TypeZ))), backgroundAt(screen, boardLeft, boardTop+19))
	assert.Contains(t, screenText(screen), "Score: 300")
}

func TestView_ShowsScoresOnlyAfterGameOver(t *testing.T) {
	screen := newSimScreen(t)
	v := NewView(screen)
	v.SetScores([]models.HighScoreResponse{{Name: "alice", Score: 900, Rank: 1}})

	v.Render(tetris.Snapshot{Status: tetris.StatusRunning})
	assert.NotContains(t, screenText(screen), "High Scores")

	v.Render(tetris.Snapshot{Status: tetris.StatusOver})
	text := screenText(screen)
	assert.Contains(t, text, "GAME OVER")
	assert.Contains(t, text, "High Scores")
	assert.Contains(t, text, "alice")

	v.SetMessage("score submitted")
	assert.Contains(t, screenText(screen), "score submitted")
}

func TestKeyCommand(t *testing.T) {
	tests := []struct {
		ev      *tcell.EventKey
		command Command
		action  tetris.Action
	}{
		{tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), CommandAction, tetris.ActionMoveLeft},
		{tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), CommandAction, tetris.ActionMoveRight},
		{tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), CommandAction, tetris.ActionSoftDrop},
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), CommandAction, tetris.ActionRotate},
		{tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModNone), CommandAction, tetris.ActionRotate},
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), CommandAction, tetris.ActionRotate},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), CommandStart, ""},
		{tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), CommandQuit, ""},
		{tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), CommandQuit, ""},
		{tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone), CommandNone, ""},
	}

	for _, tt := range tests {
		command, action := KeyCommand(tt.ev)
		assert.Equal(t, tt.command, command, tt.ev.Name())
		assert.Equal(t, tt.action, action, tt.ev.Name())
	}
}
