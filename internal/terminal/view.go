// Package terminal は tcell を使った端末用の描画とキー入力の変換を提供します。
package terminal

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models"
	modeltetris "github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/tetris"
)

const (
	cellWidth  = 2 // 1マスを2文字幅で描く
	boardLeft  = 1
	boardTop   = 1
	panelLeft  = boardLeft + modeltetris.BoardWidth*cellWidth + 4
	maxRanking = 10
)

var (
	styleDefault = tcell.StyleDefault
	styleBorder  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleTitle   = tcell.StyleDefault.Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// View はゲームの状態を端末に描画します。tetris.Renderer を満たします。
// Render は GameLoop のゴルーチンから、それ以外はメインのゴルーチンから呼ばれるため排他制御します。
type View struct {
	screen tcell.Screen

	mu      sync.Mutex
	snap    tetris.Snapshot
	scores  []models.HighScoreResponse
	message string
}

// NewView は初期化済みの screen に描画する View を返します。
func NewView(screen tcell.Screen) *View {
	return &View{screen: screen}
}

// Render は新しい状態を保存して再描画します。
func (v *View) Render(s tetris.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap = s
	v.draw()
}

// SetScores はゲームオーバー時に表示するランキングを設定します。
func (v *View) SetScores(scores []models.HighScoreResponse) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scores = scores
	v.draw()
}

// SetMessage はパネル下部に表示するメッセージを設定します。
func (v *View) SetMessage(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.message = msg
	v.draw()
}

// Draw は現在の状態で画面全体を描き直します（リサイズ時など）。
func (v *View) Draw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draw()
}

func (v *View) draw() {
	v.screen.Clear()
	v.drawBoard()
	v.drawPanel()
	v.screen.Show()
}

func (v *View) drawBoard() {
	right := boardLeft + modeltetris.BoardWidth*cellWidth
	bottom := boardTop + modeltetris.BoardHeight
	for y := boardTop - 1; y <= bottom; y++ {
		v.screen.SetContent(boardLeft-1, y, '│', nil, styleBorder)
		v.screen.SetContent(right, y, '│', nil, styleBorder)
	}
	for x := boardLeft - 1; x <= right; x++ {
		v.screen.SetContent(x, bottom, '─', nil, styleBorder)
	}
	v.screen.SetContent(boardLeft-1, bottom, '└', nil, styleBorder)
	v.screen.SetContent(right, bottom, '┘', nil, styleBorder)

	for y := 0; y < modeltetris.BoardHeight; y++ {
		for x := 0; x < modeltetris.BoardWidth; x++ {
			if c := v.snap.Board[y][x]; c != modeltetris.Empty {
				v.drawCell(boardLeft, boardTop, x, y, c)
			} else {
				v.screen.SetContent(boardLeft+x*cellWidth, boardTop+y, ' ', nil, styleDefault)
				v.screen.SetContent(boardLeft+x*cellWidth+1, boardTop+y, '.', nil, styleDim)
			}
		}
	}

	if p := v.snap.CurrentPiece; p != nil {
		for _, cell := range p.Cells() {
			x, y := p.X+cell[0], p.Y+cell[1]
			if y >= 0 && y < modeltetris.BoardHeight {
				v.drawCell(boardLeft, boardTop, x, y, p.Color)
			}
		}
	}
}

func (v *View) drawCell(left, top, x, y int, c modeltetris.Color) {
	style := tcell.StyleDefault.Background(tcell.GetColor(string(c)))
	for i := 0; i < cellWidth; i++ {
		v.screen.SetContent(left+x*cellWidth+i, top+y, ' ', nil, style)
	}
}

func (v *View) drawPanel() {
	row := boardTop
	v.drawText(panelLeft, row, styleTitle, "GITRIS")
	row += 2
	v.drawText(panelLeft, row, styleDefault, fmt.Sprintf("Score: %d", v.snap.Score))
	row++
	v.drawText(panelLeft, row, styleDefault, fmt.Sprintf("Lines: %d", v.snap.LinesCleared))
	row += 2

	v.drawText(panelLeft, row, styleDefault, "Next:")
	row++
	if p := v.snap.NextPiece; p != nil {
		for _, cell := range p.Shape.Cells() {
			v.drawCell(panelLeft, row, cell[0], cell[1], p.Color)
		}
	}
	row += 3

	switch v.snap.Status {
	case tetris.StatusIdle, "":
		v.drawText(panelLeft, row, styleTitle, "Press ENTER to start")
	case tetris.StatusOver:
		v.drawText(panelLeft, row, styleTitle, "GAME OVER - ENTER to restart")
	}
	row += 2

	v.drawText(panelLeft, row, styleDim, "←/→ move  ↓ drop  ↑/SPACE rotate  q quit")
	row += 2

	if v.message != "" {
		v.drawText(panelLeft, row, styleDefault, v.message)
		row += 2
	}

	if v.snap.Status == tetris.StatusOver && len(v.scores) > 0 {
		v.drawText(panelLeft, row, styleTitle, "High Scores")
		row++
		for i, s := range v.scores {
			if i >= maxRanking {
				break
			}
			v.drawText(panelLeft, row, styleDefault, fmt.Sprintf("%2d. %-16s %6d", s.Rank, s.Name, s.Score))
			row++
		}
	}
}

func (v *View) drawText(x, y int, style tcell.Style, text string) {
	for _, r := range text {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
