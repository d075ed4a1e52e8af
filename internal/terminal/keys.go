package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/tetris"
)

// Command はキー入力から変換した操作です。
type Command int

const (
	CommandNone Command = iota
	CommandAction
	CommandStart
	CommandQuit
)

// KeyCommand はキーイベントを操作に変換します。CommandAction の場合は入力操作も返します。
// 開始・リスタートは Enter のみです（Space は回転）。
func KeyCommand(ev *tcell.EventKey) (Command, tetris.Action) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return CommandAction, tetris.ActionMoveLeft
	case tcell.KeyRight:
		return CommandAction, tetris.ActionMoveRight
	case tcell.KeyDown:
		return CommandAction, tetris.ActionSoftDrop
	case tcell.KeyUp:
		return CommandAction, tetris.ActionRotate
	case tcell.KeyEnter:
		return CommandStart, ""
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return CommandQuit, ""
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'h', 'a':
			return CommandAction, tetris.ActionMoveLeft
		case 'l', 'd':
			return CommandAction, tetris.ActionMoveRight
		case 'j', 's':
			return CommandAction, tetris.ActionSoftDrop
		case 'k', 'w', 'x', ' ':
			return CommandAction, tetris.ActionRotate
		case 'q':
			return CommandQuit, ""
		}
	}
	return CommandNone, ""
}
