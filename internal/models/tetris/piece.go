package tetris

import (
	"fmt"
	"math/rand"
)

// PieceType はテトリミノの種類を表します。
type PieceType int

const (
	TypeI PieceType = iota // 0: I-ミノ (シアン)
	TypeO                  // 1: O-ミノ (黄色)
	TypeT                  // 2: T-ミノ (紫)
	TypeJ                  // 3: J-ミノ (青)
	TypeL                  // 4: L-ミノ (オレンジ)
	TypeS                  // 5: S-ミノ (緑)
	TypeZ                  // 6: Z-ミノ (赤)
)

// Shape はテトリミノの形を表す長方形の真偽値行列です。Shape[row][col] が true のマスが埋まっています。
type Shape [][]bool

// catalogEntry はピースカタログの1項目（形と色の組）です。
type catalogEntry struct {
	shape Shape
	color Color
}

// catalog は7種類のテトリミノの形と色です。インデックスは PieceType に対応します。
var catalog = [...]catalogEntry{
	TypeI: {shape: shapeOf("1111"), color: "#00FFFF"},
	TypeO: {shape: shapeOf("11", "11"), color: "#FFFF00"},
	TypeT: {shape: shapeOf("111", "010"), color: "#800080"},
	TypeJ: {shape: shapeOf("111", "100"), color: "#0000FF"},
	TypeL: {shape: shapeOf("111", "001"), color: "#FF7F00"},
	TypeS: {shape: shapeOf("110", "011"), color: "#00FF00"},
	TypeZ: {shape: shapeOf("011", "110"), color: "#FF0000"},
}

// PieceTypes はカタログ内の全ピース種類です。
var PieceTypes = []PieceType{TypeI, TypeO, TypeT, TypeJ, TypeL, TypeS, TypeZ}

func shapeOf(rows ...string) Shape {
	s := make(Shape, len(rows))
	for y, row := range rows {
		s[y] = make([]bool, len(row))
		for x, c := range row {
			s[y][x] = c == '1'
		}
	}
	return s
}

// Height は形の行数を返します。
func (s Shape) Height() int { return len(s) }

// Width は形の列数を返します。
func (s Shape) Width() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Rotated は形を時計回りに90度回転させた新しい Shape を返します。
// 新しい形の (i, j) は元の形の (N-1-j, i) です (N は元の行数)。幅と高さは入れ替わります。
func (s Shape) Rotated() Shape {
	n := s.Height()
	w := s.Width()
	out := make(Shape, w)
	for i := 0; i < w; i++ {
		out[i] = make([]bool, n)
		for j := 0; j < n; j++ {
			out[i][j] = s[n-1-j][i]
		}
	}
	return out
}

// Equal は2つの形が同じ寸法・同じマスを持つかを返します。
func (s Shape) Equal(o Shape) bool {
	if s.Height() != o.Height() || s.Width() != o.Width() {
		return false
	}
	for y := range s {
		for x := range s[y] {
			if s[y][x] != o[y][x] {
				return false
			}
		}
	}
	return true
}

// Clone は形のディープコピーを返します。
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	for y := range s {
		out[y] = append([]bool(nil), s[y]...)
	}
	return out
}

// Cells は埋まっているマスの相対座標 {x, y} を返します。
func (s Shape) Cells() [][2]int {
	cells := make([][2]int, 0, 4)
	for y, row := range s {
		for x, filled := range row {
			if filled {
				cells = append(cells, [2]int{x, y})
			}
		}
	}
	return cells
}

// Piece は操作中または次に出現するテトリミノです。
// X, Y は形の左上のボード上の座標です。
type Piece struct {
	Type  PieceType `json:"type"`
	Shape Shape     `json:"shape"`
	Color Color     `json:"color"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
}

// Cells は現在の形で埋まっているマスの相対座標を返します。
func (p *Piece) Cells() [][2]int {
	return p.Shape.Cells()
}

// Rotated はピースを時計回りに回転させたコピーを返します。元のピースは変更しません。
func (p *Piece) Rotated() *Piece {
	np := *p
	np.Shape = p.Shape.Rotated()
	return &np
}

// Clone は現在のPieceオブジェクトのディープコピーを返します。
// 操作前のピースの状態を保持しつつ、操作後の状態を仮に試すことができます。
func (p *Piece) Clone() *Piece {
	np := *p
	np.Shape = p.Shape.Clone()
	return &np
}

// PieceFactory はランダムに選んだピースを上部中央に生成します。
// 乱数源は注入されるので、テストではシード固定で再現できます。
type PieceFactory struct {
	rng *rand.Rand
}

// NewPieceFactory は指定された乱数源を使う PieceFactory を返します。
func NewPieceFactory(rng *rand.Rand) *PieceFactory {
	return &PieceFactory{rng: rng}
}

// NewSeededPieceFactory はシードから乱数源を作って PieceFactory を返します。
func NewSeededPieceFactory(seed int64) *PieceFactory {
	return NewPieceFactory(rand.New(rand.NewSource(seed)))
}

// Next はカタログから一様ランダムに選んだピースを返します。
func (f *PieceFactory) Next() *Piece {
	return f.NewPiece(PieceTypes[f.rng.Intn(len(PieceTypes))])
}

// NewPiece は指定した種類のピースをスポーン位置に生成します。
// x = floor((BoardWidth - 幅) / 2), y = 0 です。
func (f *PieceFactory) NewPiece(t PieceType) *Piece {
	entry := catalog[t]
	return &Piece{
		Type:  t,
		Shape: entry.shape.Clone(),
		Color: entry.color,
		X:     (BoardWidth - entry.shape.Width()) / 2,
		Y:     0,
	}
}

// ColorOf は指定した種類のピースの色を返します。
func ColorOf(t PieceType) Color {
	return catalog[t].color
}

// String は PieceType を文字列表現 ("I", "O", ...) に変換します。
func (t PieceType) String() string {
	switch t {
	case TypeI:
		return "I"
	case TypeO:
		return "O"
	case TypeT:
		return "T"
	case TypeJ:
		return "J"
	case TypeL:
		return "L"
	case TypeS:
		return "S"
	case TypeZ:
		return "Z"
	default:
		return fmt.Sprintf("PieceType(%d)", int(t))
	}
}

// MarshalText はJSONでピース種類を文字列として出力するために使われます。
func (t PieceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText は "I" などの文字列から PieceType を復元します。
func (t *PieceType) UnmarshalText(b []byte) error {
	pt, ok := ParsePieceType(string(b))
	if !ok {
		return fmt.Errorf("unknown piece type %q", string(b))
	}
	*t = pt
	return nil
}

// ParsePieceType は文字列のテトリミノタイプ（"I", "O", "T"など）をPieceTypeに変換します。
func ParsePieceType(s string) (PieceType, bool) {
	for _, t := range PieceTypes {
		if t.String() == s {
			return t, true
		}
	}
	return TypeI, false
}
