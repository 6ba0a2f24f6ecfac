package scape

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	ScreenWidth  = 640
	ScreenHeight = 480

	BlockRows   = 5
	BlockCols   = 10
	BlockWidth  = ScreenWidth / BlockCols
	BlockHeight = 15
	BlockHealth = 100
	BlockDamage = 20
	blockMargin = 1

	PaddleHeight    = 10
	paddleMaxWidth  = 80
	paddleMinWidth  = 10
	paddleShrink    = 2
	paddleY         = ScreenHeight - 2*PaddleHeight
	paddleStartX    = (ScreenWidth - paddleMaxWidth) / 2
	paddleMaxSpeed  = 15
	BallSize        = 10
	ballSpeed       = 5
	ballStartY      = paddleY - BallSize
	ballMinAngle    = math.Pi / 3
	ballMaxAngle    = 2 * math.Pi / 3
	pointsBase      = 10
	pointsIncrease  = 1
	sqrtHalf        = math.Sqrt2 / 2
	DefaultMaxFrame = 10000
)

// Pixel values written into a frame.
const (
	PixelEmpty  float32 = 0
	PixelBall   float32 = 0.5
	PixelPaddle float32 = 0.75
)

type bounce int

const (
	bounceNone bounce = iota
	bounceUp
	bounceDown
	bounceSide
)

// Game is a single-player brick breaker on a ScreenWidth x ScreenHeight
// board. A paddle strike resets the per-hit reward; each block hit in a row
// is worth one point more than the previous.
type Game struct {
	maxFrames    int
	frame        int
	paddle       Point
	paddleWidth  float64
	ball         Point
	direction    Point
	pointsPerHit int
	blocks       [BlockRows * BlockCols]int
	score        int
	over         bool
	pixels       []float32
}

// NewGame starts a game whose ball position and launch angle come from seed.
// maxFrames <= 0 lets the game run until the ball is lost.
func NewGame(seed int64, maxFrames int) *Game {
	rng := rand.New(rand.NewSource(seed))
	g := &Game{
		maxFrames:    maxFrames,
		paddle:       Point{X: paddleStartX, Y: paddleY},
		paddleWidth:  paddleMaxWidth,
		pointsPerHit: pointsBase,
		pixels:       make([]float32, ScreenWidth*ScreenHeight),
	}
	g.ball = Point{X: float64(rng.Intn(ScreenWidth - paddleMaxWidth)), Y: ballStartY}
	angle := ballMinAngle + rng.Float64()*(ballMaxAngle-ballMinAngle)
	g.direction = Point{X: math.Cos(angle) * ballSpeed, Y: -math.Sin(angle) * ballSpeed}
	g.resetBlocks()
	g.draw()
	return g
}

func (g *Game) Over() bool  { return g.over }
func (g *Game) Score() int  { return g.score }
func (g *Game) Frame() int  { return g.frame }
func (g *Game) Ball() Point { return g.ball }

// BlocksLeft counts blocks with health remaining.
func (g *Game) BlocksLeft() int {
	n := 0
	for _, h := range g.blocks {
		if h > 0 {
			n++
		}
	}
	return n
}

// Pixels is the current frame, row major, ScreenWidth wide. It is rewritten
// by every Update.
func (g *Game) Pixels() []float32 { return g.pixels }

// Update advances one frame. left and right are clamped to [0,1] and scale
// the paddle speed.
func (g *Game) Update(left, right float64) {
	if g.over {
		return
	}
	g.paddle.X += clamp01(right) * paddleMaxSpeed
	g.paddle.X -= clamp01(left) * paddleMaxSpeed
	if g.paddle.X < 0 {
		g.paddle.X = 0
	}
	if g.paddle.X >= ScreenWidth-g.paddleWidth {
		g.paddle.X = ScreenWidth - g.paddleWidth - 1
	}

	last := g.ball
	g.ball.X += g.direction.X
	g.ball.Y += g.direction.Y

	if g.direction.Y < 0 {
		for b := len(g.blocks) - 1; b >= 0; b-- {
			g.collideBlock(last, b)
		}
	} else {
		for b := range g.blocks {
			g.collideBlock(last, b)
		}
	}

	if g.ball.X <= 0 {
		g.ball.X = -g.ball.X
		g.direction.X = -g.direction.X
	}
	if g.ball.X+BallSize >= ScreenWidth-1 {
		g.ball.X = 2*(ScreenWidth-1-BallSize) - g.ball.X
		g.direction.X = -g.direction.X
	}
	if g.ball.Y <= 0 {
		g.ball.Y = -g.ball.Y
		g.direction.Y = -g.direction.Y
	}
	if g.ball.Y+BallSize >= ScreenHeight-1 {
		g.over = true
	}

	if hitTest(last, g.ball, g.paddle, g.paddleWidth, PaddleHeight) == bounceDown {
		g.strike(last)
		if g.BlocksLeft() == 0 {
			g.resetBlocks()
			if g.paddleWidth > paddleMinWidth {
				g.paddleWidth -= paddleShrink
				g.paddle.X += paddleShrink / 2
			}
		}
	}

	g.draw()
	g.frame++
	if g.maxFrames > 0 && g.frame > g.maxFrames {
		g.over = true
	}
}

func (g *Game) resetBlocks() {
	for i := range g.blocks {
		g.blocks[i] = BlockHealth
	}
}

func blockOrigin(b int) Point {
	return Point{X: float64(b%BlockCols) * BlockWidth, Y: float64(b/BlockCols) * BlockHeight}
}

// collideBlock damages block b if the ball entered it this frame. A block
// that survives reflects the ball; a destroyed one lets it pass.
func (g *Game) collideBlock(last Point, b int) {
	if g.blocks[b] <= 0 {
		return
	}
	switch hitTest(last, g.ball, blockOrigin(b), BlockWidth, BlockHeight) {
	case bounceUp, bounceDown:
		g.hit(b)
		if g.blocks[b] > 0 {
			g.direction.Y = -g.direction.Y
		}
	case bounceSide:
		g.hit(b)
		if g.blocks[b] > 0 {
			g.direction.X = -g.direction.X
		}
	}
}

func (g *Game) hit(b int) {
	g.blocks[b] -= BlockDamage
	g.score += g.pointsPerHit
	g.pointsPerHit += pointsIncrease
}

// hitTest classifies how a ball moving from last to next meets the box at
// pos. The ball never moves horizontally only, so a miss from above or below
// falls through to a plain overlap test that is treated as a side hit.
func hitTest(last, next, pos Point, width, height float64) bounce {
	overlapsX := next.X < pos.X+width && next.X+BallSize >= pos.X
	if next.Y < last.Y {
		if last.Y >= pos.Y+height && next.Y <= pos.Y+height && overlapsX {
			return bounceUp
		}
	} else if last.Y+BallSize <= pos.Y && next.Y+BallSize >= pos.Y && overlapsX {
		return bounceDown
	}
	if overlapsX && next.Y+BallSize >= pos.Y && next.Y < pos.Y+height {
		return bounceSide
	}
	return bounceNone
}

// strike bounces the ball off the paddle. The further from the paddle edge
// the ball lands, the flatter it leaves in its direction of travel.
func (g *Game) strike(last Point) {
	path := Segment{P1: last, P2: Point{X: last.X + g.direction.X, Y: last.Y + g.direction.Y + BallSize}}
	paddle := Segment{P1: g.paddle, P2: Point{X: g.paddle.X + g.paddleWidth, Y: g.paddle.Y}}
	at, ok := Intersect(path, paddle)
	if !ok {
		return
	}
	g.pointsPerHit = pointsBase
	dist := (at.X - paddle.P1.X) / g.paddleWidth

	var angle, sign float64 = 0, 1
	switch {
	case path.P1.X < path.P2.X:
		angle = math.Acos(dist * sqrtHalf)
	case path.P1.X > path.P2.X:
		angle, sign = math.Acos((1-dist)*sqrtHalf), -1
	default:
		angle = math.Acos(2 * (dist - 0.5) * sqrtHalf)
	}
	g.direction = Point{X: sign * math.Cos(angle) * ballSpeed, Y: -math.Sin(angle) * ballSpeed}
}

func (g *Game) draw() {
	clear(g.pixels)
	for b, health := range g.blocks {
		if health <= 0 {
			continue
		}
		o := blockOrigin(b)
		value := float32(health) / BlockHealth
		fillRect(g.pixels, int(o.X)+blockMargin, int(o.Y)+blockMargin,
			BlockWidth-2*blockMargin, BlockHeight-2*blockMargin, value)
	}
	fillRect(g.pixels, int(g.paddle.X), int(g.paddle.Y), int(g.paddleWidth), PaddleHeight, PixelPaddle)
	fillRect(g.pixels, int(g.ball.X), int(g.ball.Y), BallSize, BallSize, PixelBall)
}

func fillRect(pixels []float32, left, top, width, height int, value float32) {
	x0, y0 := max(left, 0), max(top, 0)
	x1, y1 := min(left+width, ScreenWidth), min(top+height, ScreenHeight)
	for y := y0; y < y1; y++ {
		row := pixels[y*ScreenWidth : (y+1)*ScreenWidth]
		for x := x0; x < x1; x++ {
			row[x] = value
		}
	}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// Downscale averages src (srcW x srcH) into dst (dstW x dstH) cells.
func Downscale(dst []float32, dstW, dstH int, src []float32, srcW, srcH int) {
	for cy := 0; cy < dstH; cy++ {
		y0, y1 := cy*srcH/dstH, (cy+1)*srcH/dstH
		for cx := 0; cx < dstW; cx++ {
			x0, x1 := cx*srcW/dstW, (cx+1)*srcW/dstW
			var sum float32
			for y := y0; y < y1; y++ {
				for _, v := range src[y*srcW+x0 : y*srcW+x1] {
					sum += v
				}
			}
			if n := (y1 - y0) * (x1 - x0); n > 0 {
				sum /= float32(n)
			}
			dst[cy*dstW+cx] = sum
		}
	}
}

const (
	arkanoidFrames = 2
	arkanoidRandom = 5
	DefaultGridW   = 64
	DefaultGridH   = 48
)

// Arkanoid lets a network play Game. The input vector is five uniform random
// values, the previous sensor frame and the current one, where a frame is
// the board averaged down to a GridW x GridH grid. Output 0 steers: positive
// moves right, negative moves left. Maximised.
type Arkanoid struct {
	gridW, gridH int
	maxFrames    int
}

func NewArkanoid(gridW, gridH, maxFrames int) (*Arkanoid, error) {
	if gridW == 0 {
		gridW = DefaultGridW
	}
	if gridH == 0 {
		gridH = DefaultGridH
	}
	if maxFrames == 0 {
		maxFrames = DefaultMaxFrame
	}
	if gridW < 1 || gridW > ScreenWidth || gridH < 1 || gridH > ScreenHeight {
		return nil, fmt.Errorf("arkanoid: grid %dx%d outside 1x1..%dx%d", gridW, gridH, ScreenWidth, ScreenHeight)
	}
	return &Arkanoid{gridW: gridW, gridH: gridH, maxFrames: maxFrames}, nil
}

func (*Arkanoid) Name() string   { return "arkanoid" }
func (*Arkanoid) Outputs() int   { return 1 }
func (*Arkanoid) Minimise() bool { return false }

func (a *Arkanoid) Inputs() int { return arkanoidFrames*a.gridW*a.gridH + arkanoidRandom }

func (a *Arkanoid) Grid() (int, int) { return a.gridW, a.gridH }

func (a *Arkanoid) Reset(seed int64) Episode {
	rng := rand.New(rand.NewSource(seed))
	return &arkanoidEpisode{
		task: a,
		game: NewGame(rng.Int63(), a.maxFrames),
		rng:  rng,
		in:   make([]float32, a.Inputs()),
	}
}

// ArkanoidEpisode exposes the game behind an episode returned by
// Arkanoid.Reset, for rendering.
func ArkanoidEpisode(ep Episode) (*Game, bool) {
	e, ok := ep.(*arkanoidEpisode)
	if !ok {
		return nil, false
	}
	return e.game, true
}

type arkanoidEpisode struct {
	task *Arkanoid
	game *Game
	rng  *rand.Rand
	in   []float32
}

func (e *arkanoidEpisode) Finished() bool { return e.game.Over() }
func (e *arkanoidEpisode) Score() float64 { return float64(e.game.Score()) }

func (e *arkanoidEpisode) Observe() []float32 {
	for i := 0; i < arkanoidRandom; i++ {
		e.in[i] = e.rng.Float32()
	}
	frame := e.task.gridW * e.task.gridH
	// previous current frame becomes the older one
	copy(e.in[arkanoidRandom:arkanoidRandom+frame], e.in[arkanoidRandom+frame:])
	Downscale(e.in[arkanoidRandom+frame:], e.task.gridW, e.task.gridH, e.game.Pixels(), ScreenWidth, ScreenHeight)
	return e.in
}

func (e *arkanoidEpisode) Step(outputs []float32) {
	var left, right float64
	if o := float64(outputs[0]); o > 0 {
		right = o
	} else {
		left = -o
	}
	e.game.Update(left, right)
}
