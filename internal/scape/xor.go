package scape

type xorCase struct {
	in   [2]float32
	want float32
}

var xorCases = []xorCase{
	{in: [2]float32{0, 0}, want: 0},
	{in: [2]float32{0, 1}, want: 1},
	{in: [2]float32{1, 0}, want: 1},
	{in: [2]float32{1, 1}, want: 0},
}

// XOR scores the summed squared error over the four input pairs. Minimised.
type XOR struct{}

func (XOR) Name() string   { return "xor" }
func (XOR) Inputs() int    { return 2 }
func (XOR) Outputs() int   { return 1 }
func (XOR) Minimise() bool { return true }

func (XOR) Reset(int64) Episode { return &xorEpisode{in: make([]float32, 2)} }

type xorEpisode struct {
	next int
	sse  float64
	in   []float32
}

func (e *xorEpisode) Finished() bool { return e.next >= len(xorCases) }

func (e *xorEpisode) Observe() []float32 {
	c := xorCases[e.next]
	copy(e.in, c.in[:])
	return e.in
}

func (e *xorEpisode) Step(outputs []float32) {
	delta := float64(outputs[0] - xorCases[e.next].want)
	e.sse += delta * delta
	e.next++
}

func (e *xorEpisode) Score() float64 { return e.sse }
