package activation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// Kind identifies one squashing function. The numeric value is the bit position
// used in Mask and the tag written by the network codec.
type Kind uint8

const (
	Linear Kind = iota
	ReLU
	Step
	Sigmoid
	Tanh
	Atan
	Softsign
	Softplus
	Gaussian
	Sinc
	Sin

	// Count is the number of kinds in the catalog.
	Count = int(Sin) + 1
)

// Mask is a set of allowed kinds, one bit per Kind. Any (zero) means unrestricted.
type Mask uint32

const (
	Any Mask = 0
	All Mask = 1<<Count - 1
)

var ErrUnknownKind = errors.New("unknown activation")

var names = [Count]string{
	Linear:   "linear",
	ReLU:     "relu",
	Step:     "step",
	Sigmoid:  "sigmoid",
	Tanh:     "tanh",
	Atan:     "atan",
	Softsign: "softsign",
	Softplus: "softplus",
	Gaussian: "gaussian",
	Sinc:     "sinc",
	Sin:      "sin",
}

var funcs = [Count]func(float64) float64{
	Linear: func(x float64) float64 { return x },
	ReLU: func(x float64) float64 {
		if x > 0 {
			return x
		}
		return 0
	},
	Step: func(x float64) float64 {
		if x >= 0 {
			return 1
		}
		return 0
	},
	Sigmoid: func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
	Tanh:    func(x float64) float64 { return 2/(1+math.Exp(-2*x)) - 1 },
	Atan:    math.Atan,
	Softsign: func(x float64) float64 {
		return x / (1 + math.Abs(x))
	},
	Softplus: func(x float64) float64 { return math.Log(1 + math.Exp(x)) },
	Gaussian: func(x float64) float64 { return math.Exp(-(x * x)) },
	Sinc: func(x float64) float64 {
		if x == 0 {
			return 1
		}
		return math.Sin(x) / x
	},
	Sin: math.Sin,
}

func (k Kind) Valid() bool {
	return int(k) < Count
}

// Bit returns the one-hot mask bit for k.
func (k Kind) Bit() Mask {
	return 1 << k
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("activation(%d)", uint8(k))
	}
	return names[k]
}

// Apply evaluates the function at x. Invalid kinds behave as Linear.
func (k Kind) Apply(x float32) float32 {
	if !k.Valid() {
		return x
	}
	return float32(funcs[k](float64(x)))
}

// ParseKind resolves a catalog name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownKind, name)
}

// Kinds lists every kind in catalog order.
func Kinds() []Kind {
	out := make([]Kind, Count)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Allows reports whether k may be drawn under m.
func (m Mask) Allows(k Kind) bool {
	if !k.Valid() {
		return false
	}
	return m == Any || m&k.Bit() != 0
}

// Valid reports whether m is Any or names at least one catalog kind and nothing else.
func (m Mask) Valid() bool {
	return m == Any || (m&All != 0 && m&^All == 0)
}

func (m Mask) String() string {
	if m == Any {
		return "any"
	}
	parts := make([]string, 0, Count)
	for _, k := range Kinds() {
		if m&k.Bit() != 0 {
			parts = append(parts, k.String())
		}
	}
	if extra := m &^ All; extra != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(extra)))
	}
	return strings.Join(parts, "|")
}

// MaskOf builds a mask from kinds.
func MaskOf(kinds ...Kind) Mask {
	var m Mask
	for _, k := range kinds {
		m |= k.Bit()
	}
	return m
}

// ParseMask accepts "any", "" or names joined by '|', '+' or spaces.
func ParseMask(spec string) (Mask, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "any") {
		return Any, nil
	}
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == '|' || r == '+' || r == ' '
	})
	var m Mask
	for _, field := range fields {
		k, err := ParseKind(field)
		if err != nil {
			return 0, err
		}
		m |= k.Bit()
	}
	return m, nil
}

// Random draws uniformly from the kinds allowed by m by resampling the whole
// catalog until an allowed bit comes up. A mask with no catalog bits is treated
// as Any.
func Random(rng *rand.Rand, m Mask) Kind {
	if m&All == 0 {
		return Kind(rng.Intn(Count))
	}
	for {
		k := Kind(rng.Intn(Count))
		if m&k.Bit() != 0 {
			return k
		}
	}
}

// Names returns the catalog names sorted alphabetically.
func Names() []string {
	out := append([]string(nil), names[:]...)
	sort.Strings(out)
	return out
}
