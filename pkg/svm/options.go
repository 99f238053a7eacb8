package svm

import "fmt"

// OptionKey identifies a solver option.
type OptionKey int

// Solver option keys.
const (
	OptType OptionKey = iota
	OptKernelType
	OptNu
	OptShrinking
	OptEpsilon
	OptCacheSize
	OptGamma
	OptDegree
	OptCoef0
)

var optionNames = map[OptionKey]string{
	OptType:       "type",
	OptKernelType: "kernel_type",
	OptNu:         "nu",
	OptShrinking:  "shrinking",
	OptEpsilon:    "eps",
	OptCacheSize:  "cache_size",
	OptGamma:      "gamma",
	OptDegree:     "degree",
	OptCoef0:      "coef0",
}

func (k OptionKey) String() string {
	if name, ok := optionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OptionKey(%d)", int(k))
}

// Type selects the SVM problem formulation.
type Type int

const (
	// OneClass is the distribution-estimation (novelty detection) problem.
	OneClass Type = iota
)

// KernelType selects the kernel function.
type KernelType int

// Supported kernel functions.
const (
	Linear KernelType = iota
	Polynomial
	RBF
	Sigmoid
)

func (k KernelType) String() string {
	switch k {
	case Linear:
		return "linear"
	case Polynomial:
		return "polynomial"
	case RBF:
		return "rbf"
	case Sigmoid:
		return "sigmoid"
	default:
		return fmt.Sprintf("KernelType(%d)", int(k))
	}
}

// Options is the option mapping handed to an Engine.
type Options map[OptionKey]any

// Clone returns a shallow copy of o.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into o, replacing existing keys.
func (o Options) Merge(other Options) Options {
	for k, v := range other {
		o[k] = v
	}
	return o
}

// Float returns the float64 stored under key, or def when absent.
func (o Options) Float(key OptionKey, def float64) (float64, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%w: %s must be numeric, got %T", ErrInvalidParameter, key, v)
	}
}

// Int returns the int stored under key, or def when absent.
func (o Options) Int(key OptionKey, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	x, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an int, got %T", ErrInvalidParameter, key, v)
	}
	return x, nil
}

// Bool returns the bool stored under key, or def when absent.
func (o Options) Bool(key OptionKey, def bool) (bool, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	x, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a bool, got %T", ErrInvalidParameter, key, v)
	}
	return x, nil
}
