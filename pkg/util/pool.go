package util

import "runtime"

// GetOptimalPoolSize sizes pools for CPU-bound work such as script
// parsing and asset hashing: twice the core count, clamped to [4, 32].
//
// Tree-sitter parsers block in cgo, so oversubscribing the cores keeps
// them busy. The cap bounds parser memory on large machines.
func GetOptimalPoolSize() int {
	poolSize := runtime.NumCPU() * 2
	if poolSize < 4 {
		poolSize = 4
	}
	if poolSize > 32 {
		poolSize = 32
	}
	return poolSize
}

// GetOptimalPoolSizeWithOverride returns override when positive, else
// GetOptimalPoolSize.
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
