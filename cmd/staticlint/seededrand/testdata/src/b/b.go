package b

import (
	"math/rand"
	"strings"
)

type source struct{}

func (source) Intn(n int) int { return 0 }

func local() int {
	var rand source
	return rand.Intn(3)
}

func unrelated() string {
	return strings.ToUpper("ok")
}

func generator() *rand.Rand {
	return rand.New(rand.NewSource(1))
}
