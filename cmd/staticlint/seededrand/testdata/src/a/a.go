package a

import "math/rand"

func shuffle(xs []int) {
	rand.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] }) // want `rand.Shuffle uses the global math/rand source`
}

func pick() int {
	rand.Seed(42)        // want `rand.Seed uses the global math/rand source`
	return rand.Intn(10) // want `rand.Intn uses the global math/rand source`
}

func seeded() float64 {
	r := rand.New(rand.NewSource(7))
	return r.Float64()
}
