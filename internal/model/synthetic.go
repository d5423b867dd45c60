package model

import (
	"math"
	"math/rand"

	"github.com/y0ug/malxplain/internal/behavior"
	"github.com/y0ug/malxplain/internal/features"
)

// DefaultSyntheticSamples is the bootstrap dataset size.
const DefaultSyntheticSamples = 1000

// GenerateSynthetic draws n labelled vectors whose fields follow plausible
// distributions and correlate weakly with the label.
func GenerateSynthetic(n int, seed int64) ([]features.Vector, []int) {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([]features.Vector, n)
	labels := make([]int, n)

	for i := 0; i < n; i++ {
		var v features.Vector

		v[features.FileSize] = math.Exp(15 + 2*rng.NormFloat64())
		v[features.SectionCount] = float64(1 + rng.Intn(9))
		v[features.ImportCount] = float64(rng.Intn(100))
		v[features.ImportedLibraryCount] = float64(rng.Intn(15))
		v[features.SuspiciousImportCount] = float64(rng.Intn(20))
		v[features.TotalStrings] = float64(rng.Intn(200))
		v[features.SuspiciousStringCount] = float64(rng.Intn(10))
		v[features.Entropy] = rng.Float64() * 8
		v[features.IsPacked] = float64(rng.Intn(2))
		v[features.UnusualSectionCount] = float64(rng.Intn(4))
		if v[features.Entropy] > 7 {
			v[features.HighEntropy] = 1
		}

		v[features.BehaviorScore] = float64(rng.Intn(behavior.MaxBehaviorScore))
		v[features.TCPConnectionCount] = float64(rng.Intn(50))
		v[features.DNSRequestCount] = float64(rng.Intn(20))
		v[features.HTTPRequestCount] = float64(rng.Intn(10))
		v[features.RegistryKeysCreated] = float64(rng.Intn(20))
		v[features.RegistryValuesSet] = float64(rng.Intn(20))
		v[features.RegistryKeysDeleted] = float64(rng.Intn(5))
		v[features.FilesCreatedCount] = float64(rng.Intn(15))
		v[features.FilesDeletedCount] = float64(rng.Intn(10))
		v[features.FilesModifiedCount] = float64(rng.Intn(15))
		v[features.ProcessesCreatedCount] = float64(rng.Intn(10))
		v[features.LibrariesLoadedCount] = float64(rng.Intn(30))

		p := 0.0
		if v[features.Entropy] > 6 {
			p += 0.3
		}
		if v[features.BehaviorScore] > 50 {
			p += 0.4
		}
		if v[features.SuspiciousImportCount] > 5 {
			p += 0.2
		}
		if v[features.IsPacked] == 1 {
			p += 0.3
		}
		if v[features.TCPConnectionCount] > 20 {
			p += 0.2
		}
		p /= 1.4

		if rng.Float64() < p {
			labels[i] = Malicious
		}
		vectors[i] = v
	}
	return vectors, labels
}
