package hash

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
		{"long string", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
		{"another string", "another test string", 0x212a22f593810bec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, ID(tt.data))
		})
	}
}

func TestMix(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Mix(42, 7), Mix(42, 7))
	})

	t.Run("order sensitive", func(t *testing.T) {
		assert.NotEqual(t, Mix(42, 7), Mix(7, 42))
	})

	t.Run("nearby indices decorrelate", func(t *testing.T) {
		seen := make(map[uint64]bool)
		for i := uint64(0); i < 1000; i++ {
			seen[Mix(42, i)] = true
		}
		assert.Len(t, seen, 1000)
	})
}

func randString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range b {
		// random index
		b[i] = letters[seededRand.Intn(len(letters))]
	}

	return string(b)
}

func BenchmarkID(b *testing.B) {
	randStr := randString(20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ID(randStr)
	}
}
