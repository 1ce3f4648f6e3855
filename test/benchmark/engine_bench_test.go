// Package benchmark contains Go benchmarks for the tokenizer, inverted
// index, and search pipeline, measuring throughput and allocation behaviour.
package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwaghorn2000/oxidex/internal/engine"
	"github.com/mwaghorn2000/oxidex/internal/engine/index"
	"github.com/mwaghorn2000/oxidex/internal/engine/tokenizer"
)

var sampleText = []byte("The quick brown fox, jumps over the lazy dog! " +
	strings.Repeat("distributed search engine with inverted indexing and relevance ranking ", 20))

// BenchmarkTokenize measures tokenization throughput on a ~1.5KB document.
func BenchmarkTokenize(b *testing.B) {
	b.SetBytes(int64(len(sampleText)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tokens := tokenizer.Tokenize(sampleText)
		_ = tokens
	}
}

// BenchmarkIndexApply measures per-document insert throughput into the
// inverted index.
func BenchmarkIndexApply(b *testing.B) {
	deltas := index.CollectDeltas(tokenizer.Tokenize(sampleText))
	idx := index.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Apply(uint64(i), deltas)
	}
}

// BenchmarkEngineAdd measures full document registration including the file
// read and metadata stat.
func BenchmarkEngineAdd(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, sampleText, 0o644); err != nil {
		b.Fatal(err)
	}
	eng := engine.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.AddDocument(path); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEngineSearch measures single-term search latency at several
// corpus sizes.
func BenchmarkEngineSearch(b *testing.B) {
	for _, docs := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs=%d", docs), func(b *testing.B) {
			dir := b.TempDir()
			eng := engine.New()
			for i := 0; i < docs; i++ {
				path := filepath.Join(dir, fmt.Sprintf("doc-%d.txt", i))
				content := fmt.Sprintf("search engine document %d with shared and unique-%d terms", i, i)
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					b.Fatal(err)
				}
				if _, err := eng.AddDocument(path); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results := eng.Search("search")
				_ = results
			}
		})
	}
}

// BenchmarkEngineSearchParallel measures concurrent read throughput. The
// engine itself is not synchronized, but concurrent readers with no writer
// are safe.
func BenchmarkEngineSearchParallel(b *testing.B) {
	dir := b.TempDir()
	eng := engine.New()
	for i := 0; i < 1000; i++ {
		path := filepath.Join(dir, fmt.Sprintf("doc-%d.txt", i))
		if err := os.WriteFile(path, []byte("search engine with inverted indexing"), 0o644); err != nil {
			b.Fatal(err)
		}
		if _, err := eng.AddDocument(path); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			results := eng.Search("search")
			_ = results
		}
	})
}
