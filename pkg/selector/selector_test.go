package selector

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestRoundRobinCycles(t *testing.T) {
	r := &RoundRobin{}
	candidates := []string{"brave", "google", "searxng"}

	var got []string
	for i := 0; i < 7; i++ {
		name, err := r.Select(candidates)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		got = append(got, name)
	}
	want := []string{"brave", "google", "searxng", "brave", "google", "searxng", "brave"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sequence = %v, want %v", got, want)
	}
}

func TestRoundRobinSingleCandidate(t *testing.T) {
	r := &RoundRobin{}
	for i := 0; i < 3; i++ {
		if name, _ := r.Select([]string{"jina"}); name != "jina" {
			t.Errorf("Select = %q, want jina", name)
		}
	}
}

func TestRoundRobinConcurrent(t *testing.T) {
	r := &RoundRobin{}
	candidates := []string{"a", "b"}
	counts := map[string]int{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, _ := r.Select(candidates)
			mu.Lock()
			counts[name]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	if counts["a"] != 50 || counts["b"] != 50 {
		t.Errorf("counts = %v, want an even split", counts)
	}
}

func TestRandomStaysInCandidates(t *testing.T) {
	candidates := []string{"firecrawl", "crawl4ai", "tavily"}
	for i := 0; i < 50; i++ {
		name, err := Random{}.Select(candidates)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		found := false
		for _, c := range candidates {
			found = found || c == name
		}
		if !found {
			t.Fatalf("Select = %q, not a candidate", name)
		}
	}
}

func TestSelectEmpty(t *testing.T) {
	for _, s := range []Selector{&RoundRobin{}, Random{}} {
		if _, err := s.Select(nil); !errors.Is(err, ErrNoCandidates) {
			t.Errorf("%T.Select(nil) error = %v, want ErrNoCandidates", s, err)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		mode    string
		want    Selector
		wantErr bool
	}{
		{"", &RoundRobin{}, false},
		{"sequential", &RoundRobin{}, false},
		{"Random", Random{}, false},
		{"weighted", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := New(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
			}
			if !tt.wantErr && reflect.TypeOf(got) != reflect.TypeOf(tt.want) {
				t.Errorf("New(%q) = %T, want %T", tt.mode, got, tt.want)
			}
		})
	}
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"brave", []string{"brave"}},
		{" brave , google,,brave ", []string{"brave", "google"}},
	}
	for _, tt := range tests {
		if got := SplitCSV(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitCSV(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
