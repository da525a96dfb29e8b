package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{"sess", "req"} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Fatalf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}
		if !IsValid(parts[1]) {
			t.Errorf("ULID part should be valid: %s", parts[1])
		}
	}
}

func TestTypedIDGeneration(t *testing.T) {
	if sessID := NewSessionID(); !strings.HasPrefix(string(sessID), "sess_") {
		t.Errorf("SessionID should start with 'sess_', got: %s", sessID)
	}
	if reqID := NewRequestID(); !strings.HasPrefix(string(reqID), "req_") {
		t.Errorf("RequestID should start with 'req_', got: %s", reqID)
	}
	if _, err := uuid.Parse(NewClientID().String()); err != nil {
		t.Errorf("ClientID should be a UUID: %v", err)
	}
}

func TestParseSessionID(t *testing.T) {
	valid := NewSessionID()
	got, err := ParseSessionID(valid.String())
	if err != nil {
		t.Fatalf("ParseSessionID(%s) failed: %v", valid, err)
	}
	if got != valid {
		t.Errorf("ParseSessionID returned %s, want %s", got, valid)
	}

	invalid := []string{
		"",
		"sess",
		"req_" + NewGenerator().GenerateString(),
		"sess_not-a-ulid",
	}
	for _, s := range invalid {
		if _, err := ParseSessionID(s); err == nil {
			t.Errorf("ParseSessionID(%q) should fail", s)
		}
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid(NewGenerator().GenerateString()) {
		t.Error("Generated ULID should be valid")
	}

	for _, id := range []string{"", "invalid", "1234567890", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsValid(id) {
			t.Errorf("ID should be invalid: %s", id)
		}
	}
}

func TestTimestamp(t *testing.T) {
	gen := NewGenerator()

	before := time.Now()
	id := gen.GenerateString()
	after := time.Now()

	ts, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Failed to extract timestamp: %v", err)
	}

	if ts.UnixMilli() < before.UnixMilli() || ts.UnixMilli() > after.UnixMilli() {
		t.Errorf("Timestamp %d should be between %d and %d", ts.UnixMilli(), before.UnixMilli(), after.UnixMilli())
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan string, goroutines*idsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- gen.GenerateString()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[string]bool)
	for id := range idChan {
		if seen[id] {
			t.Errorf("Duplicate ID found in concurrent generation: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != goroutines*idsPerGoroutine {
		t.Errorf("Expected %d unique IDs, got %d", goroutines*idsPerGoroutine, len(seen))
	}
}

func TestLexicographicSorting(t *testing.T) {
	gen := NewGenerator()

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = gen.GenerateString()
		time.Sleep(2 * time.Millisecond)
	}

	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Errorf("IDs should be lexicographically sorted: %s should be > %s", ids[i], ids[i-1])
		}
	}
}

func TestDefaultGenerator(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return the same instance")
	}
}

func BenchmarkGenerateWithPrefix(b *testing.B) {
	gen := NewGenerator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gen.GenerateWithPrefix(SessionPrefix)
	}
}
