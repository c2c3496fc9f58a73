package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type rate struct{ v float64 }

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry[string, *rate]()
	r.MustRegister("developer", &rate{0.1})
	r.MustRegister("manager", &rate{0.15})

	tests := []struct {
		key     string
		want    float64
		wantErr bool
	}{
		{key: "developer", want: 0.1},
		{key: "manager", want: 0.15},
		{key: "intern", wantErr: true},
		{key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.key), func(t *testing.T) {
			got, err := r.Lookup(tt.key)
			if tt.wantErr {
				if !IsUnknownKey(err) {
					t.Fatalf("Lookup(%q) err = %v, want ErrUnknownKey", tt.key, err)
				}
				if got != nil {
					t.Fatalf("Lookup(%q) returned %v on miss, want nil", tt.key, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) unexpected err: %v", tt.key, err)
			}
			if got.v != tt.want {
				t.Fatalf("Lookup(%q) = %v, want %v", tt.key, got.v, tt.want)
			}
		})
	}
}

func TestRegistryLookupIsIdempotent(t *testing.T) {
	r := NewRegistry[string, *rate]()
	r.MustRegister("gold", &rate{0.8})

	first, err := r.Lookup("gold")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.Lookup("gold")
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("lookup %d returned a different behavior", i)
		}
	}
}

func TestRegistryDuplicatePolicies(t *testing.T) {
	t.Run("overwrite", func(t *testing.T) {
		obs, logs := observer.New(zapcore.WarnLevel)
		r := NewRegistry[string, *rate](WithLogger(zap.New(obs)), WithName("bonus"))

		first, second := &rate{0.1}, &rate{0.2}
		if err := r.Register("developer", first); err != nil {
			t.Fatal(err)
		}
		if err := r.Register("developer", second); err != nil {
			t.Fatalf("overwrite policy returned error: %v", err)
		}

		got, err := r.Lookup("developer")
		if err != nil {
			t.Fatal(err)
		}
		if got != second {
			t.Fatalf("Lookup returned %v, want most recent registration", got.v)
		}
		if r.Len() != 1 {
			t.Fatalf("Len = %d, want 1", r.Len())
		}
		if logs.FilterMessage("overwriting registered behavior").Len() != 1 {
			t.Fatalf("expected one overwrite warning, got %v", logs.All())
		}
	})

	t.Run("reject", func(t *testing.T) {
		r := NewRegistry[string, *rate](WithDuplicatePolicy(RejectDuplicates))
		first := &rate{0.1}
		if err := r.Register("developer", first); err != nil {
			t.Fatal(err)
		}

		err := r.Register("developer", &rate{0.2})
		if !IsDuplicateKey(err) {
			t.Fatalf("Register duplicate err = %v, want ErrDuplicateKey", err)
		}
		var re *RegistryError
		if !errors.As(err, &re) || re.Op != "register" || re.Key != "developer" {
			t.Fatalf("unexpected registry error: %#v", err)
		}

		got, _ := r.Lookup("developer")
		if got != first {
			t.Fatal("rejected registration replaced the original behavior")
		}
	})
}

func TestRegistryRejectsInvalidEntries(t *testing.T) {
	r := NewRegistry[string, *rate]()

	if err := r.Register("   ", &rate{1}); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("blank key err = %v, want ErrInvalidKey", err)
	}
	if err := r.Register("gold", nil); !errors.Is(err, ErrInvalidBehavior) {
		t.Fatalf("nil behavior err = %v, want ErrInvalidBehavior", err)
	}

	var fn BehaviorFunc[int, int]
	fr := NewRegistry[string, Behavior[int, int]]()
	if err := fr.Register("noop", fn); !errors.Is(err, ErrInvalidBehavior) {
		t.Fatalf("typed nil func err = %v, want ErrInvalidBehavior", err)
	}
	if r.Len() != 0 || fr.Len() != 0 {
		t.Fatal("invalid registrations must not be stored")
	}
}

func TestRegistryMustRegisterPanics(t *testing.T) {
	r := NewRegistry[string, *rate](WithDuplicatePolicy(RejectDuplicates))
	r.MustRegister("vip", &rate{0.7})

	defer func() {
		if recover() == nil {
			t.Fatal("MustRegister did not panic on duplicate")
		}
	}()
	r.MustRegister("vip", &rate{0.5})
}

func TestRegistryKeys(t *testing.T) {
	r, err := NewRegistryFrom(map[string]*rate{
		"monday":  {0.05},
		"friday":  {0.2},
		"tuesday": {0.1},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := SortedKeys(r)
	want := []string{"friday", "monday", "tuesday"}
	if !slices.Equal(got, want) {
		t.Fatalf("SortedKeys = %v, want %v", got, want)
	}

	keys := r.Keys()
	keys[0] = "mutated"
	if _, ok := r.Get("mutated"); ok {
		t.Fatal("Keys must return a copy")
	}
}

func TestRegistryFallbackIsExplicit(t *testing.T) {
	zero := &rate{0}
	r := NewRegistry[string, *rate](WithFallback(zero))
	r.MustRegister("friday", &rate{0.2})

	if _, err := r.Lookup("sunday"); !IsUnknownKey(err) {
		t.Fatalf("Lookup must still fail with a fallback configured, got %v", err)
	}
	got, err := r.LookupOrFallback("sunday")
	if err != nil || got != zero {
		t.Fatalf("LookupOrFallback = %v, %v; want fallback", got, err)
	}

	noFallback := NewRegistry[string, *rate]()
	if _, err := noFallback.LookupOrFallback("sunday"); !IsUnknownKey(err) {
		t.Fatalf("LookupOrFallback without fallback err = %v, want ErrUnknownKey", err)
	}
}

func TestRegistryFallbackTypeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on mismatched fallback type")
		}
	}()
	NewRegistry[string, *rate](WithFallback(0.5))
}

func TestRegistryConcurrentLookupDuringRegister(t *testing.T) {
	r := NewRegistry[int, *rate]()
	r.MustRegister(0, &rate{0})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			r.MustRegister(i, &rate{float64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if _, err := r.Lookup(0); err != nil {
				t.Errorf("lookup of stable key failed: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if r.Len() != 201 {
		t.Fatalf("Len = %d, want 201", r.Len())
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DuplicatePolicy
		wantErr bool
	}{
		{in: "", want: OverwriteDuplicates},
		{in: "overwrite", want: OverwriteDuplicates},
		{in: " Reject ", want: RejectDuplicates},
		{in: "ignore", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDuplicatePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseDuplicatePolicy(%q) err = %v", tt.in, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("ParseDuplicatePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
