package registry

import (
	"errors"
	"testing"

	"github.com/sievemail/spamchain/filter"
)

type nopFilter struct{ id string }

func (f *nopFilter) ID() string                              { return f.id }
func (f *nopFilter) ApplySettings(_ []byte) error             { return nil }
func (f *nopFilter) GetSettings() ([]byte, error)             { return nil, nil }
func (f *nopFilter) Immediate(_ filter.Message) filter.Verdict { return filter.PASS }
func (f *nopFilter) Async(_ filter.Message) filter.Verdict     { return filter.PASS }
func (f *nopFilter) Reset()                                    {}
func (f *nopFilter) Classify(_ filter.Message, _ bool, _ bool) {}

func TestRegisterAndNew(t *testing.T) {
	r := NewRegistry()
	r.Register("nop", func(id string) (filter.Filter, error) { return &nopFilter{id: id}, nil })

	f, err := r.New("nop")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.ID() != "nop" {
		t.Errorf("ID() = %q, want nop", f.ID())
	}
}

func TestNewUnknownIDIsConfigError(t *testing.T) {
	r := NewRegistry()
	_, err := r.New("does-not-exist")
	if err == nil {
		t.Fatal("expected an error for unknown id")
	}
	var cfgErr *filter.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *filter.ConfigError, got %T", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register("dup", func(id string) (filter.Filter, error) { return &nopFilter{id: id}, nil })

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on duplicate registration")
		}
	}()
	r.Register("dup", func(id string) (filter.Filter, error) { return &nopFilter{id: id}, nil })
}

func TestGetReturnsNilForUnknownID(t *testing.T) {
	r := NewRegistry()
	if r.Get("missing") != nil {
		t.Error("Get should return nil for an unregistered id")
	}
}
