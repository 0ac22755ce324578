package config_test

import (
	"errors"
	"testing"

	"github.com/broistadev/broista/internal/config"
	"github.com/broistadev/broista/pkg/provider/embeddings"
	embedmock "github.com/broistadev/broista/pkg/provider/embeddings/mock"
	"github.com/broistadev/broista/pkg/provider/llm"
	llmmock "github.com/broistadev/broista/pkg/provider/llm/mock"
)

func TestRegistry_CreateLLM(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()

	var gotEntry config.ProviderEntry
	r.RegisterLLM("mockllm", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return &llmmock.Provider{}, nil
	})

	entry := config.ProviderEntry{Name: "mockllm", Model: "test-model", APIKey: "k"}
	p, err := r.CreateLLM(entry)
	if err != nil {
		t.Fatalf("CreateLLM returned error: %v", err)
	}
	if p == nil {
		t.Fatal("CreateLLM returned nil provider")
	}
	if gotEntry.Model != "test-model" || gotEntry.APIKey != "k" {
		t.Errorf("factory received %+v, want the full entry", gotEntry)
	}
}

func TestRegistry_CreateEmbeddings(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()
	r.RegisterEmbeddings("mockembed", func(config.ProviderEntry) (embeddings.Provider, error) {
		return &embedmock.Provider{}, nil
	})

	p, err := r.CreateEmbeddings(config.ProviderEntry{Name: "mockembed"})
	if err != nil {
		t.Fatalf("CreateEmbeddings returned error: %v", err)
	}
	if p == nil {
		t.Fatal("CreateEmbeddings returned nil provider")
	}
}

func TestRegistry_UnregisteredName(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()

	if _, err := r.CreateLLM(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM error=%v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateEmbeddings(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateEmbeddings error=%v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()
	r.RegisterLLM("dup", func(config.ProviderEntry) (llm.Provider, error) {
		t.Error("stale factory invoked")
		return nil, nil
	})
	r.RegisterLLM("dup", func(config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{}, nil
	})

	if _, err := r.CreateLLM(config.ProviderEntry{Name: "dup"}); err != nil {
		t.Fatalf("CreateLLM returned error: %v", err)
	}
}
