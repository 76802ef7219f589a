package registry

import (
	"testing"

	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/entities"
)

func TestCreateAndGet(t *testing.T) {
	reg := New(10, zap.NewNop())

	session := reg.Create("abc", entities.Credentials{entities.CapabilityNews: "news-key"})
	if session.ID != "abc" {
		t.Errorf("Expected session ID abc, got %s", session.ID)
	}

	got, err := reg.Get("abc")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != session {
		t.Error("Get returned a different session instance")
	}
	if got.Credential(entities.CapabilityNews) != "news-key" {
		t.Error("Expected credentials to survive registration")
	}
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	reg := New(10, zap.NewNop())

	a := reg.Create("", nil)
	b := reg.Create("", nil)

	if a.ID == "" || b.ID == "" {
		t.Fatal("Expected generated session IDs to be non-empty")
	}
	if a.ID == b.ID {
		t.Errorf("Expected generated IDs to be unique, both were %s", a.ID)
	}
	if reg.Len() != 2 {
		t.Errorf("Expected 2 live sessions, got %d", reg.Len())
	}
}

func TestGetUnknownSession(t *testing.T) {
	reg := New(10, zap.NewNop())

	if _, err := reg.Get("missing"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	reg := New(10, zap.NewNop())
	reg.Create("abc", nil)

	reg.Destroy("abc")
	reg.Destroy("abc")

	if _, err := reg.Get("abc"); err != ErrSessionNotFound {
		t.Error("Expected session to be gone after destroy")
	}
	if reg.Len() != 0 {
		t.Errorf("Expected 0 live sessions, got %d", reg.Len())
	}
}
