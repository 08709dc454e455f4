package backend

import "testing"

type fakeBackend struct{ name string }

func (f fakeBackend) Name() string { return f.name }
func (f fakeBackend) BuildCommand(prompt string) (string, []string, string) {
	return f.name, []string{prompt}, ""
}

func TestRegisterGetRoundTrip(t *testing.T) {
	Register("fake", func() Backend { return fakeBackend{name: "fake"} })

	b, err := Get("fake")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if b.Name() != "fake" {
		t.Errorf("Name() = %q, want fake", b.Name())
	}
}

func TestGetUnknownBackend(t *testing.T) {
	if _, err := Get("does-not-exist"); err == nil {
		t.Error("Get() of an unregistered backend should error")
	}
}

func TestExists(t *testing.T) {
	Register("exists-fake", func() Backend { return fakeBackend{name: "exists-fake"} })
	if !Exists("exists-fake") {
		t.Error("Exists() = false for a registered backend")
	}
	if Exists("nope-never-registered") {
		t.Error("Exists() = true for an unregistered backend")
	}
}

func TestListIncludesRegistered(t *testing.T) {
	Register("list-fake", func() Backend { return fakeBackend{name: "list-fake"} })
	names := List()
	found := false
	for _, n := range names {
		if n == "list-fake" {
			found = true
		}
	}
	if !found {
		t.Errorf("List() = %v, want it to include list-fake", names)
	}
}
