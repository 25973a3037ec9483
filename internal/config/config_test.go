package config

import "testing"

func TestDefaultIsInvalidWithoutStartURL(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != ErrEmptyStartURL {
		t.Errorf("expected ErrEmptyStartURL, got %v", err)
	}
}

func TestValidateAcceptsDefaultsWithStartURL(t *testing.T) {
	c := Default()
	c.StartURL = "https://example.com"
	if err := c.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsSQLiteWithoutPath(t *testing.T) {
	c := Default()
	c.StartURL = "https://example.com"
	c.Store = StoreSQLite
	if err := c.Validate(); err != ErrInvalidStorePath {
		t.Errorf("expected ErrInvalidStorePath, got %v", err)
	}
}

func TestValidateRejectsBadMaxPages(t *testing.T) {
	c := Default()
	c.StartURL = "https://example.com"
	c.MaxPages = 0
	if err := c.Validate(); err != ErrInvalidMaxPages {
		t.Errorf("expected ErrInvalidMaxPages, got %v", err)
	}
}

func TestOrchestratorConfigProjection(t *testing.T) {
	c := Default()
	c.StartURL = "https://example.com"
	c.Concurrency = 4
	oc := c.OrchestratorConfig()
	if oc.Concurrency != 4 || oc.MaxPages != c.MaxPages || oc.WallClock != c.WallClock {
		t.Errorf("unexpected projection: %+v", oc)
	}
}
