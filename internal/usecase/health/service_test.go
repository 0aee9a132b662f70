package health

import (
	"context"
	"errors"
	"testing"
)

type stubStore struct {
	size int
	dim  int
}

func (s stubStore) Len() int { return s.size }
func (s stubStore) Dim() int { return s.dim }

type stubChecker struct {
	err error
}

func (c stubChecker) HealthCheck(_ context.Context) error { return c.err }

func TestCheckHealthy(t *testing.T) {
	svc := New(stubStore{size: 42, dim: 1536}, stubChecker{})

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Fatalf("status = %q, want %q", report.Status, Healthy)
	}
	if report.Checks["store"] != CheckOK {
		t.Errorf("store check = %q, want ok", report.Checks["store"])
	}
	if report.Checks["embedding"] != CheckOK {
		t.Errorf("embedding check = %q, want ok", report.Checks["embedding"])
	}
	if report.IndexSize != 42 {
		t.Errorf("IndexSize = %d, want 42", report.IndexSize)
	}
	if report.Dimension != 1536 {
		t.Errorf("Dimension = %d, want 1536", report.Dimension)
	}
}

func TestCheckEmptyStoreDegraded(t *testing.T) {
	svc := New(stubStore{size: 0}, stubChecker{})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("status = %q, want %q", report.Status, Degraded)
	}
	if report.Checks["store"] != CheckError {
		t.Errorf("store check = %q, want error", report.Checks["store"])
	}
}

func TestCheckEmbeddingFailure(t *testing.T) {
	svc := New(stubStore{size: 5}, stubChecker{err: errors.New("backend down")})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("status = %q, want %q", report.Status, Degraded)
	}
	if report.Checks["embedding"] != CheckError {
		t.Errorf("embedding check = %q, want error", report.Checks["embedding"])
	}
	if report.Checks["store"] != CheckOK {
		t.Errorf("store check = %q, want ok", report.Checks["store"])
	}
}

func TestCheckNilEmbedding(t *testing.T) {
	svc := New(stubStore{size: 5}, nil)

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Fatalf("status = %q, want %q", report.Status, Healthy)
	}
	if _, ok := report.Checks["embedding"]; ok {
		t.Error("embedding check present, want absent")
	}
}
